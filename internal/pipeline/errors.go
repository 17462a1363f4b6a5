package pipeline

import "fmt"

// StorageError wraps a failure to persist the uploaded audio. It occurs
// before recognition starts and leaves no partial file behind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RecognitionError wraps a recognition engine failure. By the time it is
// surfaced the failure-cleanup path has already removed the persisted
// recording.
type RecognitionError struct {
	Err error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed: %v", e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}
