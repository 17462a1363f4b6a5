package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RecordingStore persists raw meeting audio in a flat directory. Files are
// keyed by meeting id and ingestion time; the directory listing is the
// only inventory mechanism, there is no manifest.
type RecordingStore struct {
	dir string
}

// NewRecordingStore creates the store and its backing directory.
func NewRecordingStore(dir string) (*RecordingStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return &RecordingStore{dir: dir}, nil
}

// Dir returns the backing directory path.
func (rs *RecordingStore) Dir() string { return rs.dir }

// Save writes the audio bytes to {meeting_id}_{epochSeconds}.wav and
// returns the storage-relative filename. The file is fully flushed before
// Save returns, so recognition can read it from disk immediately. When a
// second upload for the same meeting lands within the same second, a
// counter suffix keeps the filenames distinct instead of overwriting.
func (rs *RecordingStore) Save(meetingID string, ingested time.Time, audio io.Reader) (string, error) {
	base := fmt.Sprintf("%s_%d", sanitizeFilename(meetingID), ingested.Unix())

	var f *os.File
	var filename string
	for attempt := 0; ; attempt++ {
		filename = base + ".wav"
		if attempt > 0 {
			filename = fmt.Sprintf("%s_%d.wav", base, attempt)
		}

		var err error
		f, err = os.OpenFile(filepath.Join(rs.dir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create recording file: %w", err)
		}
	}

	w := bufio.NewWriter(f)
	if _, err := io.Copy(w, audio); err != nil {
		f.Close()
		os.Remove(filepath.Join(rs.dir, filename))
		return "", fmt.Errorf("failed to write recording: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(filepath.Join(rs.dir, filename))
		return "", fmt.Errorf("failed to flush recording: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(filepath.Join(rs.dir, filename))
		return "", fmt.Errorf("failed to close recording: %w", err)
	}

	return filename, nil
}

// Path resolves a storage-relative filename to a filesystem path.
func (rs *RecordingStore) Path(filename string) string {
	return filepath.Join(rs.dir, filepath.Base(filename))
}

// Delete removes a persisted recording. Missing files are not an error.
func (rs *RecordingStore) Delete(filename string) error {
	if filename == "" {
		return nil
	}
	err := os.Remove(rs.Path(filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}

// List returns the storage-relative filenames of all persisted recordings.
func (rs *RecordingStore) List() ([]string, error) {
	entries, err := os.ReadDir(rs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// sanitizeFilename strips path separators and other characters that are
// unsafe in a filename
func sanitizeFilename(name string) string {
	result := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	result = filepath.Base(result)
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
