package engine

import (
	"context"
	"io"

	"github.com/meetingai/stt-service/internal/types"
)

// Options are engine-tuning parameters passed through unchanged by the
// pipeline.
type Options struct {
	BeamSize     int
	VADFilter    bool
	MinSilenceMS int
}

// SegmentStream is a finite, ordered, non-restartable producer of
// recognized segments. Next returns io.EOF once the recording is
// exhausted; any other error aborts the stream.
type SegmentStream interface {
	Next() (types.Segment, error)

	// Language reports the detected language, if known before exhaustion
	Language() string
}

// Transcriber is the recognition engine boundary. Implementations own
// voice-activity detection and segmentation; segments arrive in
// non-decreasing start order.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (SegmentStream, error)
}

// sliceStream yields segments from an already materialized slice. The
// whisper CLI writes its full result before exiting, so this is how its
// output is exposed behind the lazy contract.
type sliceStream struct {
	segments []types.Segment
	language string
	pos      int
}

func (s *sliceStream) Next() (types.Segment, error) {
	if s.pos >= len(s.segments) {
		return types.Segment{}, io.EOF
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, nil
}

func (s *sliceStream) Language() string {
	return s.language
}

// NewSliceStream wraps a fixed segment slice in the stream contract.
func NewSliceStream(segments []types.Segment, language string) SegmentStream {
	return &sliceStream{segments: segments, language: language}
}
