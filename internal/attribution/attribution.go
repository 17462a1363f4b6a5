package attribution

import (
	"sort"

	"github.com/meetingai/stt-service/internal/types"
)

const (
	// DefaultSpeaker is returned when no activity log was supplied
	DefaultSpeaker = "SPEAKER_00"

	// UnknownSpeaker is returned when a log exists but no entry is
	// active at the segment's start time
	UnknownSpeaker = "Unknown"

	// DefaultBufferSeconds is the forward tolerance applied to the
	// segment start. Activity signals (UI click, push-to-talk) land
	// slightly after the acoustic onset of speech, so an entry up to
	// this far past the segment start still counts.
	DefaultBufferSeconds = 1.0
)

// Resolve maps a segment start time to a speaker identity using the
// activity log. The log is sorted by timestamp internally, so input order
// never affects the result. When two entries share a timestamp the one
// listed last wins: the sort is stable and the scan overwrites in order.
func Resolve(segmentStart float64, entries []types.SpeakerActivityEntry, bufferSeconds float64) string {
	if len(entries) == 0 {
		return DefaultSpeaker
	}

	sorted := make([]types.SpeakerActivityEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	current := UnknownSpeaker
	cutoff := segmentStart + bufferSeconds
	for _, entry := range sorted {
		if entry.Timestamp > cutoff {
			// Sorted ascending, so no later entry can apply either
			break
		}
		current = entry.Name
	}
	return current
}
