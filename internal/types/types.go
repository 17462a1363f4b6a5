package types

// Transcription status constants
const (
	StatusCompleted = "completed"
)

// SpeakerActivityEntry is a single externally supplied assertion that a
// speaker became active at a point in time. Entries arrive in arbitrary
// order; nothing may assume they are sorted.
type SpeakerActivityEntry struct {
	Name      string  `json:"name"`
	Timestamp float64 `json:"timestamp"`
}

// Segment represents a timestamped utterance from the recognition engine
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptEntry is a recognized segment enriched with a speaker identity
type TranscriptEntry struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	SpeakerID string  `json:"speaker_id"`
	Text      string  `json:"text"`
}

// TranscriptionResult is the response for one transcription request.
// It is built once and returned; only the raw audio bytes are persisted.
type TranscriptionResult struct {
	MeetingID  string            `json:"meeting_id"`
	Status     string            `json:"status"`
	Transcript []TranscriptEntry `json:"transcript"`
	Duration   float64           `json:"duration"`
	AudioPath  string            `json:"audio_path,omitempty"`
	Language   string            `json:"language,omitempty"`
}
