package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/meetingai/stt-service/internal/attribution"
	"github.com/meetingai/stt-service/internal/engine"
	"github.com/meetingai/stt-service/internal/storage"
	"github.com/meetingai/stt-service/internal/types"
)

// Config holds the pipeline's tuning parameters. BeamSize and
// MinSilenceMS are engine parameters passed through unchanged;
// BufferSeconds belongs to attribution.
type Config struct {
	BeamSize      int
	MinSilenceMS  int
	BufferSeconds float64
}

// DefaultConfig returns the production tuning values.
func DefaultConfig() Config {
	return Config{
		BeamSize:      5,
		MinSilenceMS:  500,
		BufferSeconds: attribution.DefaultBufferSeconds,
	}
}

// Request carries one transcription request into the pipeline.
type Request struct {
	MeetingID  string
	Audio      io.Reader
	SpeakerLog []byte
}

// Pipeline orchestrates one transcription request: persist the audio,
// run recognition, attribute each segment, assemble the response. The
// metadata DB and Drive archiver are optional and best-effort.
type Pipeline struct {
	engine  engine.Transcriber
	store   *storage.RecordingStore
	db      *storage.MetadataDB
	archive *storage.DriveClient
	cfg     Config
}

// New creates a pipeline. db and archive may be nil.
func New(eng engine.Transcriber, store *storage.RecordingStore, db *storage.MetadataDB, archive *storage.DriveClient, cfg Config) *Pipeline {
	return &Pipeline{
		engine:  eng,
		store:   store,
		db:      db,
		archive: archive,
		cfg:     cfg,
	}
}

// Run executes the full pipeline for one request. The result is
// all-or-nothing: any recognition failure after the audio was persisted
// deletes the recording and returns an error with no partial transcript.
func (p *Pipeline) Run(ctx context.Context, req Request) (*types.TranscriptionResult, error) {
	meetingID := req.MeetingID
	if meetingID == "" {
		meetingID = uuid.New().String()
	}

	activity := parseSpeakerLog(meetingID, req.SpeakerLog)

	// Wall-clock timing starts here and includes persistence cost;
	// the recordings directory itself was created at startup.
	started := time.Now()

	filename, err := p.store.Save(meetingID, started, req.Audio)
	if err != nil {
		return nil, &StorageError{Op: "write", Err: err}
	}
	log.WithFields(log.Fields{
		"meeting_id": meetingID,
		"file":       filename,
	}).Info("Recording persisted")

	stream, err := p.engine.Transcribe(ctx, p.store.Path(filename), engine.Options{
		BeamSize:     p.cfg.BeamSize,
		VADFilter:    true,
		MinSilenceMS: p.cfg.MinSilenceMS,
	})
	if err != nil {
		p.cleanupRecording(filename)
		return nil, &RecognitionError{Err: err}
	}

	transcript := make([]types.TranscriptEntry, 0)
	for {
		seg, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.cleanupRecording(filename)
			return nil, &RecognitionError{Err: err}
		}

		transcript = append(transcript, types.TranscriptEntry{
			StartTime: seg.Start,
			EndTime:   seg.End,
			SpeakerID: attribution.Resolve(seg.Start, activity, p.cfg.BufferSeconds),
			Text:      strings.TrimSpace(seg.Text),
		})
	}

	result := &types.TranscriptionResult{
		MeetingID:  meetingID,
		Status:     types.StatusCompleted,
		Transcript: transcript,
		Duration:   time.Since(started).Seconds(),
		AudioPath:  filename,
		Language:   stream.Language(),
	}

	log.WithFields(log.Fields{
		"meeting_id": meetingID,
		"entries":    len(transcript),
		"duration":   result.Duration,
	}).Info("Transcription completed")

	p.recordMetadata(result)
	p.archiveRecording(result, filename)

	return result, nil
}

// parseSpeakerLog decodes the optional speaker activity payload. A
// malformed payload degrades to an empty log instead of failing the
// request; attribution then falls back to the default identity. This is
// an intentional policy, parse failures are never surfaced to the caller.
func parseSpeakerLog(meetingID string, payload []byte) []types.SpeakerActivityEntry {
	if len(payload) == 0 {
		return nil
	}

	var entries []types.SpeakerActivityEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		log.WithField("meeting_id", meetingID).Warnf("Ignoring malformed speaker log: %v", err)
		return nil
	}
	return entries
}

// cleanupRecording implements the delete-on-failure policy: a failed
// request leaves no orphaned recording behind.
func (p *Pipeline) cleanupRecording(filename string) {
	if err := p.store.Delete(filename); err != nil {
		log.Warnf("Failed to clean up recording %s: %v", filename, err)
	}
}

// recordMetadata appends the request to the sqlite log, best-effort
func (p *Pipeline) recordMetadata(result *types.TranscriptionResult) {
	if p.db == nil {
		return
	}
	if err := p.db.RecordTranscription(result); err != nil {
		log.Warnf("Failed to record transcription metadata: %v", err)
	}
}

// archiveRecording uploads the recording to Drive, best-effort
func (p *Pipeline) archiveRecording(result *types.TranscriptionResult, filename string) {
	if p.archive == nil {
		return
	}
	url, err := p.archive.Archive(result, p.store.Path(filename))
	if err != nil {
		log.Warnf("Drive archival failed for %s: %v", result.MeetingID, err)
		return
	}
	log.WithField("meeting_id", result.MeetingID).Infof("Archived to %s", url)
}
