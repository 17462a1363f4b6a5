package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetingai/stt-service/internal/engine"
	"github.com/meetingai/stt-service/internal/pipeline"
	"github.com/meetingai/stt-service/internal/storage"
	"github.com/meetingai/stt-service/internal/types"
)

// fakeEngine serves canned segments without exec-ing anything.
type fakeEngine struct {
	segments []types.Segment
	err      error
}

type fakeStream struct {
	segments []types.Segment
	pos      int
}

func (f *fakeStream) Next() (types.Segment, error) {
	if f.pos >= len(f.segments) {
		return types.Segment{}, io.EOF
	}
	seg := f.segments[f.pos]
	f.pos++
	return seg, nil
}

func (f *fakeStream) Language() string { return "en" }

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string, opts engine.Options) (engine.SegmentStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStream{segments: f.segments}, nil
}

func newTestApp(t *testing.T, eng engine.Transcriber) *fiber.App {
	t.Helper()

	store, err := storage.NewRecordingStore(t.TempDir())
	require.NoError(t, err)

	p := pipeline.New(eng, store, nil, nil, pipeline.DefaultConfig())

	app := fiber.New()
	app.Get("/health", NewHealthHandler("cpu", "base").Handle)
	app.Post("/transcribe", NewTranscribeHandler(p, 100).Handle)
	return app
}

func multipartBody(t *testing.T, fields map[string]string, filename string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, &fakeEngine{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "cpu", payload["device"])
	assert.Equal(t, "base", payload["model"])
}

func TestTranscribeHappyPath(t *testing.T) {
	eng := &fakeEngine{segments: []types.Segment{
		{Start: 0.0, End: 2.0, Text: " hello"},
		{Start: 3.0, End: 5.0, Text: " world"},
	}}
	app := newTestApp(t, eng)

	body, contentType := multipartBody(t, map[string]string{
		"meeting_id":    "standup",
		"speaker_names": `[{"name":"Alice","timestamp":0.0},{"name":"Bob","timestamp":3.5}]`,
	}, "meeting.wav", []byte("RIFF wav"))

	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result types.TranscriptionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	assert.Equal(t, "standup", result.MeetingID)
	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.NotEmpty(t, result.AudioPath)
	require.Len(t, result.Transcript, 2)
	assert.Equal(t, "Alice", result.Transcript[0].SpeakerID)
	assert.Equal(t, "hello", result.Transcript[0].Text)
	assert.Equal(t, "Bob", result.Transcript[1].SpeakerID)
}

func TestTranscribeMissingFile(t *testing.T) {
	app := newTestApp(t, &fakeEngine{})

	body, contentType := multipartBody(t, map[string]string{"meeting_id": "m"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotEmpty(t, payload["error"])
}

func TestTranscribeUnsupportedFormat(t *testing.T) {
	app := newTestApp(t, &fakeEngine{})

	body, contentType := multipartBody(t, nil, "notes.txt", []byte("text"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranscribeMalformedSpeakerLogStillSucceeds(t *testing.T) {
	eng := &fakeEngine{segments: []types.Segment{{Start: 0, End: 1, Text: "hi"}}}
	app := newTestApp(t, eng)

	body, contentType := multipartBody(t, map[string]string{
		"speaker_names": `{broken`,
	}, "meeting.wav", []byte("RIFF"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result types.TranscriptionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result.Transcript, 1)
	assert.Equal(t, "SPEAKER_00", result.Transcript[0].SpeakerID)
}

func TestTranscribeRecognitionFailure(t *testing.T) {
	app := newTestApp(t, &fakeEngine{err: errors.New("corrupt audio")})

	body, contentType := multipartBody(t, nil, "meeting.wav", []byte("junk"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ERR_RECOGNITION", payload["code"])
}

func TestValidateAudioFormat(t *testing.T) {
	assert.True(t, ValidateAudioFormat("meeting.wav"))
	assert.True(t, ValidateAudioFormat("meeting.MP3"))
	assert.False(t, ValidateAudioFormat("meeting.txt"))
	assert.False(t, ValidateAudioFormat("meeting"))
}
