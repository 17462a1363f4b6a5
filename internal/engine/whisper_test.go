package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner simulates CLI execution and writes the JSON artifact the
// engine expects to find in the output directory.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func (f *fakeRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.run(ctx, name, args...)
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestWhisperTranscribePassesTuningFlags(t *testing.T) {
	root := t.TempDir()
	audioPath := filepath.Join(root, "meeting.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("wav"), 0644))

	var gotArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			assert.Equal(t, "whisper-ctranslate2", name)
			gotArgs = append([]string{}, args...)

			out := filepath.Join(argValue(args, "--output_dir"), "meeting.json")
			payload := `{
				"text": " hello world",
				"language": "en",
				"segments": [
					{"id": 0, "start": 0.0, "end": 2.0, "text": " hello"},
					{"id": 1, "start": 3.0, "end": 5.0, "text": " world"}
				]
			}`
			return []byte("ok"), os.WriteFile(out, []byte(payload), 0644)
		},
	}

	w, err := NewWhisperForTests(WhisperConfig{
		ModelSize:  "base",
		ScratchDir: filepath.Join(root, "scratch"),
	}, runner)
	require.NoError(t, err)

	stream, err := w.Transcribe(context.Background(), audioPath, Options{
		BeamSize:     5,
		VADFilter:    true,
		MinSilenceMS: 500,
	})
	require.NoError(t, err)

	assert.Equal(t, "base", argValue(gotArgs, "--model"))
	assert.Equal(t, "5", argValue(gotArgs, "--beam_size"))
	assert.Equal(t, "True", argValue(gotArgs, "--vad_filter"))
	assert.Equal(t, "500", argValue(gotArgs, "--vad_min_silence_duration_ms"))
	assert.Equal(t, "json", argValue(gotArgs, "--output_format"))

	assert.Equal(t, "en", stream.Language())

	first, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, 0.0, first.Start)
	assert.Equal(t, 2.0, first.End)

	second, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, " world", second.Text)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWhisperTranscribeCommandFailure(t *testing.T) {
	root := t.TempDir()
	audioPath := filepath.Join(root, "broken.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("not audio"), 0644))

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("cannot decode"), errors.New("exit status 1")
		},
	}

	w, err := NewWhisperForTests(WhisperConfig{ScratchDir: filepath.Join(root, "scratch")}, runner)
	require.NoError(t, err)

	_, err = w.Transcribe(context.Background(), audioPath, Options{BeamSize: 5})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "whisper transcription failed")
}

func TestWhisperDefaults(t *testing.T) {
	root := t.TempDir()
	w, err := NewWhisperForTests(WhisperConfig{ScratchDir: filepath.Join(root, "scratch")}, &fakeRunner{})
	require.NoError(t, err)

	assert.Equal(t, "base", w.Model())
	assert.Equal(t, "cpu", w.Device())
}
