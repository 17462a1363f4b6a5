package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/meetingai/stt-service/internal/types"
)

// commandRunner abstracts process execution for testability
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands via os/exec
type execRunner struct{}

func (execRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Whisper invokes a faster-whisper CLI and parses its JSON output.
// The model is loaded once by the CLI per call; the instance itself is
// process-wide shared state. Inference is not reentrant, so calls are
// serialized with a mutex regardless of HTTP-level concurrency.
type Whisper struct {
	command     string
	modelSize   string
	device      string
	computeType string
	scratchDir  string
	runner      commandRunner
	mu          sync.Mutex
}

// WhisperConfig holds the engine's external configuration.
type WhisperConfig struct {
	Command     string
	ModelSize   string
	Device      string
	ComputeType string
	ScratchDir  string
}

// NewWhisper creates the exec-based recognition engine.
func NewWhisper(cfg WhisperConfig) (*Whisper, error) {
	if cfg.Command == "" {
		cfg.Command = "whisper-ctranslate2"
	}
	if cfg.ModelSize == "" {
		cfg.ModelSize = "base"
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = "float32"
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = "temp"
	}

	if err := os.MkdirAll(cfg.ScratchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	log.Infof("Initializing whisper engine: model=%s device=%s compute=%s",
		cfg.ModelSize, cfg.Device, cfg.ComputeType)

	return &Whisper{
		command:     cfg.Command,
		modelSize:   cfg.ModelSize,
		device:      cfg.Device,
		computeType: cfg.ComputeType,
		scratchDir:  cfg.ScratchDir,
		runner:      execRunner{},
	}, nil
}

// NewWhisperForTests constructs the engine with an injected runner.
func NewWhisperForTests(cfg WhisperConfig, runner commandRunner) (*Whisper, error) {
	w, err := NewWhisper(cfg)
	if err != nil {
		return nil, err
	}
	w.runner = runner
	return w, nil
}

// Model reports the active model size selector.
func (w *Whisper) Model() string { return w.modelSize }

// Device reports the active compute device.
func (w *Whisper) Device() string { return w.device }

// Transcribe runs recognition over the persisted audio file and exposes
// the parsed segments as an ordered stream.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string, opts Options) (SegmentStream, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audio path: %w", err)
	}

	outputDir, err := os.MkdirTemp(w.scratchDir, "whisper_output_")
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	defer os.RemoveAll(outputDir)

	args := []string{
		absPath,
		"--model", w.modelSize,
		"--device", w.device,
		"--compute_type", w.computeType,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--beam_size", strconv.Itoa(opts.BeamSize),
	}
	if opts.VADFilter {
		args = append(args,
			"--vad_filter", "True",
			"--vad_min_silence_duration_ms", strconv.Itoa(opts.MinSilenceMS),
		)
	}

	log.Debugf("Running whisper: %s %s", w.command, strings.Join(args, " "))

	output, err := w.runner.CombinedOutput(ctx, w.command, args...)
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w\noutput: %s", err, string(output))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	var result whisperOutput
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	segments := make([]types.Segment, len(result.Segments))
	for i, seg := range result.Segments {
		segments[i] = types.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}

	log.Infof("Recognition completed: %d segments, language=%s", len(segments), result.Language)
	return NewSliceStream(segments, result.Language), nil
}

// whisperOutput matches the CLI's JSON output format
type whisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
