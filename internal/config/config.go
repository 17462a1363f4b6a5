package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Whisper struct {
		Model        string `yaml:"model"`
		Command      string `yaml:"command"`
		Device       string `yaml:"device"`
		ComputeType  string `yaml:"compute_type"`
		ScratchDir   string `yaml:"scratch_dir"`
		BeamSize     int    `yaml:"beam_size"`
		MinSilenceMS int    `yaml:"min_silence_ms"`
	} `yaml:"whisper"`

	Attribution struct {
		BufferSeconds float64 `yaml:"buffer_seconds"`
	} `yaml:"attribution"`

	Storage struct {
		RecordingsDir string `yaml:"recordings_dir"`
		Database      string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

// Load reads the YAML config file, fills in defaults for anything unset
// and applies the WHISPER_MODEL_SIZE environment override.
func Load(path string) (*Config, error) {
	var config Config

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	config.applyEnv()
	return &config, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var config Config
	config.applyDefaults()
	config.applyEnv()
	return &config
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 4545
	}
	if c.Whisper.Model == "" {
		c.Whisper.Model = "base"
	}
	if c.Whisper.Command == "" {
		c.Whisper.Command = "whisper-ctranslate2"
	}
	if c.Whisper.Device == "" {
		c.Whisper.Device = "cpu"
	}
	if c.Whisper.ComputeType == "" {
		c.Whisper.ComputeType = "float32"
	}
	if c.Whisper.ScratchDir == "" {
		c.Whisper.ScratchDir = "temp"
	}
	if c.Whisper.BeamSize == 0 {
		c.Whisper.BeamSize = 5
	}
	if c.Whisper.MinSilenceMS == 0 {
		c.Whisper.MinSilenceMS = 500
	}
	if c.Attribution.BufferSeconds == 0 {
		c.Attribution.BufferSeconds = 1.0
	}
	if c.Storage.RecordingsDir == "" {
		c.Storage.RecordingsDir = "recordings"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "transcriptions.db"
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 24
	}
	if c.Limits.MaxFileSizeMB == 0 {
		c.Limits.MaxFileSizeMB = 500
	}
}

func (c *Config) applyEnv() {
	if model := os.Getenv("WHISPER_MODEL_SIZE"); model != "" {
		c.Whisper.Model = model
	}
}
