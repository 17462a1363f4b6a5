package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"

	"github.com/meetingai/stt-service/internal/cleanup"
	"github.com/meetingai/stt-service/internal/config"
	"github.com/meetingai/stt-service/internal/engine"
	"github.com/meetingai/stt-service/internal/handlers"
	"github.com/meetingai/stt-service/internal/pipeline"
	"github.com/meetingai/stt-service/internal/storage"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Warn("No config file found, using defaults")
		cfg = config.Default()
	}

	// Log to stdout and an in-memory ring served at /logs
	logBuffer := &LogBuffer{lines: make([]string, 0, 1000)}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	log.Info("Initializing components...")

	whisper, err := engine.NewWhisper(engine.WhisperConfig{
		Command:     cfg.Whisper.Command,
		ModelSize:   cfg.Whisper.Model,
		Device:      cfg.Whisper.Device,
		ComputeType: cfg.Whisper.ComputeType,
		ScratchDir:  cfg.Whisper.ScratchDir,
	})
	if err != nil {
		log.Fatalf("Failed to initialize whisper engine: %v", err)
	}

	store, err := storage.NewRecordingStore(cfg.Storage.RecordingsDir)
	if err != nil {
		log.Fatalf("Failed to initialize recording store: %v", err)
	}

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Google Drive archival (optional - may fail if credentials not set up)
	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Warnf("Google Drive not available: %v", err)
			log.Info("Recordings will only be stored locally")
			driveClient = nil
		} else {
			log.Info("Google Drive archival enabled")
		}
	} else {
		log.Info("Google Drive credentials not found - storing locally only")
	}

	p := pipeline.New(whisper, store, db, driveClient, pipeline.Config{
		BeamSize:      cfg.Whisper.BeamSize,
		MinSilenceMS:  cfg.Whisper.MinSilenceMS,
		BufferSeconds: cfg.Attribution.BufferSeconds,
	})

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Whisper.ScratchDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	healthHandler := handlers.NewHealthHandler(whisper.Device(), whisper.Model())
	transcribeHandler := handlers.NewTranscribeHandler(p, cfg.Limits.MaxFileSizeMB)
	streamHandler := handlers.NewStreamHandler(p)

	app.Get("/health", healthHandler.Handle)
	app.Post("/transcribe", transcribeHandler.Handle)
	app.Get("/ws/transcribe", websocket.New(streamHandler.Handle))

	// Recordings inventory: the directory listing is authoritative
	app.Get("/recordings", func(c *fiber.Ctx) error {
		files, err := store.List()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"recordings": files})
	})

	// Request log from the metadata database
	app.Get("/transcripts", func(c *fiber.Ctx) error {
		records, err := db.ListRecent(50)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(records)
	})

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"logs": logBuffer.GetLogs()})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Infof("Server starting on %s (model=%s, device=%s)", addr, whisper.Model(), whisper.Device())

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures recent log lines in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
