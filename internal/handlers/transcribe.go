package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/meetingai/stt-service/internal/pipeline"
)

// TranscribeHandler handles multipart transcription requests
type TranscribeHandler struct {
	pipeline  *pipeline.Pipeline
	maxSizeMB int
}

// NewTranscribeHandler creates a new transcription handler
func NewTranscribeHandler(p *pipeline.Pipeline, maxSizeMB int) *TranscribeHandler {
	return &TranscribeHandler{
		pipeline:  p,
		maxSizeMB: maxSizeMB,
	}
}

// Handle processes POST /transcribe: form fields are `file` (required),
// `meeting_id` (optional) and `speaker_names` (optional JSON array of
// {name, timestamp}).
func (h *TranscribeHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No audio file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if h.maxSizeMB > 0 && file.Size > maxSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	if !ValidateAudioFormat(file.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported audio format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Warnf("Unreadable upload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Uploaded file is unreadable",
			"code":  "ERR_UNREADABLE_FILE",
		})
	}
	defer src.Close()

	result, err := h.pipeline.Run(c.UserContext(), pipeline.Request{
		MeetingID:  c.FormValue("meeting_id"),
		Audio:      src,
		SpeakerLog: []byte(c.FormValue("speaker_names")),
	})
	if err != nil {
		log.Errorf("Transcription request failed: %v", err)

		var storageErr *pipeline.StorageError
		if errors.As(err, &storageErr) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to persist recording",
				"code":  "ERR_STORAGE",
			})
		}

		var recErr *pipeline.RecognitionError
		if errors.As(err, &recErr) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Recognition failed",
				"code":  "ERR_RECOGNITION",
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}

// ValidateAudioFormat checks if the file format is supported
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supportedFormats := []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac", ".wma"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
