package handlers

import (
	"bytes"
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"

	"github.com/meetingai/stt-service/internal/pipeline"
)

// StreamHandler accepts meeting audio over a WebSocket. Binary frames
// carry audio bytes; text frames are control messages: "END" closes the
// upload and runs transcription, a frame starting with '[' is taken as
// the speaker activity log, any other short frame sets the meeting id.
type StreamHandler struct {
	pipeline *pipeline.Pipeline
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(p *pipeline.Pipeline) *StreamHandler {
	return &StreamHandler{pipeline: p}
}

// Handle processes one WebSocket session
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	var (
		buffer     bytes.Buffer
		meetingID  string
		speakerLog []byte
	)

	log.Info("WebSocket transcription session established")

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Warnf("WebSocket read error: %v", err)
			break
		}

		if messageType == websocket.TextMessage {
			msg := string(message)

			if msg == "END" {
				break
			}
			if strings.HasPrefix(strings.TrimSpace(msg), "[") {
				speakerLog = message
				continue
			}
			if len(msg) > 0 && len(msg) < 200 {
				meetingID = msg
			}
			continue
		}

		if messageType == websocket.BinaryMessage {
			buffer.Write(message)
		}
	}

	if buffer.Len() == 0 {
		log.Warn("WebSocket session closed without audio data")
		return
	}

	result, err := h.pipeline.Run(context.Background(), pipeline.Request{
		MeetingID:  meetingID,
		Audio:      &buffer,
		SpeakerLog: speakerLog,
	})
	if err != nil {
		log.Errorf("WebSocket transcription failed: %v", err)
		c.WriteJSON(map[string]string{"error": "Recognition failed"})
		return
	}

	if err := c.WriteJSON(result); err != nil {
		log.Warnf("Failed to deliver WebSocket result: %v", err)
	}
}
