package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meetingai/stt-service/internal/types"
)

// MetadataDB keeps a request log of completed transcriptions in SQLite.
// Rows are observability only: the recordings directory listing remains
// the authoritative inventory, and a failed insert never fails a request.
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (and if needed creates) the request-log database.
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		meeting_id TEXT NOT NULL,
		audio_file TEXT NOT NULL,
		language TEXT,
		duration REAL,
		entry_count INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transcriptions_created_at ON transcriptions(created_at);
	CREATE INDEX IF NOT EXISTS idx_transcriptions_meeting_id ON transcriptions(meeting_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// RecordTranscription appends one completed request to the log.
func (mdb *MetadataDB) RecordTranscription(result *types.TranscriptionResult) error {
	query := `
	INSERT INTO transcriptions (meeting_id, audio_file, language, duration, entry_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.Exec(query, result.MeetingID, result.AudioPath, result.Language,
		result.Duration, len(result.Transcript), time.Now())
	if err != nil {
		return fmt.Errorf("failed to record transcription: %w", err)
	}
	return nil
}

// ListRecent returns the newest request-log rows, up to limit.
func (mdb *MetadataDB) ListRecent(limit int) ([]map[string]interface{}, error) {
	query := `
	SELECT meeting_id, audio_file, language, duration, entry_count, created_at
	FROM transcriptions ORDER BY created_at DESC LIMIT ?
	`

	rows, err := mdb.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcriptions: %w", err)
	}
	defer rows.Close()

	var records []map[string]interface{}
	for rows.Next() {
		var (
			meetingID, audioFile, language string
			duration                       float64
			entryCount                     int
			createdAt                      time.Time
		)

		if err := rows.Scan(&meetingID, &audioFile, &language, &duration, &entryCount, &createdAt); err != nil {
			continue
		}

		records = append(records, map[string]interface{}{
			"meeting_id":  meetingID,
			"audio_file":  audioFile,
			"language":    language,
			"duration":    duration,
			"entry_count": entryCount,
			"created_at":  createdAt,
		})
	}

	return records, nil
}

// Close closes the database connection.
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
