package cleanup

import (
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// Scheduler prunes stale files from the engine's scratch directory on a
// ticker. It never touches the recordings directory, which is durable.
type Scheduler struct {
	scratchDir      string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(scratchDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		scratchDir:      scratchDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the cleanup scheduler
func (s *Scheduler) Start() {
	log.Info("Running initial scratch cleanup...")
	s.cleanOldFiles()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldFiles()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Infof("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Info("Cleanup scheduler stopped")
}

// cleanOldFiles removes scratch files older than maxAgeHours
func (s *Scheduler) cleanOldFiles() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.scratchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age > maxAge {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				log.Warnf("Failed to delete stale scratch file %s: %v", path, err)
			} else {
				deletedCount++
				deletedSize += size
			}
		}

		return nil
	})

	if err != nil {
		log.Warnf("Error during scratch cleanup: %v", err)
	}

	if deletedCount > 0 {
		log.Infof("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}
