package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Dyastin-0/livechat/logger"
)

const DefaultRetention = 24 * time.Hour

// Sweeper deletes received files older than its retention window.
type Sweeper struct {
	dir    string
	maxAge time.Duration
	log    logger.Logger
	now    func() time.Time

	running sync.Mutex
}

func NewSweeper(dir string, maxAge time.Duration, log logger.Logger) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Sweeper{
		dir:    dir,
		maxAge: maxAge,
		log:    log.WithStr("dir", dir),
		now:    time.Now,
	}
}

// Sweep removes regular files whose modification time is older than the retention window
// and returns their names. A sweep already in progress makes this call a no-op.
// Per-file failures are logged and skipped.
func (s *Sweeper) Sweep() []string {
	if !s.running.TryLock() {
		return nil
	}
	defer s.running.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.WithErr(err).Error("failed to list receive directory")
		}
		return nil
	}

	cutoff := s.now().Add(-s.maxAge)

	var removed []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.log.WithStr("file", entry.Name()).WithErr(err).Warn("failed to stat file")
			}
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		err = os.Remove(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			// Removed by the display side since we listed the directory.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			s.log.WithStr("file", entry.Name()).WithErr(fsError("remove", entry.Name(), err)).Warn("failed to clean up file")
			continue
		}

		s.log.WithStr("file", entry.Name()).Info("cleaned up old file")
		removed = append(removed, entry.Name())
	}

	return removed
}
