// Package statestore persists crawl progress as a JSON snapshot on disk.
// The snapshot is the single source of truth between runs; at most one
// crawl process may use a given snapshot path at a time.
package statestore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kimata/mohist/models"
)

// Store reads and writes a crawl-state snapshot at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore builds a store for the given snapshot path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load reads the snapshot. A missing or unreadable snapshot is not fatal:
// it degrades to the empty defaults so the next crawl starts fresh.
func (s *Store) Load() *models.CrawlState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("snapshot unreadable, starting fresh",
				slog.String("path", s.path),
				slog.Any("error", err),
			)
		}
		return models.NewCrawlState()
	}

	state := models.NewCrawlState()
	if err := json.Unmarshal(data, state); err != nil {
		slog.Warn("snapshot corrupt, starting fresh",
			slog.String("path", s.path),
			slog.Any("error", err),
		)
		return models.NewCrawlState()
	}
	state.Normalize()
	return state
}

// Save stamps LastSyncAt and writes the snapshot atomically: marshal to a
// temp file in the same directory, sync, then rename over the target. A
// crash mid-save leaves the previous snapshot intact.
func (s *Store) Save(state *models.CrawlState) error {
	state.LastSyncAt = s.now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
