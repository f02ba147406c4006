package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Syncer keeps an InMemoryStore and a Persister in step: Load restores the
// persisted snapshot, Save writes the current one when the store changed
// since the last save.
type Syncer struct {
	store     *InMemoryStore
	persister Persister
	logger    *slog.Logger

	mu    sync.Mutex
	saved uint64
}

// NewSyncer creates a Syncer. A nil logger falls back to slog.Default.
func NewSyncer(store *InMemoryStore, persister Persister, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: store, persister: persister, logger: logger}
}

// Load restores the persisted snapshot into the store.
func (s *Syncer) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("memory: load: %w", err)
	}
	s.store.Restore(entries)
	s.saved = s.store.Version()
	s.logger.Info("memory restored", "entries", len(entries))
	return nil
}

// Save persists the store if it changed since the last Load or Save.
func (s *Syncer) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.store.Version()
	if version == s.saved {
		return nil
	}
	entries := s.store.Snapshot()
	if err := s.persister.Save(ctx, entries); err != nil {
		return fmt.Errorf("memory: save: %w", err)
	}
	s.saved = version
	s.logger.Debug("memory saved", "entries", len(entries))
	return nil
}
