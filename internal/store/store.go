// Package store provides the embedded library database for the sync daemon.
//
// Books live in a BadgerDB instance as JSON values under "book:" keys with
// ids drawn from a badger sequence, mirroring the auto-increment ids browser
// clients get from IndexedDB. A store-level write lock serializes local
// mutations against the download path's destructive clear-then-replace so a
// racing import can never be lost mid-swap.
package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Duke0404/readersync/internal/errors"
)

// EventEmitter is the interface for broadcasting store changes.
// The store uses this to notify the UI without depending on transport details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// Event types broadcast on library changes.
const (
	EventBookAdded      = "book.added"
	EventBookUpdated    = "book.updated"
	EventBookDeleted    = "book.deleted"
	EventLibraryReplace = "library.replaced"
)

// Event describes a single library change.
type Event struct {
	Type   string `json:"type"`
	BookID int64  `json:"bookId,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// Store wraps a Badger database holding the local library.
type Store struct {
	db      *badger.DB
	seq     *badger.Sequence
	logger  *slog.Logger
	emitter EventEmitter

	// mu serializes mutations. ReplaceAll holds the write lock for the whole
	// clear+bulk-insert so concurrent Put/Delete calls queue behind it.
	mu sync.RWMutex
}

// New opens the library database at the given path.
// The emitter is required; use NewNoopEmitter in tests.
func New(path string, logger *slog.Logger, emitter EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Survive crashes without losing imports
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte(bookSeqKey), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open book id sequence: %w", err)
	}

	s := &Store{
		db:      db,
		seq:     seq,
		logger:  logger,
		emitter: emitter,
	}

	if logger != nil {
		logger.Info("library database opened", "path", path)
	}

	return s, nil
}

// Close releases the id sequence and closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing library database")
	}
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("release book id sequence: %w", err)
	}
	return s.db.Close()
}

// Helper methods for database operations.

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrNotFound
	}
	return err
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// emit broadcasts a store event if an emitter is configured.
func (s *Store) emit(ctx context.Context, ev Event) {
	if s.emitter != nil {
		s.emitter.Emit(ev)
	}
	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "store event",
			slog.String("type", ev.Type),
			slog.Int64("book_id", ev.BookID),
		)
	}
}
