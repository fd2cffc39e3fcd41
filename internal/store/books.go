package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/Duke0404/readersync/internal/domain"
	"github.com/Duke0404/readersync/internal/errors"
)

const (
	bookPrefix = "book:"
	bookSeqKey = "seq:books"

	// maxSeqAdvance bounds how far the id sequence chases imported ids.
	// Legitimate ids come from auto-increment counters on peer devices,
	// so a gap beyond this means a corrupt remote library.
	maxSeqAdvance = 1 << 20
)

// bookKey builds a zero-padded key so lexicographic iteration order matches
// numeric id order.
func bookKey(id int64) []byte {
	return fmt.Appendf(nil, "%s%012d", bookPrefix, id)
}

// Book Operations

// ListBooks returns every book in the library.
// Order is by id, which matches insertion order for locally imported books.
func (s *Store) ListBooks(ctx context.Context) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listBooksLocked(ctx)
}

// listBooksLocked iterates the book prefix. Callers must hold mu.
func (s *Store) listBooksLocked(ctx context.Context) ([]domain.Book, error) {
	var books []domain.Book

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var book domain.Book
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			})
			if err != nil {
				return err
			}
			books = append(books, book)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list books")
	}

	return books, nil
}

// GetBook retrieves a single book by id.
func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var book domain.Book
	if err := s.get(bookKey(id), &book); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFoundf("book %d not found", id)
		}
		return nil, errors.Wrapf(err, errors.CodeInternal, "get book %d", id)
	}
	return &book, nil
}

// PutBook inserts or updates a book. A zero id means a new book and gets the
// next value from the id sequence, matching IndexedDB auto-increment behavior.
func (s *Store) PutBook(ctx context.Context, book *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := false
	if book.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "assign book id")
		}
		book.ID = id
		created = true
	}

	if err := s.set(bookKey(book.ID), book); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "put book %d", book.ID)
	}

	evType := EventBookUpdated
	if created {
		evType = EventBookAdded
	}
	s.emit(ctx, Event{Type: evType, BookID: book.ID})

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book stored",
			slog.Int64("id", book.ID),
			slog.String("title", book.Title),
			slog.Bool("created", created),
		)
	}
	return nil
}

// DeleteBook removes a book by id. Deleting an absent book is not an error.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(bookKey(id))
	})
	if err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "delete book %d", id)
	}

	s.emit(ctx, Event{Type: EventBookDeleted, BookID: id})
	return nil
}

// CountBooks returns the number of books without deserializing them.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "count books")
	}
	return count, nil
}

// ReplaceAll atomically swaps the entire library for the given set.
// This is the download path's only mutation: the write lock is held for the
// whole clear+bulk-insert, so a local Put or Delete either completes before
// the swap or observes the fully replaced library, never a half-cleared one.
// Incoming ids are preserved; the id sequence is only used for local imports.
func (s *Store) ReplaceAll(ctx context.Context, books []domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Advance the id sequence past every imported id so later local imports
	// cannot collide with downloaded books. Done before touching the book
	// keyspace so a rejected set leaves the library intact.
	var maxID int64
	for i := range books {
		maxID = max(maxID, books[i].ID)
	}
	if maxID > 0 {
		n, err := s.seq.Next()
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "advance id sequence")
		}
		next := int64(n) + 1
		if maxID-next > maxSeqAdvance {
			return errors.Validationf("book id %d is implausibly far ahead of the id sequence", maxID)
		}
		for next < maxID {
			if n, err = s.seq.Next(); err != nil {
				return errors.Wrap(err, errors.CodeInternal, "advance id sequence")
			}
			next = int64(n) + 1
		}
	}

	// Clear the book keyspace.
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "clear library")
	}

	// Bulk-insert the replacement set.
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()

	for i := range books {
		data, err := json.Marshal(&books[i])
		if err != nil {
			return errors.Wrapf(err, errors.CodeInternal, "marshal book %d", books[i].ID)
		}
		if err := batch.Set(bookKey(books[i].ID), data); err != nil {
			return errors.Wrapf(err, errors.CodeInternal, "batch set book %d", books[i].ID)
		}
	}

	if err := batch.Flush(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "flush replacement batch")
	}

	s.emit(ctx, Event{Type: EventLibraryReplace, Count: len(books)})

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "library replaced",
			slog.Int("count", len(books)),
		)
	}
	return nil
}

// nextID draws the next book id from the badger sequence.
// Sequence values start at 0; ids start at 1 to keep 0 meaning "unassigned".
func (s *Store) nextID() (int64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, err
	}
	return int64(n) + 1, nil
}
