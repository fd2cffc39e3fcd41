package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duke0404/readersync/internal/domain"
	"github.com/Duke0404/readersync/internal/errors"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "db")
	s, err := New(dbPath, nil, NewNoopEmitter())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func testBook(title string) *domain.Book {
	b := &domain.Book{
		Title:       title,
		Data:        []byte("%PDF-1.4 " + title),
		TotalPages:  10,
		CurrentPage: 1,
	}
	b.LastReadPage = 1
	b.InitTimestamps()
	b.Settings = domain.DefaultSettings()
	return b
}

func TestPutBook_AssignsSequentialIDs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := testBook("First")
	b := testBook("Second")
	require.NoError(t, s.PutBook(ctx, a))
	require.NoError(t, s.PutBook(ctx, b))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
}

func TestPutBook_UpdateKeepsID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b := testBook("Original")
	require.NoError(t, s.PutBook(ctx, b))

	b.Title = "Renamed"
	require.NoError(t, s.PutBook(ctx, b))

	got, err := s.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	count, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetBook_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetBook(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestGetBook_RoundTripsPayloadAndSettings(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	author := "Jane Doe"
	b := testBook("Payload Test")
	b.Author = &author
	b.Cover = []byte{0xFF, 0xD8, 0xFF}
	b.Settings.Bionic.On = true
	b.Settings.Bionic.Boldness = 5
	require.NoError(t, s.PutBook(ctx, b))

	got, err := s.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Data, got.Data)
	assert.Equal(t, b.Cover, got.Cover)
	require.NotNil(t, got.Author)
	assert.Equal(t, author, *got.Author)
	assert.Equal(t, 5, got.Settings.Bionic.Boldness)
}

func TestDeleteBook(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b := testBook("Doomed")
	require.NoError(t, s.PutBook(ctx, b))
	require.NoError(t, s.DeleteBook(ctx, b.ID))

	_, err := s.GetBook(ctx, b.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteBook(ctx, b.ID))
}

func TestListBooks_OrderedByID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, s.PutBook(ctx, testBook("Book")))
	}

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 12)
	for i := 1; i < len(books); i++ {
		assert.Less(t, books[i-1].ID, books[i].ID)
	}
}

func TestReplaceAll_SwapsLibraryAndPreservesIDs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutBook(ctx, testBook("Local A")))
	require.NoError(t, s.PutBook(ctx, testBook("Local B")))

	remote := []domain.Book{*testBook("Remote X"), *testBook("Remote Y"), *testBook("Remote Z")}
	remote[0].ID = 7
	remote[1].ID = 8
	remote[2].ID = 42

	require.NoError(t, s.ReplaceAll(ctx, remote))

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, int64(7), books[0].ID)
	assert.Equal(t, int64(42), books[2].ID)
	assert.Equal(t, "Remote X", books[0].Title)
}

func TestReplaceAll_AdvancesIDSequencePastImports(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	remote := []domain.Book{*testBook("Remote")}
	remote[0].ID = 50
	require.NoError(t, s.ReplaceAll(ctx, remote))

	local := testBook("Local After Download")
	require.NoError(t, s.PutBook(ctx, local))
	assert.Greater(t, local.ID, int64(50))
}

func TestReplaceAll_RejectsImplausibleID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutBook(ctx, testBook("Existing")))

	remote := []domain.Book{*testBook("Corrupt")}
	remote[0].ID = 1 << 40

	err := s.ReplaceAll(ctx, remote)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	// The rejected set must not have cleared the library.
	books, listErr := s.ListBooks(ctx)
	require.NoError(t, listErr)
	require.Len(t, books, 1)
	assert.Equal(t, "Existing", books[0].Title)
}

func TestReplaceAll_EmptySetClearsLibrary(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutBook(ctx, testBook("Only")))
	require.NoError(t, s.ReplaceAll(ctx, nil))

	count, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplaceAll_ConcurrentPutsAreNotLost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutBook(ctx, testBook("Seed")))

	// Hammer replace and put concurrently; the write lock must keep every
	// operation atomic, so the final count is either the replacement set
	// alone or the set plus the concurrent insert.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		replacement := []domain.Book{*testBook("Replacement")}
		replacement[0].ID = 100
		_ = s.ReplaceAll(ctx, replacement)
	}()
	go func() {
		defer wg.Done()
		_ = s.PutBook(ctx, testBook("Straggler"))
	}()
	wg.Wait()

	count, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Contains(t, []int{1, 2}, count)
}

func TestDeviceID_StableAcrossCalls(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.DeviceID(ctx)
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(first))

	second, err := s.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type captureEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureEmitter) Emit(event any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev, ok := event.(Event); ok {
		c.events = append(c.events, ev)
	}
}

func TestStoreEmitsChangeEvents(t *testing.T) {
	emitter := &captureEmitter{}
	dbPath := filepath.Join(t.TempDir(), "db")
	s, err := New(dbPath, nil, emitter)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	b := testBook("Evented")
	require.NoError(t, s.PutBook(ctx, b))
	require.NoError(t, s.DeleteBook(ctx, b.ID))
	require.NoError(t, s.ReplaceAll(ctx, nil))

	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	require.Len(t, emitter.events, 3)
	assert.Equal(t, EventBookAdded, emitter.events[0].Type)
	assert.Equal(t, EventBookDeleted, emitter.events[1].Type)
	assert.Equal(t, EventLibraryReplace, emitter.events[2].Type)
}
