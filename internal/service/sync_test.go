package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duke0404/readersync/internal/domain"
	"github.com/Duke0404/readersync/internal/errors"
	"github.com/Duke0404/readersync/internal/probe"
	"github.com/Duke0404/readersync/internal/remote"
	"github.com/Duke0404/readersync/internal/store"
)

// fakeBackend implements both the engine's remote interface and the
// prober's validator so one fake drives a whole test scenario.
type fakeBackend struct {
	mu         sync.Mutex
	configured bool
	authOK     bool
	authErr    error

	timestamp int64
	tsErr     error

	books  []remote.WireBook
	libErr error

	replaceErr      error
	replacedBooks   []remote.WireBook
	replacedStamp   int64
	replacedDevice  string
	replaceCalls    int
	blockEntered    chan struct{}
	blockUntilSync  chan struct{}
}

func (f *fakeBackend) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

func (f *fakeBackend) ValidateAuth(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authOK, f.authErr
}

func (f *fakeBackend) Timestamp(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timestamp, f.tsErr
}

func (f *fakeBackend) Library(context.Context) ([]remote.WireBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.books, f.libErr
}

func (f *fakeBackend) ReplaceLibrary(_ context.Context, books []remote.WireBook, lastUpdated int64, deviceID string) error {
	if f.blockEntered != nil {
		close(f.blockEntered)
		<-f.blockUntilSync
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceCalls++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replacedBooks = books
	f.replacedStamp = lastUpdated
	f.replacedDevice = deviceID
	return nil
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "db"), nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func newEngine(t *testing.T, st *store.Store, backend *fakeBackend) *SyncService {
	t.Helper()
	engine := NewSyncService(st, backend, probe.New(backend, nil), nil)
	engine.now = func() int64 { return 5_000_000 }
	return engine
}

func seedBook(t *testing.T, st *store.Store, title string, lastRead int64) domain.Book {
	t.Helper()
	b := domain.Book{
		Title:        title,
		Data:         []byte("%PDF-1.4 " + title),
		TotalPages:   100,
		CurrentPage:  1,
		LastReadPage: 1,
		AddTime:      lastRead - 10,
		LastReadTime: lastRead,
		Settings:     domain.DefaultSettings(),
	}
	require.NoError(t, st.PutBook(context.Background(), &b))
	return b
}

func wireBook(t *testing.T, id int64, title string, lastRead int64) remote.WireBook {
	t.Helper()
	b := domain.Book{
		ID:           id,
		Title:        title,
		Data:         []byte("%PDF-1.4 " + title),
		TotalPages:   50,
		CurrentPage:  5,
		LastReadPage: 5,
		AddTime:      lastRead - 10,
		LastReadTime: lastRead,
		Settings:     domain.DefaultSettings(),
	}
	return remote.ToWire(&b)
}

func TestSync_NotConfigured(t *testing.T) {
	engine := newEngine(t, setupTestStore(t), &fakeBackend{configured: false})

	result, err := engine.Sync(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
	assert.False(t, result.Success)
	assert.Equal(t, "Backend not configured", result.Message)
}

func TestSync_Unauthenticated(t *testing.T) {
	engine := newEngine(t, setupTestStore(t), &fakeBackend{configured: true, authOK: false})

	result, err := engine.Sync(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthenticated))
	assert.Equal(t, "Not authenticated", result.Message)
}

func TestSync_OfflineIsBenign(t *testing.T) {
	backend := &fakeBackend{configured: true, authErr: errors.Unreachable("no route")}
	engine := newEngine(t, setupTestStore(t), backend)

	result, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, OutcomeSkippedOffline, result.Outcome)
	assert.Equal(t, "Offline mode - sync skipped", result.Message)
}

func TestSync_LocalNewerUploads(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Alpha", 3000)
	seedBook(t, st, "Beta", 4000)
	seedBook(t, st, "Gamma", 3500)

	backend := &fakeBackend{configured: true, authOK: true, timestamp: 2000}
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, OutcomeUploaded, result.Outcome)
	assert.Equal(t, "Uploaded 3 books", result.Message)

	// Uploads are stamped with the wall clock, not the library timestamp.
	assert.Equal(t, int64(5_000_000), backend.replacedStamp)
	assert.Len(t, backend.replacedBooks, 3)
	assert.NotEmpty(t, backend.replacedDevice)
}

func TestSync_RemoteNewerDownloads(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Old Local", 1000)

	backend := &fakeBackend{
		configured: true,
		authOK:     true,
		timestamp:  9000,
		books: []remote.WireBook{
			wireBook(t, 11, "Remote One", 8000),
			wireBook(t, 12, "Remote Two", 9000),
		},
	}
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDownloaded, result.Outcome)
	assert.Equal(t, "Downloaded 2 books", result.Message)

	books, err := st.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Remote One", books[0].Title)
	assert.Equal(t, int64(11), books[0].ID)
	assert.Equal(t, "Remote Two", books[1].Title)
}

func TestSync_EqualTimestampsNoOp(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Same", 7000)

	backend := &fakeBackend{configured: true, authOK: true, timestamp: 7000}
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInSync, result.Outcome)
	assert.Equal(t, "Library already in sync", result.Message)
	assert.Zero(t, backend.replaceCalls)
}

func TestSync_EmptyLocalLibraryDownloads(t *testing.T) {
	// An empty library has timestamp zero, so any remote state wins.
	backend := &fakeBackend{
		configured: true,
		authOK:     true,
		timestamp:  100,
		books:      []remote.WireBook{wireBook(t, 1, "Only Remote", 100)},
	}
	st := setupTestStore(t)
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDownloaded, result.Outcome)

	books, err := st.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestSync_ForcePushIgnoresRemoteTimestamp(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Stale", 100)

	// Remote is far ahead; a force push must still upload.
	backend := &fakeBackend{configured: true, authOK: true, timestamp: 999_999}
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, result.Outcome)
	assert.Equal(t, "Uploaded 1 books", result.Message)
	assert.Equal(t, int64(5_000_000), backend.replacedStamp)
}

func TestSync_TimestampFetchOfflineSkips(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Local", 1000)

	backend := &fakeBackend{
		configured: true,
		authOK:     true,
		tsErr:      errors.Unreachable("link dropped"),
	}
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedOffline, result.Outcome)
}

func TestSync_ServerErrorIsHardFailure(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Local", 1000)

	backend := &fakeBackend{
		configured: true,
		authOK:     true,
		tsErr:      errors.Server("backend returned 500"),
	}
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServer))
	assert.False(t, result.Success)
}

func TestSync_AuthRejectedTimestampFetchFails(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Local", 1000)

	// The probe passed, but the session was revoked before the
	// timestamp fetch.
	backend := &fakeBackend{
		configured: true,
		authOK:     true,
		tsErr:      errors.Unauthenticated("session expired"),
	}
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), false)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Not authenticated", result.Message)
}

func TestSync_DownloadSkipsBrokenBooks(t *testing.T) {
	good := wireBook(t, 1, "Good", 5000)

	noData := wireBook(t, 2, "No Payload", 5000)
	noData.Data = nil

	badEncoding := wireBook(t, 3, "Mangled", 5000)
	mangled := "definitely not a data uri"
	badEncoding.Data = &mangled

	emptyPayload := wireBook(t, 4, "Empty Payload", 5000)
	emptyURI := "data:application/pdf;base64,"
	emptyPayload.Data = &emptyURI

	backend := &fakeBackend{
		configured: true,
		authOK:     true,
		timestamp:  5000,
		books:      []remote.WireBook{good, noData, badEncoding, emptyPayload},
	}
	st := setupTestStore(t)
	engine := newEngine(t, st, backend)

	result, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "Downloaded 1 books, skipped 3", result.Message)

	books, err := st.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Good", books[0].Title)
}

func TestSync_ConcurrentRunIsDropped(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Local", 9000)

	backend := &fakeBackend{
		configured:     true,
		authOK:         true,
		timestamp:      100,
		blockEntered:   make(chan struct{}),
		blockUntilSync: make(chan struct{}),
	}
	engine := newEngine(t, st, backend)

	firstDone := make(chan Result, 1)
	go func() {
		result, _ := engine.Sync(context.Background(), false)
		firstDone <- result
	}()

	// Wait until the first run is inside the upload, then try a second.
	<-backend.blockEntered
	assert.True(t, engine.InProgress())

	_, err := engine.Sync(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBusy))

	close(backend.blockUntilSync)
	first := <-firstDone
	assert.True(t, first.Success)
	assert.False(t, engine.InProgress())
}

func TestSync_EmitsLifecycleEvents(t *testing.T) {
	st := setupTestStore(t)
	seedBook(t, st, "Book", 7000)

	backend := &fakeBackend{configured: true, authOK: true, timestamp: 7000}
	engine := newEngine(t, st, backend)

	var events []SyncEvent
	engine.Subscribe(func(ev SyncEvent) { events = append(events, ev) })

	_, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, StateSyncing, events[0].State)
	assert.Equal(t, StateSuccess, events[1].State)
	assert.Equal(t, events[0].RunID, events[1].RunID)
	assert.Equal(t, "Library already in sync", events[1].Message)
}

func TestSync_LastResultIsRecorded(t *testing.T) {
	st := setupTestStore(t)
	backend := &fakeBackend{configured: true, authOK: true, timestamp: 0}
	engine := newEngine(t, st, backend)

	assert.Nil(t, engine.LastResult())

	result, err := engine.Sync(context.Background(), false)
	require.NoError(t, err)

	last := engine.LastResult()
	require.NotNil(t, last)
	assert.Equal(t, result, *last)
	assert.Equal(t, OutcomeInSync, last.Outcome)
}
