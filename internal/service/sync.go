// Package service contains the sync engine, the sync scheduler, and the
// library service. Together they implement offline-first whole-library
// synchronization against the configured backend.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Duke0404/readersync/internal/domain"
	"github.com/Duke0404/readersync/internal/errors"
	"github.com/Duke0404/readersync/internal/id"
	"github.com/Duke0404/readersync/internal/probe"
	"github.com/Duke0404/readersync/internal/remote"
	"github.com/Duke0404/readersync/internal/store"
)

// RemoteLibrary is the slice of the backend client the engine needs.
type RemoteLibrary interface {
	Configured() bool
	Timestamp(ctx context.Context) (int64, error)
	Library(ctx context.Context) ([]remote.WireBook, error)
	ReplaceLibrary(ctx context.Context, books []remote.WireBook, lastUpdated int64, deviceID string) error
}

var _ RemoteLibrary = (*remote.Client)(nil)

// SyncState describes where a sync run currently stands.
type SyncState string

// Sync lifecycle states, in the order a run moves through them.
const (
	StateIdle    SyncState = "idle"
	StateSyncing SyncState = "syncing"
	StateSuccess SyncState = "success"
	StateError   SyncState = "error"
)

// Outcome categorizes what a completed run actually did.
type Outcome string

// Possible run outcomes.
const (
	OutcomeUploaded       Outcome = "uploaded"
	OutcomeDownloaded     Outcome = "downloaded"
	OutcomeInSync         Outcome = "in_sync"
	OutcomeSkippedOffline Outcome = "skipped_offline"
	OutcomeFailed         Outcome = "failed"
)

// Result is the outcome of one sync run.
type Result struct {
	RunID   string  `json:"runId"`
	Success bool    `json:"success"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
}

// SyncEvent is delivered to subscribers as a run progresses.
type SyncEvent struct {
	RunID   string    `json:"runId"`
	State   SyncState `json:"state"`
	Message string    `json:"message,omitempty"`
}

// SyncService decides the direction of synchronization and executes it.
//
// The whole library moves as a unit: the side with the newer library
// timestamp wins and replaces the other side entirely. A run is either an
// upload, a download, a no-op, or a benign skip when the backend is
// unreachable.
type SyncService struct {
	store  *store.Store
	client RemoteLibrary
	prober *probe.Prober
	logger *slog.Logger

	// now is the wall clock used to stamp uploads. Injectable for tests.
	now func() int64

	running atomic.Bool

	mu        sync.Mutex
	listeners []func(SyncEvent)
	last      *Result
}

// NewSyncService creates a sync engine over the given store and backend.
func NewSyncService(st *store.Store, client RemoteLibrary, prober *probe.Prober, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		store:  st,
		client: client,
		prober: prober,
		logger: logger,
		now:    domain.NowMillis,
	}
}

// Subscribe registers fn to receive sync lifecycle events. Callbacks run on
// the syncing goroutine and must not block.
func (s *SyncService) Subscribe(fn func(SyncEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LastResult returns the outcome of the most recent completed run, or nil
// if no run has finished yet.
func (s *SyncService) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	out := *s.last
	return &out
}

// InProgress reports whether a run is currently executing.
func (s *SyncService) InProgress() bool {
	return s.running.Load()
}

// Sync runs one synchronization pass. forcePush skips the timestamp
// comparison and uploads unconditionally.
//
// Exactly one run executes at a time; a second call while one is in flight
// is dropped with a busy error rather than queued. An unreachable backend
// is not a failure, the run reports success with a skip message so offline
// operation stays transparent.
func (s *SyncService) Sync(ctx context.Context, forcePush bool) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Sync already in progress"},
			errors.Busy("sync already in progress")
	}
	defer s.running.Store(false)

	runID := id.MustGenerate("run")
	s.notify(SyncEvent{RunID: runID, State: StateSyncing})

	result, err := s.run(ctx, runID, forcePush)
	result.RunID = runID

	if err != nil {
		s.logger.Warn("sync failed", "run_id", runID, "error", err)
		s.notify(SyncEvent{RunID: runID, State: StateError, Message: result.Message})
	} else {
		s.logger.Info("sync finished", "run_id", runID, "message", result.Message)
		s.notify(SyncEvent{RunID: runID, State: StateSuccess, Message: result.Message})
	}

	s.mu.Lock()
	s.last = &result
	s.mu.Unlock()

	return result, err
}

func (s *SyncService) run(ctx context.Context, runID string, forcePush bool) (Result, error) {
	if !s.client.Configured() {
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Backend not configured"},
			errors.NotConfigured("backend not configured")
	}

	switch status := s.prober.Check(ctx); status {
	case probe.StatusUnreachable:
		return Result{Success: true, Outcome: OutcomeSkippedOffline, Message: "Offline mode - sync skipped"}, nil
	case probe.StatusUnauthenticated:
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Not authenticated"},
			errors.Unauthenticated("backend rejected the session")
	case probe.StatusAuthenticated:
	default:
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Backend not configured"},
			errors.NotConfigured("backend not configured")
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Local library unavailable"}, err
	}
	localTS := domain.LibraryTimestamp(books)

	if forcePush {
		return s.upload(ctx, runID, books)
	}

	remoteTS, err := s.client.Timestamp(ctx)
	if err != nil {
		// The backend answered the probe moments ago, but links flap.
		// A transport failure here is still just offline.
		switch errors.CodeOf(err) {
		case errors.CodeUnreachable:
			return Result{Success: true, Outcome: OutcomeSkippedOffline, Message: "Offline mode - sync skipped"}, nil
		case errors.CodeUnauthenticated:
			return Result{Success: false, Outcome: OutcomeFailed, Message: "Not authenticated"}, err
		}
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Backend request failed"}, err
	}

	s.logger.Debug("comparing library timestamps",
		"run_id", runID,
		"local", localTS,
		"remote", remoteTS,
	)

	switch {
	case localTS > remoteTS:
		return s.upload(ctx, runID, books)
	case localTS < remoteTS:
		return s.download(ctx, runID)
	default:
		return Result{Success: true, Outcome: OutcomeInSync, Message: "Library already in sync"}, nil
	}
}

// upload pushes the whole local library, stamped with the current wall
// clock so the backend's timestamp moves ahead of every device that has
// not seen this state yet.
func (s *SyncService) upload(ctx context.Context, runID string, books []domain.Book) (Result, error) {
	wire := make([]remote.WireBook, 0, len(books))
	for i := range books {
		wire = append(wire, remote.ToWire(&books[i]))
	}

	deviceID, err := s.store.DeviceID(ctx)
	if err != nil {
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Local library unavailable"}, err
	}

	if err := s.client.ReplaceLibrary(ctx, wire, s.now(), deviceID); err != nil {
		if errors.CodeOf(err) == errors.CodeUnreachable {
			return Result{Success: true, Outcome: OutcomeSkippedOffline, Message: "Offline mode - sync skipped"}, nil
		}
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Upload failed"}, err
	}

	s.logger.Info("library uploaded", "run_id", runID, "books", len(books))
	return Result{Success: true, Outcome: OutcomeUploaded, Message: fmt.Sprintf("Uploaded %d books", len(books))}, nil
}

// download replaces the local library with the remote one. Every book is
// decoded into memory first; the store is only touched once the full set
// decoded cleanly, so a failure mid-transfer never leaves a half-replaced
// library behind.
func (s *SyncService) download(ctx context.Context, runID string) (Result, error) {
	wire, err := s.client.Library(ctx)
	if err != nil {
		if errors.CodeOf(err) == errors.CodeUnreachable {
			return Result{Success: true, Outcome: OutcomeSkippedOffline, Message: "Offline mode - sync skipped"}, nil
		}
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Download failed"}, err
	}

	books := make([]domain.Book, 0, len(wire))
	skipped := 0
	for i := range wire {
		if wire[i].Data == nil {
			s.logger.Warn("skipping book with no payload",
				"run_id", runID,
				"book_id", wire[i].ID,
				"title", wire[i].Title,
			)
			skipped++
			continue
		}
		book, err := remote.FromWire(&wire[i])
		if err != nil {
			s.logger.Warn("skipping undecodable book",
				"run_id", runID,
				"book_id", wire[i].ID,
				"title", wire[i].Title,
				"error", err,
			)
			skipped++
			continue
		}
		// A data URI that decodes to nothing is as unreadable as no
		// payload at all.
		if len(book.Data) == 0 {
			s.logger.Warn("skipping book with empty payload",
				"run_id", runID,
				"book_id", wire[i].ID,
				"title", wire[i].Title,
			)
			skipped++
			continue
		}
		books = append(books, *book)
	}

	if err := s.store.ReplaceAll(ctx, books); err != nil {
		return Result{Success: false, Outcome: OutcomeFailed, Message: "Local library unavailable"}, err
	}

	s.logger.Info("library downloaded", "run_id", runID, "books", len(books), "skipped", skipped)
	message := fmt.Sprintf("Downloaded %d books", len(books))
	if skipped > 0 {
		message = fmt.Sprintf("Downloaded %d books, skipped %d", len(books), skipped)
	}
	return Result{Success: true, Outcome: OutcomeDownloaded, Message: message}, nil
}

func (s *SyncService) notify(ev SyncEvent) {
	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}
