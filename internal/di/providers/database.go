package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/Duke0404/readersync/internal/config"
	"github.com/Duke0404/readersync/internal/logger"
	"github.com/Duke0404/readersync/internal/sse"
	"github.com/Duke0404/readersync/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// storeEmitter forwards library change events from the store to SSE clients.
type storeEmitter struct {
	manager *sse.Manager
}

// Emit implements store.EventEmitter.
func (e *storeEmitter) Emit(event any) {
	ev, ok := event.(store.Event)
	if !ok {
		return
	}

	var eventType sse.EventType
	switch ev.Type {
	case store.EventBookAdded:
		eventType = sse.EventBookAdded
	case store.EventBookUpdated:
		eventType = sse.EventBookUpdated
	case store.EventBookDeleted:
		eventType = sse.EventBookDeleted
	case store.EventLibraryReplace:
		eventType = sse.EventLibraryReplaced
	default:
		return
	}

	e.manager.Emit(sse.NewEvent(eventType, ev))
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the local library database.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	db, err := store.New(dbPath, log.Logger, &storeEmitter{manager: sseHandle.Manager})
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}
