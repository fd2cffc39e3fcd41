package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/Duke0404/readersync/internal/config"
	"github.com/Duke0404/readersync/internal/logger"
	"github.com/Duke0404/readersync/internal/probe"
	"github.com/Duke0404/readersync/internal/remote"
	"github.com/Duke0404/readersync/internal/service"
	"github.com/Duke0404/readersync/internal/sse"
	"github.com/Duke0404/readersync/internal/validation"
)

// ProvideSyncService provides the sync engine. Run lifecycle events are
// forwarded to SSE clients.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*remote.Client](i)
	prober := do.MustInvoke[*probe.Prober](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	engine := service.NewSyncService(storeHandle.Store, client, prober, log.Logger)

	engine.Subscribe(func(ev service.SyncEvent) {
		var eventType sse.EventType
		switch ev.State {
		case service.StateSyncing:
			eventType = sse.EventSyncStarted
		case service.StateSuccess:
			eventType = sse.EventSyncSucceeded
		case service.StateError:
			eventType = sse.EventSyncFailed
		default:
			return
		}
		sseHandle.Emit(sse.NewEvent(eventType, ev))
	})

	return engine, nil
}

// SchedulerHandle wraps the sync scheduler with its context for lifecycle management.
type SchedulerHandle struct {
	*service.SyncScheduler
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	h.cancel()
	h.Stop()
	return nil
}

// ProvideScheduler provides the sync scheduler, subscribed to reachability
// changes so reconnects flush pending local work.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	engine := do.MustInvoke[*service.SyncService](i)
	pollerHandle := do.MustInvoke[*PollerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	scheduler := service.NewScheduler(engine, service.SchedulerConfig{
		Debounce:        cfg.Sync.Debounce,
		MinSyncInterval: cfg.Sync.MinSyncInterval,
	}, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)

	pollerHandle.Subscribe(scheduler.OnStatusChange)
	pollerHandle.Kick()

	return &SchedulerHandle{SyncScheduler: scheduler, cancel: cancel}, nil
}

// ProvideLibraryService provides the library CRUD service. Local mutations
// notify the scheduler so they get pushed to the backend.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	schedulerHandle := do.MustInvoke[*SchedulerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(storeHandle.Store, validation.New(), schedulerHandle.SyncScheduler, log.Logger), nil
}
