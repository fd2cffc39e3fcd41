package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/Duke0404/readersync/internal/api"
	"github.com/Duke0404/readersync/internal/config"
	"github.com/Duke0404/readersync/internal/logger"
	"github.com/Duke0404/readersync/internal/remote"
	"github.com/Duke0404/readersync/internal/service"
	"github.com/Duke0404/readersync/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the local control API server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	library := do.MustInvoke[*service.LibraryService](i)
	engine := do.MustInvoke[*service.SyncService](i)
	schedulerHandle := do.MustInvoke[*SchedulerHandle](i)
	client := do.MustInvoke[*remote.Client](i)
	pollerHandle := do.MustInvoke[*PollerHandle](i)

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger)

	services := &api.Services{
		Library:   library,
		Sync:      engine,
		Scheduler: schedulerHandle.SyncScheduler,
		Remote:    client,
		Poller:    pollerHandle.Poller,
	}

	handler := api.NewServer(storeHandle.Store, services, sseHandler, cfg.Server.AllowedOrigin, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
