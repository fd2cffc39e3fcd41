package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/Duke0404/readersync/internal/config"
	"github.com/Duke0404/readersync/internal/logger"
	"github.com/Duke0404/readersync/internal/probe"
	"github.com/Duke0404/readersync/internal/remote"
	"github.com/Duke0404/readersync/internal/sse"
)

// ProvideRemoteClient provides the backend HTTP client.
func ProvideRemoteClient(i do.Injector) (*remote.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := remote.NewClient(remote.Config{
		BaseURL:      cfg.Remote.BaseURL,
		Timeout:      cfg.Remote.Timeout,
		ProbeTimeout: cfg.Remote.ProbeTimeout,
	}, log.Logger)

	if !client.Configured() {
		log.Info("No backend configured, running in offline-only mode")
	}

	return client, nil
}

// ProvideProber provides the backend reachability prober.
func ProvideProber(i do.Injector) (*probe.Prober, error) {
	client := do.MustInvoke[*remote.Client](i)
	log := do.MustInvoke[*logger.Logger](i)
	return probe.New(client, log.Logger), nil
}

// PollerHandle wraps the reachability poller with its context for lifecycle management.
type PollerHandle struct {
	*probe.Poller
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *PollerHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvidePoller provides the background reachability poller. Status changes
// are pushed to SSE clients so the UI can reflect connectivity immediately.
func ProvidePoller(i do.Injector) (*PollerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := do.MustInvoke[*remote.Client](i)
	prober := do.MustInvoke[*probe.Prober](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	poller := probe.NewPoller(prober, cfg.Sync.OnlinePollInterval, cfg.Sync.OfflinePollInterval, log.Logger)

	poller.Subscribe(func(status probe.Status) {
		sseHandle.Emit(sse.NewEvent(sse.EventBackendStatus, map[string]string{
			"status": status.String(),
		}))
	})

	// A rejected session should surface as a status flip without waiting
	// for the next poll.
	client.SetAuthFailureHandler(poller.Kick)

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Run(ctx)

	return &PollerHandle{Poller: poller, cancel: cancel}, nil
}
