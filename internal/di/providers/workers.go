package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/Duke0404/readersync/internal/config"
	"github.com/Duke0404/readersync/internal/logger"
	"github.com/Duke0404/readersync/internal/service"
	"github.com/Duke0404/readersync/internal/watcher"
)

// InboxHandle wraps the inbox watcher with its context for lifecycle management.
// Inbox is nil when no inbox directory is configured.
type InboxHandle struct {
	*watcher.Inbox
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *InboxHandle) Shutdown() error {
	if h.Inbox == nil {
		return nil
	}
	h.cancel()
	return h.Stop()
}

// ProvideInbox provides the inbox directory watcher.
func ProvideInbox(i do.Injector) (*InboxHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Data.InboxPath == "" {
		log.Info("Inbox watcher disabled, no inbox path configured")
		return &InboxHandle{}, nil
	}

	library := do.MustInvoke[*service.LibraryService](i)

	inbox, err := watcher.New(cfg.Data.InboxPath, library, log.Logger, watcher.Options{})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := inbox.Start(ctx); err != nil {
			log.Error("Inbox watcher stopped", "error", err)
		}
	}()

	log.Info("Inbox watcher started", "dir", cfg.Data.InboxPath)

	return &InboxHandle{Inbox: inbox, cancel: cancel}, nil
}
