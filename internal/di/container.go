// Package di provides dependency injection configuration for the sync daemon.
package di

import (
	"github.com/samber/do/v2"

	"github.com/Duke0404/readersync/internal/config"
	"github.com/Duke0404/readersync/internal/di/providers"
	"github.com/Duke0404/readersync/internal/logger"
	"github.com/Duke0404/readersync/internal/probe"
	"github.com/Duke0404/readersync/internal/remote"
	"github.com/Duke0404/readersync/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Backend layer
	do.Provide(injector, providers.ProvideRemoteClient)
	do.Provide(injector, providers.ProvideProber)
	do.Provide(injector, providers.ProvidePoller)

	// Business services
	do.Provide(injector, providers.ProvideSyncService)
	do.Provide(injector, providers.ProvideScheduler)
	do.Provide(injector, providers.ProvideLibraryService)

	// Workers
	do.Provide(injector, providers.ProvideInbox)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*remote.Client](injector)
	_ = do.MustInvoke[*probe.Prober](injector)
	_ = do.MustInvoke[*providers.PollerHandle](injector)
	_ = do.MustInvoke[*service.SyncService](injector)
	_ = do.MustInvoke[*providers.SchedulerHandle](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*providers.InboxHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
