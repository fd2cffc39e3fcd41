package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Duke0404/readersync/internal/service"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "triggerSync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Run a sync",
		Description: "Runs one synchronization pass. With force=true the local library is uploaded unconditionally.",
		Tags:        []string{"Sync"},
	}, s.handleTriggerSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSyncStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Get sync status",
		Description: "Returns backend connectivity, whether a run is in flight, and the last run's result",
		Tags:        []string{"Sync"},
	}, s.handleGetSyncStatus)

	// SSE endpoint registered directly on chi because huma doesn't support SSE.
	s.router.Get("/api/v1/sync/events", s.sseHandler.ServeHTTP)
}

// === DTOs ===

// TriggerSyncInput contains parameters for a manual sync run.
type TriggerSyncInput struct {
	Force bool `query:"force" doc:"Upload unconditionally, skipping the timestamp comparison"`
}

// TriggerSyncOutput wraps the sync result for Huma.
type TriggerSyncOutput struct {
	Body service.Result
}

// SyncStatusResponse describes the daemon's sync state.
type SyncStatusResponse struct {
	Backend    string          `json:"backend" doc:"Backend connectivity: not_configured, unreachable, unauthenticated, or authenticated"`
	InProgress bool            `json:"inProgress" doc:"Whether a run is currently executing"`
	LastResult *service.Result `json:"lastResult,omitempty" doc:"Outcome of the most recent run"`
}

// SyncStatusOutput wraps the status response for Huma.
type SyncStatusOutput struct {
	Body SyncStatusResponse
}

// === Handlers ===

func (s *Server) handleTriggerSync(ctx context.Context, input *TriggerSyncInput) (*TriggerSyncOutput, error) {
	result, err := s.services.Scheduler.RequestSync(ctx, input.Force)
	if err != nil {
		return nil, err
	}
	return &TriggerSyncOutput{Body: result}, nil
}

func (s *Server) handleGetSyncStatus(_ context.Context, _ *struct{}) (*SyncStatusOutput, error) {
	return &SyncStatusOutput{
		Body: SyncStatusResponse{
			Backend:    s.services.Poller.Status().String(),
			InProgress: s.services.Sync.InProgress(),
			LastResult: s.services.Sync.LastResult(),
		},
	}, nil
}
