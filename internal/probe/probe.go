// Package probe determines whether the configured backend is reachable and
// whether the stored session is still accepted. The sync engine consults it
// before every run, and the poller keeps a live status for the control API.
package probe

import (
	"context"
	"log/slog"

	"github.com/Duke0404/readersync/internal/errors"
	"github.com/Duke0404/readersync/internal/remote"
)

// Status is the outcome of a backend probe.
type Status int

const (
	// StatusNotConfigured means no backend URL is set.
	StatusNotConfigured Status = iota
	// StatusUnreachable means the backend did not answer.
	StatusUnreachable
	// StatusUnauthenticated means the backend answered but rejected the session.
	StatusUnauthenticated
	// StatusAuthenticated means the backend answered and accepted the session.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusNotConfigured:
		return "not_configured"
	case StatusUnreachable:
		return "unreachable"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Online reports whether the backend answered at all.
func (s Status) Online() bool {
	return s == StatusAuthenticated || s == StatusUnauthenticated
}

// AuthValidator is the slice of the remote client the prober needs.
type AuthValidator interface {
	Configured() bool
	ValidateAuth(ctx context.Context) (bool, error)
}

var _ AuthValidator = (*remote.Client)(nil)

// Prober classifies backend connectivity with a single short request.
type Prober struct {
	client AuthValidator
	logger *slog.Logger
}

func New(client AuthValidator, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{client: client, logger: logger}
}

// Check probes the backend once. It never returns an error: every failure
// mode maps onto a Status.
func (p *Prober) Check(ctx context.Context) Status {
	if !p.client.Configured() {
		return StatusNotConfigured
	}

	ok, err := p.client.ValidateAuth(ctx)
	switch {
	case err != nil:
		if errors.CodeOf(err) != errors.CodeUnreachable {
			p.logger.Warn("probe failed", "error", err)
		}
		return StatusUnreachable
	case ok:
		return StatusAuthenticated
	default:
		return StatusUnauthenticated
	}
}
