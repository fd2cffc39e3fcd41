package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Poller re-probes the backend on an adaptive interval: frequently while the
// backend is reachable so auth loss is noticed quickly, and slowly while it
// is offline to avoid hammering a dead link.
type Poller struct {
	prober       *Prober
	fastInterval time.Duration
	slowInterval time.Duration
	logger       *slog.Logger

	mu          sync.RWMutex
	current     Status
	subscribers []func(Status)

	kick chan struct{}
}

func NewPoller(prober *Prober, fast, slow time.Duration, logger *slog.Logger) *Poller {
	if fast <= 0 {
		fast = 10 * time.Second
	}
	if slow <= 0 {
		slow = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		prober:       prober,
		fastInterval: fast,
		slowInterval: slow,
		logger:       logger,
		current:      StatusUnreachable,
		kick:         make(chan struct{}, 1),
	}
}

// Status returns the most recent probe outcome.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe registers fn to be called whenever the status changes. Callbacks
// run on the poller goroutine and must not block.
func (p *Poller) Subscribe(fn func(Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Kick requests an immediate re-probe, cutting the current wait short.
// Useful right after a login or a network-facing mutation.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run probes until ctx is cancelled. It blocks and is meant to be launched
// on its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-p.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		status := p.prober.Check(ctx)
		p.update(status)

		if status.Online() {
			timer.Reset(p.fastInterval)
		} else {
			timer.Reset(p.slowInterval)
		}
	}
}

func (p *Poller) update(status Status) {
	p.mu.Lock()
	changed := status != p.current
	p.current = status
	subs := p.subscribers
	p.mu.Unlock()

	if !changed {
		return
	}

	p.logger.Info("backend status changed", "status", status.String())
	for _, fn := range subs {
		fn(status)
	}
}
