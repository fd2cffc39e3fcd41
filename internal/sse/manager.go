package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Duke0404/readersync/internal/id"
)

// Client represents one connected SSE consumer.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
}

// Manager fans events out to every connected client.
type Manager struct {
	logger            *slog.Logger
	clients           map[string]*Client
	events            chan Event
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	shutdownMu sync.RWMutex
	shutdown   bool

	wg sync.WaitGroup
}

// NewManager creates an SSE manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:            logger,
		clients:           make(map[string]*Client),
		events:            make(chan Event, 256),
		heartbeatInterval: 30 * time.Second,
	}
}

// Start runs the broadcast loop until ctx is cancelled. Call once at
// startup, on its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	heartbeat := time.NewTicker(m.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event := <-m.events:
			m.broadcast(event)
		case <-heartbeat.C:
			m.broadcast(NewHeartbeatEvent())
		case <-ctx.Done():
			m.closeAllClients()
			return
		}
	}
}

// Emit queues an event for broadcast. Safe to call from any goroutine;
// events emitted after shutdown are dropped.
func (m *Manager) Emit(event Event) {
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()
	if m.shutdown {
		return
	}

	select {
	case m.events <- event:
	default:
		m.logger.Warn("event queue full, dropping event", "event_type", string(event.Type))
	}
}

// Shutdown stops accepting events, drains what is queued, and closes all
// clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for event := range m.events {
			m.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("event drain timeout, some events may be lost")
	}

	m.wg.Wait()
	m.closeAllClients()
	return nil
}

// Connect registers a new client.
func (m *Manager) Connect() (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		EventChan:   make(chan Event, 64),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	total := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected", "client_id", clientID, "total_clients", total)
	return client, nil
}

// Disconnect removes a client and closes its channels.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	total := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	m.logger.Info("SSE client disconnected", "client_id", clientID, "total_clients", total)
}

func (m *Manager) broadcast(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var delivered, dropped int
	for _, client := range m.clients {
		// Non-blocking send, slow clients lose events rather than stall
		// the loop.
		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow client",
				"client_id", client.ID,
				"event_type", string(event.Type),
			)
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			"event_type", string(event.Type),
			"delivered", delivered,
			"dropped", dropped,
		)
	}
}

func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for clientID, client := range m.clients {
		close(client.Done)
		delete(m.clients, clientID)
	}
}
