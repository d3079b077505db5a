package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"replypilot/internal/logger"
)

// Manager fans view lifecycle events (suggestion_ready, meeting_analyzed,
// event_added, list_changed) out to the Server-Sent Event connections of each
// user, so the client does not poll while background fetches are in flight.
type Manager struct {
	clients    map[string]map[chan []byte]bool // userID -> connection channels
	clientsMux sync.RWMutex

	logger *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// viewEvent is the wire shape of a pushed event.
type viewEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	Time int64       `json:"time"`
}

func NewManager(logger *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		clients: make(map[string]map[chan []byte]bool),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddClient registers a new connection for a user and returns its channel.
func (m *Manager) AddClient(userID string) chan []byte {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if m.clients[userID] == nil {
		m.clients[userID] = make(map[chan []byte]bool)
	}

	channel := make(chan []byte, 10)
	m.clients[userID][channel] = true

	m.logger.Info("Added SSE client for user:", userID, "total:", len(m.clients[userID]))
	return channel
}

// RemoveClient drops a connection; called when the HTTP request ends.
func (m *Manager) RemoveClient(userID string, channel chan []byte) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if conns, ok := m.clients[userID]; ok {
		if conns[channel] {
			delete(conns, channel)
			close(channel)
		}
		if len(conns) == 0 {
			delete(m.clients, userID)
		}
	}
}

// Publish sends an event to every connection of the given user. Slow
// connections are skipped rather than blocking the caller.
func (m *Manager) Publish(userID, event string, data interface{}) {
	payload, err := json.Marshal(viewEvent{Type: event, Data: data, Time: time.Now().Unix()})
	if err != nil {
		m.logger.Error("Failed to marshal SSE event:", err)
		return
	}

	m.clientsMux.RLock()
	defer m.clientsMux.RUnlock()

	for channel := range m.clients[userID] {
		select {
		case channel <- payload:
		default:
			m.logger.Warn("Dropping SSE event for slow client of user:", userID)
		}
	}
}

// Close shuts down every connection.
func (m *Manager) Close() {
	m.cancel()

	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	for userID, conns := range m.clients {
		for channel := range conns {
			close(channel)
		}
		delete(m.clients, userID)
	}
}

// Done exposes the manager lifecycle so long-lived handlers can stop when
// the manager shuts down.
func (m *Manager) Done() <-chan struct{} {
	return m.ctx.Done()
}
