package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type hubClient struct {
	conn      Conn
	sessionID string
	mu        sync.Mutex
}

func (c *hubClient) send(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

// Hub fans payloads out to connected websocket clients.
type Hub struct {
	name    string
	mu      sync.RWMutex
	clients map[Conn]*hubClient
	ch      chan any
}

func NewHub(name string) *Hub {
	return &Hub{
		name:    name,
		clients: map[Conn]*hubClient{},
		ch:      make(chan any, 64),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case payload := <-h.ch:
			h.deliver(payload)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) deliver(payload any) {
	h.mu.RLock()
	clients := make([]*hubClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()
	for _, client := range clients {
		if err := client.send(payload); err != nil {
			log.Debug().Err(err).Str("hub", h.name).Msg("dropping websocket client")
			h.Remove(client.conn)
			_ = client.conn.Close()
		}
	}
}

// Broadcast queues payload for every client; it drops when the queue is full.
func (h *Hub) Broadcast(payload any) {
	select {
	case h.ch <- payload:
	default:
		log.Warn().Str("hub", h.name).Msg("broadcast queue full, dropping payload")
	}
}

// Add registers conn and, when initial is non-nil, sends what it returns
// as the first frame. initial runs after registration, so no broadcast
// falls between the first frame and the live stream.
func (h *Hub) Add(conn Conn, sessionID string, initial func() any) error {
	client := &hubClient{conn: conn, sessionID: sessionID}
	client.mu.Lock()
	h.mu.Lock()
	h.clients[conn] = client
	h.mu.Unlock()
	defer client.mu.Unlock()
	if initial == nil {
		return nil
	}
	if first := initial(); first != nil {
		return conn.WriteJSON(first)
	}
	return nil
}

func (h *Hub) Remove(conn Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// CloseSession disconnects every client opened with sessionID.
func (h *Hub) CloseSession(sessionID string) int {
	if sessionID == "" {
		return 0
	}
	h.mu.Lock()
	closing := []Conn{}
	for conn, client := range h.clients {
		if client.sessionID == sessionID {
			closing = append(closing, conn)
			delete(h.clients, conn)
		}
	}
	h.mu.Unlock()
	for _, conn := range closing {
		_ = conn.Close()
	}
	return len(closing)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = map[Conn]*hubClient{}
	h.mu.Unlock()
	for conn := range clients {
		_ = conn.Close()
	}
}
