package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
)

// Hub tracks connected clients and fans out delivery updates
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logger.Logger
}

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewHub creates a new WebSocket hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run is the hub's main loop. It returns when ctx is done, closing every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Client registered",
				logger.String("client_id", client.ID),
				logger.String("user_type", client.UserType),
			)

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
		h.logger.Info("Client unregistered", logger.String("client_id", client.ID))
	}
}

// deliver queues data for matching clients and drops those whose buffer is full
func (h *Hub) deliver(data []byte, match func(*Client) bool) int {
	var slow []*Client
	sent := 0

	h.mu.RLock()
	for client := range h.clients {
		if !match(client) {
			continue
		}
		if client.trySend(data) {
			sent++
		} else {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Dropping slow client", logger.String("client_id", client.ID))
		h.remove(client)
	}
	return sent
}

// Register registers a new client. After the hub stops the client is
// closed immediately.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Audience selects clients by subscription, user type or user id
type Audience struct {
	EntityID  string
	UserTypes []string
	UserIDs   []string
}

func (a Audience) matches(c *Client) bool {
	if a.EntityID != "" && c.IsSubscribedTo(a.EntityID) {
		return true
	}
	for _, t := range a.UserTypes {
		if c.UserType == t {
			return true
		}
	}
	for _, id := range a.UserIDs {
		if c.UserID == id {
			return true
		}
	}
	return false
}

// Publish sends message to every client in the audience exactly once
func (h *Hub) Publish(audience Audience, message Message) int {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal message", logger.Err(err))
		return 0
	}
	return h.deliver(data, audience.matches)
}

// GetActiveConnections returns the number of active connections
func (h *Hub) GetActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
