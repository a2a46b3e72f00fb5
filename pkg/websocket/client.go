package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256

	// MaxSubscriptions bounds how many deliveries one connection may follow
	MaxSubscriptions = 50
)

// Message types exchanged with clients
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeSubscribed  = "subscribed"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)

// Client is one tracking connection. UserType is customer, rider or admin.
type Client struct {
	ID       string
	UserID   string
	UserType string
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte

	mu            sync.RWMutex
	subscriptions map[string]struct{} // delivery ids
	closed        bool
	log           *logger.Logger
}

// ClientMessage is a request sent by the client, e.g.
// {"type":"subscribe","entity_id":"42"}
type ClientMessage struct {
	Type     string `json:"type"`
	EntityID string `json:"entity_id,omitempty"`
}

// NewClient creates a client; conn may be nil in tests that never pump
func NewClient(hub *Hub, conn *websocket.Conn, userID, userType string, log *logger.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		ID:            id,
		UserID:        userID,
		UserType:      userType,
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan []byte, sendBuffer),
		subscriptions: make(map[string]struct{}),
		log: log.With(
			logger.String("client_id", id),
			logger.String("user_id", userID),
		),
	}
}

// ReadPump handles client requests until the connection fails, then
// unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("WebSocket closed unexpectedly", logger.Err(err))
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump sends queued messages, one frame each, and keeps the
// connection alive with pings. It exits when Send is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("WebSocket write failed", logger.Err(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.SendMessage(Message{Type: TypeError, Data: "malformed message"})
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		c.Subscribe(msg.EntityID)
	case TypeUnsubscribe:
		c.Unsubscribe(msg.EntityID)
	case TypePing:
		c.SendMessage(Message{Type: TypePong})
	default:
		c.SendMessage(Message{Type: TypeError, Data: "unknown message type " + msg.Type})
	}
}

// Subscribe starts forwarding updates for a delivery to the client
func (c *Client) Subscribe(entityID string) {
	if entityID == "" {
		c.SendMessage(Message{Type: TypeError, Data: "entity_id is required"})
		return
	}

	c.mu.Lock()
	_, already := c.subscriptions[entityID]
	full := !already && len(c.subscriptions) >= MaxSubscriptions
	if !full {
		c.subscriptions[entityID] = struct{}{}
	}
	c.mu.Unlock()

	if full {
		c.SendMessage(Message{Type: TypeError, Data: "too many subscriptions"})
		return
	}
	c.log.Debug("Client subscribed", logger.String("entity_id", entityID))
	c.SendMessage(Message{Type: TypeSubscribed, Data: entityID})
}

// Unsubscribe stops forwarding updates for a delivery
func (c *Client) Unsubscribe(entityID string) {
	c.mu.Lock()
	delete(c.subscriptions, entityID)
	c.mu.Unlock()
}

// IsSubscribedTo reports whether the client follows entityID
func (c *Client) IsSubscribedTo(entityID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[entityID]
	return ok
}

// SendMessage queues msg for this client, dropping it if the buffer is full
func (c *Client) SendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("Failed to marshal message", logger.Err(err))
		return
	}
	if !c.trySend(data) {
		c.log.Warn("Client send buffer full, message dropped", logger.String("type", msg.Type))
	}
}

// trySend queues data without blocking. It reports false when the buffer
// is full or the client is already closed.
func (c *Client) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes Send once; WritePump then says goodbye
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
