package session

import (
	"encoding/json"
	"sync"
	"time"

	"michat/internal/models"
	"michat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client is one live authenticated connection. ID is ephemeral and unique to
// the transport session; UserID and Username come from the verified token and
// never change for the connection's lifetime.
type Client struct {
	ID       string
	UserID   string
	Username string

	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
	joined map[string]struct{}
}

func NewClient(conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		joined:   make(map[string]struct{}),
	}
}

// Emit queues an event for delivery. Delivery is best-effort: events for a
// closed connection or a full send buffer are silently dropped.
func (c *Client) Emit(event string, data any) {
	payload, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		logger.Error("Error marshaling %s event: %v", event, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		logger.Debug("Dropping %s event for slow connection %s", event, c.ID)
	}
}

// Close stops outbound delivery. The write pump drains what was already
// queued, so a notification emitted just before Close still goes out first.
// Closing twice is a no-op.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) trackJoined(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined[channelID] = struct{}{}
}

// JoinedChannels returns the channels this connection actively joined during
// its session. This set scopes disconnect cleanup; it is not the user's
// persisted membership.
func (c *Client) JoinedChannels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.joined))
	for id := range c.joined {
		out = append(out, id)
	}
	return out
}

// ReadPump consumes inbound events until the connection drops, handing each
// one to the router in arrival order. It runs as the connection's only
// reader; disconnect cleanup fires exactly once when it returns.
func (c *Client) ReadPump(router *Router) {
	defer func() {
		router.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on %s: %v", c.ID, err)
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.Emit(models.EventError, models.ErrorPayload{Message: "malformed event"})
			continue
		}
		router.HandleEvent(c, &env)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error on %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
