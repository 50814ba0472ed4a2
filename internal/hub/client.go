package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/josesc03/bookintokback/internal/config"
	"github.com/josesc03/bookintokback/pkg/log"
)

// Client is one live channel belonging to a user session. It exists only in
// memory: created on connect, destroyed on disconnect.
type Client struct {
	ID     string
	UserID string
	Kind   Kind
	ChatID uint // bound chat for KindMessages, zero otherwise

	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	config    config.WebSocketConfig
	closeOnce sync.Once

	// sendMu orders Enqueue against the close of Send. Hub.send needs no
	// such guard: it only writes under the shard read lock, which the
	// unregister path excludes before the channel is closed.
	sendMu     sync.Mutex
	sendClosed bool
}

// NewClient creates a client for an authenticated connection.
func NewClient(userID string, kind Kind, chatID uint, h *Hub, conn *websocket.Conn) *Client {
	bufSize := h.config.SendBufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Kind:   kind,
		ChatID: chatID,
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, bufSize),
		config: h.config,
	}
}

// Close tears the client down. Unregistration from the hub happens exactly
// once, on the first call, regardless of whether the closure was
// client-initiated, server-initiated, or a transport error.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.Hub.Unregister(c)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// closeSend closes the send channel exactly once. Called by the hub on
// removal; double-close races between unregister paths are absorbed here.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// ReadPump consumes inbound frames and dispatches them to handler. It owns
// the read side of the connection and tears the client down on exit.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer c.Close()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.L().Warn().Err(err).Str(log.FieldClientID, c.ID).Msg("websocket read error")
			}
			return
		}
		handler(c, message)
	}
}

// WritePump flushes queued payloads to the connection and keeps it alive with
// pings. It exits when the send channel closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Enqueue marshals a payload onto the send queue. A full buffer drops the
// payload; the client will catch up on its next pull or snapshot. Enqueue on
// an already-removed client is a silent no-op: the read pump may still be
// answering a pull while the hub tears the client down.
func (c *Client) Enqueue(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return nil
	}
	select {
	case c.Send <- data:
	default:
	}
	return nil
}
