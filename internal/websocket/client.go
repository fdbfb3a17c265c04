package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Client represents one live transport connection. Its connection ID is
// unique for the connection's lifetime; a reconnect produces a new Client
// with a new ID.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// sendMu guards send against a close racing a queue: the hub closes
	// the channel on its own goroutine while the read pump may still be
	// emitting error frames for this connection.
	sendMu sync.Mutex
	closed bool

	// mailbox is the registered subscriber identity, empty until the
	// client sends a register frame. Mutated only on the hub goroutine.
	mailbox string

	// allowed is the identity this connection's session is permitted to
	// register for, fixed at upgrade time.
	allowed string

	logger *slog.Logger
}

// NewClient creates a Client for an upgraded connection. allowedMailbox is
// the subscriber identity the authenticated session may register for.
func NewClient(hub *Hub, conn *websocket.Conn, allowedMailbox string, logger *slog.Logger) *Client {
	return &Client{
		id:      uuid.NewString(),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		allowed: allowedMailbox,
		logger:  logger,
	}
}

// ID returns the connection identifier
func (c *Client) ID() string {
	return c.id
}

// ReadPump pumps frames from the connection to the hub. Runs as a goroutine
// per connection; exiting unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.logger != nil {
					c.logger.Error("websocket read error", slog.Any("error", err))
				}
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps frames from the hub to the connection, interleaving
// protocol pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an inbound frame
func (c *Client) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypeRegister:
		if msg.Mailbox == "" {
			c.sendError("mailbox is required")
			return
		}
		if c.allowed != "" && msg.Mailbox != c.allowed {
			if c.logger != nil {
				c.logger.Warn("register denied",
					slog.String("connection_id", c.id),
					slog.String("mailbox", msg.Mailbox))
			}
			c.sendError("not permitted to register for this mailbox")
			return
		}
		c.hub.Bind(c, msg.Mailbox)

	default:
		c.sendError("unknown message type")
	}
}

// sendError sends an error frame to the client
func (c *Client) sendError(errMsg string) {
	c.sendFrame(&WSMessage{Type: MessageTypeError, Error: errMsg})
}

// sendFrame marshals and queues a frame, dropping it if the buffer is full
func (c *Client) sendFrame(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.queue(data)
}

// queue enqueues raw frame bytes for the write pump. Returns false when the
// frame was dropped: buffer full or the connection already closed.
func (c *Client) queue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue exactly once. Frames queued after this
// are dropped rather than sent on a closed channel.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
