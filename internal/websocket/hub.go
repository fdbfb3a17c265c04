// Package websocket implements the connection registry and real-time
// delivery notifier.
//
// The registry is process-local and non-durable: a restart drops every
// registration and clients must register again. In a multi-instance
// deployment a subscriber registered on one instance is invisible to
// notifications triggered on another; scaling out requires an external
// pub/sub layer in front of per-instance hubs.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/veltamail/veltamail-backend/internal/models"
)

// MessageType identifies a WebSocket frame's purpose
type MessageType string

const (
	// MessageTypeRegister binds the connection to a subscriber identity
	MessageTypeRegister MessageType = "register"
	// MessageTypeRegistered confirms a register request
	MessageTypeRegistered MessageType = "registered"
	// MessageTypeNewEmail pushes a newly arrived message
	MessageTypeNewEmail MessageType = "newEmail"
	// MessageTypeError reports a client-visible failure
	MessageTypeError MessageType = "error"
)

// WSMessage is the frame exchanged with clients
type WSMessage struct {
	Type    MessageType     `json:"type"`
	Mailbox string          `json:"mailbox,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewEmailPayload is the data carried by a newEmail event
type NewEmailPayload struct {
	ID          uint   `json:"id"`
	MailboxID   uint   `json:"mailbox_id"`
	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	ReceivedAt  string `json:"received_at"`
}

// Hub owns the connection registry: which live connections are watching
// which mailbox. Connections move through Unregistered -> Registered ->
// Closed; there is no way back from Closed, a reconnecting client gets a
// fresh connection ID and must register again.
type Hub struct {
	// clients holds every live connection by connection ID, registered
	// or not.
	clients map[string]*Client

	// subscribers maps a subscriber identity (mailbox address) to the
	// registered connections watching it. A connection has at most one
	// identity; an identity may have many connections (devices, tabs).
	subscribers map[string]map[string]*Client

	register   chan *Client
	unregister chan *Client
	bind       chan *bindRequest
	broadcast  chan *broadcastMessage

	mu     sync.RWMutex
	logger *slog.Logger
}

type bindRequest struct {
	client  *Client
	mailbox string
}

type broadcastMessage struct {
	mailbox string
	data    []byte
}

// NewHub creates a Hub. Construct one per process and inject it into the
// notifying code paths and the connection handler.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		subscribers: make(map[string]map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		bind:        make(chan *bindRequest),
		broadcast:   make(chan *broadcastMessage, 256),
		logger:      logger,
	}
}

// Run processes registry events until the context is cancelled. All registry
// mutations happen on this goroutine; the mutex only guards the read path
// used by fan-out and introspection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("connection attached", slog.String("connection_id", client.id))
			}

		case client := <-h.unregister:
			h.dropClient(client)

		case req := <-h.bind:
			h.bindClient(req.client, req.mailbox)

		case msg := <-h.broadcast:
			h.fanOut(msg.mailbox, msg.data)
		}
	}
}

// Register attaches a new, not-yet-registered connection
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister detaches a connection and removes its registry entry
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Bind records the connection's subscriber identity
func (h *Hub) Bind(client *Client, mailbox string) {
	h.bind <- &bindRequest{client: client, mailbox: mailbox}
}

// NotifyNewEmail pushes a newly stored message to every live connection
// registered for the subscriber identity. Best-effort and at-most-once: with
// no registered connections the message is silently dropped from the
// real-time path (it remains readable from the message store), and a failure
// to emit on one connection never affects the others.
func (h *Hub) NotifyNewEmail(mailbox string, message *models.Message) {
	payload := NewEmailPayload{
		ID:          message.ID,
		MailboxID:   message.MailboxID,
		SenderEmail: message.SenderEmail,
		SenderName:  message.SenderName,
		Subject:     message.Subject,
		Snippet:     message.Snippet,
		ReceivedAt:  message.ReceivedAt.Format(time.RFC3339),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal newEmail payload", slog.Any("error", err))
		}
		return
	}

	frame, err := json.Marshal(WSMessage{
		Type:    MessageTypeNewEmail,
		Mailbox: mailbox,
		Data:    data,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal newEmail frame", slog.Any("error", err))
		}
		return
	}

	h.broadcast <- &broadcastMessage{mailbox: mailbox, data: frame}
}

// Subscribers returns the number of live registered connections for an
// identity.
func (h *Hub) Subscribers(mailbox string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[mailbox])
}

// Connections returns the number of live connections attached to the hub,
// registered or not. Surfaced by the readiness endpoint.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// bindClient moves a connection from Unregistered to Registered. Re-binding
// an already registered connection replaces its identity: at most one
// identity per connection.
func (h *Hub) bindClient(client *Client, mailbox string) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		// Connection already closed; nothing to bind.
		h.mu.Unlock()
		return
	}

	if client.mailbox != "" && client.mailbox != mailbox {
		h.removeSubscription(client)
	}

	client.mailbox = mailbox
	if h.subscribers[mailbox] == nil {
		h.subscribers[mailbox] = make(map[string]*Client)
	}
	h.subscribers[mailbox][client.id] = client
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Info("connection registered",
			slog.String("connection_id", client.id),
			slog.String("mailbox", mailbox))
	}

	client.sendFrame(&WSMessage{Type: MessageTypeRegistered, Mailbox: mailbox})
}

// dropClient transitions a connection to Closed
func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	h.removeSubscription(client)
	delete(h.clients, client.id)
	h.mu.Unlock()

	client.closeSend()

	if h.logger != nil {
		h.logger.Debug("connection closed", slog.String("connection_id", client.id))
	}
}

// removeSubscription deletes the registry entry for client's current
// identity. Caller must hold h.mu.
func (h *Hub) removeSubscription(client *Client) {
	if client.mailbox == "" {
		return
	}
	if conns, ok := h.subscribers[client.mailbox]; ok {
		delete(conns, client.id)
		if len(conns) == 0 {
			delete(h.subscribers, client.mailbox)
		}
	}
}

// fanOut emits one frame to every registered connection for the identity.
// Emit failures (full send buffer, connection mid-close) are logged per
// connection and skipped; they must not block delivery to the rest.
func (h *Hub) fanOut(mailbox string, data []byte) {
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.subscribers[mailbox]))
	for _, c := range h.subscribers[mailbox] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, client := range conns {
		if !client.queue(data) {
			if h.logger != nil {
				h.logger.Warn("dropping notification, client send buffer full or closed",
					slog.String("connection_id", client.id),
					slog.String("mailbox", mailbox))
			}
		}
	}
}

// closeAll shuts down every connection on hub stop. Read pumps may still be
// queueing frames for their connections at this point, so the channel close
// goes through closeSend rather than closing directly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[string]*Client)
	h.subscribers = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.closeSend()
	}
}
