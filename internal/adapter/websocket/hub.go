package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Hub pushes session updates to connected dashboard clients. Every stage
// transition is published here so an open dashboard reflects the flow
// without polling.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	broadcast chan targetedMessage

	mu sync.RWMutex
}

type targetedMessage struct {
	userID string // empty means all clients
	data   []byte
}

// SessionUpdate is the envelope pushed to dashboard clients.
type SessionUpdate struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Stage     string      `json:"stage"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type Client struct {
	hub *Hub
	// The websocket connection.
	conn *websocket.Conn
	// Buffered channel of outbound messages.
	send chan []byte
	// User ID
	userID string
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan targetedMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if message.userID != "" && client.userID != message.userID {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishSessionUpdate pushes a stage transition to the owning user's
// connected clients. Marshal failures are silently dropped; updates are
// advisory and the REST response remains the source of truth.
func (h *Hub) PublishSessionUpdate(userID string, update SessionUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	data, err := json.Marshal(update)
	if err != nil {
		return
	}
	h.broadcast <- targetedMessage{userID: userID, data: data}
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- targetedMessage{data: data}
}

func (h *Hub) AddClient(conn *websocket.Conn, userID string) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), userID: userID}
	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// Clients never send application messages here; the loop keeps the
		// connection alive and handles control frames.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain any queued updates into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		}
	}
}
