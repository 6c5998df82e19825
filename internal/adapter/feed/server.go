package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/adapter/intel"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server relays market monitoring events to dashboard clients over WebSocket.
// Clients connect to /feed/{topic}; every event published for that topic is
// fanned out to all of its subscribers. Topics come from depth-5 reports.
type Server struct {
	subscribers map[string]map[*websocket.Conn]bool
	mu          sync.RWMutex
	log         *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{
		subscribers: make(map[string]map[*websocket.Conn]bool),
		log:         log,
	}
}

// Start serves the feed endpoint on the given port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/", s.handleWebSocket)

	addr := fmt.Sprintf(":%d", port)
	s.log.Info("Starting market feed server", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

// Stop closes all subscriber connections
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for topic, conns := range s.subscribers {
		for conn := range conns {
			conn.Close()
		}
		delete(s.subscribers, topic)
	}
	s.log.Info("Market feed server stopped")
}

// Publish sends a market event to every subscriber of its topic
func (s *Server) Publish(event *intel.MarketEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.subscribers[event.Topic]))
	for conn := range s.subscribers[event.Topic] {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debug("Dropping dead feed subscriber",
				zap.String("topic", event.Topic),
				zap.Error(err),
			)
			s.unsubscribe(event.Topic, conn)
			conn.Close()
		}
	}
}

// MarketStream is the source side of the relay, satisfied by
// intel.StreamClient.
type MarketStream interface {
	Receive(ctx context.Context) (*intel.MarketEvent, error)
}

// Relay pumps events from a backend stream into the feed until the stream
// client errors or ctx ends.
func (s *Server) Relay(ctx context.Context, stream MarketStream) {
	for {
		event, err := stream.Receive(ctx)
		if err != nil {
			s.log.Warn("Market stream relay ended", zap.Error(err))
			return
		}
		s.Publish(event)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Topic comes from the URL path: /feed/{topic}
	topic := r.URL.Path[len("/feed/"):]
	if topic == "" {
		http.Error(w, "missing feed topic", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.subscribers[topic] == nil {
		s.subscribers[topic] = make(map[*websocket.Conn]bool)
	}
	s.subscribers[topic][conn] = true
	s.mu.Unlock()

	s.log.Info("Feed subscriber connected", zap.String("topic", topic))

	defer func() {
		s.unsubscribe(topic, conn)
		conn.Close()
		s.log.Info("Feed subscriber disconnected", zap.String("topic", topic))
	}()

	// Subscribers are read-only; the read loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("Feed read error", zap.Error(err))
			}
			break
		}
	}
}

func (s *Server) unsubscribe(topic string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conns, ok := s.subscribers[topic]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(s.subscribers, topic)
		}
	}
}
