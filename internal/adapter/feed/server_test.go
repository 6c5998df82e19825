package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/adapter/intel"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestFeed(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(newTestLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/", srv.handleWebSocket)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, topic string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/feed/" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial feed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublish_ReachesTopicSubscriber(t *testing.T) {
	// Arrange
	srv, ts := newTestFeed(t)
	conn := dial(t, ts, "market-42")
	waitForSubscribers(t, srv, "market-42", 1)

	event := &intel.MarketEvent{
		Topic:       "market-42",
		Address:     "123 Main St",
		Kind:        "competitor_opened",
		MarketScore: 61.5,
		Timestamp:   time.Now().Unix(),
	}

	// Act
	srv.Publish(event)

	// Assert
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	var got intel.MarketEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if got.Kind != "competitor_opened" || got.Address != "123 Main St" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestPublish_DoesNotCrossTopics(t *testing.T) {
	// Arrange
	srv, ts := newTestFeed(t)
	other := dial(t, ts, "market-other")
	waitForSubscribers(t, srv, "market-other", 1)

	// Act
	srv.Publish(&intel.MarketEvent{Topic: "market-42", Kind: "score_changed"})

	// Assert
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("expected no event on unrelated topic")
	}
}

func TestUnsubscribe_RemovesEmptyTopics(t *testing.T) {
	// Arrange
	srv, ts := newTestFeed(t)
	conn := dial(t, ts, "market-42")
	waitForSubscribers(t, srv, "market-42", 1)

	// Act
	conn.Close()

	// Assert
	waitForSubscribers(t, srv, "market-42", 0)
}

type scriptedStream struct {
	events chan *intel.MarketEvent
}

func (s *scriptedStream) Receive(ctx context.Context) (*intel.MarketEvent, error) {
	select {
	case event, ok := <-s.events:
		if !ok {
			return nil, errors.New("stream closed")
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRelay_PumpsStreamEventsToSubscribers(t *testing.T) {
	// Arrange
	srv, ts := newTestFeed(t)
	conn := dial(t, ts, "market-42")
	waitForSubscribers(t, srv, "market-42", 1)

	stream := &scriptedStream{events: make(chan *intel.MarketEvent, 1)}
	done := make(chan struct{})
	go func() {
		srv.Relay(context.Background(), stream)
		close(done)
	}()

	// Act
	stream.events <- &intel.MarketEvent{
		Topic:       "market-42",
		Address:     "123 Main St",
		Kind:        "score_changed",
		MarketScore: 58.0,
		Timestamp:   time.Now().Unix(),
	}

	// Assert: the subscriber receives the relayed event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read relayed event: %v", err)
	}
	var got intel.MarketEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if got.Kind != "score_changed" || got.Topic != "market-42" {
		t.Errorf("unexpected event: %+v", got)
	}

	// Act: stream failure ends the relay
	close(stream.events)

	// Assert
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after stream error")
	}
}

func TestRelay_StopsWhenContextEnds(t *testing.T) {
	// Arrange
	srv, _ := newTestFeed(t)
	stream := &scriptedStream{events: make(chan *intel.MarketEvent)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Relay(ctx, stream)
		close(done)
	}()

	// Act
	cancel()

	// Assert
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop on context cancellation")
	}
}

func waitForSubscribers(t *testing.T, srv *Server, topic string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		srv.mu.RLock()
		got := len(srv.subscribers[topic])
		srv.mu.RUnlock()
		if got == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d subscribers on %s", want, topic)
}
