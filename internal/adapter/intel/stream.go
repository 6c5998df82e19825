package intel

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// StreamClient subscribes to the tiered analysis backend's market monitoring
// stream. Depth-5 purchases name a stream topic in the report; the gateway
// connects here and relays events to dashboard feed subscribers.
type StreamClient struct {
	baseURL string
	apiKey  string
	logger  *zap.Logger
	conn    *websocket.Conn
}

// MarketEvent is one monitoring update from the backend stream.
type MarketEvent struct {
	Topic       string  `json:"topic"`
	Address     string  `json:"address"`
	Kind        string  `json:"kind"`
	MarketScore float64 `json:"market_score,omitempty"`
	Message     string  `json:"message,omitempty"`
	Timestamp   int64   `json:"timestamp"`
}

func NewStreamClient(baseURL, apiKey string, logger *zap.Logger) *StreamClient {
	return &StreamClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// Connect opens the stream and subscribes to a topic.
func (c *StreamClient) Connect(ctx context.Context, topic string) error {
	headers := http.Header{
		"Authorization": []string{"Bearer " + c.apiKey},
	}

	conn, _, err := websocket.Dial(ctx, c.baseURL+"/analysis/stream", &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return err
	}

	c.conn = conn

	subscribe := map[string]interface{}{
		"subscribe": map[string]string{
			"topic": topic,
		},
	}

	if err := c.send(ctx, subscribe); err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		c.conn = nil
		return err
	}

	c.logger.Info("Market stream connected", zap.String("topic", topic))
	return nil
}

// Receive blocks until the next event arrives.
func (c *StreamClient) Receive(ctx context.Context) (*MarketEvent, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}

	var event MarketEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

// Close ends the stream subscription.
func (c *StreamClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close(websocket.StatusNormalClosure, "done")
}

func (c *StreamClient) send(ctx context.Context, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return c.conn.Write(ctx, websocket.MessageText, data)
}
