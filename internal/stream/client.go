package stream

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kpatel2913/Faceable/internal/gesture"
)

// Result collects the server's replies to one client message.
type Result struct {
	Sequence int64
	Events   []gesture.Event
	State    *StateMessage // last state reply, if any
	Errors   []string
	Dropped  bool
}

// Client is a synchronous frame stream client: each Send waits for the
// server's ack before returning.
type Client struct {
	logger zerolog.Logger
	conn   *websocket.Conn
	hello  HelloMessage

	mu       sync.Mutex
	sequence int64
}

// StreamURL turns an http(s) or ws(s) base URL into the WebSocket endpoint URL.
func StreamURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if path != "" {
		u.Path = path
	}
	return u.String(), nil
}

// Dial connects to a stream endpoint and waits for the server's hello.
func Dial(ctx context.Context, rawURL string, logger zerolog.Logger) (*Client, error) {
	logger = logger.With().Str("component", "stream-client").Logger()
	logger.Info().Str("url", rawURL).Msg("Connecting to stream server")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &Client{logger: logger, conn: conn}

	var hello HelloMessage
	if err := c.readInto(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if hello.Type != TypeHello {
		conn.Close()
		return nil, fmt.Errorf("expected hello, got %q", hello.Type)
	}
	c.hello = hello

	logger.Info().Str("session", hello.Session).Msg("Connected to stream server")
	return c, nil
}

// Hello returns the greeting received on connect.
func (c *Client) Hello() HelloMessage {
	return c.hello
}

// Send sends one client message and collects replies up to its ack.
// The message's sequence number is assigned by the client.
func (c *Client) Send(msg InboundMessage) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sequence++
	msg.Sequence = c.sequence

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, fmt.Errorf("write message: %w", err)
	}

	result := &Result{Sequence: msg.Sequence}
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return result, fmt.Errorf("read reply: %w", err)
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return result, fmt.Errorf("decode reply: %w", err)
		}

		switch envelope.Type {
		case TypeEvent:
			var ev EventMessage
			if err := json.Unmarshal(raw, &ev); err != nil {
				return result, fmt.Errorf("decode event: %w", err)
			}
			result.Events = append(result.Events, ev.Event)

		case TypeState:
			var st StateMessage
			if err := json.Unmarshal(raw, &st); err != nil {
				return result, fmt.Errorf("decode state: %w", err)
			}
			result.State = &st

		case TypeError:
			var em ErrorMessage
			if err := json.Unmarshal(raw, &em); err != nil {
				return result, fmt.Errorf("decode error: %w", err)
			}
			c.logger.Warn().Str("message", em.Message).Msg("Server rejected message")
			result.Errors = append(result.Errors, em.Message)

		case TypeAck:
			var ack AckMessage
			if err := json.Unmarshal(raw, &ack); err != nil {
				return result, fmt.Errorf("decode ack: %w", err)
			}
			if ack.Sequence != msg.Sequence {
				c.logger.Debug().Int64("sequence", ack.Sequence).Msg("Ignoring stale ack")
				continue
			}
			result.Dropped = ack.Dropped
			return result, nil

		default:
			c.logger.Debug().Str("type", envelope.Type).Msg("Unknown reply type")
		}
	}
}

// SendFrame is Send for a frame message.
func (c *Client) SendFrame(frame InboundMessage) (*Result, error) {
	frame.Type = TypeFrame
	return c.Send(frame)
}

// Reset asks the server to reset the session.
func (c *Client) Reset() (*Result, error) {
	return c.Send(InboundMessage{Type: TypeReset})
}

// Clear asks the server to drop every stroke.
func (c *Client) Clear() (*Result, error) {
	return c.Send(InboundMessage{Type: TypeClear})
}

// SelectTool picks a tool by ID.
func (c *Client) SelectTool(id string) (*Result, error) {
	return c.Send(InboundMessage{Type: TypeSelectTool, Tool: id})
}

// SelectColor picks a palette colour.
func (c *Client) SelectColor(color string) (*Result, error) {
	return c.Send(InboundMessage{Type: TypeSelectColor, Color: color})
}

// Close sends a normal close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) readInto(v any) error {
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
