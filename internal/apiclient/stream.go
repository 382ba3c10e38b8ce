package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Event is one message on the realtime channel.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Stream is a live realtime connection. Send is safe for concurrent use;
// Next must be called from a single goroutine.
type Stream struct {
	conn *ws.Conn
	wmu  sync.Mutex
}

// Dial opens the realtime channel using the current session token.
func (c *Client) Dial(ctx context.Context) (*Stream, error) {
	target, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}

	dialer := ws.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("websocket handshake: %v", err)}
		}
		return nil, fmt.Errorf("dial realtime channel: %w", err)
	}
	return &Stream{conn: conn}, nil
}

func (s *Stream) Send(event string, payload any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(map[string]any{"type": event, "payload": payload})
}

// Next blocks until the next event arrives or the connection fails.
func (s *Stream) Next() (Event, error) {
	var ev Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (s *Stream) Close() error {
	s.wmu.Lock()
	_ = s.conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.wmu.Unlock()
	return s.conn.Close()
}

// Publisher keeps a lazily dialled stream for fire-and-forget sends. Inbound
// events are drained so keepalive pings are answered.
type Publisher struct {
	client *Client
	mu     sync.Mutex
	stream *Stream
}

func (c *Client) Publisher() *Publisher {
	return &Publisher{client: c}
}

func (p *Publisher) Send(event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		stream, err := p.client.Dial(ctx)
		cancel()
		if err != nil {
			return err
		}
		p.stream = stream
		go p.drain(stream)
	}

	if err := p.stream.Send(event, payload); err != nil {
		_ = p.stream.conn.Close()
		p.stream = nil
		return err
	}
	return nil
}

func (p *Publisher) drain(s *Stream) {
	for {
		if _, err := s.Next(); err != nil {
			break
		}
	}

	p.mu.Lock()
	if p.stream == s {
		p.stream = nil
	}
	p.mu.Unlock()
	_ = s.conn.Close()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}
	err := p.stream.Close()
	p.stream = nil
	return err
}
