package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Inbound is a client-to-server message.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes application messages (anything other than track:start /
// track:stop) read from a client.
type Handler func(c *Client, msg Inbound)

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID uint
	Name   string
	Admin  bool
}

type Client struct {
	id       string
	hub      *Hub
	conn     *ws.Conn
	send     chan []byte
	identity Identity
	handler  Handler

	// rooms is only touched by the hub's Run goroutine.
	rooms map[string]struct{}
}

func NewClient(hub *Hub, conn *ws.Conn, identity Identity, handler Handler) *Client {
	return &Client{
		id:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		identity: identity,
		handler:  handler,
		rooms:    make(map[string]struct{}),
	}
}

func (c *Client) ID() string         { return c.id }
func (c *Client) Identity() Identity { return c.identity }

// wants decides delivery for an event about userID. Zero addresses everyone.
// Admins without a room receive every event; otherwise only joined rooms.
func (c *Client) wants(userID uint) bool {
	if userID == 0 {
		return true
	}
	if _, ok := c.rooms[Room(userID)]; ok {
		return true
	}
	return c.identity.Admin && len(c.rooms) == 0
}

// Reply sends an event to this client only.
func (c *Client) Reply(event string, payload any) {
	c.hub.SendTo(c, event, payload)
}

type trackPayload struct {
	UserID uint `json:"userId"`
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseAbnormalClosure) {
				c.hub.lg.Printf("websocket read error: %v", err)
			}
			break
		}

		switch msg.Type {
		case "track:start", "track:stop":
			c.handleTrack(msg)
		default:
			if c.handler != nil {
				c.handler(c, msg)
			}
		}
	}
}

func (c *Client) handleTrack(msg Inbound) {
	var payload trackPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.UserID == 0 {
		c.Reply("error", map[string]any{"message": "userId is required"})
		return
	}
	if !c.identity.Admin && payload.UserID != c.identity.UserID {
		c.Reply("error", map[string]any{"message": "cannot track another employee"})
		return
	}

	if msg.Type == "track:start" {
		c.hub.Join(c, Room(payload.UserID))
	} else {
		c.hub.Leave(c, Room(payload.UserID))
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(ws.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(ws.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
