package websocket

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
)

const roomPrefix = "tracking:"

// Room names the per-employee subscription scope.
func Room(userID uint) string {
	return roomPrefix + strconv.FormatUint(uint64(userID), 10)
}

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type outbound struct {
	userID uint
	data   []byte
}

type direct struct {
	client *Client
	data   []byte
}

type membership struct {
	client *Client
	room   string
	join   bool
}

// Hub fans events out to connected viewers. All client bookkeeping happens
// on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	membership chan membership
	direct     chan direct
	broadcast  chan outbound
	count      chan chan int
	done       chan struct{}
	lg         *log.Logger
}

func NewHub(lg *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		membership: make(chan membership),
		direct:     make(chan direct, 64),
		broadcast:  make(chan outbound, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		lg:         lg,
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case m := <-h.membership:
			if _, ok := h.clients[m.client]; !ok {
				continue
			}
			ack := "track:started"
			if m.join {
				m.client.rooms[m.room] = struct{}{}
			} else {
				delete(m.client.rooms, m.room)
				ack = "track:stopped"
			}
			h.deliver(m.client, encode(h.lg, ack, map[string]any{"room": m.room}))
		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				h.deliver(d.client, d.data)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				if client.wants(message.userID) {
					h.deliver(client, message.data)
				}
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// deliver drops clients whose send buffer is full.
func (h *Hub) deliver(client *Client, data []byte) {
	if data == nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.lg.Printf("dropping slow websocket client %s", client.id)
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join and Leave are called from the client's own read loop only.
func (h *Hub) Join(client *Client, room string) {
	select {
	case h.membership <- membership{client: client, room: room, join: true}:
	case <-h.done:
	}
}

func (h *Hub) Leave(client *Client, room string) {
	select {
	case h.membership <- membership{client: client, room: room}:
	case <-h.done:
	}
}

// SendTo queues an event for one client only.
func (h *Hub) SendTo(client *Client, event string, payload any) {
	data := encode(h.lg, event, payload)
	if data == nil {
		return
	}
	select {
	case h.direct <- direct{client: client, data: data}:
	case <-h.done:
	}
}

// ClientCount reports the number of registered clients, or 0 once stopped.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Publish queues an event for every viewer interested in userID. It never
// blocks; when the queue is full the event is dropped, since viewers
// re-fetch snapshots anyway.
func (h *Hub) Publish(event string, userID uint, payload any) {
	data := encode(h.lg, event, payload)
	if data == nil {
		return
	}

	select {
	case h.broadcast <- outbound{userID: userID, data: data}:
	default:
		h.lg.Printf("broadcast queue full, dropping %s for user %d", event, userID)
	}
}

func encode(lg *log.Logger, event string, payload any) []byte {
	data, err := json.Marshal(Message{Type: event, Payload: payload})
	if err != nil {
		lg.Printf("failed to marshal %s payload: %v", event, err)
		return nil
	}
	return data
}
