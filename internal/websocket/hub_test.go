package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type fixture struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc

	mu      sync.Mutex
	inbound []Inbound
}

// newFixture serves /ws?user=<id>&admin=<bool> backed by a running hub.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	f := &fixture{hub: NewHub(log.New(io.Discard, "", 0)), cancel: cancel}
	go f.hub.Run(ctx)

	upgrader := ws.Upgrader{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.URL.Query().Get("user"))
		admin := r.URL.Query().Get("admin") == "true"

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(f.hub, conn, Identity{UserID: uint(id), Admin: admin}, func(c *Client, msg Inbound) {
			f.mu.Lock()
			f.inbound = append(f.inbound, msg)
			f.mu.Unlock()
			c.Reply("echo", map[string]string{"type": msg.Type})
		})
		f.hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))

	t.Cleanup(func() {
		cancel()
		f.server.Close()
	})
	return f
}

func (f *fixture) dial(t *testing.T, user int, admin bool) *ws.Conn {
	t.Helper()

	before := f.hub.ClientCount()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?user=" + strconv.Itoa(user) + "&admin=" + strconv.FormatBool(admin)
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.hub.ClientCount() == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *ws.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *ws.Conn, typ string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Inbound{Type: typ, Payload: raw}))
}

func TestRoom(t *testing.T) {
	assert.Equal(t, "tracking:42", Room(42))
}

func TestUnscopedAdminReceivesEverything(t *testing.T) {
	f := newFixture(t)
	admin := f.dial(t, 1, true)

	f.hub.Publish("location:updated", 7, map[string]any{"latitude": 1.5})
	msg := read(t, admin)
	assert.Equal(t, "location:updated", msg.Type)
	assert.JSONEq(t, `{"latitude":1.5}`, string(msg.Payload))

	f.hub.Publish("attendance:updated", 8, map[string]any{"type": "CHECK_IN"})
	assert.Equal(t, "attendance:updated", read(t, admin).Type)
}

func TestScopedViewerReceivesOnlyItsRoom(t *testing.T) {
	f := newFixture(t)
	scoped := f.dial(t, 1, true)

	send(t, scoped, "track:start", map[string]any{"userId": 7})
	ack := read(t, scoped)
	assert.Equal(t, "track:started", ack.Type)
	assert.JSONEq(t, `{"room":"tracking:7"}`, string(ack.Payload))

	f.hub.Publish("location:updated", 8, map[string]any{"n": 1})
	f.hub.Publish("location:updated", 7, map[string]any{"n": 2})
	msg := read(t, scoped)
	assert.JSONEq(t, `{"n":2}`, string(msg.Payload))

	send(t, scoped, "track:stop", map[string]any{"userId": 7})
	assert.Equal(t, "track:stopped", read(t, scoped).Type)

	// Back to unscoped.
	f.hub.Publish("location:updated", 8, map[string]any{"n": 3})
	assert.JSONEq(t, `{"n":3}`, string(read(t, scoped).Payload))
}

func TestEmployeeOnlySeesOwnRoomAndSystemEvents(t *testing.T) {
	f := newFixture(t)
	emp := f.dial(t, 5, false)

	// Not delivered: the first thing the employee reads is the error reply.
	f.hub.Publish("location:updated", 6, map[string]any{"n": 1})

	send(t, emp, "track:start", map[string]any{"userId": 6})
	msg := read(t, emp)
	assert.Equal(t, "error", msg.Type)

	send(t, emp, "track:start", map[string]any{"userId": 5})
	assert.Equal(t, "track:started", read(t, emp).Type)

	f.hub.Publish("attendance:updated", 5, map[string]any{"n": 2})
	assert.JSONEq(t, `{"n":2}`, string(read(t, emp).Payload))

	f.hub.Publish("notification:created", 0, map[string]any{"n": 3})
	assert.JSONEq(t, `{"n":3}`, string(read(t, emp).Payload))
}

func TestApplicationMessagesReachHandler(t *testing.T) {
	f := newFixture(t)
	emp := f.dial(t, 5, false)

	send(t, emp, "location:update", map[string]any{"latitude": 1})
	msg := read(t, emp)
	assert.Equal(t, "echo", msg.Type)
	assert.JSONEq(t, `{"type":"location:update"}`, string(msg.Payload))

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.inbound, 1)
	assert.JSONEq(t, `{"latitude":1}`, string(f.inbound[0].Payload))
}

func TestDisconnectUnregisters(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, 1, true)
	require.Equal(t, 1, f.hub.ClientCount())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Publishing with nobody connected is a no-op.
	f.hub.Publish("location:updated", 1, map[string]any{})
}

func TestStopClosesClients(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, 1, true)

	f.cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, f.hub.ClientCount())
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish("location:updated", 1, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}
