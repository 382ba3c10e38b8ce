package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"github.com/rahulvalluru1-source/fieldtrack/internal/middleware"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
	wsHub "github.com/rahulvalluru1-source/fieldtrack/internal/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type RealtimeHandler struct {
	hub      *wsHub.Hub
	tracking *services.TrackingService
	lg       *log.Logger
}

func NewRealtimeHandler(hub *wsHub.Hub, tracking *services.TrackingService, lg *log.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, tracking: tracking, lg: lg}
}

type liveLocation struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Speed          *float64 `json:"speed"`
	Battery        *int     `json:"battery"`
	IsMockLocation bool     `json:"isMockLocation"`
}

func (h *RealtimeHandler) HandleWebsocket(c *gin.Context) {
	identity := wsHub.Identity{
		UserID: currentUser(c),
		Name:   c.GetString(middleware.KeyUserName),
		Admin:  middleware.IsAdmin(c),
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := wsHub.NewClient(h.hub, conn, identity, h.dispatch)
	h.hub.Register(client)
	client.Reply("connected", gin.H{"clientId": client.ID(), "userId": identity.UserID})

	go client.WritePump()
	go client.ReadPump()
}

// dispatch handles application messages. A location:update is relayed to
// viewers under the sender's own identity and is not persisted; persistence
// goes through POST /tracking.
func (h *RealtimeHandler) dispatch(client *wsHub.Client, msg wsHub.Inbound) {
	switch msg.Type {
	case "location:update":
		var payload liveLocation
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.Reply("error", gin.H{"message": "invalid location payload"})
			return
		}

		_, err := h.tracking.Relay(client.Identity().UserID, services.LocationInput{
			Latitude:       payload.Latitude,
			Longitude:      payload.Longitude,
			Speed:          payload.Speed,
			Battery:        payload.Battery,
			IsMockLocation: payload.IsMockLocation,
		})
		if err != nil {
			client.Reply("error", gin.H{"message": err.Error()})
		}
	default:
		client.Reply("error", gin.H{"message": "unknown message type " + msg.Type})
	}
}
