package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rahulvalluru1-source/fieldtrack/internal/middleware"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
)

type NotificationHandler struct {
	svc *services.NotificationService
	lg  *log.Logger
}

func NewNotificationHandler(svc *services.NotificationService, lg *log.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, lg: lg}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	q := services.NotificationQuery{
		Type:       models.NotificationType(strings.ToUpper(c.Query("type"))),
		UnreadOnly: c.Query("unread") == "true",
		Limit:      limit,
	}

	rows, err := h.svc.List(c.Request.Context(), currentUser(c), middleware.IsAdmin(c), q)
	if err != nil {
		failErr(c, h.lg, "listing notifications", err)
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, n := range rows {
		out = append(out, n.ToMap())
	}
	respond(c, http.StatusOK, out)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid notification id")
		return
	}

	n, err := h.svc.MarkRead(c.Request.Context(), uint(id), currentUser(c), middleware.IsAdmin(c))
	if err != nil {
		failErr(c, h.lg, "marking notification read", err)
		return
	}
	respond(c, http.StatusOK, n.ToMap())
}

type broadcastRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, "message is required")
		return
	}

	n, err := h.svc.Broadcast(c.Request.Context(), strings.TrimSpace(req.Message))
	if err != nil {
		failErr(c, h.lg, "broadcasting notification", err)
		return
	}
	respond(c, http.StatusCreated, n.ToMap())
}
