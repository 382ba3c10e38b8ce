package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
)

type AttendanceHandler struct {
	svc *services.AttendanceService
	lg  *log.Logger
}

func NewAttendanceHandler(svc *services.AttendanceService, lg *log.Logger) *AttendanceHandler {
	return &AttendanceHandler{svc: svc, lg: lg}
}

type attendanceRequest struct {
	Action      services.AttendanceAction `json:"action" binding:"required"`
	Coordinates string                    `json:"coordinates"`
	Battery     *int                      `json:"battery"`
}

func (h *AttendanceHandler) Submit(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid attendance payload")
		return
	}

	action := services.AttendanceAction(strings.ToUpper(strings.TrimSpace(string(req.Action))))
	if action != services.ActionCheckIn && action != services.ActionCheckOut {
		fail(c, http.StatusBadRequest, "action must be CHECK_IN or CHECK_OUT")
		return
	}

	rec, err := h.svc.Apply(c.Request.Context(), currentUser(c), action, strings.TrimSpace(req.Coordinates), req.Battery)
	if err != nil {
		failErr(c, h.lg, "applying attendance action", err)
		return
	}

	respond(c, http.StatusOK, rec)
}

func (h *AttendanceHandler) Status(c *gin.Context) {
	view, err := h.svc.Today(c.Request.Context(), currentUser(c))
	if err != nil {
		failErr(c, h.lg, "loading attendance status", err)
		return
	}
	respond(c, http.StatusOK, view)
}

// Today is the admin dashboard summary; ?date=YYYY-MM-DD picks another day.
func (h *AttendanceHandler) Today(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	summary, err := h.svc.Summary(c.Request.Context(), date)
	if err != nil {
		failErr(c, h.lg, "loading attendance summary", err)
		return
	}
	respond(c, http.StatusOK, summary)
}

func (h *AttendanceHandler) ExportExcel(c *gin.Context) {
	from := c.DefaultQuery("from", h.svc.TodayDate())
	to := c.DefaultQuery("to", from)
	for _, d := range []string{from, to} {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			fail(c, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
			return
		}
	}

	buffer, err := h.svc.Export(c.Request.Context(), from, to)
	if err != nil {
		failErr(c, h.lg, "exporting attendance", err)
		return
	}

	filename := fmt.Sprintf("attendance-%s-to-%s.xlsx", from, to)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buffer.Bytes())
}
