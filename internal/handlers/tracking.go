package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rahulvalluru1-source/fieldtrack/internal/middleware"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
)

type TrackingHandler struct {
	svc    *services.TrackingService
	window time.Duration
	lg     *log.Logger
}

func NewTrackingHandler(svc *services.TrackingService, window time.Duration, lg *log.Logger) *TrackingHandler {
	return &TrackingHandler{svc: svc, window: window, lg: lg}
}

type locationRequest struct {
	Latitude       *float64 `json:"latitude" binding:"required"`
	Longitude      *float64 `json:"longitude" binding:"required"`
	Speed          *float64 `json:"speed"`
	Battery        *int     `json:"battery"`
	IsMockLocation bool     `json:"isMockLocation"`
}

func (r locationRequest) input() services.LocationInput {
	return services.LocationInput{
		Latitude:       *r.Latitude,
		Longitude:      *r.Longitude,
		Speed:          r.Speed,
		Battery:        r.Battery,
		IsMockLocation: r.IsMockLocation,
	}
}

func (h *TrackingHandler) Ingest(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	sample, err := h.svc.Ingest(c.Request.Context(), currentUser(c), req.input())
	if err != nil {
		failErr(c, h.lg, "ingesting location", err)
		return
	}
	respond(c, http.StatusCreated, sample)
}

// Locations is the map snapshot. ?minutes= overrides the trailing window.
func (h *TrackingHandler) Locations(c *gin.Context) {
	window := h.window
	if raw := c.Query("minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			fail(c, http.StatusBadRequest, "minutes must be a positive integer")
			return
		}
		window = time.Duration(minutes) * time.Minute
	}

	views, err := h.svc.LatestPerUser(c.Request.Context(), window)
	if err != nil {
		failErr(c, h.lg, "loading locations", err)
		return
	}
	respond(c, http.StatusOK, views)
}

func (h *TrackingHandler) EmployeeLocation(c *gin.Context) {
	employeeID, ok := h.authorizeEmployee(c)
	if !ok {
		return
	}

	view, err := h.svc.LatestForUser(c.Request.Context(), employeeID)
	if err != nil {
		failErr(c, h.lg, "loading employee location", err)
		return
	}
	respond(c, http.StatusOK, view)
}

// History returns the samples of one employee between ?from and ?to
// (RFC3339). It defaults to the last 24 hours.
func (h *TrackingHandler) History(c *gin.Context) {
	employeeID, ok := h.authorizeEmployee(c)
	if !ok {
		return
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			fail(c, http.StatusBadRequest, "from must be RFC3339")
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			fail(c, http.StatusBadRequest, "to must be RFC3339")
			return
		}
	}

	rows, err := h.svc.History(c.Request.Context(), employeeID, from, to)
	if err != nil {
		failErr(c, h.lg, "loading location history", err)
		return
	}
	respond(c, http.StatusOK, rows)
}

// authorizeEmployee lets admins read anyone and employees only themselves.
func (h *TrackingHandler) authorizeEmployee(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("employeeId"), 10, 64)
	if err != nil || id64 == 0 {
		fail(c, http.StatusBadRequest, "invalid employee id")
		return 0, false
	}
	employeeID := uint(id64)

	if !middleware.IsAdmin(c) && employeeID != currentUser(c) {
		fail(c, http.StatusForbidden, "cannot view another employee")
		return 0, false
	}
	return employeeID, true
}
