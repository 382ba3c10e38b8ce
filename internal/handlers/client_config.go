package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rahulvalluru1-source/fieldtrack/internal/config"
)

// ClientConfig exposes what browser and agent clients need to bootstrap.
// idleTimeout and trackingWindow let viewers derive presence exactly as the
// server does.
func ClientConfig(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{
			"realtimeUrl":    cfg.Client.RealtimeURL,
			"mapApiKey":      cfg.Client.MapAPIKey,
			"sampleInterval": cfg.Client.SampleInterval.String(),
			"pollInterval":   cfg.Client.PollInterval.String(),
			"idleTimeout":    cfg.Tracking.IdleTimeout.String(),
			"trackingWindow": cfg.Tracking.Window.String(),
		})
	}
}
