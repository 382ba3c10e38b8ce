package routes

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/rahulvalluru1-source/fieldtrack/internal/auth"
	"github.com/rahulvalluru1-source/fieldtrack/internal/config"
	"github.com/rahulvalluru1-source/fieldtrack/internal/handlers"
	"github.com/rahulvalluru1-source/fieldtrack/internal/middleware"
	"github.com/rahulvalluru1-source/fieldtrack/internal/repos"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
	"github.com/rahulvalluru1-source/fieldtrack/internal/websocket"
)

type Deps struct {
	Config        config.Config
	Issuer        *auth.Issuer
	Users         *repos.UserRepo
	Attendance    *services.AttendanceService
	Tracking      *services.TrackingService
	Notifications *services.NotificationService
	Hub           *websocket.Hub
	Logger        *log.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    d.Logger.Writer(),
		Formatter: accessLog,
	}))

	authH := handlers.NewAuthHandler(d.Users, d.Issuer, d.Logger)
	attendanceH := handlers.NewAttendanceHandler(d.Attendance, d.Logger)
	trackingH := handlers.NewTrackingHandler(d.Tracking, d.Config.Tracking.Window, d.Logger)
	notificationH := handlers.NewNotificationHandler(d.Notifications, d.Logger)
	realtimeH := handlers.NewRealtimeHandler(d.Hub, d.Tracking, d.Logger)

	r.GET("/health", handlers.Health)
	r.POST("/auth/login", authH.Login)
	r.GET("/config/client", handlers.ClientConfig(d.Config))

	authed := r.Group("/")
	authed.Use(middleware.AuthRequired(d.Issuer))
	{
		authed.GET("/ws", realtimeH.HandleWebsocket)

		authed.POST("/attendance", attendanceH.Submit)
		authed.GET("/attendance/status", attendanceH.Status)

		authed.POST("/tracking", trackingH.Ingest)
		authed.POST("/employee/location", trackingH.Ingest)
		authed.GET("/tracking/:employeeId/location", trackingH.EmployeeLocation)
		authed.GET("/tracking/:employeeId/history", trackingH.History)

		authed.GET("/notifications", notificationH.List)
		authed.PATCH("/notifications/:id/read", notificationH.MarkRead)
	}

	admin := r.Group("/")
	admin.Use(middleware.AuthRequired(d.Issuer), middleware.RequireAdmin())
	{
		admin.GET("/attendance/today", attendanceH.Today)
		admin.GET("/attendance/export", attendanceH.ExportExcel)
		admin.GET("/tracking/locations", trackingH.Locations)
		admin.POST("/notifications/broadcast", notificationH.Broadcast)
	}

	return r
}
