package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/rahulvalluru1-source/fieldtrack/internal/auth"
	"github.com/rahulvalluru1-source/fieldtrack/internal/config"
	"github.com/rahulvalluru1-source/fieldtrack/internal/database"
	"github.com/rahulvalluru1-source/fieldtrack/internal/mailer"
	"github.com/rahulvalluru1-source/fieldtrack/internal/repos"
	"github.com/rahulvalluru1-source/fieldtrack/internal/routes"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
	"github.com/rahulvalluru1-source/fieldtrack/internal/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using environment variables")
	}

	lg := log.New(os.Stdout, "[fieldtrack] ", log.LstdFlags|log.Lmicroseconds)
	cfg := config.Load()
	if cfg.Auth.Secret == "" {
		lg.Fatal("JWT_SECRET is required")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		lg.Fatalf("failed to connect database: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.Seed); err != nil {
		lg.Fatalf("failed to seed admin: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(lg)
	go hub.Run(ctx)

	var alerter services.Alerter
	if cfg.SMTP.Enabled() {
		alerter = mailer.New(cfg.SMTP, lg)
	} else {
		lg.Println("SMTP not configured, high-severity alerts will not be e-mailed")
	}

	users := repos.NewUserRepo(db)
	attendance := repos.NewAttendanceRepo(db)
	samples := repos.NewTrackingRepo(db)

	notifications := services.NewNotificationService(repos.NewNotificationRepo(db), hub, alerter, lg)
	tracking := services.NewTrackingService(samples, attendance, users, notifications, hub, services.TrackingOptions{
		Location:    cfg.Attendance.Location,
		IdleTimeout: cfg.Tracking.IdleTimeout,
	}, lg)
	attendanceSvc := services.NewAttendanceService(attendance, users, notifications, tracking, hub, services.AttendanceOptions{
		Location:   cfg.Attendance.Location,
		LateCutoff: cfg.Attendance.LateCutoff,
	}, lg)

	if cfg.Attendance.SweepEvery > 0 {
		go attendanceSvc.RunMissedCheckoutSweeper(ctx, cfg.Attendance.SweepEvery)
	}

	gin.SetMode(getGinMode())
	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Issuer:        auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		Users:         users,
		Attendance:    attendanceSvc,
		Tracking:      tracking,
		Notifications: notifications,
		Hub:           hub,
		Logger:        lg,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Printf("server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Printf("graceful shutdown failed: %v", err)
	}
}

func getGinMode() string {
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		return mode
	}
	return gin.DebugMode
}
