package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rahulvalluru1-source/fieldtrack/internal/apiclient"
	"github.com/rahulvalluru1-source/fieldtrack/internal/config"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/sampler"
)

func main() {
	configPath := flag.String("config", "", "path to agent YAML config")
	checkOutOnExit := flag.Bool("checkout-on-exit", false, "send CHECK_OUT when the agent is stopped")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using environment variables")
	}

	lg := log.New(os.Stdout, "[agent] ", log.LstdFlags)
	cfg, err := config.LoadAgent(*configPath)
	if err != nil {
		lg.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := apiclient.New(cfg.ServerURL)
	user, err := client.Login(ctx, cfg.Email, cfg.Password)
	if err != nil {
		lg.Fatalf("login: %v", err)
	}
	lg.Printf("logged in as %s (%s)", user.Name, user.Role)

	if _, err := client.ClientConfig(ctx); err != nil {
		lg.Printf("client config unavailable, using %s/ws for the realtime channel: %v", cfg.ServerURL, err)
	}

	var locator sampler.Locator = sampler.StaticLocator{
		Latitude:       cfg.Latitude,
		Longitude:      cfg.Longitude,
		IsMockLocation: cfg.MockLocation,
	}
	if cfg.LocationFile != "" {
		locator = sampler.FileLocator{Path: cfg.LocationFile}
	}

	publisher := client.Publisher()
	defer publisher.Close()

	s := sampler.New(locator, sampler.SysfsBattery{Glob: cfg.BatteryGlob}, publisher, client, lg)
	s.OnError = func(err error) {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			lg.Println("session expired, stop the agent and log in again")
		}
	}
	session := sampler.NewSession(client, s, cfg.Interval)

	status, err := client.Status(ctx)
	if err != nil {
		lg.Fatalf("attendance status: %v", err)
	}

	switch status.Status {
	case models.StatusCheckedOut:
		lg.Println("already checked out today, nothing to track")
		return
	case models.StatusCheckedIn:
		lg.Printf("resuming tracking every %s", cfg.Interval)
		session.Resume()
	default:
		if _, err := session.CheckIn(ctx); err != nil {
			lg.Fatalf("check in: %v", err)
		}
		lg.Printf("checked in, tracking every %s", cfg.Interval)
	}

	<-ctx.Done()

	if !*checkOutOnExit {
		session.Close()
		lg.Println("tracking stopped")
		return
	}

	rec, err := session.CheckOut(context.Background())
	if err != nil {
		lg.Fatalf("check out: %v", err)
	}
	if rec.TotalHours != nil {
		lg.Printf("checked out after %.2f hours", *rec.TotalHours)
	}
}
