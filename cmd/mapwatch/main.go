package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/rahulvalluru1-source/fieldtrack/internal/apiclient"
	"github.com/rahulvalluru1-source/fieldtrack/internal/viewer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using environment variables")
	}

	lg := log.New(os.Stderr, "[mapwatch] ", log.LstdFlags)
	serverURL := getEnv("MAPWATCH_SERVER_URL", "http://localhost:3000")
	email := os.Getenv("MAPWATCH_EMAIL")
	password := os.Getenv("MAPWATCH_PASSWORD")
	if email == "" || password == "" {
		lg.Fatal("MAPWATCH_EMAIL and MAPWATCH_PASSWORD are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := apiclient.New(serverURL)
	if _, err := client.Login(ctx, email, password); err != nil {
		lg.Fatalf("login: %v", err)
	}

	cc, err := client.ClientConfig(ctx)
	if err != nil {
		lg.Fatalf("client config: %v", err)
	}
	lg.Printf("idle after %s, polling every %s when the realtime channel is down", cc.IdleTimeout, cc.PollInterval)

	v := viewer.NewFromConfig(viewer.ClientSource{Client: client}, cc, lg)
	v.OnChange = func(b *viewer.Board) { render(b, v.Live()) }

	if err := v.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Fatalf("viewer: %v", err)
	}
}

func render(b *viewer.Board, live bool) {
	now := time.Now()
	mode := "polling"
	if live {
		mode = "live"
	}

	fmt.Printf("\n%s  (%s)\n", now.Format("15:04:05"), mode)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLAT\tLNG\tBATTERY\tSEEN\tSTATE\tFLAGS")
	for _, m := range b.Markers() {
		flags := ""
		if m.IsMockLocation {
			flags = "FAKE_GPS"
		}
		fmt.Fprintf(w, "%d\t%s\t%.5f\t%.5f\t%d%%\t%s ago\t%s\t%s\n",
			m.UserID, m.Name, m.Lat, m.Lng, m.Battery,
			now.Sub(m.LastUpdate).Round(time.Second), b.Color(m, now), flags)
	}
	_ = w.Flush()
}

func getEnv(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
