// Package apiclient talks to the fieldtrack server over HTTP and the
// realtime websocket channel.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu       sync.RWMutex
	token    string
	realtime string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login exchanges credentials for a session token and keeps it for later
// calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out.User, nil
}

func (c *Client) Attendance(ctx context.Context, action services.AttendanceAction, coordinates string, battery *int) (*models.AttendanceRecord, error) {
	body := map[string]any{"action": action, "coordinates": coordinates}
	if battery != nil {
		body["battery"] = *battery
	}

	var rec models.AttendanceRecord
	if err := c.do(ctx, http.MethodPost, "/attendance", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) Status(ctx context.Context) (*services.StatusView, error) {
	var view services.StatusView
	if err := c.do(ctx, http.MethodGet, "/attendance/status", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Reading is one sampled position as sent by field devices.
type Reading struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Speed          *float64 `json:"speed,omitempty"`
	Battery        int      `json:"battery"`
	IsMockLocation bool     `json:"isMockLocation"`
}

func (c *Client) PostLocation(ctx context.Context, r Reading) (*models.TrackingSample, error) {
	var sample models.TrackingSample
	if err := c.do(ctx, http.MethodPost, "/tracking", r, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// Locations fetches the map snapshot. A zero window uses the server default.
func (c *Client) Locations(ctx context.Context, window time.Duration) ([]services.LocationView, error) {
	path := "/tracking/locations"
	if minutes := int(window / time.Minute); minutes > 0 {
		path += "?minutes=" + strconv.Itoa(minutes)
	}

	var views []services.LocationView
	if err := c.do(ctx, http.MethodGet, path, nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// ClientConfig mirrors GET /config/client.
type ClientConfig struct {
	RealtimeURL    string
	MapAPIKey      string
	SampleInterval time.Duration
	PollInterval   time.Duration
	IdleTimeout    time.Duration
	TrackingWindow time.Duration
}

// ClientConfig fetches the server's client settings. A configured realtime
// URL is remembered and used by Dial from then on.
func (c *Client) ClientConfig(ctx context.Context) (*ClientConfig, error) {
	var raw struct {
		RealtimeURL    string `json:"realtimeUrl"`
		MapAPIKey      string `json:"mapApiKey"`
		SampleInterval string `json:"sampleInterval"`
		PollInterval   string `json:"pollInterval"`
		IdleTimeout    string `json:"idleTimeout"`
		TrackingWindow string `json:"trackingWindow"`
	}
	if err := c.do(ctx, http.MethodGet, "/config/client", nil, &raw); err != nil {
		return nil, err
	}

	cfg := &ClientConfig{RealtimeURL: raw.RealtimeURL, MapAPIKey: raw.MapAPIKey}
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"sampleInterval", raw.SampleInterval, &cfg.SampleInterval},
		{"pollInterval", raw.PollInterval, &cfg.PollInterval},
		{"idleTimeout", raw.IdleTimeout, &cfg.IdleTimeout},
		{"trackingWindow", raw.TrackingWindow, &cfg.TrackingWindow},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if cfg.RealtimeURL != "" {
		c.mu.Lock()
		c.realtime = cfg.RealtimeURL
		c.mu.Unlock()
	}
	return cfg, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

// realtimeURL is the server-advertised websocket endpoint when known,
// otherwise the base URL's /ws.
func (c *Client) realtimeURL() (string, error) {
	c.mu.RLock()
	advertised := c.realtime
	c.mu.RUnlock()

	if advertised != "" {
		u, err := url.Parse(advertised)
		if err != nil {
			return "", fmt.Errorf("parse realtime url: %w", err)
		}
		q := u.Query()
		q.Set("token", c.Token())
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {c.Token()}}.Encode()
	return u.String(), nil
}
