package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DB          DBConfig
	Auth        AuthConfig
	CORSOrigins []string
	Attendance  AttendanceConfig
	Tracking    TrackingConfig
	Client      ClientConfig
	Seed        SeedConfig
	SMTP        SMTPConfig
}

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	LogMode  bool
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type AttendanceConfig struct {
	Location   *time.Location
	LateCutoff Clock
	SweepEvery time.Duration
}

type TrackingConfig struct {
	Window      time.Duration
	IdleTimeout time.Duration
}

// ClientConfig is handed to browser and agent clients through /config/client.
type ClientConfig struct {
	RealtimeURL    string
	MapAPIKey      string
	SampleInterval time.Duration
	PollInterval   time.Duration
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	AlertTo  string
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.AlertTo != ""
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant of c on the calendar day of t, in t's location.
func (c Clock) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location())
}

func ParseClock(value string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid clock %q, want HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", value)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func Load() Config {
	cfg := Config{
		Port: getEnv("PORT", "3000"),
		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "mysql"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "fieldtrack"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			LogMode:  getEnvAsBool("DB_LOG_MODE", false),
		},
		Auth: AuthConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			TokenTTL: getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		Attendance: AttendanceConfig{
			Location:   getEnvAsLocation("APP_TIMEZONE", time.Local),
			LateCutoff: getEnvAsClock("LATE_CUTOFF", Clock{Hour: 9}),
			SweepEvery: getEnvAsDuration("MISSED_CHECKOUT_SWEEP", time.Hour),
		},
		Tracking: TrackingConfig{
			Window:      time.Duration(getEnvAsInt("TRACKING_WINDOW_MINUTES", 30)) * time.Minute,
			IdleTimeout: time.Duration(getEnvAsInt("IDLE_MINUTES", 15)) * time.Minute,
		},
		Client: ClientConfig{
			RealtimeURL:    getEnv("REALTIME_URL", ""),
			MapAPIKey:      getEnv("MAP_API_KEY", ""),
			SampleInterval: getEnvAsDuration("SAMPLE_INTERVAL", 5*time.Minute),
			PollInterval:   getEnvAsDuration("POLL_INTERVAL", 30*time.Second),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			AlertTo:  getEnv("ALERT_EMAIL_TO", ""),
		},
	}

	return cfg
}

func getEnv(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func getEnvAsBool(key string, def bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("invalid boolean for %s, fallback to %t", key, def)
		return def
	}
	return parsed
}

func getEnvAsInt(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid integer for %s, fallback to %d", key, def)
		return def
	}
	return parsed
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("invalid duration for %s, fallback to %s", key, def)
		return def
	}
	return parsed
}

func getEnvAsClock(key string, def Clock) Clock {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := ParseClock(value)
	if err != nil {
		log.Printf("invalid clock for %s, fallback to %s", key, def)
		return def
	}
	return parsed
}

func getEnvAsLocation(key string, def *time.Location) *time.Location {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	loc, err := time.LoadLocation(value)
	if err != nil {
		log.Printf("invalid timezone for %s, fallback to %s", key, def)
		return def
	}
	return loc
}

func getEnvAsList(key string, def []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
