package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentConfig drives cmd/agent. Values come from an optional YAML file and
// are then overridden by AGENT_* environment variables.
type AgentConfig struct {
	ServerURL    string        `yaml:"server_url"`
	Email        string        `yaml:"email"`
	Password     string        `yaml:"password"`
	Interval     time.Duration `yaml:"interval"`
	Latitude     float64       `yaml:"latitude"`
	Longitude    float64       `yaml:"longitude"`
	LocationFile string        `yaml:"location_file"`
	MockLocation bool          `yaml:"mock_location"`
	BatteryGlob  string        `yaml:"battery_glob"`
}

func LoadAgent(path string) (AgentConfig, error) {
	cfg := AgentConfig{
		ServerURL:   "http://localhost:3000",
		Interval:    5 * time.Minute,
		BatteryGlob: "/sys/class/power_supply/*/capacity",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read agent config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse agent config: %w", err)
		}
	}

	cfg.ServerURL = getEnv("AGENT_SERVER_URL", cfg.ServerURL)
	cfg.Email = getEnv("AGENT_EMAIL", cfg.Email)
	cfg.Password = getEnv("AGENT_PASSWORD", cfg.Password)
	cfg.Interval = getEnvAsDuration("AGENT_INTERVAL", cfg.Interval)
	cfg.LocationFile = getEnv("AGENT_LOCATION_FILE", cfg.LocationFile)
	cfg.MockLocation = getEnvAsBool("AGENT_MOCK_LOCATION", cfg.MockLocation)
	cfg.BatteryGlob = getEnv("AGENT_BATTERY_GLOB", cfg.BatteryGlob)
	cfg.Latitude = getEnvAsFloat("AGENT_LATITUDE", cfg.Latitude)
	cfg.Longitude = getEnvAsFloat("AGENT_LONGITUDE", cfg.Longitude)

	if cfg.Email == "" || cfg.Password == "" {
		return cfg, fmt.Errorf("agent credentials are required")
	}
	return cfg, nil
}

func getEnvAsFloat(key string, def float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	var parsed float64
	if _, err := fmt.Sscanf(value, "%g", &parsed); err != nil {
		return def
	}
	return parsed
}
