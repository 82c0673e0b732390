package application

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines monitor tuning.
type Config struct {
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	KDSFreshness     time.Duration `yaml:"kds_freshness"`
	DefaultFreshness time.Duration `yaml:"default_freshness"`
	DefaultInterval  time.Duration `yaml:"default_interval"`
	NFCAvailable     bool          `yaml:"nfc_available"`
	WebhookURL       string        `yaml:"webhook_url"`
}

// LoadConfig loads monitor config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		ProbeTimeout:     getenvDuration("MONITOR_PROBE_TIMEOUT", 5*time.Second),
		KDSFreshness:     getenvDuration("MONITOR_KDS_FRESHNESS", 45*time.Second),
		DefaultFreshness: getenvDuration("MONITOR_DEFAULT_FRESHNESS", 5*time.Minute),
		DefaultInterval:  getenvDuration("MONITOR_DEFAULT_INTERVAL", 30*time.Second),
		NFCAvailable:     getenvBool("MONITOR_NFC_AVAILABLE", false),
		WebhookURL:       os.Getenv("MONITOR_WEBHOOK_URL"),
	}

	if path := os.Getenv("MONITOR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.ProbeTimeout <= 0 {
		return cfg, errors.New("monitor: probe timeout must be positive")
	}
	if cfg.KDSFreshness <= 0 {
		return cfg, errors.New("monitor: kds freshness must be positive")
	}
	if cfg.DefaultFreshness <= 0 {
		return cfg, errors.New("monitor: default freshness must be positive")
	}
	if cfg.DefaultInterval <= 0 {
		return cfg, errors.New("monitor: default interval must be positive")
	}
	return cfg, nil
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
