// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the bot reads from the environment.
type Config struct {
	Port            string
	PostgresDSN     string
	RedisAddr       string
	Agency          string // tenant display name, also part of the session key
	AgencyID        int
	SessionTTL      time.Duration
	WhatsAppToken   string
	PhoneNumberID   string
	VerifyToken     string
	GraphAPIVersion string
}

// Load reads configuration from the environment, trying .env files first.
func Load() (*Config, error) {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		Agency:          os.Getenv("AGENCY"),
		WhatsAppToken:   os.Getenv("WHATSAPP_TOKEN"),
		PhoneNumberID:   os.Getenv("PHONE_NUMBER_ID"),
		VerifyToken:     os.Getenv("VERIFY_TOKEN"),
		GraphAPIVersion: getEnv("GRAPH_API_VERSION", "v22.0"),
	}

	agencyID, err := getEnvInt("AGENCY_ID")
	if err != nil {
		return nil, err
	}
	cfg.AgencyID = agencyID

	ttlSec, err := getEnvIntDefault("SESSION_TTL", 1800)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = time.Duration(ttlSec) * time.Second

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"POSTGRES_DSN":    c.PostgresDSN,
		"AGENCY":          c.Agency,
		"WHATSAPP_TOKEN":  c.WhatsAppToken,
		"PHONE_NUMBER_ID": c.PhoneNumberID,
		"VERIFY_TOKEN":    c.VerifyToken,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("config: %s is not set", key)
		}
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return 0, fmt.Errorf("config: %s is not set", key)
	}
	var n int
	if _, err := fmt.Sscanf(val, "%d", &n); err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvIntDefault(key string, defaultVal int) (int, error) {
	if os.Getenv(key) == "" {
		return defaultVal, nil
	}
	return getEnvInt(key)
}
