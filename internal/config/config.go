package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port    string // host listen port
	Name    string // display name of this participant
	Connect string // host:port to join; empty means run as host
	Env     string // "development" or "production"

	// Default canvas dimensions for newly materialized canvases.
	CanvasWidth  int
	CanvasHeight int
}

// Load reads configuration from environment variables. In development
// a .env file is honored if present.
func Load() *Config {
	_ = godotenv.Load()

	host, _ := os.Hostname()
	if host == "" {
		host = "anonymous"
	}

	return &Config{
		Port:         getEnv("COBOARD_PORT", "8888"),
		Name:         getEnv("COBOARD_NAME", host),
		Connect:      os.Getenv("COBOARD_CONNECT"),
		Env:          getEnv("ENV", "development"),
		CanvasWidth:  getEnvInt("COBOARD_CANVAS_W", 1200),
		CanvasHeight: getEnvInt("COBOARD_CANVAS_H", 800),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
