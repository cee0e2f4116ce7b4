package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the client needs to reach the backend and to
// persist local state between runs.
type Config struct {
	APIBaseURL  string
	StateFile   string
	HTTPTimeout time.Duration
	MockPort    string
}

// Load reads configuration from a .env file (if present) and the
// environment, falling back to defaults suitable for local development.
func Load() *Config {
	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL: getEnv("PICFEED_API_URL", "http://localhost:8000"),
		StateFile:  getEnv("PICFEED_STATE_FILE", "picfeed.db"),
		MockPort:   getEnv("PICFEED_MOCK_PORT", "8000"),
	}

	seconds, err := strconv.Atoi(getEnv("PICFEED_HTTP_TIMEOUT", "15"))
	if err != nil || seconds <= 0 {
		seconds = 15
	}
	cfg.HTTPTimeout = time.Duration(seconds) * time.Second

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
