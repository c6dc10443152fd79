package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort     string
	BackendBaseURL string

	SessionSecret string

	RedisURL         string // optional; empty means in-memory category cache
	CategoryCacheTTL time.Duration

	RequestTimeout time.Duration
	FormIdleTTL    time.Duration
	ReapInterval   time.Duration
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	backendBaseURL := os.Getenv("BACKEND_BASE_URL")
	if backendBaseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL is required")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	return &Config{
		ServerPort:     serverPort,
		BackendBaseURL: backendBaseURL,

		SessionSecret: os.Getenv("SESSION_SECRET"),

		RedisURL:         os.Getenv("REDIS_URL"),
		CategoryCacheTTL: durationEnv("CATEGORY_CACHE_TTL_SECONDS", 600),

		RequestTimeout: durationEnv("REQUEST_TIMEOUT_SECONDS", 30),
		FormIdleTTL:    durationEnv("FORM_IDLE_TTL_SECONDS", 1800),
		ReapInterval:   durationEnv("REAP_INTERVAL_SECONDS", 300),
	}, nil
}

// durationEnv reads a positive integer number of seconds, falling back to
// the default on absence or nonsense.
func durationEnv(key string, defaultSeconds int) time.Duration {
	seconds, err := strconv.Atoi(os.Getenv(key))
	if err != nil || seconds <= 0 {
		seconds = defaultSeconds
	}
	return time.Duration(seconds) * time.Second
}
