package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Settings are the table engine knobs, read from the environment.
type Settings struct {
	StoreMode   string
	PostgresURL string
	MongoURI    string
	JWTSecret   string
	RateLimit   int

	TurnTimeout       time.Duration
	InactivityTimeout time.Duration
	HandCooldown      time.Duration
	PollFast          time.Duration
	PollSlow          time.Duration
	ErrorBackoff      time.Duration
	SweepInterval     time.Duration
	HistoryTTL        time.Duration
	RequestTimeout    time.Duration
}

// Defaults are used for anything not set in the environment.
func Defaults() Settings {
	return Settings{
		StoreMode:         StorePostgres,
		RateLimit:         100,
		TurnTimeout:       30 * time.Second,
		InactivityTimeout: 10 * time.Minute,
		HandCooldown:      3 * time.Second,
		PollFast:          time.Second,
		PollSlow:          3 * time.Second,
		ErrorBackoff:      2 * time.Second,
		SweepInterval:     2 * time.Second,
		HistoryTTL:        30 * 24 * time.Hour,
		RequestTimeout:    5 * time.Second,
	}
}

func Load() (Settings, error) {
	s := Defaults()
	s.PostgresURL = os.Getenv("POSTGRES_URL")
	s.MongoURI = os.Getenv("MONGODB_URI")
	s.JWTSecret = os.Getenv("JWT_SECRET_KEY")
	if v := os.Getenv("STORE_MODE"); v != "" {
		s.StoreMode = v
	}
	if s.StoreMode != StorePostgres && s.StoreMode != StoreMemory {
		return s, fmt.Errorf("STORE_MODE must be %q or %q, got %q", StorePostgres, StoreMemory, s.StoreMode)
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return s, fmt.Errorf("invalid RATE_LIMIT %q", v)
		}
		s.RateLimit = n
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"TURN_TIMEOUT", &s.TurnTimeout},
		{"INACTIVITY_TIMEOUT", &s.InactivityTimeout},
		{"HAND_COOLDOWN", &s.HandCooldown},
		{"POLL_FAST", &s.PollFast},
		{"POLL_SLOW", &s.PollSlow},
		{"ERROR_BACKOFF", &s.ErrorBackoff},
		{"SWEEP_INTERVAL", &s.SweepInterval},
		{"HISTORY_TTL", &s.HistoryTTL},
		{"REQUEST_TIMEOUT", &s.RequestTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return s, fmt.Errorf("invalid %s: %w", d.env, err)
		}
		if parsed < 0 {
			return s, fmt.Errorf("invalid %s: negative duration", d.env)
		}
		*d.dst = parsed
	}

	if s.StoreMode == StorePostgres && s.PostgresURL == "" {
		return s, fmt.Errorf("POSTGRES_URL is required when STORE_MODE=%s", StorePostgres)
	}
	return s, nil
}
