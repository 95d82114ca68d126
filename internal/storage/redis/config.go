package redis

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config describes the connection and how long each kind of record lives.
// Registered players and the leaderboard never expire.
type Config struct {
	URL string

	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Guests and bots
	GuestPlayerTTL time.Duration
	AuthTokenTTL   time.Duration
	LobbyTTL       time.Duration
	// Shared by the session hash, its move log and its played-word set
	SessionTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		DialTimeout:    5 * time.Second,
		ReadTimeout:    3 * time.Second,
		WriteTimeout:   3 * time.Second,
		GuestPlayerTTL: 24 * time.Hour,
		AuthTokenTTL:   24 * time.Hour,
		LobbyTTL:       24 * time.Hour,
		SessionTTL:     24 * time.Hour,
	}
}

// Validate rejects TTLs that would expire a live session's records
// before the session that owns them.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("redis: URL is required")
	}
	for name, ttl := range map[string]time.Duration{
		"guest player": c.GuestPlayerTTL,
		"auth token":   c.AuthTokenTTL,
		"lobby":        c.LobbyTTL,
		"session":      c.SessionTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("redis: %s TTL must be positive, got %s", name, ttl)
		}
	}
	if c.SessionTTL > c.LobbyTTL {
		return fmt.Errorf("redis: session TTL %s outlives lobby TTL %s", c.SessionTTL, c.LobbyTTL)
	}
	return nil
}

// Options parses URL and applies the pool and timeout settings over it
func (c Config) Options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse URL: %w", err)
	}
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		opts.MinIdleConns = c.MinIdleConns
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		opts.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		opts.WriteTimeout = c.WriteTimeout
	}
	return opts, nil
}
