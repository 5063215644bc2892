// Package redis provides a rueidis-backed transaction snapshot cache and
// conversation log.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Config holds the Redis connection settings.
type Config struct {
	// Addr is the Redis server address, e.g. "localhost:6379"
	Addr     string
	Username string
	Password string
	DB       int
	// KeyPrefix namespaces every key, e.g. "finance-agent:"
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a configuration for a local Redis.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		KeyPrefix:    "finance-agent:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Client is a connected rueidis client shared by the snapshot cache and the
// conversation log.
type Client struct {
	client rueidis.Client
	keys   keySpace
}

// NewClient connects and pings the server.
func NewClient(config Config) (*Client, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis: no address configured")
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{config.Addr},
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
		// RESP2 servers need DisableCache.
		DisableCache:  true,
		MaxFlushDelay: 100 * time.Microsecond,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	c := &Client{client: client, keys: keySpace{prefix: config.KeyPrefix}}
	if err := c.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return c, nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close closes the connection.
func (c *Client) Close() error {
	c.client.Close()
	return nil
}
