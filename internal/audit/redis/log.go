// Package redis stores audit events in a capped Redis list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/teachkit/internal/audit"
)

// Log is a Redis-backed implementation of audit.Log
type Log struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis audit log and verifies the connection
func New(cfg Config) (*Log, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis audit log with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Log {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Log{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (l *Log) Close() error {
	return l.client.Close()
}

// Ensure Log implements the interface
var _ audit.Log = (*Log)(nil)

func (l *Log) key() string {
	return l.cfg.KeyPrefix + ":audit:events"
}

func (l *Log) Record(ctx context.Context, ev audit.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	// Push, trim and refresh the TTL in one round trip
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.key(), data)
	if l.cfg.MaxEvents > 0 {
		pipe.LTrim(ctx, l.key(), 0, l.cfg.MaxEvents-1)
	}
	if l.cfg.TTL > 0 {
		pipe.Expire(ctx, l.key(), l.cfg.TTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (l *Log) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit < 0 {
		return nil, audit.ErrInvalidLimit
	}

	stop := int64(limit) - 1
	if limit == 0 {
		stop = -1
	}

	raw, err := l.client.LRange(ctx, l.key(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	events := make([]audit.Event, 0, len(raw))
	for _, item := range raw {
		var ev audit.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("corrupt audit entry: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
