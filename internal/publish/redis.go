// Package publish streams reconciled game snapshots to downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

const (
	// StreamPrefix is prepended to the lowercase league code.
	StreamPrefix = "games.updates."
	// DefaultMaxLen bounds each stream with approximate trimming.
	DefaultMaxLen int64 = 10000
)

// RedisPublisher appends snapshots to one redis stream per league.
type RedisPublisher struct {
	client redis.UniversalClient
	maxLen int64
}

// NewRedisPublisher wraps client. maxLen <= 0 uses DefaultMaxLen.
func NewRedisPublisher(client redis.UniversalClient, maxLen int64) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.New("redis publisher requires a client")
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &RedisPublisher{client: client, maxLen: maxLen}, nil
}

// Dial parses a redis:// URL, checks the connection and returns a publisher.
func Dial(ctx context.Context, url string, maxLen int64) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisPublisher(client, maxLen)
}

// StreamKey names the stream for league.
func StreamKey(league games.League) string {
	return StreamPrefix + league.Lower()
}

// Publish appends snap to its league stream.
func (p *RedisPublisher) Publish(ctx context.Context, snap games.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.Key(), err)
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(snap.League),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"game_id": snap.GameID,
			"status":  string(snap.Status),
			"data":    string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish %s: %w", snap.Key(), err)
	}
	return nil
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
