// Package stream fans finalized assessments out to a Redis stream so that
// downstream consumers can react to them with consumer groups.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// DefaultStream is the stream key assessments are appended to.
const DefaultStream = "dryeye:assessments"

// Sink receives finalized assessments.
type Sink interface {
	// Publish appends the assessment and returns the entry ID.
	Publish(ctx context.Context, a logic.Assessment) (string, error)

	// Close releases the connection.
	Close() error
}

// RedisSink appends assessments to a capped Redis stream.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// Options configures a RedisSink.
type Options struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, o Options) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", o.Addr, err)
	}
	return NewRedisSinkWithClient(client, o.Stream, o.MaxLen), nil
}

// NewRedisSinkWithClient wraps an existing client.
func NewRedisSinkWithClient(client *redis.Client, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

// Stream returns the stream key.
func (s *RedisSink) Stream() string {
	return s.stream
}

// Publish XADDs the assessment. The stream is trimmed to roughly maxLen
// entries; it is a delivery channel, not an archive.
func (s *RedisSink) Publish(ctx context.Context, a logic.Assessment) (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode assessment: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: Fields(a, data),
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return id, nil
}

// Fields returns the stream entry fields for an assessment whose JSON
// encoding is data.
func Fields(a logic.Assessment, data []byte) map[string]interface{} {
	return map[string]interface{}{
		"session_id": a.SessionID,
		"level":      a.Level.String(),
		"rate":       strconv.FormatFloat(a.BlinkRate, 'f', -1, 64),
		"score":      strconv.Itoa(a.HealthScore),
		"data":       string(data),
		"timestamp":  strconv.FormatInt(a.FinishedAt.Unix(), 10),
	}
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
