package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisRecorder.
type RedisConfig struct {
	// Redis client the records are written with.
	Redis redis.UniversalClient

	// Stream is the stream key. Defaults to "cronflow:history".
	Stream string

	// MaxLen caps the stream length approximately. Zero keeps every entry.
	MaxLen int64

	// Timeout bounds each Redis call. Defaults to 500ms.
	Timeout time.Duration
}

// DefaultStream is the stream key used when RedisConfig.Stream is empty.
const DefaultStream = "cronflow:history"

// RedisRecorder appends records to a Redis stream with XADD so that
// several processes can share one execution log.
type RedisRecorder struct {
	client  redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration
}

// NewRedisRecorder creates a recorder writing to cfg.Stream.
func NewRedisRecorder(cfg RedisConfig) (*RedisRecorder, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("history: redis client is required")
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 500 * time.Millisecond
	}
	return &RedisRecorder{
		client:  cfg.Redis,
		stream:  cfg.Stream,
		maxLen:  cfg.MaxLen,
		timeout: cfg.Timeout,
	}, nil
}

// Record implements Recorder.
func (r *RedisRecorder) Record(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: encode(rec),
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("history: append to %s: %w", r.stream, err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (r *RedisRecorder) Recent(ctx context.Context, n int64) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msgs, err := r.client.XRevRangeN(ctx, r.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", r.stream, err)
	}

	out := make([]Record, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, decode(msg.Values))
	}
	return out, nil
}

// Close closes the underlying client.
func (r *RedisRecorder) Close() error {
	return r.client.Close()
}

func encode(rec Record) map[string]interface{} {
	return map[string]interface{}{
		"scheduler":   rec.Scheduler,
		"task":        rec.Task,
		"trigger":     rec.Trigger,
		"outcome":     string(rec.Outcome),
		"fired_at":    rec.FiredAt.UnixMilli(),
		"duration_ms": rec.Duration.Milliseconds(),
		"error":       rec.Error,
	}
}

func decode(values map[string]interface{}) Record {
	str := func(key string) string {
		s, _ := values[key].(string)
		return s
	}
	num := func(key string) int64 {
		n, _ := strconv.ParseInt(str(key), 10, 64)
		return n
	}
	return Record{
		Scheduler: str("scheduler"),
		Task:      str("task"),
		Trigger:   str("trigger"),
		Outcome:   Outcome(str("outcome")),
		FiredAt:   time.UnixMilli(num("fired_at")),
		Duration:  time.Duration(num("duration_ms")) * time.Millisecond,
		Error:     str("error"),
	}
}
