package history

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorderOrder(t *testing.T) {
	rec := NewMemoryRecorder(3)

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.Record(context.Background(), Record{Task: fmt.Sprintf("t%d", i)}))
	}

	got := rec.Records()
	require.Len(t, got, 3)
	assert.Equal(t, "t2", got[0].Task)
	assert.Equal(t, "t3", got[1].Task)
	assert.Equal(t, "t4", got[2].Task)
	assert.Equal(t, int64(5), rec.Total())
}

func TestMemoryRecorderPartial(t *testing.T) {
	rec := NewMemoryRecorder(0)
	require.NoError(t, rec.Record(context.Background(), Record{Task: "a", Outcome: OutcomeFailed}))
	require.NoError(t, rec.Record(context.Background(), Record{Task: "b"}))
	require.NoError(t, rec.Record(context.Background(), Record{Task: "a", Outcome: OutcomeSucceeded}))

	assert.Len(t, rec.Records(), 3)
	forA := rec.ForTask("a")
	require.Len(t, forA, 2)
	assert.Equal(t, OutcomeFailed, forA[0].Outcome)
	assert.Equal(t, OutcomeSucceeded, forA[1].Outcome)
}

func TestMemoryRecorderConcurrent(t *testing.T) {
	rec := NewMemoryRecorder(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = rec.Record(context.Background(), Record{Task: "x"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), rec.Total())
	assert.Len(t, rec.Records(), 64)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Record{}))
}

func TestEncodeDecode(t *testing.T) {
	in := Record{
		Scheduler: "main",
		Task:      "report",
		Trigger:   "cron",
		Outcome:   OutcomeFailed,
		FiredAt:   time.UnixMilli(1656331800000),
		Duration:  1500 * time.Millisecond,
		Error:     "boom",
	}

	// Redis returns every stream value as a string.
	raw := map[string]interface{}{}
	for k, v := range encode(in) {
		raw[k] = fmt.Sprint(v)
	}

	out := decode(raw)
	assert.Equal(t, in.Task, out.Task)
	assert.Equal(t, in.Outcome, out.Outcome)
	assert.True(t, in.FiredAt.Equal(out.FiredAt))
	assert.Equal(t, in.Duration, out.Duration)
	assert.Equal(t, in.Error, out.Error)
}

func TestNewRedisRecorderRequiresClient(t *testing.T) {
	_, err := NewRedisRecorder(RedisConfig{})
	assert.Error(t, err)
}

func TestRedisRecorder(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	stream := fmt.Sprintf("cronflow:test:%d", time.Now().UnixNano())
	defer client.Del(ctx, stream)

	rec, err := NewRedisRecorder(RedisConfig{Redis: client, Stream: stream, MaxLen: 100})
	require.NoError(t, err)
	defer rec.Close()

	require.NoError(t, rec.Record(ctx, Record{Task: "first", Outcome: OutcomeSucceeded}))
	require.NoError(t, rec.Record(ctx, Record{Task: "second", Outcome: OutcomeSkipped}))

	recent, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Task)
	assert.Equal(t, OutcomeSkipped, recent[0].Outcome)
}
