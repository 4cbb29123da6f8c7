package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2, Logger: zap.NewNop()})

	require.Error(t, q.Enqueue(Job{Type: "noop"}))

	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{Type: "noop"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	require.EqualValues(t, 3, atomic.LoadInt32(&handled))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	require.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestQueueEvery(t *testing.T) {
	ticks := make(chan Job, 4)
	q := NewQueue("ticker", func(ctx context.Context, job Job) error {
		select {
		case ticks <- job:
		default:
		}
		return nil
	}, QueueConfig{})

	q.Start(context.Background())
	q.Every(5*time.Millisecond, func() Job { return Job{Type: "verify"} })

	select {
	case job := <-ticks:
		require.Equal(t, "verify", job.Type)
		require.NotEmpty(t, job.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no tick observed")
	}
	q.Stop()
}
