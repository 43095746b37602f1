package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/idempotency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func runPool(t *testing.T, pool *Pool) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("pool did not stop")
		}
	}
}

func TestPool_ProcessesPublishedJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	queue := NewMemoryQueue(3, nil)
	var mu sync.Mutex
	seen := map[string]int{}
	handler := func(ctx context.Context, job domain.Job) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		seen[job.ID]++
		return nil, nil
	}
	d := NewDispatcher(idempotency.NewMemoryStore(), map[domain.JobKind]Handler{domain.JobPayoutExecute: handler})
	stop := runPool(t, NewPool(queue, d, 3, nil))

	for i := 0; i < 10; i++ {
		require.NoError(t, queue.Publish(context.Background(), payoutJob(t, fmt.Sprintf("p%d", i), 0)))
	}
	// The same attempt published twice runs once.
	require.NoError(t, queue.Publish(context.Background(), payoutJob(t, "p0", 0)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 10 && queue.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
	stop()

	mu.Lock()
	defer mu.Unlock()
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestPool_RequeuesTransientFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	queue := NewMemoryQueue(3, nil)
	var calls atomic.Int32
	handler := func(ctx context.Context, job domain.Job) (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("connection refused")
		}
		return nil, nil
	}
	d := NewDispatcher(idempotency.NewMemoryStore(), map[domain.JobKind]Handler{domain.JobPayoutExecute: handler})
	stop := runPool(t, NewPool(queue, d, 1, nil))

	require.NoError(t, queue.Publish(context.Background(), payoutJob(t, "p1", 0)))
	assert.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 10*time.Millisecond)
	stop()
	assert.Zero(t, queue.Len())
}

func TestPool_DoesNotRequeueBusinessFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	queue := NewMemoryQueue(3, nil)
	var calls atomic.Int32
	handler := func(ctx context.Context, job domain.Job) (any, error) {
		calls.Add(1)
		return nil, apperrors.NewInvalidStateError("payout", "p1", "completed", "execute")
	}
	d := NewDispatcher(idempotency.NewMemoryStore(), map[domain.JobKind]Handler{domain.JobPayoutExecute: handler})
	stop := runPool(t, NewPool(queue, d, 2, nil))

	require.NoError(t, queue.Publish(context.Background(), payoutJob(t, "p1", 0)))
	assert.Eventually(t, func() bool { return calls.Load() == 1 && queue.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	stop()
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemoryQueue_DropsAfterMaxRedeliveries(t *testing.T) {
	defer goleak.VerifyNone(t)

	queue := NewMemoryQueue(2, nil)
	require.NoError(t, queue.Publish(context.Background(), payoutJob(t, "p1", 0)))

	ctx, cancel := context.WithCancel(context.Background())
	deliveries, err := queue.Deliveries(ctx)
	require.NoError(t, err)

	var attempts []int
	for i := 0; i < 3; i++ {
		d := <-deliveries
		attempts = append(attempts, d.Attempt)
		require.NoError(t, d.Nack(true))
	}
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Zero(t, queue.Len(), "third failure is dropped")

	cancel()
	for range deliveries {
	}
}

func TestMemoryQueue_RejectsAfterClose(t *testing.T) {
	queue := NewMemoryQueue(1, nil)
	queue.Close()
	err := queue.Publish(context.Background(), payoutJob(t, "p1", 0))
	assert.ErrorIs(t, err, ErrQueueClosed)
}
