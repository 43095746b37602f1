package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
)

// Delivery is one job handed to a worker. Exactly one of Ack or Nack is called.
type Delivery struct {
	Job     domain.Job
	Attempt int
	Ack     func() error
	Nack    func(requeue bool) error
}

// Source streams deliveries until ctx is done, then closes the channel.
type Source interface {
	Deliveries(ctx context.Context) (<-chan Delivery, error)
}

// ErrQueueClosed is returned by Publish after Close.
var ErrQueueClosed = errors.New("job queue closed")

const defaultMaxRedeliveries = 3

type queued struct {
	job     domain.Job
	attempt int
}

// MemoryQueue is an in-process queue used when no broker is configured.
type MemoryQueue struct {
	mu              sync.Mutex
	pending         []queued
	signal          chan struct{}
	closed          bool
	maxRedeliveries int
	logger          *slog.Logger
}

var (
	_ portssvc.JobPublisher = (*MemoryQueue)(nil)
	_ Source                = (*MemoryQueue)(nil)
)

// NewMemoryQueue creates a queue that redelivers a requeued job up to maxRedeliveries times.
func NewMemoryQueue(maxRedeliveries int, logger *slog.Logger) *MemoryQueue {
	if maxRedeliveries < 0 {
		maxRedeliveries = defaultMaxRedeliveries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryQueue{
		signal:          make(chan struct{}, 1),
		maxRedeliveries: maxRedeliveries,
		logger:          logger,
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, job domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.push(queued{job: job, attempt: 1})
}

// Len reports how many jobs wait for a worker.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects further publishes. Jobs already queued stay deliverable.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *MemoryQueue) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			item, ok := q.pop()
			if !ok {
				select {
				case <-ctx.Done():
					return
				case <-q.signal:
					continue
				}
			}
			select {
			case out <- q.delivery(item):
			case <-ctx.Done():
				q.requeueFront(item)
				return
			}
		}
	}()
	return out, nil
}

func (q *MemoryQueue) delivery(item queued) Delivery {
	var once sync.Once
	return Delivery{
		Job:     item.job,
		Attempt: item.attempt,
		Ack:     func() error { return nil },
		Nack: func(requeue bool) error {
			once.Do(func() {
				if !requeue {
					return
				}
				if item.attempt > q.maxRedeliveries {
					q.logger.Warn("Dropping job after redeliveries",
						slog.String("job_id", item.job.ID),
						slog.String("kind", string(item.job.Kind)),
						slog.Int("attempt", item.attempt))
					return
				}
				q.mu.Lock()
				q.pending = append(q.pending, queued{job: item.job, attempt: item.attempt + 1})
				q.mu.Unlock()
				q.notify()
			})
			return nil
		},
	}
}

func (q *MemoryQueue) push(item queued) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, item)
	q.mu.Unlock()
	q.notify()
	return nil
}

func (q *MemoryQueue) requeueFront(item queued) {
	q.mu.Lock()
	q.pending = append([]queued{item}, q.pending...)
	q.mu.Unlock()
}

func (q *MemoryQueue) pop() (queued, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return queued{}, false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item, true
}

func (q *MemoryQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
