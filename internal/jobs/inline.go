package jobs

import (
	"context"
	"errors"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
)

// InlinePublisher runs each published job immediately on the caller's
// goroutine. One-shot CLI runs use it when no broker is configured.
// Dispatcher is set after the services it calls are built.
type InlinePublisher struct {
	Dispatcher *Dispatcher
}

var _ portssvc.JobPublisher = (*InlinePublisher)(nil)

// Publish fails only for errors a queue would have retried. Business
// failures are already recorded by the handler.
func (p *InlinePublisher) Publish(ctx context.Context, job domain.Job) error {
	if p.Dispatcher == nil {
		return errors.New("inline publisher has no dispatcher")
	}
	if _, err := p.Dispatcher.Dispatch(ctx, job); err != nil && Retryable(err) {
		return err
	}
	return nil
}
