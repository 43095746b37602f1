// Package notification delivers member SMS and email.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
)

// SMSSender sends a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// EmailSender sends an HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// Notifier routes each channel to its sender. A channel without a sender is
// skipped silently so deployments can run with SMS or email only.
type Notifier struct {
	sms    SMSSender
	email  EmailSender
	logger *slog.Logger
}

var _ portssvc.NotificationGateway = (*Notifier)(nil)

// NewNotifier combines an SMS and an email sender. Either may be nil.
func NewNotifier(sms SMSSender, email EmailSender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sms: sms, email: email, logger: logger}
}

func (n *Notifier) SendSMS(ctx context.Context, phone, message string) error {
	if n.sms == nil {
		n.logger.Debug("SMS channel not configured, skipping")
		return nil
	}
	return n.sms.SendSMS(ctx, phone, message)
}

func (n *Notifier) SendEmail(ctx context.Context, to, subject, html string) error {
	if n.email == nil {
		n.logger.Debug("Email channel not configured, skipping")
		return nil
	}
	return n.email.SendEmail(ctx, to, subject, html)
}

// Async sends through inner on background goroutines and never returns a
// delivery error to the caller. Failures are logged. Close waits for
// in-flight sends.
type Async struct {
	inner   portssvc.NotificationGateway
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ portssvc.NotificationGateway = (*Async)(nil)

// NewAsync wraps inner. Each send gets its own timeout, detached from the caller's cancellation.
func NewAsync(inner portssvc.NotificationGateway, timeout time.Duration, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Async{inner: inner, logger: logger, timeout: timeout}
}

func (a *Async) SendSMS(ctx context.Context, phone, message string) error {
	a.dispatch(ctx, "sms", func(ctx context.Context) error {
		return a.inner.SendSMS(ctx, phone, message)
	})
	return nil
}

func (a *Async) SendEmail(ctx context.Context, to, subject, html string) error {
	a.dispatch(ctx, "email", func(ctx context.Context) error {
		return a.inner.SendEmail(ctx, to, subject, html)
	})
	return nil
}

func (a *Async) dispatch(ctx context.Context, channel string, send func(context.Context) error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.logger.Warn("Notifier closed, dropping message", slog.String("channel", channel))
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := send(sendCtx); err != nil {
			a.logger.Warn("Notification delivery failed",
				slog.String("channel", channel),
				slog.String("error", err.Error()))
		}
	}()
}

// Close stops accepting messages and waits for pending sends or ctx, whichever comes first.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
