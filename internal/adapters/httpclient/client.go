// Package httpclient builds the retrying HTTP client shared by outbound gateways.
package httpclient

import (
	"log/slog"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Config tunes retries for one upstream.
type Config struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// New returns a client that retries connection errors, 429 and 5xx responses
// with exponential backoff. When retries run out the last response is handed
// back untouched so callers can map its status.
func New(cfg Config, logger *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}
	return client
}
