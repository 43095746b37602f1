package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/amkoya-stack/cycles-sub000/internal/adapters/httpclient"
	"github.com/hashicorp/go-retryablehttp"
)

// SMSClient posts messages to an HTTP SMS gateway.
type SMSClient struct {
	url      string
	apiKey   string
	senderID string
	http     *retryablehttp.Client
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	From    string `json:"from,omitempty"`
}

// NewSMSClient creates an SMS gateway client.
func NewSMSClient(gatewayURL, apiKey, senderID string, cfg httpclient.Config, logger *slog.Logger) *SMSClient {
	return &SMSClient{
		url:      strings.TrimSpace(gatewayURL),
		apiKey:   strings.TrimSpace(apiKey),
		senderID: senderID,
		http:     httpclient.New(cfg, logger),
	}
}

func (c *SMSClient) SendSMS(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(smsRequest{To: phone, Message: message, From: c.senderID})
	if err != nil {
		return fmt.Errorf("failed to encode sms: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
