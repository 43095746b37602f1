// Package ledger is the HTTP client for the double-entry ledger's transaction API.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/amkoya-stack/cycles-sub000/internal/adapters/httpclient"
	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
)

const (
	contributionsPath = "/v1/ledger/contributions"
	payoutsPath       = "/v1/ledger/payouts"
	balancePath       = "/v1/ledger/chamas/%s/balance"

	codeInsufficientFunds = "insufficient_funds"
)

// Client calls the ledger service. Every posting carries its reference as the
// Idempotency-Key header so retried requests are applied once.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
}

var _ portssvc.LedgerGateway = (*Client)(nil)

// NewClient creates a ledger client rooted at baseURL.
func NewClient(baseURL, apiKey string, cfg httpclient.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		http:    httpclient.New(cfg, logger),
	}
}

type contributionRequest struct {
	UserID    string          `json:"userId"`
	ChamaID   string          `json:"chamaId"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Memo      string          `json:"memo"`
}

type payoutRequest struct {
	ChamaID           string          `json:"chamaId"`
	RecipientUserID   string          `json:"recipientUserId"`
	Amount            decimal.Decimal `json:"amount"`
	Memo              string          `json:"memo"`
	ExternalReference string          `json:"externalReference"`
}

type balanceResponse struct {
	ChamaID string          `json:"chamaId"`
	Balance decimal.Decimal `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) ProcessContribution(ctx context.Context, req portssvc.LedgerContribution) (*portssvc.LedgerResult, error) {
	body := contributionRequest{
		UserID:    req.UserID,
		ChamaID:   req.ChamaID,
		Amount:    req.Amount,
		Reference: req.Reference,
		Memo:      req.Memo,
	}
	var result portssvc.LedgerResult
	if err := c.do(ctx, http.MethodPost, contributionsPath, req.Reference, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ProcessPayout(ctx context.Context, req portssvc.LedgerPayout) (*portssvc.LedgerResult, error) {
	body := payoutRequest{
		ChamaID:           req.ChamaID,
		RecipientUserID:   req.RecipientUserID,
		Amount:            req.Amount,
		Memo:              req.Memo,
		ExternalReference: req.ExternalReference,
	}
	var result portssvc.LedgerResult
	if err := c.do(ctx, http.MethodPost, payoutsPath, req.ExternalReference, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetChamaBalance(ctx context.Context, chamaID string) (decimal.Decimal, error) {
	var resp balanceResponse
	path := fmt.Sprintf(balancePath, url.PathEscape(chamaID))
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Balance, nil
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	if c.baseURL == "" {
		return apperrors.NewAppError(http.StatusBadGateway, "ledger base url is not configured", apperrors.ErrUpstream)
	}

	var payload any
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode ledger request: %w", err)
		}
		payload = raw
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to build ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewAppError(http.StatusBadGateway, "ledger request failed", fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)).
			With("path", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewAppError(http.StatusBadGateway, "failed to decode ledger response", fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)).
			With("path", path)
	}
	return nil
}

// statusError maps a non-2xx ledger reply onto the error taxonomy.
func statusError(resp *http.Response, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed errorResponse
	_ = json.Unmarshal(raw, &parsed)
	message := parsed.Error
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusPaymentRequired || parsed.Code == codeInsufficientFunds:
		kind = apperrors.ErrInsufficientFunds
	case resp.StatusCode == http.StatusNotFound:
		kind = apperrors.ErrNotFound
	default:
		kind = apperrors.ErrUpstream
	}
	return apperrors.NewAppError(http.StatusBadGateway, "ledger rejected request", fmt.Errorf("%w: %s", kind, message)).
		With("path", path).
		With("status", fmt.Sprint(resp.StatusCode))
}
