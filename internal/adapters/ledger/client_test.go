package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/adapters/httpclient"
	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetries = httpclient.Config{
	Timeout:      2 * time.Second,
	MaxRetries:   2,
	RetryWaitMin: time.Millisecond,
	RetryWaitMax: 5 * time.Millisecond,
}

func TestProcessPayout_SendsReferenceAndDecodesResult(t *testing.T) {
	var got payoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, payoutsPath, r.URL.Path)
		assert.Equal(t, "payout-p1-1700000000000", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "secret", r.Header.Get("X-Internal-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transactionId":"tx-42"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "secret", fastRetries, nil)
	result, err := client.ProcessPayout(context.Background(), portssvc.LedgerPayout{
		ChamaID:           "chama-1",
		RecipientUserID:   "user-7",
		Amount:            decimal.RequireFromString("4000.00"),
		Memo:              "Chama cycle payout",
		ExternalReference: "payout-p1-1700000000000",
	})

	require.NoError(t, err)
	assert.Equal(t, "tx-42", result.TransactionID)
	assert.Equal(t, "chama-1", got.ChamaID)
	assert.Equal(t, "user-7", got.RecipientUserID)
	assert.True(t, decimal.NewFromInt(4000).Equal(got.Amount))
}

func TestProcessContribution_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "contrib-ref", r.Header.Get("Idempotency-Key"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"transactionId":"tx-1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", fastRetries, nil)
	result, err := client.ProcessContribution(context.Background(), portssvc.LedgerContribution{
		UserID: "user-1", ChamaID: "chama-1", Amount: decimal.NewFromInt(1000), Reference: "contrib-ref",
	})

	require.NoError(t, err)
	assert.Equal(t, "tx-1", result.TransactionID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProcessPayout_InsufficientFunds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"chama wallet balance too low","code":"insufficient_funds"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", fastRetries, nil)
	_, err := client.ProcessPayout(context.Background(), portssvc.LedgerPayout{ChamaID: "chama-1", ExternalReference: "ref"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.ErrorContains(t, err, "chama wallet balance too low")
	assert.Equal(t, "422", apperrors.FieldsOf(err)["status"])
}

func TestProcessPayout_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "ledger down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", fastRetries, nil)
	_, err := client.ProcessPayout(context.Background(), portssvc.LedgerPayout{ChamaID: "chama-1", ExternalReference: "ref"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.NotErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.Equal(t, int32(3), calls.Load(), "one call plus two retries")
}

func TestGetChamaBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/ledger/chamas/chama-9/balance", r.URL.Path)
		_, _ = w.Write([]byte(`{"chamaId":"chama-9","balance":"12500.50"}`))
	}))
	defer srv.Close()

	balance, err := NewClient(srv.URL, "", fastRetries, nil).GetChamaBalance(context.Background(), "chama-9")

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12500.50").Equal(balance))
}

func TestClient_MissingBaseURL(t *testing.T) {
	_, err := NewClient("", "", fastRetries, nil).GetChamaBalance(context.Background(), "chama-1")
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}
