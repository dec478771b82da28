package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"19.99", 1999},
		{"0.01", 1},
		{"100", 10000},
		{"0", 0},
		// sub-cent precision is truncated, never rounded up
		{"19.999", 1999},
		{"0.009", 0},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := MinorUnits(decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGatewayClientCreateOrder(t *testing.T) {
	var gotBody gatewayOrderRequest
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":1999,"currency":"USD","status":"created"}`))
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, "key_id", "key_secret", 5*time.Second, zap.NewNop())

	raw, err := client.CreateOrder(context.Background(), decimal.RequireFromString("19.99"), "USD", "rcpt-1")
	require.NoError(t, err)

	assert.Equal(t, "key_id", gotUser)
	assert.Equal(t, "key_secret", gotPass)
	assert.Equal(t, int64(1999), gotBody.Amount)
	assert.Equal(t, "USD", gotBody.Currency)
	assert.Equal(t, "rcpt-1", gotBody.Receipt)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "order_abc", resp["id"])
}

func TestGatewayClientRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid currency"}`))
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, "key_id", "key_secret", 5*time.Second, zap.NewNop())

	_, err := client.CreateOrder(context.Background(), decimal.RequireFromString("10.00"), "XXX", "rcpt-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatewayRejected)
}

func TestGatewayClientContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel r.Context(); otherwise Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, "key_id", "key_secret", 5*time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.CreateOrder(ctx, decimal.RequireFromString("10.00"), "USD", "rcpt-1")
	assert.Error(t, err)
}
