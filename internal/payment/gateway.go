package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Kana121/eazystore-backend/pkg/logging"
	"github.com/Kana121/eazystore-backend/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MinorUnits converts a decimal currency amount to the gateway's minor
// currency unit (x100, truncated toward zero). 19.99 becomes 1999.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

type gatewayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// GatewayClient issues payment-intent requests to the external gateway.
type GatewayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewGatewayClient(baseURL, keyID, keySecret string, timeout time.Duration, logger *zap.Logger) *GatewayClient {
	settings := gobreaker.Settings{
		Name:        "PaymentGateway",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &GatewayClient{
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: timeout},
		cb:         gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		tracer:     otel.Tracer("payment/gateway"),
	}
}

// CreateOrder registers a payment intent with the gateway and returns the
// gateway's raw order representation. The amount is converted to minor
// units at this boundary. A cancelled or timed-out ctx aborts the call;
// nothing is persisted here, so an abort leaves no side effects.
func (c *GatewayClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "GatewayClient.CreateOrder")
	defer span.End()

	minor := MinorUnits(amount)

	span.SetAttributes(
		attribute.Int64("amount_minor", minor),
		attribute.String("currency", currency),
	)

	body, err := json.Marshal(gatewayOrderRequest{
		Amount:   minor,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway order request: %w", err)
	}

	raw, err := utils.ExecuteWithBreaker(c.cb, func() (json.RawMessage, error) {
		return c.postOrder(ctx, body)
	})
	if err != nil {
		span.RecordError(err)

		logging.Warn(
			ctx,
			c.logger,
			"Gateway order creation failed",
			zap.String("currency", currency),
			zap.Int64("amount_minor", minor),
			zap.Error(err),
		)

		return nil, err
	}

	logging.Info(
		ctx,
		c.logger,
		"Gateway order created",
		zap.String("currency", currency),
		zap.Int64("amount_minor", minor),
	)

	return raw, nil
}

func (c *GatewayClient) postOrder(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}
