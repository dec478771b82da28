package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kana121/eazystore-backend/internal/domain"
	"github.com/Kana121/eazystore-backend/internal/payment"
	"github.com/Kana121/eazystore-backend/internal/repository"
	"github.com/Kana121/eazystore-backend/internal/transport/http/handler"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test_key_secret"

// stubOrderService lets each test script the service layer and record what
// the handlers actually passed down.
type stubOrderService struct {
	createOrderFn       func(ctx context.Context, customerID int64, items []domain.CartItem, declaredTotal decimal.Decimal) (int64, error)
	createWithPaymentFn func(ctx context.Context, customerID int64, items []domain.CartItem, paymentID, paymentStatus string) (*domain.Order, error)
	settleCalls         int
}

func (s *stubOrderService) CreateOrder(ctx context.Context, customerID int64, items []domain.CartItem, declaredTotal decimal.Decimal) (int64, error) {
	if s.createOrderFn != nil {
		return s.createOrderFn(ctx, customerID, items, declaredTotal)
	}
	return 1, nil
}

func (s *stubOrderService) CreateOrderWithPayment(ctx context.Context, customerID int64, items []domain.CartItem, paymentID, paymentStatus string) (*domain.Order, error) {
	s.settleCalls++
	if s.createWithPaymentFn != nil {
		return s.createWithPaymentFn(ctx, customerID, items, paymentID, paymentStatus)
	}
	pid := paymentID
	return &domain.Order{
		ID:         7,
		CustomerID: customerID,
		Status:     domain.OrderStatusProcessing,
		PaymentID:  &pid,
		TotalPrice: decimal.RequireFromString("19.99"),
	}, nil
}

func (s *stubOrderService) GetCustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	return []domain.Order{
		{
			ID:         3,
			CustomerID: customerID,
			Status:     domain.OrderStatusPending,
			TotalPrice: decimal.RequireFromString("39.98"),
			CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Items: []domain.OrderItem{
				{ProductID: 1, Name: "Wireless Mouse", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99"), ImageURL: "https://cdn.example/mouse.png"},
			},
		},
	}, nil
}

func (s *stubOrderService) GetOrdersByStatus(ctx context.Context, customerID int64, status string) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrderService) GetAllPendingOrders(ctx context.Context) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status string, actor string) error {
	return nil
}

func newTestApp(svc *stubOrderService, gatewayURL string) *fiber.App {
	logger := zap.NewNop()
	gateway := payment.NewGatewayClient(gatewayURL, "key_id", testSecret, 5*time.Second, logger)
	verifier := payment.NewVerifier(testSecret)

	app := fiber.New()
	RegisterRoutes(app, &Handlers{
		Order:   handler.NewOrderHandler(svc, logger),
		Payment: handler.NewPaymentHandler(svc, gateway, verifier, logger),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, customerID string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if customerID != "" {
		req.Header.Set("X-Customer-Id", customerID)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateOrderRequiresIdentity(t *testing.T) {
	app := newTestApp(&stubOrderService{}, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/orders", fiber.Map{
		"items": []fiber.Map{{"productId": 1, "quantity": 1}},
		"total": "19.99",
	}, "")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateOrderRejectsGarbageIdentity(t *testing.T) {
	app := newTestApp(&stubOrderService{}, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/orders", fiber.Map{
		"items": []fiber.Map{{"productId": 1, "quantity": 1}},
	}, "not-a-number")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateOrderHappyPath(t *testing.T) {
	var gotCustomer int64
	var gotItems []domain.CartItem

	svc := &stubOrderService{
		createOrderFn: func(ctx context.Context, customerID int64, items []domain.CartItem, declaredTotal decimal.Decimal) (int64, error) {
			gotCustomer = customerID
			gotItems = items
			return 11, nil
		},
	}
	app := newTestApp(svc, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/orders", fiber.Map{
		"items": []fiber.Map{{"productId": 1, "quantity": 2, "price": "19.99"}},
		"total": "39.98",
	}, "42")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Order created successfully!", string(raw))

	assert.Equal(t, int64(42), gotCustomer)
	require.Len(t, gotItems, 1)
	assert.Equal(t, int64(1), gotItems[0].ProductID)
	assert.Equal(t, int32(2), gotItems[0].Quantity)
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	app := newTestApp(&stubOrderService{}, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/orders", fiber.Map{
		"items": []fiber.Map{},
		"total": "0",
	}, "42")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestListOrdersResponseShape(t *testing.T) {
	app := newTestApp(&stubOrderService{}, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodGet, "/api/v1/orders", nil, "42")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var orders []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	require.Len(t, orders, 1)

	assert.Equal(t, float64(3), orders[0]["orderId"])
	assert.Equal(t, "PENDING", orders[0]["status"])

	items, ok := orders[0]["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)

	item := items[0].(map[string]any)
	assert.Equal(t, "Wireless Mouse", item["productName"])
	assert.Equal(t, []any{"https://cdn.example/mouse.png"}, item["images"])
}

func TestUpdateStatusRejectsBadOrderID(t *testing.T) {
	app := newTestApp(&stubOrderService{}, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodPatch, "/api/v1/admin/orders/abc/status", fiber.Map{
		"status": "PAID",
	}, "42")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVerifyPaymentRejectsMalformedBodyBeforeSettlement(t *testing.T) {
	svc := &stubOrderService{}
	app := newTestApp(svc, "http://gateway.invalid")

	// orderDetails missing entirely
	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/payment/verify", fiber.Map{
		"orderId":   "order_ref_1",
		"paymentId": "pay_1",
		"signature": "deadbeef",
	}, "42")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, svc.settleCalls, "settlement must not run for an invalid payload")
}

func TestVerifyPaymentRejectsEmptyItemsBeforeSettlement(t *testing.T) {
	svc := &stubOrderService{}
	app := newTestApp(svc, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/payment/verify", fiber.Map{
		"orderId":      "order_ref_1",
		"paymentId":    "pay_1",
		"signature":    "deadbeef",
		"orderDetails": fiber.Map{"items": []fiber.Map{}},
	}, "42")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, svc.settleCalls)
}

func TestVerifyPaymentRejectsInvalidSignature(t *testing.T) {
	svc := &stubOrderService{}
	app := newTestApp(svc, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/payment/verify", fiber.Map{
		"orderId":      "order_ref_1",
		"paymentId":    "pay_1",
		"signature":    "0000000000000000000000000000000000000000000000000000000000000000",
		"orderDetails": fiber.Map{"items": []fiber.Map{{"productId": 1, "quantity": 1}}},
	}, "42")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "Payment verification failed", body["message"])
	assert.Zero(t, svc.settleCalls, "settlement must not run for a bad signature")
}

func TestVerifyPaymentHappyPath(t *testing.T) {
	svc := &stubOrderService{}
	app := newTestApp(svc, "http://gateway.invalid")

	sig := payment.NewVerifier(testSecret).Sign("order_ref_1", "pay_1")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/payment/verify", fiber.Map{
		"orderId":      "order_ref_1",
		"paymentId":    "pay_1",
		"signature":    sig,
		"orderDetails": fiber.Map{"items": []fiber.Map{{"productId": 1, "quantity": 1}}},
	}, "42")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "order_ref_1", body["orderId"], "response echoes the gateway order reference")
	assert.Equal(t, 1, svc.settleCalls)
}

func TestVerifyPaymentMapsInsufficientStock(t *testing.T) {
	svc := &stubOrderService{
		createWithPaymentFn: func(ctx context.Context, customerID int64, items []domain.CartItem, paymentID, paymentStatus string) (*domain.Order, error) {
			return nil, repository.ErrInsufficientStock
		},
	}
	app := newTestApp(svc, "http://gateway.invalid")

	sig := payment.NewVerifier(testSecret).Sign("order_ref_1", "pay_1")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/payment/verify", fiber.Map{
		"orderId":      "order_ref_1",
		"paymentId":    "pay_1",
		"signature":    sig,
		"orderDetails": fiber.Map{"items": []fiber.Map{{"productId": 1, "quantity": 1}}},
	}, "42")

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["valid"])
}

func TestCreateGatewayOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","status":"created"}`))
	}))
	defer srv.Close()

	app := newTestApp(&stubOrderService{}, srv.URL)

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/payment/orders", fiber.Map{
		"amount":   "19.99",
		"currency": "USD",
	}, "42")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "order_abc", body["id"])
}

func TestCreateGatewayOrderValidation(t *testing.T) {
	app := newTestApp(&stubOrderService{}, "http://gateway.invalid")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/payment/orders", fiber.Map{
		"amount": "19.99",
		// currency missing
	}, "42")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
