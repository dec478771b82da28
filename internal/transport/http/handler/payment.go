package handler

import (
	"errors"

	"github.com/Kana121/eazystore-backend/internal/domain"
	"github.com/Kana121/eazystore-backend/internal/payment"
	"github.com/Kana121/eazystore-backend/internal/service"
	"github.com/Kana121/eazystore-backend/internal/transport/http/middleware"
	"github.com/Kana121/eazystore-backend/pkg/logging"
	"github.com/Kana121/eazystore-backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	svc      service.OrderService
	gateway  *payment.GatewayClient
	verifier *payment.Verifier
	validate *validator.Validate
	logger   *zap.Logger
}

func NewPaymentHandler(
	svc service.OrderService,
	gateway *payment.GatewayClient,
	verifier *payment.Verifier,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		svc:      svc,
		gateway:  gateway,
		verifier: verifier,
		validate: validator.New(),
		logger:   logger,
	}
}

type gatewayOrderInput struct {
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Receipt  string          `json:"receipt"`
}

// CreateGatewayOrder registers a payment intent with the external gateway
// and relays the gateway's order representation to the client.
func (h *PaymentHandler) CreateGatewayOrder(c *fiber.Ctx) error {
	input := new(gatewayOrderInput)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	if input.Receipt == "" {
		input.Receipt = uuid.NewString()
	}

	raw, err := h.gateway.CreateOrder(c.UserContext(), input.Amount, input.Currency, input.Receipt)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "payment gateway temporarily unavailable",
			})
		}

		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": "failed to create payment order",
		})
	}

	c.Set("Content-Type", "application/json")
	return c.Status(fiber.StatusOK).Send(raw)
}

type verifyItemInput struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int32 `json:"quantity" validate:"required,gt=0"`
	// Price is accepted for wire compatibility; settlement always re-resolves
	// the catalog price.
	Price decimal.Decimal `json:"price"`
}

type verifyOrderDetails struct {
	Items  []verifyItemInput `json:"items" validate:"required,min=1,dive"`
	Amount decimal.Decimal   `json:"amount"`
}

type verifyPaymentInput struct {
	OrderID      string              `json:"orderId" validate:"required"`
	PaymentID    string              `json:"paymentId" validate:"required"`
	Signature    string              `json:"signature" validate:"required"`
	OrderDetails *verifyOrderDetails `json:"orderDetails" validate:"required"`
}

type verifyPaymentResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

// VerifyPayment checks the gateway signature for a captured payment and, on
// success, settles the order: stock is decremented and the order persisted
// in one transaction keyed by the payment id. Replays of an already settled
// payment id return the original order without touching stock again.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	input := new(verifyPaymentInput)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(verifyPaymentResponse{
			Valid:   false,
			Message: "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"valid":  false,
			"errors": utils.FormatValidationError(err),
		})
	}

	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "customer identity missing"})
	}

	if !h.verifier.Verify(input.OrderID, input.PaymentID, input.Signature) {
		logging.Warn(
			c.UserContext(),
			h.logger,
			"Payment signature verification failed",
			zap.Int64("customer_id", customerID),
			zap.String("order_ref", input.OrderID),
		)

		// The response stays generic: which part of the signature check
		// failed is never disclosed to the caller.
		return c.Status(fiber.StatusBadRequest).JSON(verifyPaymentResponse{
			Valid:   false,
			Message: "Payment verification failed",
		})
	}

	items := make([]domain.CartItem, len(input.OrderDetails.Items))
	for i, item := range input.OrderDetails.Items {
		items[i] = domain.CartItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := h.svc.CreateOrderWithPayment(c.UserContext(), customerID, items, input.PaymentID, "CAPTURED")
	if err != nil {
		httpCode := statusFromError(err)

		logging.Warn(
			c.UserContext(),
			h.logger,
			"Payment settlement failed",
			zap.Int64("customer_id", customerID),
			zap.Int("http_code", httpCode),
			zap.Error(err),
		)

		return c.Status(httpCode).JSON(verifyPaymentResponse{
			Valid:   false,
			Message: err.Error(),
		})
	}

	logging.Info(
		c.UserContext(),
		h.logger,
		"Payment verified and order settled",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", customerID),
	)

	return c.Status(fiber.StatusOK).JSON(verifyPaymentResponse{
		Valid:   true,
		Message: "Payment verified successfully",
		OrderID: input.OrderID,
	})
}
