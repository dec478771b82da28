package handler

import (
	"strconv"

	"github.com/Kana121/eazystore-backend/internal/domain"
	"github.com/Kana121/eazystore-backend/internal/service"
	"github.com/Kana121/eazystore-backend/internal/transport/http/middleware"
	"github.com/Kana121/eazystore-backend/pkg/logging"
	"github.com/Kana121/eazystore-backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderHandler struct {
	svc      service.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewOrderHandler(svc service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

type orderItemInput struct {
	ProductID int64           `json:"productId" validate:"required"`
	Quantity  int32           `json:"quantity" validate:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

type createOrderInput struct {
	Items []orderItemInput `json:"items" validate:"required,min=1,dive"`
	Total decimal.Decimal  `json:"total"`
	// PaymentID is accepted for wire compatibility but ignored: the direct
	// path records intent only, settlement owns payment linkage.
	PaymentID string `json:"paymentId"`
}

type orderItemResponse struct {
	ProductName string          `json:"productName"`
	Quantity    int32           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
}

type orderResponse struct {
	OrderID    int64               `json:"orderId"`
	Status     string              `json:"status"`
	TotalPrice decimal.Decimal     `json:"totalPrice"`
	CreatedAt  string              `json:"createdAt"`
	Items      []orderItemResponse `json:"items"`
}

func toCartItems(items []orderItemInput) []domain.CartItem {
	cart := make([]domain.CartItem, len(items))
	for i, item := range items {
		cart[i] = domain.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		}
	}
	return cart
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		items := make([]orderItemResponse, len(o.Items))
		for j, item := range o.Items {
			var images []string
			if item.ImageURL != "" {
				images = []string{item.ImageURL}
			}
			items[j] = orderItemResponse{
				ProductName: item.Name,
				Quantity:    item.Quantity,
				Price:       item.UnitPrice,
				Images:      images,
			}
		}
		out[i] = orderResponse{
			OrderID:    o.ID,
			Status:     string(o.Status),
			TotalPrice: o.TotalPrice,
			CreatedAt:  o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Items:      items,
		}
	}
	return out
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	input := new(createOrderInput)

	if err := c.BodyParser(input); err != nil {
		logging.Warn(c.UserContext(), h.logger, "failed to parse create order body", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "customer identity missing"})
	}

	orderID, err := h.svc.CreateOrder(c.UserContext(), customerID, toCartItems(input.Items), input.Total)
	if err != nil {
		httpCode := statusFromError(err)

		logging.Warn(
			c.UserContext(),
			h.logger,
			"create order failed",
			zap.Int64("customer_id", customerID),
			zap.Int("http_code", httpCode),
			zap.Error(err),
		)

		return c.Status(httpCode).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	logging.Info(
		c.UserContext(),
		h.logger,
		"order created",
		zap.Int64("order_id", orderID),
		zap.Int64("customer_id", customerID),
	)

	return c.Status(fiber.StatusOK).SendString("Order created successfully!")
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "customer identity missing"})
	}

	orders, err := h.svc.GetCustomerOrders(c.UserContext(), customerID)
	if err != nil {
		logging.Warn(c.UserContext(), h.logger, "list orders failed", zap.Error(err))

		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponses(orders))
}

func (h *OrderHandler) ListByStatus(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "customer identity missing"})
	}

	orders, err := h.svc.GetOrdersByStatus(c.UserContext(), customerID, c.Params("status"))
	if err != nil {
		logging.Warn(
			c.UserContext(),
			h.logger,
			"list orders by status failed",
			zap.String("status", c.Params("status")),
			zap.Error(err),
		)

		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponses(orders))
}

func (h *OrderHandler) ListPending(c *fiber.Ctx) error {
	orders, err := h.svc.GetAllPendingOrders(c.UserContext())
	if err != nil {
		logging.Warn(c.UserContext(), h.logger, "list pending orders failed", zap.Error(err))

		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponses(orders))
}

type updateStatusInput struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	input := new(updateStatusInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "customer identity missing"})
	}
	actor := "customer-" + strconv.FormatInt(customerID, 10)

	if err := h.svc.UpdateOrderStatus(c.UserContext(), orderID, input.Status, actor); err != nil {
		httpCode := statusFromError(err)

		logging.Warn(
			c.UserContext(),
			h.logger,
			"update order status failed",
			zap.Int64("order_id", orderID),
			zap.Int("http_code", httpCode),
			zap.Error(err),
		)

		return c.Status(httpCode).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Order status updated",
	})
}
