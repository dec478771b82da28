package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Kana121/eazystore-backend/internal/domain"
	"github.com/Kana121/eazystore-backend/internal/outbox"
	"github.com/Kana121/eazystore-backend/internal/repository"
	"github.com/Kana121/eazystore-backend/pkg/logging"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, customerID int64, items []domain.CartItem, declaredTotal decimal.Decimal) (int64, error)
	CreateOrderWithPayment(ctx context.Context, customerID int64, items []domain.CartItem, paymentID, paymentStatus string) (*domain.Order, error)
	GetCustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error)
	GetOrdersByStatus(ctx context.Context, customerID int64, status string) ([]domain.Order, error)
	GetAllPendingOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string, actor string) error
}

// TxStarter is satisfied by *pgxpool.Pool; tests supply their own.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type orderService struct {
	db          TxStarter
	logger      *zap.Logger
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	outboxRepo  repository.OutboxRepository
	tracer      trace.Tracer
}

func NewOrderService(
	db TxStarter,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	outboxRepo repository.OutboxRepository,
) OrderService {
	return &orderService{
		db:          db,
		logger:      logger,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		tracer:      otel.Tracer("order_service"),
	}
}

// CreateOrder records purchase intent before payment capture. It resolves
// every product against the catalog but deliberately performs no stock check
// or mutation, and persists the client-declared total as-is. Anything that
// touches inventory must go through CreateOrderWithPayment.
func (s *orderService) CreateOrder(ctx context.Context, customerID int64, items []domain.CartItem, declaredTotal decimal.Decimal) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", customerID),
		attribute.Int("items_count", len(items)),
	)

	if len(items) == 0 {
		return 0, ErrEmptyOrder
	}

	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("%w: product %d", ErrInvalidQuantity, item.ProductID)
		}

		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return 0, fmt.Errorf("product %d: %w", item.ProductID, repository.ErrProductNotFound)
			}
			return 0, err
		}

		orderItems = append(orderItems, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	// The declared total and per-item prices come from the client on this
	// path. Until callers are migrated to the payment-verified path this
	// stays a known trust gap, so it is logged loudly.
	logging.Warn(
		ctx,
		s.logger,
		"Persisting order with client-declared total; no stock reserved",
		zap.Int64("customer_id", customerID),
		zap.String("declared_total", declaredTotal.String()),
	)

	order := &domain.Order{
		CustomerID: customerID,
		Status:     domain.OrderStatusPending,
		TotalPrice: declaredTotal,
		Items:      orderItems,
		UpdatedBy:  fmt.Sprintf("customer-%d", customerID),
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	if err := s.orderRepo.InsertOrderWithItems(ctx, tx, order); err != nil {
		logging.Error(
			ctx,
			s.logger,
			"Failed to create order",
			zap.Int64("customer_id", customerID),
			zap.Error(err),
		)

		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.emitOrderEvent(ctx, tx, "OrderCreated", order); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return order.ID, nil
}

// CreateOrderWithPayment settles a verified payment: it decrements stock for
// every line and persists the order atomically. The payment id acts as an
// idempotency key, so retried callbacks collapse into the first order.
func (s *orderService) CreateOrderWithPayment(ctx context.Context, customerID int64, items []domain.CartItem, paymentID, paymentStatus string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrderWithPayment")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", customerID),
		attribute.String("payment_id", paymentID),
		attribute.Int("items_count", len(items)),
	)

	if paymentID == "" {
		return nil, ErrMissingPaymentID
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidQuantity, item.ProductID)
		}
	}

	if existing, err := s.orderRepo.FindByPaymentID(ctx, paymentID); err == nil {
		logging.Info(
			ctx,
			s.logger,
			"Payment already settled, returning existing order",
			zap.String("payment_id", paymentID),
			zap.Int64("order_id", existing.ID),
		)

		return existing, nil
	} else if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	orderItems := make([]domain.OrderItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		name, price, remaining, err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, fmt.Errorf("product %d: %w", item.ProductID, repository.ErrProductNotFound)
			}
			if errors.Is(err, repository.ErrInsufficientStock) {
				logging.Warn(
					ctx,
					s.logger,
					"Insufficient stock, aborting settlement",
					zap.Int64("product_id", item.ProductID),
					zap.String("product_name", name),
					zap.Int("requested", int(item.Quantity)),
				)

				return nil, fmt.Errorf("insufficient stock for product %q: %w", name, repository.ErrInsufficientStock)
			}
			return nil, err
		}

		span.AddEvent("stock decremented", trace.WithAttributes(
			attribute.Int64("product_id", item.ProductID),
			attribute.Int64("remaining", remaining),
		))

		// Unit price is the catalog price at settlement time, never the
		// client-submitted one.
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	order := &domain.Order{
		CustomerID:    customerID,
		Status:        domain.OrderStatusProcessing,
		TotalPrice:    total,
		PaymentID:     &paymentID,
		PaymentStatus: paymentStatus,
		Items:         orderItems,
		UpdatedBy:     fmt.Sprintf("customer-%d", customerID),
	}

	if err := s.orderRepo.InsertOrderWithItems(ctx, tx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			// Lost the first-insert race: roll back our decrements and
			// hand back the winner's order.
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				return nil, fmt.Errorf("failed to rollback after duplicate payment: %w", rbErr)
			}

			return s.orderRepo.FindByPaymentID(ctx, paymentID)
		}

		logging.Error(
			ctx,
			s.logger,
			"Failed to insert order",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.emitOrderEvent(ctx, tx, "OrderSettled", order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Info(
		ctx,
		s.logger,
		"Order settled",
		zap.Int64("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.String("total", total.String()),
	)

	return order, nil
}

func (s *orderService) GetCustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetCustomerOrders")
	defer span.End()

	span.SetAttributes(attribute.Int64("customer_id", customerID))

	return s.orderRepo.ListByCustomer(ctx, customerID)
}

func (s *orderService) GetOrdersByStatus(ctx context.Context, customerID int64, status string) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrdersByStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", customerID),
		attribute.String("status", status),
	)

	orderStatus, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	return s.orderRepo.ListByCustomerAndStatus(ctx, customerID, orderStatus)
}

func (s *orderService) GetAllPendingOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetAllPendingOrders")
	defer span.End()

	return s.orderRepo.ListByStatus(ctx, domain.OrderStatusPending)
}

// UpdateOrderStatus applies an explicit transition. Only the status name is
// validated; whether the transition makes business sense is the caller's
// responsibility.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID int64, status string, actor string) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", status),
		attribute.String("actor", actor),
	)

	orderStatus, err := domain.ParseOrderStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, orderStatus, actor); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			logging.Warn(
				ctx,
				s.logger,
				"Order not found",
				zap.Int64("order_id", orderID),
			)

			return fmt.Errorf("order %d: %w", orderID, repository.ErrOrderNotFound)
		}

		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

func (s *orderService) emitOrderEvent(ctx context.Context, tx pgx.Tx, eventType string, order *domain.Order) error {
	eventItems := make([]map[string]any, len(order.Items))
	for i, item := range order.Items {
		eventItems[i] = map[string]any{
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
		}
	}

	envelope := map[string]any{
		"event": eventType,
		"payload": map[string]any{
			"order_id":    order.ID,
			"customer_id": order.CustomerID,
			"status":      order.Status,
			"total":       order.TotalPrice.String(),
			"items":       eventItems,
		},
	}

	payloadBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	event := &outbox.Event{
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", order.ID),
		EventType:     eventType,
		Payload:       payloadBytes,
		Topic:         outbox.TopicOrderEvents,
	}

	if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		logging.Error(
			ctx,
			s.logger,
			"Failed to save outbox event",
			zap.Error(err),
		)

		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	return nil
}

func (s *orderService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logging.Warn(
			shutdownCtx,
			s.logger,
			"Error rolling back transaction",
			zap.Error(err),
		)
	}
}
