package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kana121/eazystore-backend/internal/domain"
	"github.com/Kana121/eazystore-backend/pkg/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// uniqueViolation is the postgres error code raised when the payment_id
// unique index rejects a second order for the same payment.
const uniqueViolation = "23505"

type OrderRepository interface {
	InsertOrderWithItems(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
	ListByCustomerAndStatus(ctx context.Context, customerID int64, status domain.OrderStatus) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus, actor string) error
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/order_repo"),
	}
}

func (r *orderRepo) InsertOrderWithItems(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.InsertOrderWithItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", order.CustomerID),
		attribute.Int("items_count", len(order.Items)),
	)

	queryOrder := `
		INSERT INTO orders (customer_id, status, total_price, payment_id, payment_status, created_at, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), $6)
		RETURNING order_id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.CustomerID,
		string(order.Status),
		order.TotalPrice,
		order.PaymentID,
		order.PaymentStatus,
		order.UpdatedBy,
	).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolation {
			logging.Warn(
				ctx,
				r.logger,
				"Order already exists for payment id, losing the insert race",
				zap.Stringp("payment_id", order.PaymentID),
			)

			return ErrDuplicatePayment
		}

		span.RecordError(err)

		logging.Warn(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return err
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING item_id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.Name,
			item.Quantity,
			item.UnitPrice,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			logging.Error(
				ctx,
				r.logger,
				"Failed to insert order item",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepo) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.FindByPaymentID")
	defer span.End()

	span.SetAttributes(
		attribute.String("payment_id", paymentID),
	)

	query := `
		SELECT order_id, customer_id, status, total_price, payment_id, payment_status,
			created_at, updated_at, updated_by
		FROM orders
		WHERE payment_id = $1;
	`

	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, paymentID).Scan(
		&order.ID,
		&order.CustomerID,
		&order.Status,
		&order.TotalPrice,
		&order.PaymentID,
		&order.PaymentStatus,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.UpdatedBy,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		logging.Error(
			ctx,
			r.logger,
			"Failed to query order by payment id",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error querying order by payment id: %w", err)
	}

	orders := []domain.Order{order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func (r *orderRepo) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByCustomer")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", customerID),
	)

	query := `
		SELECT order_id, customer_id, status, total_price, payment_id, payment_status,
			created_at, updated_at, updated_by
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC;
	`

	return r.listOrders(ctx, query, customerID)
}

func (r *orderRepo) ListByCustomerAndStatus(ctx context.Context, customerID int64, status domain.OrderStatus) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByCustomerAndStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", customerID),
		attribute.String("status", string(status)),
	)

	query := `
		SELECT order_id, customer_id, status, total_price, payment_id, payment_status,
			created_at, updated_at, updated_by
		FROM orders
		WHERE customer_id = $1 AND status = $2
		ORDER BY created_at DESC;
	`

	return r.listOrders(ctx, query, customerID, string(status))
}

func (r *orderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("status", string(status)),
	)

	query := `
		SELECT order_id, customer_id, status, total_price, payment_id, payment_status,
			created_at, updated_at, updated_by
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC;
	`

	return r.listOrders(ctx, query, string(status))
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus, actor string) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW(), updated_by = $2
		WHERE order_id = $3;
	`

	commandTag, err := r.pool.Exec(ctx, query, string(status), actor, orderID)
	if err != nil {
		span.RecordError(err)

		logging.Error(
			ctx,
			r.logger,
			"Failed to update order status",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to update order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		logging.Warn(
			ctx,
			r.logger,
			"Order not found",
			zap.Int64("order_id", orderID),
		)

		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logging.Error(
			ctx,
			r.logger,
			"Failed to query orders",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error selecting orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.CustomerID,
			&o.Status,
			&o.TotalPrice,
			&o.PaymentID,
			&o.PaymentStatus,
			&o.CreatedAt,
			&o.UpdatedAt,
			&o.UpdatedBy,
		); err != nil {
			logging.Error(
				ctx,
				r.logger,
				"Failed to scan order row",
				zap.Error(err),
			)

			return nil, fmt.Errorf("error scanning order rows: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		logging.Error(
			ctx,
			r.logger,
			"Rows iteration error",
			zap.Error(err),
		)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachItems loads the items of every order in one query, preserving cart
// order via item_id, and joins the catalog for the current product image.
func (r *orderRepo) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]*domain.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	query := `
		SELECT oi.item_id, oi.order_id, oi.product_id, oi.name, oi.quantity, oi.unit_price,
			COALESCE(p.image_url, '')
		FROM order_items oi
		LEFT JOIN products p ON p.product_id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.item_id;
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		logging.Error(
			ctx,
			r.logger,
			"Failed to query order items",
			zap.Error(err),
		)

		return fmt.Errorf("error selecting order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Quantity,
			&item.UnitPrice,
			&item.ImageURL,
		); err != nil {
			logging.Error(
				ctx,
				r.logger,
				"Failed to scan order item row",
				zap.Error(err),
			)

			return fmt.Errorf("error scanning order item rows: %w", err)
		}

		if o, ok := index[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return rows.Err()
}
