package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kana121/eazystore-backend/internal/domain"
	"github.com/Kana121/eazystore-backend/pkg/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// DecrementStock conditionally decrements quantity-on-hand inside tx.
	// It returns the product name, the current catalog price and the stock
	// remaining after the decrement. ErrProductNotFound if no such product,
	// ErrInsufficientStock if the conditional update matched no row.
	DecrementStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) (string, decimal.Decimal, int64, error)
}

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/product_repo"),
	}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT product_id, name, description, price, stock_quantity,
		image_url, category, created_at, updated_at
		FROM products
		WHERE product_id = $1 AND deleted_at IS NULL;
	`

	var res domain.Product
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.Name, &res.Description, &res.Price,
			&res.StockQuantity, &res.ImageUrl, &res.Category,
			&res.CreatedAt, &res.UpdatedAt,
		); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		logging.Error(
			ctx,
			r.logger,
			"Error get product by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &res, nil
}

func (r *productRepo) DecrementStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) (string, decimal.Decimal, int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DecrementStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int("quantity", int(quantity)),
	)

	lookupQuery := `
		SELECT name, price
		FROM products
		WHERE product_id = $1 AND deleted_at IS NULL
	`

	var name string
	var price decimal.Decimal
	if err := tx.QueryRow(ctx, lookupQuery, id).Scan(&name, &price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", decimal.Zero, 0, ErrProductNotFound
		}

		span.RecordError(err)

		logging.Error(
			ctx,
			r.logger,
			"Failed to query product",
			zap.Int64("product_id", id),
			zap.Error(err),
		)

		return "", decimal.Zero, 0, fmt.Errorf("error querying product %d: %w", id, err)
	}

	// The guard in the WHERE clause is what makes the decrement atomic:
	// two settlements racing over the same row serialize on the row lock
	// and the loser sees the already-reduced quantity.
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE product_id = $1
			AND stock_quantity >= $2
			AND deleted_at IS NULL
		RETURNING stock_quantity;
	`

	var remaining int64
	if err := tx.QueryRow(ctx, query, id, quantity).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return name, price, 0, ErrInsufficientStock
		}

		span.RecordError(err)

		logging.Error(
			ctx,
			r.logger,
			"Error decrementing stock",
			zap.Int64("id", id),
			zap.Int("quantity", int(quantity)),
			zap.Error(err),
		)

		return name, price, 0, fmt.Errorf("error decrementing stock for product %d: %w", id, err)
	}

	return name, price, remaining, nil
}
