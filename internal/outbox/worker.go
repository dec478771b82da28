package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kana121/eazystore-backend/pkg/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Store is the slice of the outbox repository the processor needs.
type Store interface {
	GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*Event, error)
	MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error
	MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error
}

type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key []byte, message []byte) error
}

// Processor drains unpublished outbox rows to kafka. Settlement writes the
// event in the same transaction as the order; delivery is at-least-once.
type Processor struct {
	pool      *pgxpool.Pool
	store     Store
	producer  Producer
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

func NewProcessor(pool *pgxpool.Pool, store Store, producer Producer, logger *zap.Logger) *Processor {
	return &Processor{
		pool:      pool,
		store:     store,
		producer:  producer,
		logger:    logger,
		batchSize: 50,
		interval:  500 * time.Millisecond,
		tracer:    otel.Tracer("outbox-worker"),
	}
}

func (p *Processor) Start(ctx context.Context) {
	logging.Info(
		ctx,
		p.logger,
		"Starting outbox processor",
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info(
				ctx,
				p.logger,
				"Outbox processor stopping",
			)

			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				logging.Error(
					ctx,
					p.logger,
					"Error processing outbox batch",
					zap.Error(err),
				)
			}
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.processBatch")
	defer span.End()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logging.Error(
				cleanupCtx,
				p.logger,
				"Outbox worker failed to rollback transaction",
				zap.Error(err),
			)
		}
	}()

	events, err := p.store.GetUnpublishedEvents(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		err := p.producer.ProduceMessage(ctx, event.Topic, []byte(event.AggregateID), event.Payload)
		if err != nil {
			logging.Error(
				ctx,
				p.logger,
				"Outbox worker produce message failed",
				zap.Int64("id", event.ID),
				zap.Error(err),
			)

			if dbErr := p.store.MarkEventFailed(ctx, tx, event.ID, err.Error()); dbErr != nil {
				return dbErr
			}
			continue
		}

		if dbErr := p.store.MarkEventPublished(ctx, tx, event.ID); dbErr != nil {
			logging.Error(
				ctx,
				p.logger,
				"Outbox worker failed to mark event published",
				zap.Int64("id", event.ID),
				zap.Error(dbErr),
			)

			return dbErr
		}

		logging.Debug(
			ctx,
			p.logger,
			"Outbox event published",
			zap.Int64("id", event.ID),
			zap.String("topic", event.Topic),
		)
	}

	return tx.Commit(ctx)
}
