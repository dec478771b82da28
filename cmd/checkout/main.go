package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kana121/eazystore-backend/internal/outbox"
	"github.com/Kana121/eazystore-backend/internal/payment"
	"github.com/Kana121/eazystore-backend/internal/repository"
	"github.com/Kana121/eazystore-backend/internal/service"
	httptransport "github.com/Kana121/eazystore-backend/internal/transport/http"
	"github.com/Kana121/eazystore-backend/internal/transport/http/handler"
	"github.com/Kana121/eazystore-backend/pkg/config"
	"github.com/Kana121/eazystore-backend/pkg/db"
	"github.com/Kana121/eazystore-backend/pkg/kafka"
	"github.com/Kana121/eazystore-backend/pkg/utils"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, "checkout-service")
	if err != nil {
		log.Fatalf("Failed to init trace: %v", err)
	}

	cfg := config.MustLoad()

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: cfg.Logger.Level,
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	defer pool.Close()

	orderRepo := repository.NewOrderRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)

	orderService := service.NewOrderService(pool, logger, orderRepo, productRepo, outboxRepo)

	verifier := payment.NewVerifier(cfg.Gateway.KeySecret)
	gatewayClient := payment.NewGatewayClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.KeyID,
		cfg.Gateway.KeySecret,
		cfg.Gateway.Timeout,
		logger,
	)

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("Error creating kafka producer: %v", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Printf("Error closing kafka producer: %v\n", err)
		}
	}()

	processor := outbox.NewProcessor(pool, outboxRepo, producer, logger)
	go processor.Start(ctx)

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 5 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	handlers := &httptransport.Handlers{
		Order:   handler.NewOrderHandler(orderService, logger),
		Payment: handler.NewPaymentHandler(orderService, gatewayClient, verifier, logger),
	}

	httptransport.RegisterRoutes(app, handlers)

	logger.Info("Checkout service started!")

	go func() {
		log.Println("HTTP Service listening on: " + cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down gracefully...")
	shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownContext); err != nil {
		log.Printf("Error shutting down HTTP app: %v\n", err)
	} else {
		log.Println("HTTP App stopped gracefully")
	}

	if err := tp.Shutdown(shutdownContext); err != nil {
		log.Printf("Error shutting down telemetry: %v\n", err)
	} else {
		log.Println("Telemetry stopped correctly")
	}
}
