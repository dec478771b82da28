package http

import (
	"github.com/Kana121/eazystore-backend/internal/transport/http/handler"
	"github.com/Kana121/eazystore-backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	api := app.Group("/api/v1", middleware.NewIdentityMiddleware())

	orders := api.Group("/orders")
	orders.Post("", h.Order.Create)
	orders.Get("", h.Order.List)
	orders.Get("/status/:status", h.Order.ListByStatus)

	admin := api.Group("/admin/orders")
	admin.Get("/pending", h.Order.ListPending)
	admin.Patch("/:id/status", h.Order.UpdateStatus)

	pay := api.Group("/payment")
	pay.Post("/orders", h.Payment.CreateGatewayOrder)
	pay.Post("/verify", h.Payment.VerifyPayment)
}
