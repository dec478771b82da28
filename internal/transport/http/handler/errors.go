package handler

import (
	"errors"

	"github.com/Kana121/eazystore-backend/internal/payment"
	"github.com/Kana121/eazystore-backend/internal/repository"
	"github.com/Kana121/eazystore-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

func statusFromError(err error) int {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repository.ErrInsufficientStock):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrMissingPaymentID),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, payment.ErrGatewayRejected):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
