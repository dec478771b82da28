package service

import "errors"

var (
	ErrMissingPaymentID = errors.New("payment id is required")
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrInvalidQuantity  = errors.New("item quantity must be positive")
	ErrInvalidStatus    = errors.New("invalid order status")
)
