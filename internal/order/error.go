package order

import "errors"

var (
	ErrOrderNotFound             = errors.New("order not found")
	ErrPendingOrderExists        = errors.New("user already has a pending order")
	ErrEmptyOrder                = errors.New("order has no items")
	ErrInvalidQuantity           = errors.New("quantity must be greater than zero")
	ErrPaymentCancelled          = errors.New("payment cancelled")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrInvalidTransition         = errors.New("invalid order state transition")
	ErrOrderNotShipped           = errors.New("order is not shipped yet")
	ErrUnauthorized              = errors.New("unauthorized")
)
