package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is the family of client input errors.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrOrderConflict is the family of errors where the entity or order is
	// in a state that does not allow the operation.
	ErrOrderConflict = errors.New("order conflict")

	// ErrSignatureMismatch is returned when a client-supplied payment
	// signature does not match the expected HMAC.
	ErrSignatureMismatch = errors.New("payment signature mismatch")

	// ErrGatewayUnavailable is returned when the payment provider could not
	// create or report an order.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayNotConfigured is returned when no gateway serves a domain.
	ErrGatewayNotConfigured = errors.New("no payment gateway configured for domain")
)

var (
	ErrUnknownDomain      = fmt.Errorf("%w: unknown payment domain", ErrInvalidRequest)
	ErrInvalidEntityID    = fmt.Errorf("%w: entity id is required", ErrInvalidRequest)
	ErrInvalidPayer       = fmt.Errorf("%w: payer name and contact are required", ErrInvalidRequest)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be a positive integer", ErrInvalidRequest)
	ErrAmountBelowMinimum = fmt.Errorf("%w: amount is below the minimum for this cause", ErrInvalidRequest)
	ErrAmountMismatch     = fmt.Errorf("%w: amount does not match the price", ErrInvalidRequest)
	ErrInvalidQuantity    = fmt.Errorf("%w: quantity is out of range", ErrInvalidRequest)
	ErrAmountTooLarge     = fmt.Errorf("%w: amount exceeds the order limit", ErrInvalidRequest)
	ErrInvalidOrderID     = fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	ErrInvalidPaymentID   = fmt.Errorf("%w: payment id is required", ErrInvalidRequest)
	ErrInvalidSignature   = fmt.Errorf("%w: signature is required", ErrInvalidRequest)
	ErrInvalidPujaID      = fmt.Errorf("%w: puja id is required", ErrInvalidRequest)
	ErrInvalidDevotee     = fmt.Errorf("%w: devotee name and contact are required", ErrInvalidRequest)
	ErrInvalidPujaDate    = fmt.Errorf("%w: puja date is required", ErrInvalidRequest)
)

var (
	ErrEntityClosed  = fmt.Errorf("%w: entity is not accepting payments", ErrOrderConflict)
	ErrAlreadyPaid   = fmt.Errorf("%w: already paid", ErrOrderConflict)
	ErrPaymentFailed = fmt.Errorf("%w: payment already failed", ErrOrderConflict)
)
