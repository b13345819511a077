// Package gateway wraps the remote payment providers behind one interface.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderState is the provider-reported state of a remote order.
type OrderState string

const (
	OrderStateCompleted OrderState = "COMPLETED"
	OrderStatePending   OrderState = "PENDING"
	OrderStateFailed    OrderState = "FAILED"
)

// CreateOrderRequest describes an order to open with a provider.
type CreateOrderRequest struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	RedirectURL string
	Description string
	Notes       map[string]string
}

// RemoteOrder is the provider's answer to an order creation.
// RedirectURL is empty for providers that use an embedded checkout.
type RemoteOrder struct {
	ProviderOrderID string
	RedirectURL     string
	Raw             json.RawMessage
}

// OrderRef identifies an order towards a provider.
type OrderRef struct {
	OrderID         string
	ProviderOrderID string
}

// OrderStatus is the provider's view of an order.
type OrderStatus struct {
	State     OrderState
	PaymentID string
	Raw       json.RawMessage
}

// Gateway is implemented by every payment provider client.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error)
	OrderStatus(ctx context.Context, ref OrderRef) (*OrderStatus, error)
}

// ErrGateway is matched by every error returned from a provider call.
var ErrGateway = errors.New("payment gateway error")

// Error describes a failed provider call.
type Error struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGateway, e.Err}
	}
	return []error{ErrGateway}
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount (rupees) to minor units (paise).
func ToMinorUnits(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(hundred).IntPart()
}

// FromMinorUnits converts minor units back to a major-unit decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}
