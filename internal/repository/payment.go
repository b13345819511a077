package repository

import (
	"context"
	"time"

	"devalayaum/internal/domain"
)

// PaymentRepository defines the persistence operations for payment records.
type PaymentRepository interface {
	// Create persists a new payment record in created state.
	Create(ctx context.Context, payment *domain.PaymentRecord) error

	// GetByOrderID retrieves a payment record by its local or provider order id.
	GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentRecord, error)

	// AttachProviderOrder stores the order reference returned by the gateway.
	AttachProviderOrder(ctx context.Context, orderID, providerOrderID string) error

	// MarkPaid moves a created record to paid in one conditional write.
	// Returns false if the record was no longer in created state.
	MarkPaid(ctx context.Context, orderID string, update domain.PaidUpdate) (bool, error)

	// MarkFailed moves a created record to failed in one conditional write.
	// Returns false if the record was no longer in created state.
	MarkFailed(ctx context.Context, orderID, reason string) (bool, error)

	// ListStale returns created records older than the given time, oldest first.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*domain.PaymentRecord, error)
}
