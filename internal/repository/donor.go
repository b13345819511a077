package repository

import (
	"context"

	"devalayaum/internal/domain"
)

// DonorRepository defines the persistence operations for donor records.
type DonorRepository interface {
	// Create persists a donor record. A second record for the same order is ignored.
	Create(ctx context.Context, donor *domain.DonorRecord) error

	// ExistsForOrder reports whether the order already has a donor record.
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)

	// ListRecent returns donor records, most recent first.
	// An empty paymentDomain returns all domains.
	ListRecent(ctx context.Context, paymentDomain domain.PaymentDomain, limit int) ([]*domain.DonorRecord, error)
}
