package repository

import (
	"context"

	"devalayaum/internal/domain"
)

// BookingRepository defines the persistence operations for puja bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.PujaBooking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.PujaBooking, error)

	// ConfirmPayment marks the booking confirmed and mirrors the payment outcome.
	// Applying the same values again is a no-op.
	ConfirmPayment(ctx context.Context, id string, payment domain.BookingPayment) error
}
