package postgres

import (
	"context"
	"database/sql"
	"errors"

	"devalayaum/internal/domain"
	"devalayaum/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.PujaBooking) error {
	query := `
		INSERT INTO puja_bookings (id, puja_id, puja_name, temple_name, devotee_name, contact, puja_date, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`

	var pujaDate sql.NullTime
	if !booking.PujaDate.IsZero() {
		pujaDate = sql.NullTime{Time: booking.PujaDate, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.PujaID,
		booking.PujaName,
		booking.TempleName,
		booking.DevoteeName,
		booking.Contact,
		pujaDate,
		booking.Amount,
		booking.Status,
		booking.CreatedAt,
	)

	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.PujaBooking, error) {
	query := `
		SELECT id, puja_id, puja_name, temple_name, devotee_name, contact, puja_date, amount, status,
		       payment_paid, payment_txn_id, payment_amount_paid, created_at, updated_at
		FROM puja_bookings WHERE id = $1
	`

	var b domain.PujaBooking
	var pujaDate sql.NullTime
	var txnID sql.NullString

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.PujaID,
		&b.PujaName,
		&b.TempleName,
		&b.DevoteeName,
		&b.Contact,
		&pujaDate,
		&b.Amount,
		&b.Status,
		&b.Payment.Paid,
		&txnID,
		&b.Payment.AmountPaid,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if pujaDate.Valid {
		b.PujaDate = pujaDate.Time
	}
	b.Payment.TxnID = txnID.String

	return &b, nil
}

// ConfirmPayment marks the booking confirmed and mirrors the payment outcome.
func (r *BookingRepository) ConfirmPayment(ctx context.Context, id string, payment domain.BookingPayment) error {
	query := `
		UPDATE puja_bookings
		SET status = $1, payment_paid = $2, payment_txn_id = $3, payment_amount_paid = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.BookingStatusConfirmed,
		payment.Paid,
		nullString(payment.TxnID),
		payment.AmountPaid,
		id,
	)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
