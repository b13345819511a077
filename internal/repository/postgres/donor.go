package postgres

import (
	"context"
	"database/sql"

	"devalayaum/internal/domain"
	"devalayaum/internal/repository"
)

// DonorRepository is a PostgreSQL implementation of repository.DonorRepository.
type DonorRepository struct {
	q Querier
}

// NewDonorRepository creates a new PostgreSQL donor repository.
func NewDonorRepository(db *sql.DB) *DonorRepository {
	return &DonorRepository{q: db}
}

// Create persists a donor record. The unique order id turns a replay into a no-op.
func (r *DonorRepository) Create(ctx context.Context, donor *domain.DonorRecord) error {
	query := `
		INSERT INTO donor_records (id, order_id, domain, donor_name, contact, amount, currency, temple_name, cause_name, provider_payment_id, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_id) DO NOTHING
	`

	_, err := r.q.ExecContext(ctx, query,
		donor.ID,
		donor.OrderID,
		donor.Domain,
		donor.DonorName,
		donor.Contact,
		donor.Amount,
		donor.Currency,
		donor.TempleName,
		donor.CauseName,
		nullString(donor.ProviderPaymentID),
		donor.Verified,
		donor.CreatedAt,
	)

	return err
}

// ExistsForOrder reports whether a donor record exists for the order.
func (r *DonorRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM donor_records WHERE order_id = $1)`, orderID,
	).Scan(&exists)
	return exists, err
}

// ListRecent returns donor records, most recent first.
func (r *DonorRepository) ListRecent(ctx context.Context, paymentDomain domain.PaymentDomain, limit int) ([]*domain.DonorRecord, error) {
	query := `
		SELECT id, order_id, domain, donor_name, contact, amount, currency, temple_name, cause_name, provider_payment_id, verified, created_at
		FROM donor_records
		WHERE ($1::text = '' OR domain = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, string(paymentDomain), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donors []*domain.DonorRecord
	for rows.Next() {
		var donor domain.DonorRecord
		var providerPaymentID sql.NullString
		if err := rows.Scan(
			&donor.ID,
			&donor.OrderID,
			&donor.Domain,
			&donor.DonorName,
			&donor.Contact,
			&donor.Amount,
			&donor.Currency,
			&donor.TempleName,
			&donor.CauseName,
			&providerPaymentID,
			&donor.Verified,
			&donor.CreatedAt,
		); err != nil {
			return nil, err
		}
		donor.ProviderPaymentID = providerPaymentID.String
		donors = append(donors, &donor)
	}

	return donors, rows.Err()
}

// Ensure DonorRepository implements repository.DonorRepository.
var _ repository.DonorRepository = (*DonorRepository)(nil)
