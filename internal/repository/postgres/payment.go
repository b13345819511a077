package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"devalayaum/internal/domain"
	"devalayaum/internal/repository"
)

const paymentColumns = `id, domain, entity_id, order_id, provider_order_id, provider_payment_id, provider,
		signature, raw_response, payer_name, payer_contact, payer_email, amount, currency, status,
		failure_reason, created_at, updated_at`

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// Create persists a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (id, domain, entity_id, order_id, provider, payer_name, payer_contact, payer_email, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.Domain,
		payment.EntityID,
		payment.OrderID,
		payment.Provider,
		payment.PayerName,
		payment.PayerContact,
		nullString(payment.PayerEmail),
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.CreatedAt,
	)

	return err
}

// GetByOrderID retrieves a payment record by its local or provider order id.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payment_records
		WHERE order_id = $1 OR provider_order_id = $1
		LIMIT 1
	`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// AttachProviderOrder stores the order reference returned by the gateway.
func (r *PaymentRepository) AttachProviderOrder(ctx context.Context, orderID, providerOrderID string) error {
	query := `UPDATE payment_records SET provider_order_id = $1, updated_at = NOW() WHERE order_id = $2`

	result, err := r.q.ExecContext(ctx, query, providerOrderID, orderID)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// MarkPaid moves a created record to paid. The status predicate makes the
// write a compare-and-swap, so only one concurrent caller gets true.
func (r *PaymentRepository) MarkPaid(ctx context.Context, orderID string, update domain.PaidUpdate) (bool, error) {
	query := `
		UPDATE payment_records
		SET status = $1, provider_payment_id = $2, signature = $3, raw_response = $4, updated_at = NOW()
		WHERE order_id = $5 AND status = $6
	`

	var raw sql.NullString
	if len(update.RawResponse) > 0 {
		raw = sql.NullString{String: string(update.RawResponse), Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		domain.PaymentStatusPaid,
		nullString(update.ProviderPaymentID),
		nullString(update.Signature),
		raw,
		orderID,
		domain.PaymentStatusCreated,
	)
	if err != nil {
		return false, err
	}

	return affected(result)
}

// MarkFailed moves a created record to failed with the same conditional write.
func (r *PaymentRepository) MarkFailed(ctx context.Context, orderID, reason string) (bool, error) {
	query := `
		UPDATE payment_records
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE order_id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.PaymentStatusFailed,
		nullString(reason),
		orderID,
		domain.PaymentStatusCreated,
	)
	if err != nil {
		return false, err
	}

	return affected(result)
}

// ListStale returns created records older than the given time, oldest first.
func (r *PaymentRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payment_records
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.q.QueryContext(ctx, query, domain.PaymentStatusCreated, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.PaymentRecord
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*domain.PaymentRecord, error) {
	var payment domain.PaymentRecord
	var providerOrderID, providerPaymentID, signature, rawResponse sql.NullString
	var payerEmail, failureReason sql.NullString

	err := row.Scan(
		&payment.ID,
		&payment.Domain,
		&payment.EntityID,
		&payment.OrderID,
		&providerOrderID,
		&providerPaymentID,
		&payment.Provider,
		&signature,
		&rawResponse,
		&payment.PayerName,
		&payment.PayerContact,
		&payerEmail,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&failureReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.ProviderOrderID = providerOrderID.String
	payment.ProviderPaymentID = providerPaymentID.String
	payment.Signature = signature.String
	payment.PayerEmail = payerEmail.String
	payment.FailureReason = failureReason.String
	if rawResponse.Valid {
		payment.RawResponse = []byte(rawResponse.String)
	}

	return &payment, nil
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
