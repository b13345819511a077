package postgres

import (
	"context"
	"database/sql"
	"errors"

	"devalayaum/internal/domain"
	"devalayaum/internal/repository"
)

// DonationRepository is a PostgreSQL implementation of repository.DonationRepository.
type DonationRepository struct {
	q Querier
}

// NewDonationRepository creates a new PostgreSQL donation repository.
func NewDonationRepository(db *sql.DB) *DonationRepository {
	return &DonationRepository{q: db}
}

// GetByID retrieves a donation cause by ID.
func (r *DonationRepository) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	query := `
		SELECT id, title, temple_name, description, min_amount, active, created_at
		FROM donations WHERE id = $1
	`

	var d domain.Donation
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Title, &d.TempleName, &d.Description, &d.MinAmount, &d.Active, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &d, nil
}

// List retrieves active donation causes.
func (r *DonationRepository) List(ctx context.Context) ([]*domain.Donation, error) {
	query := `
		SELECT id, title, temple_name, description, min_amount, active, created_at
		FROM donations WHERE active ORDER BY created_at DESC LIMIT 100
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []*domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(&d.ID, &d.Title, &d.TempleName, &d.Description, &d.MinAmount, &d.Active, &d.CreatedAt); err != nil {
			return nil, err
		}
		donations = append(donations, &d)
	}

	return donations, rows.Err()
}

// ProductRepository is a PostgreSQL implementation of repository.ProductRepository.
type ProductRepository struct {
	q Querier
}

// NewProductRepository creates a new PostgreSQL product repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{q: db}
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT id, name, temple_name, price, active, created_at FROM products WHERE id = $1`

	var p domain.Product
	err := r.q.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.TempleName, &p.Price, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &p, nil
}

// List retrieves active products.
func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT id, name, temple_name, price, active, created_at FROM products WHERE active ORDER BY name LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.TempleName, &p.Price, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}

	return products, rows.Err()
}

// PujaRepository is a PostgreSQL implementation of repository.PujaRepository.
type PujaRepository struct {
	q Querier
}

// NewPujaRepository creates a new PostgreSQL puja repository.
func NewPujaRepository(db *sql.DB) *PujaRepository {
	return &PujaRepository{q: db}
}

// GetByID retrieves a puja by ID.
func (r *PujaRepository) GetByID(ctx context.Context, id string) (*domain.Puja, error) {
	query := `SELECT id, name, temple_name, price, created_at FROM pujas WHERE id = $1`

	var p domain.Puja
	err := r.q.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.TempleName, &p.Price, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &p, nil
}

// List retrieves all pujas.
func (r *PujaRepository) List(ctx context.Context) ([]*domain.Puja, error) {
	query := `SELECT id, name, temple_name, price, created_at FROM pujas ORDER BY temple_name, name LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pujas []*domain.Puja
	for rows.Next() {
		var p domain.Puja
		if err := rows.Scan(&p.ID, &p.Name, &p.TempleName, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}
		pujas = append(pujas, &p)
	}

	return pujas, rows.Err()
}

var (
	_ repository.DonationRepository = (*DonationRepository)(nil)
	_ repository.ProductRepository  = (*ProductRepository)(nil)
	_ repository.PujaRepository     = (*PujaRepository)(nil)
)
