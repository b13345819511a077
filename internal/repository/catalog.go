package repository

import (
	"context"

	"devalayaum/internal/domain"
)

// DonationRepository defines the read operations for donation causes.
type DonationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Donation, error)
	List(ctx context.Context) ([]*domain.Donation, error)
}

// ProductRepository defines the read operations for products.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
}

// PujaRepository defines the read operations for pujas.
type PujaRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Puja, error)
	List(ctx context.Context) ([]*domain.Puja, error)
}
