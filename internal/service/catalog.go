package service

import (
	"context"
	"fmt"

	"devalayaum/internal/domain"
	"devalayaum/internal/repository"
)

// CatalogService serves the entities payments can be made for.
type CatalogService struct {
	donationRepo repository.DonationRepository
	productRepo  repository.ProductRepository
	pujaRepo     repository.PujaRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	donationRepo repository.DonationRepository,
	productRepo repository.ProductRepository,
	pujaRepo repository.PujaRepository,
) *CatalogService {
	return &CatalogService{
		donationRepo: donationRepo,
		productRepo:  productRepo,
		pujaRepo:     pujaRepo,
	}
}

func (s *CatalogService) ListDonations(ctx context.Context) ([]*domain.Donation, error) {
	donations, err := s.donationRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

func (s *CatalogService) GetDonation(ctx context.Context, id string) (*domain.Donation, error) {
	if id == "" {
		return nil, ErrInvalidEntityID
	}
	donation, err := s.donationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load donation %s: %w", id, err)
	}
	return donation, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidEntityID
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", id, err)
	}
	return product, nil
}

func (s *CatalogService) ListPujas(ctx context.Context) ([]*domain.Puja, error) {
	pujas, err := s.pujaRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pujas: %w", err)
	}
	return pujas, nil
}
