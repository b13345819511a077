package service

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/lo"

	"devalayaum/internal/domain"
	"devalayaum/internal/redis"
	"devalayaum/internal/repository"
)

const (
	// MaxDonorListLimit caps the public donor list.
	MaxDonorListLimit     = 100
	defaultDonorListLimit = 20
)

// DonorService serves the public donor list.
type DonorService struct {
	donorRepo  repository.DonorRepository
	cacheStore redis.DonorCacheInterface
}

// NewDonorService creates a new DonorService. cacheStore may be nil.
func NewDonorService(donorRepo repository.DonorRepository, cacheStore redis.DonorCacheInterface) *DonorService {
	return &DonorService{
		donorRepo:  donorRepo,
		cacheStore: cacheStore,
	}
}

// ListDonors returns donor records, most recent first. An empty domain
// lists every domain. The limit is clamped to MaxDonorListLimit.
func (s *DonorService) ListDonors(ctx context.Context, paymentDomain domain.PaymentDomain, limit int) ([]*domain.DonorRecord, error) {
	if paymentDomain != "" {
		if _, ok := domain.ParsePaymentDomain(string(paymentDomain)); !ok {
			return nil, ErrUnknownDomain
		}
	}
	if limit <= 0 {
		limit = defaultDonorListLimit
	}
	if limit > MaxDonorListLimit {
		limit = MaxDonorListLimit
	}

	// The cache always holds the full capped list; callers get a prefix.
	cache := s.cacheStore
	var version int64
	if cache != nil {
		v, err := cache.DonorsVersion(ctx)
		if err != nil {
			log.Printf("[PAYMENT] donor cache version read failed: %v", err)
			cache = nil
		}
		version = v
	}

	if cache != nil {
		cached, err := cache.GetDonors(ctx, version, string(paymentDomain))
		if err != nil {
			log.Printf("[PAYMENT] donor cache read failed: %v", err)
		} else if cached != nil {
			return lo.Map(truncateDonors(cached, limit), func(c redis.CachedDonor, _ int) *domain.DonorRecord {
				return fromCachedDonor(c)
			}), nil
		}
	}

	donors, err := s.donorRepo.ListRecent(ctx, paymentDomain, MaxDonorListLimit)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}

	if cache != nil {
		cached := lo.Map(donors, func(d *domain.DonorRecord, _ int) redis.CachedDonor {
			return toCachedDonor(d)
		})
		if err := cache.SetDonors(ctx, version, string(paymentDomain), cached); err != nil {
			log.Printf("[PAYMENT] donor cache write failed: %v", err)
		}
	}

	if len(donors) > limit {
		donors = donors[:limit]
	}
	return donors, nil
}

func truncateDonors(donors []redis.CachedDonor, limit int) []redis.CachedDonor {
	if len(donors) > limit {
		return donors[:limit]
	}
	return donors
}

func toCachedDonor(d *domain.DonorRecord) redis.CachedDonor {
	return redis.CachedDonor{
		ID:                d.ID,
		OrderID:           d.OrderID,
		Domain:            string(d.Domain),
		DonorName:         d.DonorName,
		Contact:           d.Contact,
		Amount:            d.Amount,
		Currency:          d.Currency,
		TempleName:        d.TempleName,
		CauseName:         d.CauseName,
		ProviderPaymentID: d.ProviderPaymentID,
		Verified:          d.Verified,
		CreatedAt:         d.CreatedAt,
	}
}

func fromCachedDonor(c redis.CachedDonor) *domain.DonorRecord {
	return &domain.DonorRecord{
		ID:                c.ID,
		OrderID:           c.OrderID,
		Domain:            domain.PaymentDomain(c.Domain),
		DonorName:         c.DonorName,
		Contact:           c.Contact,
		Amount:            c.Amount,
		Currency:          c.Currency,
		TempleName:        c.TempleName,
		CauseName:         c.CauseName,
		ProviderPaymentID: c.ProviderPaymentID,
		Verified:          c.Verified,
		CreatedAt:         c.CreatedAt,
	}
}
