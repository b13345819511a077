package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles read caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// DonorListCacheTTL bounds how stale the public donor list can be if an
// invalidation is lost.
const DonorListCacheTTL = 30 * time.Second

const (
	donorListPrefix = "cache:donors:"
	donorVersionKey = donorListPrefix + "version"
)

// CachedDonor represents a cached donor record.
type CachedDonor struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"order_id"`
	Domain            string    `json:"domain"`
	DonorName         string    `json:"donor_name"`
	Contact           string    `json:"contact"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	TempleName        string    `json:"temple_name"`
	CauseName         string    `json:"cause_name"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	Verified          bool      `json:"verified"`
	CreatedAt         time.Time `json:"created_at"`
}

// Lists are stored under the version current when they were read from the
// database, so a list read before an invalidation is never served after it.
func donorListKey(version int64, paymentDomain string) string {
	if paymentDomain == "" {
		paymentDomain = "all"
	}
	return donorListPrefix + "v" + strconv.FormatInt(version, 10) + ":" + paymentDomain
}

// DonorsVersion returns the current donor list version.
func (s *CacheStore) DonorsVersion(ctx context.Context) (int64, error) {
	version, err := s.client.Get(ctx, donorVersionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return version, err
}

// GetDonors retrieves a cached donor list. Returns nil, nil on a cache miss.
func (s *CacheStore) GetDonors(ctx context.Context, version int64, paymentDomain string) ([]CachedDonor, error) {
	data, err := s.client.Get(ctx, donorListKey(version, paymentDomain)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var donors []CachedDonor
	if err := json.Unmarshal(data, &donors); err != nil {
		return nil, err
	}
	if donors == nil {
		donors = []CachedDonor{}
	}
	return donors, nil
}

// SetDonors stores a donor list under the version it was read at.
func (s *CacheStore) SetDonors(ctx context.Context, version int64, paymentDomain string, donors []CachedDonor) error {
	if donors == nil {
		donors = []CachedDonor{}
	}
	data, err := json.Marshal(donors)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, donorListKey(version, paymentDomain), data, DonorListCacheTTL).Err()
}

// InvalidateDonors bumps the list version. Lists under older versions are
// no longer read and expire with their TTL.
func (s *CacheStore) InvalidateDonors(ctx context.Context) error {
	return s.client.Incr(ctx, donorVersionKey).Err()
}
