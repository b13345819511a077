package tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"devalayaum/internal/domain"
	"devalayaum/internal/gateway"
	"devalayaum/internal/redis"
	"devalayaum/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
// Status transitions are compare-and-set under the mutex, like the SQL
// implementation's conditional UPDATE.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.PaymentRecord

	// Counters for verification
	CreateCallCount     int32
	MarkPaidCallCount   int32
	MarkFailedCallCount int32
	PaidTransitions     int32

	// Error injection
	CreateError   error
	MarkPaidError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.PaymentRecord),
	}
}

// AddPayment adds a payment record to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.OrderID] = payment
}

// Count returns the number of stored records.
func (m *MockPaymentRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// Get returns a copy of the record with the given local order id, or nil.
func (m *MockPaymentRepository) Get(orderID string) *domain.PaymentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.PaymentRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payments[payment.OrderID]; exists {
		return errors.New("duplicate order id")
	}
	cp := *payment
	m.payments[payment.OrderID] = &cp
	return nil
}

func (m *MockPaymentRepository) find(orderID string) *domain.PaymentRecord {
	if p, ok := m.payments[orderID]; ok {
		return p
	}
	for _, p := range m.payments {
		if p.ProviderOrderID != "" && p.ProviderOrderID == orderID {
			return p
		}
	}
	return nil
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.find(orderID)
	if p == nil {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepository) AttachProviderOrder(ctx context.Context, orderID, providerOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	p.ProviderOrderID = providerOrderID
	return nil
}

func (m *MockPaymentRepository) MarkPaid(ctx context.Context, orderID string, update domain.PaidUpdate) (bool, error) {
	atomic.AddInt32(&m.MarkPaidCallCount, 1)
	if m.MarkPaidError != nil {
		return false, m.MarkPaidError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(orderID)
	if p == nil || p.Status != domain.PaymentStatusCreated {
		return false, nil
	}
	p.Status = domain.PaymentStatusPaid
	p.ProviderPaymentID = update.ProviderPaymentID
	p.Signature = update.Signature
	p.RawResponse = update.RawResponse
	p.UpdatedAt = time.Now()
	atomic.AddInt32(&m.PaidTransitions, 1)
	return true, nil
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, orderID, reason string) (bool, error) {
	atomic.AddInt32(&m.MarkFailedCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(orderID)
	if p == nil || p.Status != domain.PaymentStatusCreated {
		return false, nil
	}
	p.Status = domain.PaymentStatusFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockPaymentRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*domain.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.PaymentRecord
	for _, p := range m.payments {
		if p.Status == domain.PaymentStatusCreated && p.CreatedAt.Before(olderThan) {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK DONOR REPOSITORY
// ──────────────────────────────────────────────

// MockDonorRepository is a mock implementation of DonorRepository.
type MockDonorRepository struct {
	mu     sync.RWMutex
	donors []*domain.DonorRecord

	// Counters for verification
	CreateCallCount     int32
	ExistsCallCount     int32
	ListRecentCallCount int32

	// Error injection
	CreateError error
}

// NewMockDonorRepository creates a new mock donor repository.
func NewMockDonorRepository() *MockDonorRepository {
	return &MockDonorRepository{}
}

// All returns every stored donor record.
func (m *MockDonorRepository) All() []*domain.DonorRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.DonorRecord, len(m.donors))
	copy(result, m.donors)
	return result
}

func (m *MockDonorRepository) Create(ctx context.Context, donor *domain.DonorRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.donors {
		if d.OrderID == donor.OrderID {
			return nil // ON CONFLICT DO NOTHING
		}
	}
	m.donors = append(m.donors, donor)
	return nil
}

func (m *MockDonorRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	atomic.AddInt32(&m.ExistsCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.donors {
		if d.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDonorRepository) ListRecent(ctx context.Context, paymentDomain domain.PaymentDomain, limit int) ([]*domain.DonorRecord, error) {
	atomic.AddInt32(&m.ListRecentCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.DonorRecord
	for i := len(m.donors) - 1; i >= 0; i-- {
		d := m.donors[i]
		if paymentDomain != "" && d.Domain != paymentDomain {
			continue
		}
		result = append(result, d)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK CATALOG REPOSITORIES
// ──────────────────────────────────────────────

// MockDonationRepository is a mock implementation of DonationRepository.
type MockDonationRepository struct {
	mu        sync.RWMutex
	donations map[string]*domain.Donation
}

// NewMockDonationRepository creates a new mock donation repository.
func NewMockDonationRepository() *MockDonationRepository {
	return &MockDonationRepository{donations: make(map[string]*domain.Donation)}
}

// AddDonation adds a donation cause to the mock repository.
func (m *MockDonationRepository) AddDonation(donation *domain.Donation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donations[donation.ID] = donation
}

func (m *MockDonationRepository) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (m *MockDonationRepository) List(ctx context.Context) ([]*domain.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Donation, 0, len(m.donations))
	for _, d := range m.donations {
		result = append(result, d)
	}
	return result, nil
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

// NewMockProductRepository creates a new mock product repository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{products: make(map[string]*domain.Product)}
}

// AddProduct adds a product to the mock repository.
func (m *MockProductRepository) AddProduct(product *domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *MockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, p)
	}
	return result, nil
}

// MockPujaRepository is a mock implementation of PujaRepository.
type MockPujaRepository struct {
	mu    sync.RWMutex
	pujas map[string]*domain.Puja
}

// NewMockPujaRepository creates a new mock puja repository.
func NewMockPujaRepository() *MockPujaRepository {
	return &MockPujaRepository{pujas: make(map[string]*domain.Puja)}
}

// AddPuja adds a puja to the mock repository.
func (m *MockPujaRepository) AddPuja(puja *domain.Puja) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pujas[puja.ID] = puja
}

func (m *MockPujaRepository) GetByID(ctx context.Context, id string) (*domain.Puja, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pujas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *MockPujaRepository) List(ctx context.Context) ([]*domain.Puja, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Puja, 0, len(m.pujas))
	for _, p := range m.pujas {
		result = append(result, p)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.PujaBooking

	// Counters for verification
	CreateCallCount  int32
	ConfirmCallCount int32

	// Error injection
	ConfirmError error
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{bookings: make(map[string]*domain.PujaBooking)}
}

// AddBooking adds a booking to the mock repository.
func (m *MockBookingRepository) AddBooking(booking *domain.PujaBooking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
}

// Delete removes a booking, simulating an entity that vanished.
func (m *MockBookingRepository) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookings, id)
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.PujaBooking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *booking
	m.bookings[booking.ID] = &cp
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.PujaBooking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockBookingRepository) ConfirmPayment(ctx context.Context, id string, payment domain.BookingPayment) error {
	atomic.AddInt32(&m.ConfirmCallCount, 1)
	if m.ConfirmError != nil {
		return m.ConfirmError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = domain.BookingStatusConfirmed
	b.Payment = payment
	return nil
}

// ──────────────────────────────────────────────
// MOCK GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock implementation of gateway.Gateway.
type MockGateway struct {
	mu       sync.RWMutex
	name     string
	requests []gateway.CreateOrderRequest
	statuses map[string]*gateway.OrderStatus

	// Counters for verification
	CreateCallCount int32
	StatusCallCount int32

	// Error injection
	CreateError error
	StatusError error
}

// NewMockGateway creates a new mock gateway reporting the given name.
func NewMockGateway(name string) *MockGateway {
	return &MockGateway{
		name:     name,
		statuses: make(map[string]*gateway.OrderStatus),
	}
}

// SetStatus sets the status the provider reports for a local order id.
func (m *MockGateway) SetStatus(orderID string, state gateway.OrderState, paymentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, _ := json.Marshal(map[string]string{"state": string(state), "transactionId": paymentID})
	m.statuses[orderID] = &gateway.OrderStatus{State: state, PaymentID: paymentID, Raw: raw}
}

// Requests returns every order creation request received.
func (m *MockGateway) Requests() []gateway.CreateOrderRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]gateway.CreateOrderRequest, len(m.requests))
	copy(result, m.requests)
	return result
}

func (m *MockGateway) Name() string { return m.name }

func (m *MockGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.RemoteOrder, error) {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	return &gateway.RemoteOrder{
		ProviderOrderID: "prov_" + req.OrderID,
		RedirectURL:     "https://pay.example/checkout/" + req.OrderID,
	}, nil
}

func (m *MockGateway) OrderStatus(ctx context.Context, ref gateway.OrderRef) (*gateway.OrderStatus, error) {
	atomic.AddInt32(&m.StatusCallCount, 1)
	if m.StatusError != nil {
		return nil, m.StatusError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if status, ok := m.statuses[ref.OrderID]; ok {
		return status, nil
	}
	return &gateway.OrderStatus{State: gateway.OrderStatePending}, nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireCallCount int32
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

// Hold marks an order as locked by someone else.
func (m *MockLockStore) Hold(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[orderID] = true
}

func (m *MockLockStore) AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[orderID] {
		return false, nil
	}
	m.locks[orderID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseOrderLock(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, orderID)
	return nil
}

// MockDonorCache is a mock implementation of DonorCacheInterface.
type MockDonorCache struct {
	mu      sync.Mutex
	version int64
	lists   map[string][]redis.CachedDonor

	GetCallCount        int32
	InvalidateCallCount int32

	GetError error

	// BeforeSet runs before a list is stored, to interleave writers.
	BeforeSet func()
}

// NewMockDonorCache creates a new mock donor cache.
func NewMockDonorCache() *MockDonorCache {
	return &MockDonorCache{lists: make(map[string][]redis.CachedDonor)}
}

func mockDonorKey(version int64, paymentDomain string) string {
	return fmt.Sprintf("v%d:%s", version, paymentDomain)
}

func (m *MockDonorCache) DonorsVersion(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version, nil
}

func (m *MockDonorCache) GetDonors(ctx context.Context, version int64, paymentDomain string) ([]redis.CachedDonor, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	donors, ok := m.lists[mockDonorKey(version, paymentDomain)]
	if !ok {
		return nil, nil
	}
	return donors, nil
}

func (m *MockDonorCache) SetDonors(ctx context.Context, version int64, paymentDomain string, donors []redis.CachedDonor) error {
	if m.BeforeSet != nil {
		m.BeforeSet()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if donors == nil {
		donors = []redis.CachedDonor{}
	}
	m.lists[mockDonorKey(version, paymentDomain)] = donors
	return nil
}

func (m *MockDonorCache) InvalidateDonors(ctx context.Context) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	return nil
}

// Ensure mocks implement interfaces.
var (
	_ repository.PaymentRepository  = (*MockPaymentRepository)(nil)
	_ repository.DonorRepository    = (*MockDonorRepository)(nil)
	_ repository.DonationRepository = (*MockDonationRepository)(nil)
	_ repository.ProductRepository  = (*MockProductRepository)(nil)
	_ repository.PujaRepository     = (*MockPujaRepository)(nil)
	_ repository.BookingRepository  = (*MockBookingRepository)(nil)
	_ gateway.Gateway               = (*MockGateway)(nil)
	_ redis.LockStoreInterface      = (*MockLockStore)(nil)
	_ redis.DonorCacheInterface     = (*MockDonorCache)(nil)
)
