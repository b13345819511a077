package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"devalayaum/internal/domain"
	"devalayaum/internal/gateway"
	"devalayaum/internal/redis"
	"devalayaum/internal/repository"
)

const (
	defaultCurrency = "INR"
	callbackLockTTL = 30 * time.Second

	reasonSignatureMismatch = "signature mismatch"
	reasonExpired           = "expired"
)

// PaymentSettings holds the service-level payment options.
type PaymentSettings struct {
	SigningSecret   string
	FrontendBaseURL string
	Currency        string
}

// PaymentDeps lists the collaborators of PaymentService.
// Locks and Cache are optional.
type PaymentDeps struct {
	Payments      repository.PaymentRepository
	Donors        repository.DonorRepository
	Descriptors   []Descriptor
	Gateways      map[domain.PaymentDomain]gateway.Gateway
	OrderIDs      *OrderIDGenerator
	Locks         redis.LockStoreInterface
	Cache         redis.DonorCacheInterface
	Receipts      *ReceiptService
	Notifications *NotificationService
	Settings      PaymentSettings
}

// PaymentService runs the order lifecycle shared by every payment domain.
// It is the only place a payment record leaves the created state.
type PaymentService struct {
	paymentRepo         repository.PaymentRepository
	donorRepo           repository.DonorRepository
	descriptors         map[domain.PaymentDomain]Descriptor
	gateways            map[domain.PaymentDomain]gateway.Gateway
	orderIDs            *OrderIDGenerator
	lockStore           redis.LockStoreInterface
	cacheStore          redis.DonorCacheInterface
	receiptService      *ReceiptService
	notificationService *NotificationService
	settings            PaymentSettings
	now                 func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(deps PaymentDeps) *PaymentService {
	descriptors := make(map[domain.PaymentDomain]Descriptor, len(deps.Descriptors))
	for _, d := range deps.Descriptors {
		descriptors[d.Domain()] = d
	}
	settings := deps.Settings
	if settings.Currency == "" {
		settings.Currency = defaultCurrency
	}
	return &PaymentService{
		paymentRepo:         deps.Payments,
		donorRepo:           deps.Donors,
		descriptors:         descriptors,
		gateways:            deps.Gateways,
		orderIDs:            deps.OrderIDs,
		lockStore:           deps.Locks,
		cacheStore:          deps.Cache,
		receiptService:      deps.Receipts,
		notificationService: deps.Notifications,
		settings:            settings,
		now:                 time.Now,
	}
}

// CreateOrderRequest contains the parameters for opening a checkout.
type CreateOrderRequest struct {
	Domain       domain.PaymentDomain
	EntityID     string
	PayerName    string
	PayerContact string
	PayerEmail   string
	Amount       int64
	Quantity     int
}

// CreateOrderResponse is what the client needs to start the checkout.
type CreateOrderResponse struct {
	OrderID         string
	ProviderOrderID string
	RedirectURL     string
	Amount          int64
	Currency        string
	Provider        string
	Payment         *domain.PaymentRecord
}

// CreateOrder validates the request, records a created payment and opens
// the order with the domain's gateway.
func (s *PaymentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	descriptor, gw, err := s.domainParts(req.Domain)
	if err != nil {
		return nil, err
	}

	checkout, err := descriptor.Lookup(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}
	if checkout.Closed != nil {
		return nil, checkout.Closed
	}

	amount, err := descriptor.ResolveAmount(checkout, AmountRequest{Amount: req.Amount, Quantity: req.Quantity})
	if err != nil {
		return nil, err
	}
	if amount > MaxOrderAmount {
		return nil, ErrAmountTooLarge
	}

	now := s.now()
	payment := &domain.PaymentRecord{
		ID:           uuid.New().String(),
		Domain:       req.Domain,
		EntityID:     checkout.EntityID,
		OrderID:      s.orderIDs.Next(req.Domain),
		Provider:     gw.Name(),
		PayerName:    strings.TrimSpace(req.PayerName),
		PayerContact: strings.TrimSpace(req.PayerContact),
		PayerEmail:   strings.TrimSpace(req.PayerEmail),
		Amount:       amount,
		Currency:     s.settings.Currency,
		Status:       domain.PaymentStatusCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment record %s: %w", payment.OrderID, err)
	}

	remote, err := gw.CreateOrder(ctx, gateway.CreateOrderRequest{
		OrderID:     payment.OrderID,
		AmountMinor: gateway.ToMinorUnits(amount),
		Currency:    payment.Currency,
		RedirectURL: s.redirectURL(req.Domain, payment.OrderID),
		Description: checkout.Description,
		Notes: map[string]string{
			"domain":    string(req.Domain),
			"entity_id": checkout.EntityID,
		},
	})
	if err != nil {
		// The record stays created; the sweep closes it later.
		log.Printf("[PAYMENT] gateway create failed: order=%s domain=%s provider=%s err=%v",
			payment.OrderID, req.Domain, gw.Name(), err)
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	if remote.ProviderOrderID != "" {
		if err := s.paymentRepo.AttachProviderOrder(ctx, payment.OrderID, remote.ProviderOrderID); err != nil {
			return nil, fmt.Errorf("attach provider order to %s: %w", payment.OrderID, err)
		}
		payment.ProviderOrderID = remote.ProviderOrderID
	}

	log.Printf("[PAYMENT] order created: order=%s domain=%s entity=%s amount=%d provider=%s",
		payment.OrderID, payment.Domain, payment.EntityID, payment.Amount, payment.Provider)

	return &CreateOrderResponse{
		OrderID:         payment.OrderID,
		ProviderOrderID: payment.ProviderOrderID,
		RedirectURL:     remote.RedirectURL,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		Provider:        payment.Provider,
		Payment:         payment,
	}, nil
}

func (s *PaymentService) validateCreateRequest(req CreateOrderRequest) error {
	if _, ok := s.descriptors[req.Domain]; !ok {
		return ErrUnknownDomain
	}
	if strings.TrimSpace(req.EntityID) == "" {
		return ErrInvalidEntityID
	}
	if strings.TrimSpace(req.PayerName) == "" || strings.TrimSpace(req.PayerContact) == "" {
		return ErrInvalidPayer
	}
	if req.Amount < 0 {
		return ErrInvalidAmount
	}
	if req.Amount > MaxOrderAmount {
		return ErrAmountTooLarge
	}
	if req.Quantity < 0 || req.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

func (s *PaymentService) domainParts(d domain.PaymentDomain) (Descriptor, gateway.Gateway, error) {
	descriptor, ok := s.descriptors[d]
	if !ok {
		return nil, nil, ErrUnknownDomain
	}
	gw, ok := s.gateways[d]
	if !ok || gw == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrGatewayNotConfigured, d)
	}
	return descriptor, gw, nil
}

func (s *PaymentService) redirectURL(d domain.PaymentDomain, orderID string) string {
	q := url.Values{}
	q.Set("domain", string(d))
	q.Set("orderId", orderID)
	return strings.TrimRight(s.settings.FrontendBaseURL, "/") + "/payment-status?" + q.Encode()
}

// GetPayment returns a payment record by local or provider order id.
func (s *PaymentService) GetPayment(ctx context.Context, orderID string) (*domain.PaymentRecord, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, ErrInvalidOrderID
	}
	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return payment, nil
}

func (s *PaymentService) getDomainPayment(ctx context.Context, d domain.PaymentDomain, orderID string) (*domain.PaymentRecord, error) {
	if _, ok := s.descriptors[d]; !ok {
		return nil, ErrUnknownDomain
	}
	payment, err := s.GetPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Domain != d {
		return nil, fmt.Errorf("order %s in domain %s: %w", orderID, d, repository.ErrNotFound)
	}
	return payment, nil
}

// VerifySignatureRequest carries the values returned by an embedded checkout.
type VerifySignatureRequest struct {
	Domain    domain.PaymentDomain
	OrderID   string
	PaymentID string
	Signature string
}

// VerifySignature settles a payment from a client-supplied HMAC signature.
// A wrong signature fails the payment for good.
func (s *PaymentService) VerifySignature(ctx context.Context, req VerifySignatureRequest) (*domain.PaymentRecord, error) {
	switch {
	case strings.TrimSpace(req.OrderID) == "":
		return nil, ErrInvalidOrderID
	case strings.TrimSpace(req.PaymentID) == "":
		return nil, ErrInvalidPaymentID
	case strings.TrimSpace(req.Signature) == "":
		return nil, ErrInvalidSignature
	}

	payment, err := s.getDomainPayment(ctx, req.Domain, req.OrderID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case domain.PaymentStatusPaid:
		s.repairPaid(ctx, payment)
		return payment, nil
	case domain.PaymentStatusFailed:
		return payment, fmt.Errorf("order %s: %w", payment.OrderID, ErrPaymentFailed)
	}

	// The client signs the order id it was given: ours from create-order,
	// or the provider's from its checkout. Both resolve to this record.
	if !gateway.VerifySignature(s.settings.SigningSecret, req.OrderID, req.PaymentID, req.Signature) {
		log.Printf("[PAYMENT] signature mismatch: order=%s domain=%s payment=%s",
			payment.OrderID, payment.Domain, req.PaymentID)
		if err := s.fail(ctx, payment, reasonSignatureMismatch); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order %s: %w", payment.OrderID, ErrSignatureMismatch)
	}

	raw, _ := json.Marshal(map[string]string{
		"orderId":   req.OrderID,
		"paymentId": req.PaymentID,
		"signature": req.Signature,
	})
	return s.settlePaid(ctx, payment, domain.PaidUpdate{
		ProviderPaymentID: req.PaymentID,
		Signature:         req.Signature,
		RawResponse:       raw,
	})
}

// VerifyResult is the outcome of a status-based verification.
type VerifyResult struct {
	Payment       *domain.PaymentRecord
	ProviderState gateway.OrderState
}

// VerifyStatus asks the provider for the order's state and settles the
// payment when the provider reports it completed.
func (s *PaymentService) VerifyStatus(ctx context.Context, d domain.PaymentDomain, orderID string) (*VerifyResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, ErrInvalidOrderID
	}
	payment, err := s.getDomainPayment(ctx, d, orderID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, payment)
}

// CallbackPayload is the provider webhook reduced to what the service uses.
// The reported state is informational; the provider is re-queried.
type CallbackPayload struct {
	OrderID   string
	State     string
	PaymentID string
	Raw       json.RawMessage
}

// HandleCallback processes a provider webhook. Duplicate deliveries are
// harmless: at most one settles the payment.
func (s *PaymentService) HandleCallback(ctx context.Context, d domain.PaymentDomain, payload CallbackPayload) (*VerifyResult, error) {
	if strings.TrimSpace(payload.OrderID) == "" {
		return nil, ErrInvalidOrderID
	}
	payment, err := s.getDomainPayment(ctx, d, payload.OrderID)
	if err != nil {
		return nil, err
	}
	if payment.Status.IsTerminal() {
		if payment.Status == domain.PaymentStatusPaid && s.needsRepair(ctx, payment) {
			s.repairPaidLocked(ctx, payment)
		}
		return &VerifyResult{Payment: payment}, nil
	}

	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquireOrderLock(ctx, payment.OrderID, callbackLockTTL)
		if err != nil {
			log.Printf("[CALLBACK] lock error for order %s: %v", payment.OrderID, err)
		} else if !acquired {
			log.Printf("[CALLBACK] order %s already being processed, skipping", payment.OrderID)
			return &VerifyResult{Payment: payment}, nil
		} else {
			defer func() {
				if err := s.lockStore.ReleaseOrderLock(context.WithoutCancel(ctx), payment.OrderID); err != nil {
					log.Printf("[CALLBACK] release lock for order %s: %v", payment.OrderID, err)
				}
			}()
		}
	}

	log.Printf("[CALLBACK] received: order=%s domain=%s state=%s", payment.OrderID, d, payload.State)
	return s.reconcile(ctx, payment)
}

// reconcile settles a created payment if the provider reports it completed.
// Other provider states leave the record unchanged.
func (s *PaymentService) reconcile(ctx context.Context, payment *domain.PaymentRecord) (*VerifyResult, error) {
	if payment.Status == domain.PaymentStatusPaid {
		s.repairPaid(ctx, payment)
	}
	if payment.Status.IsTerminal() {
		return &VerifyResult{Payment: payment}, nil
	}

	gw, ok := s.gateways[payment.Domain]
	if !ok || gw == nil {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotConfigured, payment.Domain)
	}

	status, err := gw.OrderStatus(ctx, gateway.OrderRef{
		OrderID:         payment.OrderID,
		ProviderOrderID: payment.ProviderOrderID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: order %s: %w", ErrGatewayUnavailable, payment.OrderID, err)
	}

	result := &VerifyResult{Payment: payment, ProviderState: status.State}
	if status.State != gateway.OrderStateCompleted {
		return result, nil
	}

	settled, err := s.settlePaid(ctx, payment, domain.PaidUpdate{
		ProviderPaymentID: status.PaymentID,
		RawResponse:       status.Raw,
	})
	if settled != nil {
		result.Payment = settled
	}
	return result, err
}

// settlePaid performs the created -> paid transition. Only the caller that
// wins the transition runs the side effects.
func (s *PaymentService) settlePaid(ctx context.Context, payment *domain.PaymentRecord, update domain.PaidUpdate) (*domain.PaymentRecord, error) {
	transitioned, err := s.paymentRepo.MarkPaid(ctx, payment.OrderID, update)
	if err != nil {
		return nil, fmt.Errorf("mark order %s paid: %w", payment.OrderID, err)
	}

	current, err := s.paymentRepo.GetByOrderID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("reload order %s: %w", payment.OrderID, err)
	}

	if !transitioned {
		if current.Status == domain.PaymentStatusPaid {
			return current, nil
		}
		return current, fmt.Errorf("order %s: %w", current.OrderID, ErrPaymentFailed)
	}

	log.Printf("[PAYMENT] order paid: order=%s domain=%s payment=%s amount=%d",
		current.OrderID, current.Domain, current.ProviderPaymentID, current.Amount)

	return current, s.afterPaid(ctx, current)
}

// afterPaid runs the side effects of a payment becoming paid. The payment
// stays paid whatever happens here.
func (s *PaymentService) afterPaid(ctx context.Context, payment *domain.PaymentRecord) error {
	descriptor := s.descriptors[payment.Domain]

	donor, err := s.recordDonor(ctx, payment, descriptor)
	if err != nil {
		return err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyPaymentSuccess(ctx, payment)
	}
	_ = s.receiptService.SendReceipt(ctx, donor, payment.PayerEmail)

	if descriptor == nil {
		return nil
	}
	if err := s.applyDomain(ctx, payment, descriptor); err != nil {
		return err
	}
	if payment.Domain == domain.PaymentDomainPuja && s.notificationService != nil {
		_ = s.notificationService.NotifyBookingConfirmed(ctx, payment)
	}
	return nil
}

// recordDonor writes the donor record for a paid payment and drops the
// cached donor lists. The write is a no-op when the record exists.
func (s *PaymentService) recordDonor(ctx context.Context, payment *domain.PaymentRecord, descriptor Descriptor) (*domain.DonorRecord, error) {
	var checkout *Checkout
	if descriptor != nil {
		c, err := descriptor.Lookup(ctx, payment.EntityID)
		if err != nil {
			log.Printf("[PAYMENT] entity lookup failed for paid order %s: %v", payment.OrderID, err)
		} else {
			checkout = c
		}
	}

	donor := s.receiptService.BuildDonorRecord(payment, checkout)
	if err := s.donorRepo.Create(ctx, donor); err != nil {
		return nil, fmt.Errorf("create donor record for %s: %w", payment.OrderID, err)
	}
	s.invalidateDonors(ctx)
	return donor, nil
}

func (s *PaymentService) invalidateDonors(ctx context.Context) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateDonors(ctx); err != nil {
		log.Printf("[PAYMENT] donor cache invalidation failed: %v", err)
	}
}

func (s *PaymentService) applyDomain(ctx context.Context, payment *domain.PaymentRecord, descriptor Descriptor) error {
	if err := descriptor.AfterPaid(ctx, payment); err != nil {
		log.Printf("[PAYMENT] post-paid update failed: order=%s domain=%s err=%v",
			payment.OrderID, payment.Domain, err)
		return err
	}
	return nil
}

// needsRepair reports whether a paid payment is missing its donor record
// or its domain bookkeeping. Read errors count as missing.
func (s *PaymentService) needsRepair(ctx context.Context, payment *domain.PaymentRecord) bool {
	exists, err := s.donorRepo.ExistsForOrder(ctx, payment.OrderID)
	if err != nil || !exists {
		return true
	}
	descriptor := s.descriptors[payment.Domain]
	if descriptor == nil {
		return false
	}
	settled, err := descriptor.Settled(ctx, payment)
	return err != nil || !settled
}

// repairPaid re-applies the writes a paid payment should have left behind
// when an earlier attempt stopped half way. Notifications are not repeated.
// Failures are logged; the next verify or webhook tries again.
func (s *PaymentService) repairPaid(ctx context.Context, payment *domain.PaymentRecord) {
	descriptor := s.descriptors[payment.Domain]

	exists, err := s.donorRepo.ExistsForOrder(ctx, payment.OrderID)
	if err != nil {
		log.Printf("[PAYMENT] repair: donor lookup failed for order %s: %v", payment.OrderID, err)
		return
	}
	if !exists {
		log.Printf("[PAYMENT] repair: writing missing donor record for order %s", payment.OrderID)
		if _, err := s.recordDonor(ctx, payment, descriptor); err != nil {
			log.Printf("[PAYMENT] repair: %v", err)
			return
		}
	}

	if descriptor == nil {
		return
	}
	settled, err := descriptor.Settled(ctx, payment)
	if err != nil {
		log.Printf("[PAYMENT] repair: %s bookkeeping lookup failed for order %s: %v", payment.Domain, payment.OrderID, err)
		return
	}
	if !settled {
		log.Printf("[PAYMENT] repair: reapplying %s bookkeeping for order %s", payment.Domain, payment.OrderID)
		_ = s.applyDomain(ctx, payment, descriptor)
	}
}

// repairPaidLocked runs repairPaid under the order lock so a webhook repair
// never overlaps the winner's side effects.
func (s *PaymentService) repairPaidLocked(ctx context.Context, payment *domain.PaymentRecord) {
	if s.lockStore == nil {
		s.repairPaid(ctx, payment)
		return
	}
	acquired, err := s.lockStore.AcquireOrderLock(ctx, payment.OrderID, callbackLockTTL)
	if err != nil || !acquired {
		return
	}
	defer func() {
		if err := s.lockStore.ReleaseOrderLock(context.WithoutCancel(ctx), payment.OrderID); err != nil {
			log.Printf("[CALLBACK] release lock for order %s: %v", payment.OrderID, err)
		}
	}()
	s.repairPaid(ctx, payment)
}

// fail performs the created -> failed transition. Losing the transition
// to a concurrent caller is not an error.
func (s *PaymentService) fail(ctx context.Context, payment *domain.PaymentRecord, reason string) error {
	transitioned, err := s.paymentRepo.MarkFailed(ctx, payment.OrderID, reason)
	if err != nil {
		return fmt.Errorf("mark order %s failed: %w", payment.OrderID, err)
	}
	if !transitioned {
		return nil
	}
	log.Printf("[PAYMENT] order failed: order=%s domain=%s reason=%s", payment.OrderID, payment.Domain, reason)
	if s.notificationService != nil {
		_ = s.notificationService.NotifyPaymentFailed(ctx, payment, reason)
	}
	return nil
}

// IsGatewayError reports whether err came from a payment provider.
func IsGatewayError(err error) bool {
	return errors.Is(err, gateway.ErrGateway) || errors.Is(err, ErrGatewayUnavailable)
}
