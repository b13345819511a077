package service

import (
	"context"
	"errors"
	"fmt"

	"devalayaum/internal/domain"
	"devalayaum/internal/repository"
)

const (
	// MaxQuantity caps the units of one product in a single order.
	MaxQuantity = 100
	// MaxOrderAmount caps any order, in major units.
	MaxOrderAmount int64 = 10_000_000
)

// Checkout is what a payment domain knows about the entity being paid for.
type Checkout struct {
	EntityID    string
	TempleName  string
	CauseName   string
	Description string
	UnitPrice   int64
	MinAmount   int64

	// Closed is set when the entity exists but cannot take a new payment.
	Closed error
}

// AmountRequest carries the client-supplied amount fields of a checkout.
type AmountRequest struct {
	Amount   int64
	Quantity int
}

// Descriptor adapts one payment domain to the shared order lifecycle.
type Descriptor interface {
	Domain() domain.PaymentDomain
	// Lookup loads the entity. Missing entities return repository.ErrNotFound.
	Lookup(ctx context.Context, entityID string) (*Checkout, error)
	// ResolveAmount decides the payable amount in major units.
	ResolveAmount(checkout *Checkout, req AmountRequest) (int64, error)
	// AfterPaid applies the domain's own bookkeeping once a payment is paid.
	AfterPaid(ctx context.Context, payment *domain.PaymentRecord) error
	// Settled reports whether AfterPaid has taken effect for a paid payment.
	Settled(ctx context.Context, payment *domain.PaymentRecord) (bool, error)
}

// DonationDescriptor lets donors give any amount at or above a cause's minimum.
type DonationDescriptor struct {
	donations repository.DonationRepository
}

// NewDonationDescriptor creates a DonationDescriptor.
func NewDonationDescriptor(donations repository.DonationRepository) *DonationDescriptor {
	return &DonationDescriptor{donations: donations}
}

func (d *DonationDescriptor) Domain() domain.PaymentDomain { return domain.PaymentDomainDonation }

func (d *DonationDescriptor) Lookup(ctx context.Context, entityID string) (*Checkout, error) {
	donation, err := d.donations.GetByID(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load donation %s: %w", entityID, err)
	}
	checkout := &Checkout{
		EntityID:    donation.ID,
		TempleName:  donation.TempleName,
		CauseName:   donation.Title,
		Description: "Donation: " + donation.Title,
		MinAmount:   donation.MinAmount,
	}
	if !donation.Active {
		checkout.Closed = ErrEntityClosed
	}
	return checkout, nil
}

func (d *DonationDescriptor) ResolveAmount(checkout *Checkout, req AmountRequest) (int64, error) {
	if req.Amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if req.Amount < checkout.MinAmount {
		return 0, ErrAmountBelowMinimum
	}
	return req.Amount, nil
}

// AfterPaid is a no-op: the donor record is the donation's only bookkeeping.
func (d *DonationDescriptor) AfterPaid(ctx context.Context, payment *domain.PaymentRecord) error {
	return nil
}

func (d *DonationDescriptor) Settled(ctx context.Context, payment *domain.PaymentRecord) (bool, error) {
	return true, nil
}

// ProductDescriptor charges the listed price times the quantity.
type ProductDescriptor struct {
	products repository.ProductRepository
}

// NewProductDescriptor creates a ProductDescriptor.
func NewProductDescriptor(products repository.ProductRepository) *ProductDescriptor {
	return &ProductDescriptor{products: products}
}

func (d *ProductDescriptor) Domain() domain.PaymentDomain { return domain.PaymentDomainProduct }

func (d *ProductDescriptor) Lookup(ctx context.Context, entityID string) (*Checkout, error) {
	product, err := d.products.GetByID(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", entityID, err)
	}
	checkout := &Checkout{
		EntityID:    product.ID,
		TempleName:  product.TempleName,
		CauseName:   product.Name,
		Description: "Product: " + product.Name,
		UnitPrice:   product.Price,
	}
	if !product.Active {
		checkout.Closed = ErrEntityClosed
	}
	return checkout, nil
}

func (d *ProductDescriptor) ResolveAmount(checkout *Checkout, req AmountRequest) (int64, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > MaxQuantity {
		return 0, ErrInvalidQuantity
	}
	if checkout.UnitPrice > MaxOrderAmount/int64(quantity) {
		return 0, ErrAmountTooLarge
	}
	amount := checkout.UnitPrice * int64(quantity)
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if req.Amount != 0 && req.Amount != amount {
		return 0, ErrAmountMismatch
	}
	return amount, nil
}

// AfterPaid is a no-op; fulfilment happens outside this service.
func (d *ProductDescriptor) AfterPaid(ctx context.Context, payment *domain.PaymentRecord) error {
	return nil
}

func (d *ProductDescriptor) Settled(ctx context.Context, payment *domain.PaymentRecord) (bool, error) {
	return true, nil
}

// BookingDescriptor collects the amount of an existing puja booking and
// confirms the booking once paid.
type BookingDescriptor struct {
	bookings repository.BookingRepository
}

// NewBookingDescriptor creates a BookingDescriptor.
func NewBookingDescriptor(bookings repository.BookingRepository) *BookingDescriptor {
	return &BookingDescriptor{bookings: bookings}
}

func (d *BookingDescriptor) Domain() domain.PaymentDomain { return domain.PaymentDomainPuja }

func (d *BookingDescriptor) Lookup(ctx context.Context, entityID string) (*Checkout, error) {
	booking, err := d.bookings.GetByID(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", entityID, err)
	}
	checkout := &Checkout{
		EntityID:    booking.ID,
		TempleName:  booking.TempleName,
		CauseName:   booking.PujaName,
		Description: "Puja booking: " + booking.PujaName,
		UnitPrice:   booking.Amount,
	}
	if booking.Payment.Paid {
		checkout.Closed = ErrAlreadyPaid
	}
	return checkout, nil
}

func (d *BookingDescriptor) ResolveAmount(checkout *Checkout, req AmountRequest) (int64, error) {
	if checkout.UnitPrice <= 0 {
		return 0, ErrInvalidAmount
	}
	if req.Amount != 0 && req.Amount != checkout.UnitPrice {
		return 0, ErrAmountMismatch
	}
	return checkout.UnitPrice, nil
}

func (d *BookingDescriptor) AfterPaid(ctx context.Context, payment *domain.PaymentRecord) error {
	err := d.bookings.ConfirmPayment(ctx, payment.EntityID, domain.BookingPayment{
		Paid:       true,
		TxnID:      payment.ProviderPaymentID,
		AmountPaid: payment.Amount,
	})
	if err != nil {
		return fmt.Errorf("confirm booking %s: %w", payment.EntityID, err)
	}
	return nil
}

// Settled reports whether the booking carries the payment. A booking that
// no longer exists has nothing left to confirm.
func (d *BookingDescriptor) Settled(ctx context.Context, payment *domain.PaymentRecord) (bool, error) {
	booking, err := d.bookings.GetByID(ctx, payment.EntityID)
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load booking %s: %w", payment.EntityID, err)
	}
	return booking.Payment.Paid, nil
}

var (
	_ Descriptor = (*DonationDescriptor)(nil)
	_ Descriptor = (*ProductDescriptor)(nil)
	_ Descriptor = (*BookingDescriptor)(nil)
)
