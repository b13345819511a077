package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"devalayaum/internal/domain"
	"devalayaum/internal/gateway"
)

// ReceiptService builds donor records and their printable receipts.
type ReceiptService struct {
	notificationService *NotificationService
	now                 func() time.Time
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(notificationService *NotificationService) *ReceiptService {
	return &ReceiptService{
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// BuildDonorRecord derives the public donor record for a paid payment.
// checkout may be nil when the entity could not be loaded.
func (s *ReceiptService) BuildDonorRecord(payment *domain.PaymentRecord, checkout *Checkout) *domain.DonorRecord {
	donor := &domain.DonorRecord{
		ID:                uuid.New().String(),
		OrderID:           payment.OrderID,
		Domain:            payment.Domain,
		DonorName:         payment.PayerName,
		Contact:           payment.PayerContact,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		ProviderPaymentID: payment.ProviderPaymentID,
		Verified:          true,
		CreatedAt:         s.now(),
	}
	if checkout != nil {
		donor.TempleName = checkout.TempleName
		donor.CauseName = checkout.CauseName
	}
	return donor
}

// SendReceipt formats the receipt and notifies the payer.
func (s *ReceiptService) SendReceipt(ctx context.Context, donor *domain.DonorRecord, email string) error {
	if s.notificationService == nil {
		return nil
	}
	return s.notificationService.NotifyReceiptReady(ctx, donor, email, s.FormatReceipt(donor))
}

// FormatReceipt formats the donor record as text (for email/print).
func (s *ReceiptService) FormatReceipt(donor *domain.DonorRecord) string {
	var b strings.Builder
	b.WriteString("=====================================\n")
	b.WriteString("           DEVALAYAUM RECEIPT\n")
	b.WriteString("=====================================\n")
	fmt.Fprintf(&b, "Order ID:   %s\n", donor.OrderID)
	fmt.Fprintf(&b, "Payment ID: %s\n", donor.ProviderPaymentID)
	fmt.Fprintf(&b, "Date:       %s\n", donor.CreatedAt.Format("Jan 02, 2006 3:04 PM"))
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "Name:       %s\n", donor.DonorName)
	if donor.TempleName != "" {
		fmt.Fprintf(&b, "Temple:     %s\n", donor.TempleName)
	}
	if donor.CauseName != "" {
		fmt.Fprintf(&b, "For:        %s\n", donor.CauseName)
	}
	fmt.Fprintf(&b, "Amount:     %s %s\n", donor.Currency, formatAmount(donor.Amount))
	b.WriteString("=====================================\n")
	b.WriteString("   Thank you for your contribution!\n")
	b.WriteString("=====================================\n")
	return b.String()
}

// formatAmount renders a major-unit amount with two decimals.
func formatAmount(amount int64) string {
	return gateway.FromMinorUnits(gateway.ToMinorUnits(amount)).StringFixed(2)
}
