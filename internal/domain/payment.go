package domain

import (
	"encoding/json"
	"time"
)

// PaymentStatus represents the current status of a payment record.
type PaymentStatus string

const (
	PaymentStatusCreated PaymentStatus = "created"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// PaymentDomain identifies which checkout flow a payment belongs to.
type PaymentDomain string

const (
	PaymentDomainDonation PaymentDomain = "donation"
	PaymentDomainProduct  PaymentDomain = "product"
	PaymentDomainPuja     PaymentDomain = "puja"
)

// PaymentDomains lists every supported payment domain.
var PaymentDomains = []PaymentDomain{
	PaymentDomainDonation,
	PaymentDomainProduct,
	PaymentDomainPuja,
}

// ParsePaymentDomain converts a path segment into a PaymentDomain.
func ParsePaymentDomain(s string) (PaymentDomain, bool) {
	for _, d := range PaymentDomains {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// PaymentRecord is the local ledger row for one checkout attempt.
// Amount is kept in major units; gateways receive minor units.
type PaymentRecord struct {
	ID                string
	Domain            PaymentDomain
	EntityID          string
	OrderID           string
	ProviderOrderID   string
	ProviderPaymentID string
	Provider          string
	Signature         string
	RawResponse       json.RawMessage
	PayerName         string
	PayerContact      string
	PayerEmail        string
	Amount            int64
	Currency          string
	Status            PaymentStatus
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PaidUpdate carries the provider data stored on the created -> paid transition.
type PaidUpdate struct {
	ProviderPaymentID string
	Signature         string
	RawResponse       json.RawMessage
}
