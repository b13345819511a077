package domain

import "time"

// DonorRecord is the public receipt written once a payment is paid.
type DonorRecord struct {
	ID                string
	OrderID           string
	Domain            PaymentDomain
	DonorName         string
	Contact           string
	Amount            int64
	Currency          string
	TempleName        string
	CauseName         string
	ProviderPaymentID string
	Verified          bool
	CreatedAt         time.Time
}
