package domain

import "time"

// BookingStatus represents the current status of a puja booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
)

// BookingPayment mirrors the outcome of the booking's payment record.
// The payment record stays authoritative.
type BookingPayment struct {
	Paid       bool
	TxnID      string
	AmountPaid int64
}

// PujaBooking represents a devotee's booking of a puja.
type PujaBooking struct {
	ID          string
	PujaID      string
	PujaName    string
	TempleName  string
	DevoteeName string
	Contact     string
	PujaDate    time.Time
	Amount      int64
	Status      BookingStatus
	Payment     BookingPayment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
