package domain

import "time"

// Donation is a temple cause that accepts donations.
type Donation struct {
	ID          string
	Title       string
	TempleName  string
	Description string
	MinAmount   int64
	Active      bool
	CreatedAt   time.Time
}

// Product is a spiritual product sold through the store.
type Product struct {
	ID         string
	Name       string
	TempleName string
	Price      int64
	Active     bool
	CreatedAt  time.Time
}

// Puja is a ritual a temple offers for booking.
type Puja struct {
	ID         string
	Name       string
	TempleName string
	Price      int64
	CreatedAt  time.Time
}
