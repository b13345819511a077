package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"devalayaum/internal/domain"
	"devalayaum/internal/repository"
)

// BookingService handles puja bookings ahead of their payment.
type BookingService struct {
	bookingRepo repository.BookingRepository
	pujaRepo    repository.PujaRepository
	now         func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(bookingRepo repository.BookingRepository, pujaRepo repository.PujaRepository) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		pujaRepo:    pujaRepo,
		now:         time.Now,
	}
}

// CreateBookingRequest contains the parameters for booking a puja.
type CreateBookingRequest struct {
	PujaID      string
	DevoteeName string
	Contact     string
	PujaDate    time.Time
}

// CreateBooking creates a pending booking priced at the puja's current price.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.PujaBooking, error) {
	if strings.TrimSpace(req.PujaID) == "" {
		return nil, ErrInvalidPujaID
	}
	if strings.TrimSpace(req.DevoteeName) == "" || strings.TrimSpace(req.Contact) == "" {
		return nil, ErrInvalidDevotee
	}
	if req.PujaDate.IsZero() {
		return nil, ErrInvalidPujaDate
	}

	puja, err := s.pujaRepo.GetByID(ctx, req.PujaID)
	if err != nil {
		return nil, fmt.Errorf("load puja %s: %w", req.PujaID, err)
	}
	if puja.Price <= 0 {
		return nil, ErrInvalidAmount
	}

	now := s.now()
	booking := &domain.PujaBooking{
		ID:          uuid.New().String(),
		PujaID:      puja.ID,
		PujaName:    puja.Name,
		TempleName:  puja.TempleName,
		DevoteeName: strings.TrimSpace(req.DevoteeName),
		Contact:     strings.TrimSpace(req.Contact),
		PujaDate:    req.PujaDate,
		Amount:      puja.Price,
		Status:      domain.BookingStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	log.Printf("[PAYMENT] booking created: booking=%s puja=%s amount=%d", booking.ID, booking.PujaID, booking.Amount)
	return booking, nil
}

// GetBooking returns a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.PujaBooking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidEntityID
	}
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", id, err)
	}
	return booking, nil
}
