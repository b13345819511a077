package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"devalayaum/internal/domain"
	"devalayaum/internal/service"
)

const pujaDateLayout = "2006-01-02"

// BookingHandler handles HTTP requests for puja bookings.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBookingRequest is the HTTP request body for booking a puja.
type CreateBookingRequest struct {
	PujaID      string `json:"pujaId"`
	DevoteeName string `json:"devoteeName"`
	Contact     string `json:"contact"`
	PujaDate    string `json:"pujaDate"` // YYYY-MM-DD
}

// BookingResponse is the HTTP response for a puja booking.
type BookingResponse struct {
	ID          string `json:"id"`
	PujaID      string `json:"pujaId"`
	PujaName    string `json:"pujaName"`
	TempleName  string `json:"templeName"`
	DevoteeName string `json:"devoteeName"`
	PujaDate    string `json:"pujaDate"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	Paid        bool   `json:"paid"`
	TxnID       string `json:"txnId,omitempty"`
	AmountPaid  int64  `json:"amountPaid,omitempty"`
}

// Create handles POST /bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var pujaDate time.Time
	if req.PujaDate != "" {
		parsed, err := time.Parse(pujaDateLayout, req.PujaDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pujaDate must be YYYY-MM-DD"})
			return
		}
		pujaDate = parsed
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		PujaID:      req.PujaID,
		DevoteeName: req.DevoteeName,
		Contact:     req.Contact,
		PujaDate:    pujaDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// Get handles GET /bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

func toBookingResponse(b *domain.PujaBooking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		PujaID:      b.PujaID,
		PujaName:    b.PujaName,
		TempleName:  b.TempleName,
		DevoteeName: b.DevoteeName,
		PujaDate:    b.PujaDate.Format(pujaDateLayout),
		Amount:      b.Amount,
		Status:      string(b.Status),
		Paid:        b.Payment.Paid,
		TxnID:       b.Payment.TxnID,
		AmountPaid:  b.Payment.AmountPaid,
	}
}
