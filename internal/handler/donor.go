package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"devalayaum/internal/domain"
	"devalayaum/internal/service"
)

// DonorHandler serves the public donor list.
type DonorHandler struct {
	donorService *service.DonorService
}

// NewDonorHandler creates a new DonorHandler.
func NewDonorHandler(donorService *service.DonorService) *DonorHandler {
	return &DonorHandler{donorService: donorService}
}

// DonorResponse is one entry of the public donor list.
type DonorResponse struct {
	OrderID    string    `json:"orderId"`
	Domain     string    `json:"domain"`
	DonorName  string    `json:"donorName"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	TempleName string    `json:"templeName,omitempty"`
	CauseName  string    `json:"causeName,omitempty"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"createdAt"`
}

// List handles GET /donors?domain=&limit=
func (h *DonorHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	donors, err := h.donorService.ListDonors(c.Request.Context(), domain.PaymentDomain(c.Query("domain")), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	// Contact details stay private.
	respondJSON(c, http.StatusOK, gin.H{
		"donors": lo.Map(donors, func(d *domain.DonorRecord, _ int) DonorResponse {
			return DonorResponse{
				OrderID:    d.OrderID,
				Domain:     string(d.Domain),
				DonorName:  d.DonorName,
				Amount:     d.Amount,
				Currency:   d.Currency,
				TempleName: d.TempleName,
				CauseName:  d.CauseName,
				Verified:   d.Verified,
				CreatedAt:  d.CreatedAt,
			}
		}),
		"count": len(donors),
	})
}
