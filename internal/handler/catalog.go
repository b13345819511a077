package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"devalayaum/internal/domain"
	"devalayaum/internal/service"
)

// CatalogHandler serves donation causes, products and pujas.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

type DonationResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	TempleName  string `json:"templeName"`
	Description string `json:"description,omitempty"`
	MinAmount   int64  `json:"minAmount"`
	Active      bool   `json:"active"`
}

type ProductResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TempleName string `json:"templeName"`
	Price      int64  `json:"price"`
	Active     bool   `json:"active"`
}

type PujaResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TempleName string `json:"templeName"`
	Price      int64  `json:"price"`
}

// ListDonations handles GET /donations
func (h *CatalogHandler) ListDonations(c *gin.Context) {
	donations, err := h.catalogService.ListDonations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{
		"donations": lo.Map(donations, func(d *domain.Donation, _ int) DonationResponse { return toDonationResponse(d) }),
		"count":     len(donations),
	})
}

// GetDonation handles GET /donations/:id
func (h *CatalogHandler) GetDonation(c *gin.Context) {
	donation, err := h.catalogService.GetDonation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDonationResponse(donation))
}

// ListProducts handles GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{
		"products": lo.Map(products, func(p *domain.Product, _ int) ProductResponse { return toProductResponse(p) }),
		"count":    len(products),
	})
}

// GetProduct handles GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toProductResponse(product))
}

// ListPujas handles GET /pujas
func (h *CatalogHandler) ListPujas(c *gin.Context) {
	pujas, err := h.catalogService.ListPujas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{
		"pujas": lo.Map(pujas, func(p *domain.Puja, _ int) PujaResponse {
			return PujaResponse{ID: p.ID, Name: p.Name, TempleName: p.TempleName, Price: p.Price}
		}),
		"count": len(pujas),
	})
}

func toDonationResponse(d *domain.Donation) DonationResponse {
	return DonationResponse{
		ID:          d.ID,
		Title:       d.Title,
		TempleName:  d.TempleName,
		Description: d.Description,
		MinAmount:   d.MinAmount,
		Active:      d.Active,
	}
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		TempleName: p.TempleName,
		Price:      p.Price,
		Active:     p.Active,
	}
}
