package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"devalayaum/internal/domain"
	"devalayaum/internal/middleware"
	"devalayaum/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
	callbackAuth   CallbackAuth
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService, callbackAuth CallbackAuth) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		callbackAuth:   callbackAuth,
	}
}

// CreateOrderRequest is the HTTP request body for opening a checkout.
type CreateOrderRequest struct {
	EntityID     string `json:"entityId"`
	PayerName    string `json:"payerName"`
	PayerContact string `json:"payerContact"`
	PayerEmail   string `json:"payerEmail,omitempty"`
	Amount       int64  `json:"amount"`
	Quantity     int    `json:"quantity,omitempty"`
}

// CreateOrderResponse is the HTTP response for opening a checkout.
type CreateOrderResponse struct {
	OrderID         string `json:"orderId"`
	ProviderOrderID string `json:"providerOrderId,omitempty"`
	RedirectURL     string `json:"redirectUrl,omitempty"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Provider        string `json:"provider"`
}

// VerifyRequest is the HTTP request body for signature verification.
type VerifyRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// VerifyResponse is the HTTP response for both verification variants.
type VerifyResponse struct {
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	ProviderState string `json:"providerState,omitempty"`
}

// PaymentResponse is the HTTP response for one payment record.
type PaymentResponse struct {
	OrderID           string    `json:"orderId"`
	ProviderOrderID   string    `json:"providerOrderId,omitempty"`
	ProviderPaymentID string    `json:"providerPaymentId,omitempty"`
	Domain            string    `json:"domain"`
	EntityID          string    `json:"entityId"`
	Provider          string    `json:"provider"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	FailureReason     string    `json:"failureReason,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CreateOrder handles POST /payments/:domain/create-order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	paymentDomain, ok := domain.ParsePaymentDomain(c.Param("domain"))
	if !ok {
		respondError(c, service.ErrUnknownDomain)
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.paymentService.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		Domain:       paymentDomain,
		EntityID:     req.EntityID,
		PayerName:    req.PayerName,
		PayerContact: req.PayerContact,
		PayerEmail:   req.PayerEmail,
		Amount:       req.Amount,
		Quantity:     req.Quantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Set(middleware.OrderIDKey, resp.OrderID)

	respondJSON(c, http.StatusOK, CreateOrderResponse{
		OrderID:         resp.OrderID,
		ProviderOrderID: resp.ProviderOrderID,
		RedirectURL:     resp.RedirectURL,
		Amount:          resp.Amount,
		Currency:        resp.Currency,
		Provider:        resp.Provider,
	})
}

// VerifySignature handles POST /payments/:domain/verify
func (h *PaymentHandler) VerifySignature(c *gin.Context) {
	paymentDomain, ok := domain.ParsePaymentDomain(c.Param("domain"))
	if !ok {
		respondError(c, service.ErrUnknownDomain)
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.paymentService.VerifySignature(c.Request.Context(), service.VerifySignatureRequest{
		Domain:    paymentDomain,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		respondPaymentError(c, req.OrderID, err)
		return
	}
	c.Set(middleware.OrderIDKey, payment.OrderID)

	respondJSON(c, http.StatusOK, VerifyResponse{
		OrderID: payment.OrderID,
		Status:  string(payment.Status),
	})
}

// VerifyStatus handles GET /payments/:domain/verify?orderId=
func (h *PaymentHandler) VerifyStatus(c *gin.Context) {
	paymentDomain, ok := domain.ParsePaymentDomain(c.Param("domain"))
	if !ok {
		respondError(c, service.ErrUnknownDomain)
		return
	}

	orderID := c.Query("orderId")
	result, err := h.paymentService.VerifyStatus(c.Request.Context(), paymentDomain, orderID)
	if err != nil {
		respondPaymentError(c, orderID, err)
		return
	}
	c.Set(middleware.OrderIDKey, result.Payment.OrderID)

	respondJSON(c, http.StatusOK, VerifyResponse{
		OrderID:       result.Payment.OrderID,
		Status:        string(result.Payment.Status),
		ProviderState: string(result.ProviderState),
	})
}

// GetPayment handles GET /payments/orders/:orderId
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	orderID := c.Param("orderId")

	payment, err := h.paymentService.GetPayment(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

func toPaymentResponse(p *domain.PaymentRecord) PaymentResponse {
	return PaymentResponse{
		OrderID:           p.OrderID,
		ProviderOrderID:   p.ProviderOrderID,
		ProviderPaymentID: p.ProviderPaymentID,
		Domain:            string(p.Domain),
		EntityID:          p.EntityID,
		Provider:          p.Provider,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            string(p.Status),
		FailureReason:     p.FailureReason,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
