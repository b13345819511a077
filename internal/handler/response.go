package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"devalayaum/internal/middleware"
	"devalayaum/internal/repository"
	"devalayaum/internal/service"
)

// paymentSupportMessage is shown instead of internal failure details.
const paymentSupportMessage = "Payment could not be verified, please contact support with your order id"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	OrderID string `json:"orderId,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Server errors are logged and reported, never echoed.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	_ = c.Error(err)
	if code >= http.StatusInternalServerError {
		log.Printf("[PAYMENT] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(code, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: clientMessage(err)})
}

// respondPaymentError is respondError for verification endpoints: failures
// the payer cannot fix get the support message with their order id.
func respondPaymentError(c *gin.Context, orderID string, err error) {
	code := mapErrorToHTTPStatus(err)
	_ = c.Error(err)
	c.Set(middleware.OrderIDKey, orderID)

	switch {
	case code >= http.StatusInternalServerError:
		log.Printf("[PAYMENT] %s %s failed: order=%s err=%v", c.Request.Method, c.FullPath(), orderID, err)
		c.JSON(code, ErrorResponse{Error: paymentSupportMessage, OrderID: orderID})
	case errors.Is(err, service.ErrSignatureMismatch), errors.Is(err, service.ErrOrderConflict):
		c.JSON(code, ErrorResponse{Error: paymentSupportMessage, OrderID: orderID})
	default:
		c.JSON(code, ErrorResponse{Error: clientMessage(err), OrderID: orderID})
	}
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// clientMessage returns the outermost sentinel text safe to show a client.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "not found"
	case errors.Is(err, service.ErrSignatureMismatch):
		return service.ErrSignatureMismatch.Error()
	}
	for _, sentinel := range clientErrors {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

var clientErrors = []error{
	service.ErrUnknownDomain,
	service.ErrInvalidEntityID,
	service.ErrInvalidPayer,
	service.ErrInvalidAmount,
	service.ErrAmountBelowMinimum,
	service.ErrAmountMismatch,
	service.ErrInvalidQuantity,
	service.ErrInvalidOrderID,
	service.ErrInvalidPaymentID,
	service.ErrInvalidSignature,
	service.ErrInvalidPujaID,
	service.ErrInvalidDevotee,
	service.ErrInvalidPujaDate,
	service.ErrEntityClosed,
	service.ErrAlreadyPaid,
	service.ErrPaymentFailed,
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrSignatureMismatch):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrOrderConflict):
		return http.StatusConflict

	// Gateway and everything else
	default:
		return http.StatusInternalServerError
	}
}
