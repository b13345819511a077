package handler

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"devalayaum/internal/domain"
	"devalayaum/internal/gateway"
	"devalayaum/internal/middleware"
	"devalayaum/internal/service"
)

// CallbackAuth holds the optional credentials providers attach to webhooks.
type CallbackAuth struct {
	// PhonePe sends Authorization: SHA256(username:password).
	Username string
	Password string
	// Razorpay signs the raw body into X-Razorpay-Signature.
	WebhookSecret string
}

// callbackSchema accepts both the PhonePe and the Razorpay webhook envelope.
const callbackSchema = `{
  "type": "object",
  "required": ["payload"],
  "properties": {
    "event": {"type": "string"},
    "type": {"type": "string"},
    "payload": {
      "type": "object",
      "properties": {
        "merchantOrderId": {"type": "string"},
        "orderId": {"type": "string"},
        "state": {"type": "string"},
        "payment": {
          "type": "object",
          "required": ["entity"],
          "properties": {
            "entity": {
              "type": "object",
              "properties": {
                "id": {"type": "string"},
                "order_id": {"type": "string"},
                "status": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var callbackSchemaLoader = gojsonschema.NewStringLoader(callbackSchema)

// callbackEnvelope is the union of the provider webhook bodies we read.
type callbackEnvelope struct {
	Event   string `json:"event"`
	Type    string `json:"type"`
	Payload struct {
		MerchantOrderID string `json:"merchantOrderId"`
		OrderID         string `json:"orderId"`
		State           string `json:"state"`
		PaymentDetails  []struct {
			TransactionID string `json:"transactionId"`
		} `json:"paymentDetails"`
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// toPayload picks the order reference the service can resolve.
func (e *callbackEnvelope) toPayload(raw []byte) service.CallbackPayload {
	p := service.CallbackPayload{Raw: raw}
	switch {
	case e.Payload.MerchantOrderID != "":
		p.OrderID = e.Payload.MerchantOrderID
		p.State = e.Payload.State
		if len(e.Payload.PaymentDetails) > 0 {
			p.PaymentID = e.Payload.PaymentDetails[0].TransactionID
		}
	case e.Payload.Payment.Entity.OrderID != "":
		p.OrderID = e.Payload.Payment.Entity.OrderID
		p.State = e.Payload.Payment.Entity.Status
		p.PaymentID = e.Payload.Payment.Entity.ID
	default:
		p.OrderID = e.Payload.OrderID
		p.State = e.Payload.State
	}
	return p
}

func validateCallback(body []byte) error {
	result, err := gojsonschema.Validate(callbackSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for _, e := range result.Errors() {
			sb.WriteString(e.String())
			sb.WriteString("; ")
		}
		return fmt.Errorf("callback does not conform to schema: %s", sb.String())
	}
	return nil
}

// checkAuth reports credential mismatches. Webhooks are never trusted for
// state, so a mismatch is logged rather than rejected.
func (a CallbackAuth) checkAuth(c *gin.Context, body []byte) error {
	if a.Username != "" {
		sum := sha256.Sum256([]byte(a.Username + ":" + a.Password))
		expected := hex.EncodeToString(sum[:])
		got := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "SHA256 "))
		if subtle.ConstantTimeCompare([]byte(strings.ToLower(got)), []byte(expected)) != 1 {
			return fmt.Errorf("authorization header mismatch")
		}
	}
	if sig := c.GetHeader("X-Razorpay-Signature"); sig != "" && a.WebhookSecret != "" {
		if !gateway.VerifyBody(a.WebhookSecret, body, sig) {
			return fmt.Errorf("razorpay signature mismatch")
		}
	}
	return nil
}

// Callback handles POST /payments/:domain/callback. Providers always get a
// 200 so they stop retrying; failures are logged.
func (h *PaymentHandler) Callback(c *gin.Context) {
	ack := gin.H{"received": true}

	paymentDomain, ok := domain.ParsePaymentDomain(c.Param("domain"))
	if !ok {
		log.Printf("[CALLBACK] unknown domain %q", c.Param("domain"))
		c.JSON(http.StatusOK, ack)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		log.Printf("[CALLBACK] read body: %v", err)
		c.JSON(http.StatusOK, ack)
		return
	}

	if err := h.callbackAuth.checkAuth(c, body); err != nil {
		log.Printf("[CALLBACK] %s: %v (ignored)", paymentDomain, err)
	}

	if err := validateCallback(body); err != nil {
		log.Printf("[CALLBACK] %s: %v", paymentDomain, err)
		c.JSON(http.StatusOK, ack)
		return
	}

	var envelope callbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("[CALLBACK] %s: decode: %v", paymentDomain, err)
		c.JSON(http.StatusOK, ack)
		return
	}

	payload := envelope.toPayload(body)
	c.Set(middleware.OrderIDKey, payload.OrderID)

	result, err := h.paymentService.HandleCallback(c.Request.Context(), paymentDomain, payload)
	if err != nil {
		_ = c.Error(err)
		log.Printf("[CALLBACK] %s order=%s failed: %v", paymentDomain, payload.OrderID, err)
		c.JSON(http.StatusOK, ack)
		return
	}

	log.Printf("[CALLBACK] %s order=%s status=%s providerState=%s",
		paymentDomain, result.Payment.OrderID, result.Payment.Status, result.ProviderState)
	c.JSON(http.StatusOK, ack)
}
