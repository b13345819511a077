package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// PaymentAttributes tags the request's New Relic transaction with the
// payment domain and reports handler errors to it. It is a no-op when
// the agent is disabled.
func PaymentAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		if paymentDomain := c.Param("domain"); paymentDomain != "" {
			txn.AddAttribute("payment.domain", paymentDomain)
		}
		if orderID := c.GetString(OrderIDKey); orderID != "" {
			txn.AddAttribute("payment.orderId", orderID)
		}

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}

// OrderIDKey is the gin context key handlers set once an order id is known.
const OrderIDKey = "payment.orderId"
