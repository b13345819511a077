package service

import (
	"fmt"

	"github.com/bwmarrin/snowflake"

	"devalayaum/internal/domain"
)

var orderIDPrefixes = map[domain.PaymentDomain]string{
	domain.PaymentDomainDonation: "DN",
	domain.PaymentDomainProduct:  "PR",
	domain.PaymentDomainPuja:     "PJ",
}

// OrderIDGenerator issues merchant order ids. Ids are time ordered and
// unique per node, so every instance needs its own node number.
type OrderIDGenerator struct {
	node *snowflake.Node
}

// NewOrderIDGenerator creates a generator for the given snowflake node (0-1023).
func NewOrderIDGenerator(nodeID int64) (*OrderIDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &OrderIDGenerator{node: node}, nil
}

// Next returns a new order id, e.g. "DN1781234567890123456".
func (g *OrderIDGenerator) Next(paymentDomain domain.PaymentDomain) string {
	return orderIDPrefixes[paymentDomain] + g.node.Generate().String()
}
