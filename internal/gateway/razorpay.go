package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"devalayaum/internal/config"
)

const razorpayName = "razorpay"

// Razorpay is a client for the Razorpay orders API.
// Checkout happens in the embedded widget, so orders carry no redirect URL.
type Razorpay struct {
	cfg        config.RazorpayConfig
	httpClient *http.Client
}

// NewRazorpay creates a Razorpay client. A nil httpClient gets an instrumented default.
func NewRazorpay(cfg config.RazorpayConfig, httpClient *http.Client) (*Razorpay, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("razorpay: key id and secret are required")
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout)
	}
	return &Razorpay{cfg: cfg, httpClient: httpClient}, nil
}

// Name returns the provider name.
func (r *Razorpay) Name() string {
	return razorpayName
}

// KeyID returns the public key the checkout widget needs.
func (r *Razorpay) KeyID() string {
	return r.cfg.KeyID
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayPayments struct {
	Items []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"items"`
}

// CreateOrder creates a Razorpay order; the local order id is sent as receipt.
func (r *Razorpay) CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error) {
	payload := razorpayOrderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.OrderID,
		Notes:    req.Notes,
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, r.cfg.BaseURL+"/v1/orders", payload)
	if err != nil {
		return nil, &Error{Provider: razorpayName, Op: "create order", Err: err}
	}
	httpReq.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)

	var order razorpayOrder
	raw, err := doJSON(r.httpClient, httpReq, razorpayName, "create order", &order)
	if err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, &Error{Provider: razorpayName, Op: "create order", Body: "response has no id"}
	}

	return &RemoteOrder{ProviderOrderID: order.ID, Raw: raw}, nil
}

// OrderStatus fetches the order and, once paid, its captured payment id.
func (r *Razorpay) OrderStatus(ctx context.Context, ref OrderRef) (*OrderStatus, error) {
	if ref.ProviderOrderID == "" {
		return nil, &Error{Provider: razorpayName, Op: "order status", Body: "no provider order id for " + ref.OrderID}
	}

	endpoint := r.cfg.BaseURL + "/v1/orders/" + url.PathEscape(ref.ProviderOrderID)
	httpReq, err := newJSONRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Provider: razorpayName, Op: "order status", Err: err}
	}
	httpReq.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)

	var order razorpayOrder
	raw, err := doJSON(r.httpClient, httpReq, razorpayName, "order status", &order)
	if err != nil {
		return nil, err
	}

	status := &OrderStatus{State: OrderStatePending, Raw: raw}
	if order.Status != "paid" {
		return status, nil
	}
	status.State = OrderStateCompleted

	httpReq, err = newJSONRequest(ctx, http.MethodGet, endpoint+"/payments", nil)
	if err != nil {
		return nil, &Error{Provider: razorpayName, Op: "order payments", Err: err}
	}
	httpReq.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)

	var payments razorpayPayments
	if _, err := doJSON(r.httpClient, httpReq, razorpayName, "order payments", &payments); err != nil {
		return nil, err
	}
	for _, p := range payments.Items {
		if p.Status == "captured" {
			status.PaymentID = p.ID
			break
		}
	}

	return status, nil
}

// Ensure Razorpay implements Gateway.
var _ Gateway = (*Razorpay)(nil)
