package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"devalayaum/internal/config"
)

const (
	phonePeName = "phonepe"

	// tokenRefreshSkew renews a cached token this long before it expires.
	tokenRefreshSkew = time.Minute

	phonePeOrderExpiry = 20 * time.Minute
)

// PhonePe is a client for the PhonePe standard checkout API.
type PhonePe struct {
	cfg        config.PhonePeConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenType   string
	tokenExpiry time.Time
}

// NewPhonePe creates a PhonePe client. A nil httpClient gets an instrumented default.
func NewPhonePe(cfg config.PhonePeConfig, httpClient *http.Client) (*PhonePe, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.ClientVersion == "" {
		return nil, fmt.Errorf("phonepe: client id, secret and version are required")
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout)
	}
	return &PhonePe{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

// Name returns the provider name.
func (p *PhonePe) Name() string {
	return phonePeName
}

type phonePeTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// AccessToken exchanges the client credentials for a bearer token.
// Tokens are reused until shortly before expires_at.
func (p *PhonePe) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.tokenExpiry.Add(-tokenRefreshSkew)) {
		return p.tokenType + " " + p.token, nil
	}

	form := url.Values{}
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_version", p.cfg.ClientVersion)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &Error{Provider: phonePeName, Op: "token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp phonePeTokenResponse
	if _, err := doJSON(p.httpClient, req, phonePeName, "token", &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &Error{Provider: phonePeName, Op: "token", Body: "response has no access_token"}
	}

	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = "O-Bearer"
	}

	p.token = resp.AccessToken
	p.tokenType = tokenType
	p.tokenExpiry = time.Time{}
	if resp.ExpiresAt > 0 {
		p.tokenExpiry = time.Unix(resp.ExpiresAt, 0)
	}

	return tokenType + " " + resp.AccessToken, nil
}

type phonePePayRequest struct {
	MerchantOrderID string            `json:"merchantOrderId"`
	Amount          int64             `json:"amount"`
	ExpireAfter     int64             `json:"expireAfter"`
	MetaInfo        map[string]string `json:"metaInfo,omitempty"`
	PaymentFlow     phonePePayFlow    `json:"paymentFlow"`
}

type phonePePayFlow struct {
	Type         string              `json:"type"`
	Message      string              `json:"message,omitempty"`
	MerchantUrls phonePeMerchantUrls `json:"merchantUrls"`
}

type phonePeMerchantUrls struct {
	RedirectURL string `json:"redirectUrl"`
}

type phonePePayResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	RedirectURL string `json:"redirectUrl"`
}

// CreateOrder opens a checkout session and returns the PhonePe redirect URL.
func (p *PhonePe) CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error) {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := phonePePayRequest{
		MerchantOrderID: req.OrderID,
		Amount:          req.AmountMinor,
		ExpireAfter:     int64(phonePeOrderExpiry.Seconds()),
		MetaInfo:        req.Notes,
		PaymentFlow: phonePePayFlow{
			Type:    "PG_CHECKOUT",
			Message: req.Description,
			MerchantUrls: phonePeMerchantUrls{
				RedirectURL: req.RedirectURL,
			},
		},
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, p.cfg.BaseURL+"/checkout/v2/pay", payload)
	if err != nil {
		return nil, &Error{Provider: phonePeName, Op: "create order", Err: err}
	}
	httpReq.Header.Set("Authorization", token)

	var resp phonePePayResponse
	raw, err := doJSON(p.httpClient, httpReq, phonePeName, "create order", &resp)
	if err != nil {
		return nil, err
	}
	if resp.RedirectURL == "" {
		return nil, &Error{Provider: phonePeName, Op: "create order", Body: "response has no redirectUrl"}
	}

	return &RemoteOrder{
		ProviderOrderID: resp.OrderID,
		RedirectURL:     resp.RedirectURL,
		Raw:             raw,
	}, nil
}

type phonePeStatusResponse struct {
	OrderID        string `json:"orderId"`
	State          string `json:"state"`
	Amount         int64  `json:"amount"`
	PaymentDetails []struct {
		TransactionID string `json:"transactionId"`
		State         string `json:"state"`
	} `json:"paymentDetails"`
}

// OrderStatus queries the state of a checkout by merchant order id.
func (p *PhonePe) OrderStatus(ctx context.Context, ref OrderRef) (*OrderStatus, error) {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/checkout/v2/order/%s/status", p.cfg.BaseURL, url.PathEscape(ref.OrderID))
	httpReq, err := newJSONRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Provider: phonePeName, Op: "order status", Err: err}
	}
	httpReq.Header.Set("Authorization", token)

	var resp phonePeStatusResponse
	raw, err := doJSON(p.httpClient, httpReq, phonePeName, "order status", &resp)
	if err != nil {
		return nil, err
	}
	if resp.State == "" {
		return nil, &Error{Provider: phonePeName, Op: "order status", Body: "response has no state"}
	}

	status := &OrderStatus{
		State: phonePeState(resp.State),
		Raw:   raw,
	}
	for _, detail := range resp.PaymentDetails {
		if detail.State == "COMPLETED" || status.PaymentID == "" {
			status.PaymentID = detail.TransactionID
		}
	}

	return status, nil
}

func phonePeState(state string) OrderState {
	switch state {
	case "COMPLETED":
		return OrderStateCompleted
	case "FAILED":
		return OrderStateFailed
	default:
		return OrderStatePending
	}
}

// Ensure PhonePe implements Gateway.
var _ Gateway = (*PhonePe)(nil)
