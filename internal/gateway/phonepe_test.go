package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devalayaum/internal/config"
)

type phonePeStub struct {
	tokenCalls  int32
	payBodies   []phonePePayRequest
	statusState string
	failToken   bool
	expiresAt   int64
}

func (s *phonePeStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.tokenCalls, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		if s.failToken {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"token_type":"O-Bearer"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "O-Bearer",
			"expires_at":   s.expiresAt,
		})
	})
	mux.HandleFunc("/checkout/v2/pay", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "O-Bearer tok", r.Header.Get("Authorization"))
		var body phonePePayRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		s.payBodies = append(s.payBodies, body)
		json.NewEncoder(w).Encode(map[string]any{
			"orderId":     "OMO123",
			"state":       "PENDING",
			"redirectUrl": "https://mercury.phonepe.com/transact/OMO123",
		})
	})
	mux.HandleFunc("/checkout/v2/order/PJ1/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"orderId": "OMO123",
			"state":   s.statusState,
			"paymentDetails": []map[string]any{
				{"transactionId": "T-failed", "state": "FAILED"},
				{"transactionId": "T-ok", "state": "COMPLETED"},
			},
		})
	})
	return mux
}

func newTestPhonePe(t *testing.T, stub *phonePeStub) *PhonePe {
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewPhonePe(config.PhonePeConfig{
		ClientID:      "cid",
		ClientSecret:  "secret",
		ClientVersion: "1",
		AuthURL:       srv.URL + "/oauth/token",
		BaseURL:       srv.URL,
	}, srv.Client())
	require.NoError(t, err)
	return client
}

func TestNewPhonePe_RequiresCredentials(t *testing.T) {
	_, err := NewPhonePe(config.PhonePeConfig{ClientID: "cid"}, nil)
	assert.Error(t, err)
}

func TestPhonePe_CreateOrder(t *testing.T) {
	stub := &phonePeStub{expiresAt: time.Now().Add(time.Hour).Unix()}
	client := newTestPhonePe(t, stub)

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		OrderID:     "PJ1",
		AmountMinor: ToMinorUnits(100),
		RedirectURL: "https://devalayaum.in/payment-status?orderId=PJ1",
	})
	require.NoError(t, err)

	assert.Equal(t, "OMO123", order.ProviderOrderID)
	assert.Equal(t, "https://mercury.phonepe.com/transact/OMO123", order.RedirectURL)
	require.Len(t, stub.payBodies, 1)
	assert.Equal(t, int64(10000), stub.payBodies[0].Amount)
	assert.Equal(t, "PJ1", stub.payBodies[0].MerchantOrderID)
	assert.Equal(t, "PG_CHECKOUT", stub.payBodies[0].PaymentFlow.Type)
}

func TestPhonePe_TokenIsCachedUntilExpiry(t *testing.T) {
	stub := &phonePeStub{expiresAt: time.Now().Add(time.Hour).Unix()}
	client := newTestPhonePe(t, stub)
	ctx := context.Background()

	_, err := client.AccessToken(ctx)
	require.NoError(t, err)
	_, err = client.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.tokenCalls))

	client.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = client.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.tokenCalls))
}

func TestPhonePe_MissingAccessTokenIsGatewayError(t *testing.T) {
	client := newTestPhonePe(t, &phonePeStub{failToken: true})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{OrderID: "PJ1", AmountMinor: 100})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGateway))
}

func TestPhonePe_OrderStatus(t *testing.T) {
	cases := []struct {
		state string
		want  OrderState
	}{
		{"COMPLETED", OrderStateCompleted},
		{"PENDING", OrderStatePending},
		{"FAILED", OrderStateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			stub := &phonePeStub{statusState: tc.state, expiresAt: time.Now().Add(time.Hour).Unix()}
			client := newTestPhonePe(t, stub)

			status, err := client.OrderStatus(context.Background(), OrderRef{OrderID: "PJ1"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, status.State)
			assert.Equal(t, "T-ok", status.PaymentID)
			assert.NotEmpty(t, status.Raw)
		})
	}
}

func TestPhonePe_Non2xxIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"UNAUTHORIZED"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewPhonePe(config.PhonePeConfig{
		ClientID: "cid", ClientSecret: "s", ClientVersion: "1",
		AuthURL: srv.URL + "/oauth/token", BaseURL: srv.URL,
	}, srv.Client())
	require.NoError(t, err)

	_, err = client.OrderStatus(context.Background(), OrderRef{OrderID: "PJ1"})
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusUnauthorized, gwErr.StatusCode)
	assert.Equal(t, "token", gwErr.Op)
	assert.Contains(t, gwErr.Body, "UNAUTHORIZED")
}
