package tests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"devalayaum/internal/domain"
	"devalayaum/internal/repository"
	"devalayaum/internal/service"
)

// ──────────────────────────────────────────────
// 1. ORDER CREATION
// ──────────────────────────────────────────────

func TestCreateOrder_Donation_PersistsCreatedRecord(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	resp, err := h.service.CreateOrder(context.Background(), ashaDonation())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if h.payments.Count() != 1 {
		t.Fatalf("expected exactly 1 payment record, got %d", h.payments.Count())
	}

	record := h.payments.Get(resp.OrderID)
	if record == nil {
		t.Fatal("expected record to be stored under the returned order id")
	}
	if record.Status != domain.PaymentStatusCreated {
		t.Errorf("expected status created, got %s", record.Status)
	}
	if record.Amount != 501 {
		t.Errorf("expected amount 501, got %d", record.Amount)
	}
	if record.Currency != "INR" {
		t.Errorf("expected currency INR, got %s", record.Currency)
	}
	if record.PayerName != "Asha" || record.PayerContact != "9998887776" {
		t.Errorf("unexpected payer: %s / %s", record.PayerName, record.PayerContact)
	}
	if record.ProviderOrderID != "prov_"+resp.OrderID {
		t.Errorf("expected provider order id to be attached, got %q", record.ProviderOrderID)
	}
	if !strings.HasPrefix(resp.OrderID, "DN") {
		t.Errorf("expected donation order id prefix DN, got %s", resp.OrderID)
	}
	if resp.Provider != "mockpay" {
		t.Errorf("expected provider mockpay, got %s", resp.Provider)
	}
	if resp.RedirectURL == "" {
		t.Error("expected redirect url from gateway")
	}
}

func TestCreateOrder_SendsMinorUnitsToGateway(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	req := ashaDonation()
	req.Amount = 101

	resp, err := h.service.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	requests := h.gateway.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one gateway call, got %d", len(requests))
	}
	if requests[0].AmountMinor != 10100 {
		t.Errorf("expected 10100 minor units, got %d", requests[0].AmountMinor)
	}
	if h.payments.Get(resp.OrderID).Amount != 101 {
		t.Errorf("expected record to keep major units")
	}

	wantRedirect := "https://devalayaum.example/payment-status?domain=donation&orderId=" + resp.OrderID
	if requests[0].RedirectURL != wantRedirect {
		t.Errorf("expected redirect %s, got %s", wantRedirect, requests[0].RedirectURL)
	}
}

func TestCreateOrder_AmountOfHundred_IsTenThousandMinor(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	h.products.AddProduct(&domain.Product{ID: "prod-100", Name: "Prasad", Price: 100, Active: true})

	resp, err := h.service.CreateOrder(context.Background(), service.CreateOrderRequest{
		Domain:       domain.PaymentDomainProduct,
		EntityID:     "prod-100",
		PayerName:    "Meera",
		PayerContact: "9000000001",
		Amount:       100,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got := h.gateway.Requests()[0].AmountMinor; got != 10000 {
		t.Errorf("expected 10000 minor units, got %d", got)
	}
	if resp.Amount != 100 {
		t.Errorf("expected response amount 100, got %d", resp.Amount)
	}
}

func TestCreateOrder_InvalidInput_Rejected(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(r *service.CreateOrderRequest)
		wantErr error
	}{
		{"unknown domain", func(r *service.CreateOrderRequest) { r.Domain = "temple" }, service.ErrUnknownDomain},
		{"missing entity", func(r *service.CreateOrderRequest) { r.EntityID = " " }, service.ErrInvalidEntityID},
		{"missing payer name", func(r *service.CreateOrderRequest) { r.PayerName = "" }, service.ErrInvalidPayer},
		{"missing contact", func(r *service.CreateOrderRequest) { r.PayerContact = "" }, service.ErrInvalidPayer},
		{"negative amount", func(r *service.CreateOrderRequest) { r.Amount = -5 }, service.ErrInvalidAmount},
		{"zero donation", func(r *service.CreateOrderRequest) { r.Amount = 0 }, service.ErrInvalidAmount},
		{"below minimum", func(r *service.CreateOrderRequest) { r.Amount = 100 }, service.ErrAmountBelowMinimum},
		{"above order limit", func(r *service.CreateOrderRequest) { r.Amount = service.MaxOrderAmount + 1 }, service.ErrAmountTooLarge},
		{"quantity above cap", func(r *service.CreateOrderRequest) { r.Quantity = service.MaxQuantity + 1 }, service.ErrInvalidQuantity},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newPaymentHarness(t)

			req := ashaDonation()
			tc.mutate(&req)

			_, err := h.service.CreateOrder(context.Background(), req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, service.ErrInvalidRequest) {
				t.Errorf("expected error in the invalid request family, got %v", err)
			}
			if h.payments.Count() != 0 {
				t.Errorf("expected no record on invalid input, got %d", h.payments.Count())
			}
			if h.gateway.CreateCallCount != 0 {
				t.Errorf("expected no gateway call on invalid input")
			}
		})
	}
}

func TestCreateOrder_UnknownEntity_NotFound(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	req := ashaDonation()
	req.EntityID = "cause-missing"

	_, err := h.service.CreateOrder(context.Background(), req)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if h.payments.Count() != 0 {
		t.Errorf("expected no record, got %d", h.payments.Count())
	}
}

func TestCreateOrder_InactiveCause_Conflict(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	req := ashaDonation()
	req.EntityID = "cause-closed"

	_, err := h.service.CreateOrder(context.Background(), req)
	if !errors.Is(err, service.ErrOrderConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateOrder_Product_PriceTimesQuantity(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	resp, err := h.service.CreateOrder(context.Background(), service.CreateOrderRequest{
		Domain:       domain.PaymentDomainProduct,
		EntityID:     "prod-diya",
		PayerName:    "Meera",
		PayerContact: "9000000001",
		Quantity:     3,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.Amount != 750 {
		t.Errorf("expected 750, got %d", resp.Amount)
	}
	if !strings.HasPrefix(resp.OrderID, "PR") {
		t.Errorf("expected product prefix PR, got %s", resp.OrderID)
	}
}

func TestCreateOrder_Product_MismatchedAmount_Rejected(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	_, err := h.service.CreateOrder(context.Background(), service.CreateOrderRequest{
		Domain:       domain.PaymentDomainProduct,
		EntityID:     "prod-diya",
		PayerName:    "Meera",
		PayerContact: "9000000001",
		Amount:       1,
	})
	if !errors.Is(err, service.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestCreateOrder_Booking_UsesBookingAmount(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	resp, err := h.service.CreateOrder(context.Background(), service.CreateOrderRequest{
		Domain:       domain.PaymentDomainPuja,
		EntityID:     "booking-1",
		PayerName:    "Ravi",
		PayerContact: "9990001112",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.Amount != 1100 {
		t.Errorf("expected booking amount 1100, got %d", resp.Amount)
	}
}

func TestCreateOrder_Booking_AlreadyPaid_Conflict(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	h.bookings.AddBooking(&domain.PujaBooking{
		ID:      "booking-paid",
		Amount:  500,
		Status:  domain.BookingStatusConfirmed,
		Payment: domain.BookingPayment{Paid: true, TxnID: "T1", AmountPaid: 500},
	})

	_, err := h.service.CreateOrder(context.Background(), service.CreateOrderRequest{
		Domain:       domain.PaymentDomainPuja,
		EntityID:     "booking-paid",
		PayerName:    "Ravi",
		PayerContact: "9990001112",
	})
	if !errors.Is(err, service.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestCreateOrder_GatewayFailure_RecordStaysCreated(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	h.gateway.CreateError = errors.New("connection refused")

	_, err := h.service.CreateOrder(context.Background(), ashaDonation())
	if !errors.Is(err, service.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}

	if h.payments.Count() != 1 {
		t.Fatalf("expected the created record to remain, got %d records", h.payments.Count())
	}
	stale, _ := h.payments.ListStale(context.Background(), farFuture(), 10)
	if len(stale) != 1 || stale[0].Status != domain.PaymentStatusCreated {
		t.Errorf("expected one record left in created state")
	}
}

func TestCreateOrder_ConcurrentOrders_AreDistinct(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	const n = 50
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.service.CreateOrder(context.Background(), ashaDonation())
			if err != nil {
				t.Errorf("create order failed: %v", err)
				return
			}
			ids <- resp.OrderID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate order id %s", id)
		}
		seen[id] = true
	}
	if h.payments.Count() != n {
		t.Errorf("expected %d records, got %d", n, h.payments.Count())
	}
}
