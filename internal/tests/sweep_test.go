package tests

import (
	"context"
	"testing"
	"time"

	"devalayaum/internal/domain"
	"devalayaum/internal/gateway"
)

// ──────────────────────────────────────────────
// 5. STALE ORDER SWEEP
// ──────────────────────────────────────────────

func addStalePayment(h *paymentHarness, orderID string, age time.Duration) {
	h.payments.AddPayment(&domain.PaymentRecord{
		ID:              "id-" + orderID,
		Domain:          domain.PaymentDomainDonation,
		EntityID:        "cause-annadanam",
		OrderID:         orderID,
		ProviderOrderID: "prov_" + orderID,
		Provider:        "mockpay",
		PayerName:       "Asha",
		PayerContact:    "9998887776",
		Amount:          501,
		Currency:        "INR",
		Status:          domain.PaymentStatusCreated,
		CreatedAt:       time.Now().Add(-age),
		UpdatedAt:       time.Now().Add(-age),
	})
}

func TestSweep_SettlesCompletedAndExpiresTheRest(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	addStalePayment(h, "DN-done", 2*time.Hour)
	addStalePayment(h, "DN-abandoned", 3*time.Hour)
	addStalePayment(h, "DN-fresh", time.Minute)
	h.gateway.SetStatus("DN-done", gateway.OrderStateCompleted, "T100")

	result, err := h.service.SweepStale(context.Background(), 30*time.Minute, 10)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Scanned != 2 || result.Paid != 1 || result.Expired != 1 || result.Skipped != 0 {
		t.Errorf("unexpected sweep result: %+v", result)
	}

	if got := h.payments.Get("DN-done").Status; got != domain.PaymentStatusPaid {
		t.Errorf("expected DN-done paid, got %s", got)
	}
	abandoned := h.payments.Get("DN-abandoned")
	if abandoned.Status != domain.PaymentStatusFailed || abandoned.FailureReason != "expired" {
		t.Errorf("expected DN-abandoned failed as expired, got %s (%s)", abandoned.Status, abandoned.FailureReason)
	}
	if got := h.payments.Get("DN-fresh").Status; got != domain.PaymentStatusCreated {
		t.Errorf("expected DN-fresh untouched, got %s", got)
	}
	if n := len(h.donors.All()); n != 1 {
		t.Errorf("expected 1 donor record from the settled order, got %d", n)
	}
}

func TestSweep_GatewayError_LeavesOrderCreated(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	addStalePayment(h, "DN-unknown", 2*time.Hour)
	h.gateway.StatusError = &gateway.Error{Provider: "mockpay", Op: "status", StatusCode: 502}

	result, err := h.service.SweepStale(context.Background(), 30*time.Minute, 10)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Skipped != 1 || result.Expired != 0 {
		t.Errorf("unexpected sweep result: %+v", result)
	}
	if got := h.payments.Get("DN-unknown").Status; got != domain.PaymentStatusCreated {
		t.Errorf("expected order to stay created, got %s", got)
	}
}

func TestSweep_RespectsBatchLimit(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	for i, id := range []string{"DN-a", "DN-b", "DN-c"} {
		addStalePayment(h, id, time.Duration(i+2)*time.Hour)
	}

	result, err := h.service.SweepStale(context.Background(), time.Hour, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Scanned != 2 {
		t.Errorf("expected 2 scanned, got %d", result.Scanned)
	}
	// Oldest first.
	if got := h.payments.Get("DN-a").Status; got != domain.PaymentStatusCreated {
		t.Errorf("expected the newest stale order to wait for the next run, got %s", got)
	}
}

func TestSweep_CancelledContext_Stops(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	addStalePayment(h, "DN-x", 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.service.SweepStale(ctx, time.Hour, 10)
	if err == nil {
		t.Fatal("expected context error")
	}
	if got := h.payments.Get("DN-x").Status; got != domain.PaymentStatusCreated {
		t.Errorf("expected order untouched, got %s", got)
	}
}
