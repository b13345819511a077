package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"devalayaum/internal/domain"
	"devalayaum/internal/gateway"
	"devalayaum/internal/repository"
	"devalayaum/internal/service"
)

// ──────────────────────────────────────────────
// 4. PROVIDER WEBHOOKS
// ──────────────────────────────────────────────

func createBookingOrder(t *testing.T, h *paymentHarness) *service.CreateOrderResponse {
	t.Helper()
	resp, err := h.service.CreateOrder(context.Background(), service.CreateOrderRequest{
		Domain:       domain.PaymentDomainPuja,
		EntityID:     "booking-1",
		PayerName:    "Ravi",
		PayerContact: "9990001112",
	})
	if err != nil {
		t.Fatalf("failed to create booking order: %v", err)
	}
	return resp
}

func TestCallback_Completed_ConfirmsBookingOnce(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	order := createBookingOrder(t, h)
	h.gateway.SetStatus(order.OrderID, gateway.OrderStateCompleted, "T9001")

	payload := service.CallbackPayload{OrderID: order.OrderID, State: "COMPLETED", PaymentID: "T9001"}
	for i := 0; i < 2; i++ {
		result, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainPuja, payload)
		if err != nil {
			t.Fatalf("delivery #%d: expected no error, got: %v", i+1, err)
		}
		if result.Payment.Status != domain.PaymentStatusPaid {
			t.Errorf("delivery #%d: expected paid, got %s", i+1, result.Payment.Status)
		}
	}

	if n := len(h.donors.All()); n != 1 {
		t.Errorf("expected exactly 1 donor record, got %d", n)
	}
	if h.bookings.ConfirmCallCount != 1 {
		t.Errorf("expected booking confirmed once, got %d", h.bookings.ConfirmCallCount)
	}

	booking, err := h.bookings.GetByID(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("failed to load booking: %v", err)
	}
	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("expected booking confirmed, got %s", booking.Status)
	}
	if !booking.Payment.Paid || booking.Payment.TxnID != "T9001" || booking.Payment.AmountPaid != 1100 {
		t.Errorf("unexpected booking payment: %+v", booking.Payment)
	}
	if h.locks.AcquireCallCount != 1 {
		t.Errorf("expected the lock to be taken only for the unsettled delivery, got %d", h.locks.AcquireCallCount)
	}
}

func TestCallback_ConcurrentDeliveries_OneTransition(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	order := createBookingOrder(t, h)
	h.gateway.SetStatus(order.OrderID, gateway.OrderStateCompleted, "T9002")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainPuja,
				service.CallbackPayload{OrderID: order.OrderID, State: "COMPLETED"})
			if err != nil {
				t.Errorf("callback failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if h.payments.PaidTransitions != 1 {
		t.Errorf("expected exactly 1 paid transition, got %d", h.payments.PaidTransitions)
	}
	if h.bookings.ConfirmCallCount != 1 {
		t.Errorf("expected booking confirmed once, got %d", h.bookings.ConfirmCallCount)
	}
}

func TestCallback_Pending_NoTransition(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	order := createBookingOrder(t, h)

	result, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainPuja,
		service.CallbackPayload{OrderID: order.OrderID, State: "PENDING"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Payment.Status != domain.PaymentStatusCreated {
		t.Errorf("expected created, got %s", result.Payment.Status)
	}
	if h.bookings.ConfirmCallCount != 0 {
		t.Error("expected no booking confirmation for a pending order")
	}
}

func TestCallback_ReportedStateIsNotTrusted(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	order := createBookingOrder(t, h)

	// Payload claims completion but the provider still reports pending.
	result, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainPuja,
		service.CallbackPayload{OrderID: order.OrderID, State: "COMPLETED", PaymentID: "forged"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Payment.Status != domain.PaymentStatusCreated {
		t.Errorf("expected created, got %s", result.Payment.Status)
	}
	if h.gateway.StatusCallCount != 1 {
		t.Errorf("expected provider to be queried once, got %d", h.gateway.StatusCallCount)
	}
}

func TestCallback_LockHeld_Skipped(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	order := createBookingOrder(t, h)
	h.gateway.SetStatus(order.OrderID, gateway.OrderStateCompleted, "T9003")
	h.locks.Hold(order.OrderID)

	result, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainPuja,
		service.CallbackPayload{OrderID: order.OrderID, State: "COMPLETED"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Payment.Status != domain.PaymentStatusCreated {
		t.Errorf("expected record untouched, got %s", result.Payment.Status)
	}
	if h.gateway.StatusCallCount != 0 {
		t.Error("expected no provider query while another delivery holds the lock")
	}
}

func TestCallback_BookingDeleted_PaymentStaysPaid(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	order := createBookingOrder(t, h)
	h.bookings.Delete("booking-1")
	h.gateway.SetStatus(order.OrderID, gateway.OrderStateCompleted, "T9004")

	_, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainPuja,
		service.CallbackPayload{OrderID: order.OrderID, State: "COMPLETED"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from the booking update, got %v", err)
	}

	if h.payments.Get(order.OrderID).Status != domain.PaymentStatusPaid {
		t.Error("expected the payment to stay paid")
	}
	donors := h.donors.All()
	if len(donors) != 1 {
		t.Fatalf("expected a donor record even without the booking, got %d", len(donors))
	}
	if donors[0].TempleName != "" {
		t.Errorf("expected empty temple name, got %q", donors[0].TempleName)
	}
}

func TestCallback_BookingConfirmFails_RepairedOnNextDelivery(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	order := createBookingOrder(t, h)
	h.gateway.SetStatus(order.OrderID, gateway.OrderStateCompleted, "T9005")
	payload := service.CallbackPayload{OrderID: order.OrderID, State: "COMPLETED"}

	h.bookings.ConfirmError = errors.New("db blip")
	if _, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainPuja, payload); err == nil {
		t.Fatal("expected the booking update error to surface")
	}
	booking, _ := h.bookings.GetByID(context.Background(), "booking-1")
	if booking.Payment.Paid {
		t.Fatal("expected the booking to be unconfirmed after the failed write")
	}

	h.bookings.ConfirmError = nil
	result, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainPuja, payload)
	if err != nil {
		t.Fatalf("redelivery: expected no error, got: %v", err)
	}
	if result.Payment.Status != domain.PaymentStatusPaid {
		t.Errorf("expected paid, got %s", result.Payment.Status)
	}

	booking, _ = h.bookings.GetByID(context.Background(), "booking-1")
	if booking.Status != domain.BookingStatusConfirmed || !booking.Payment.Paid || booking.Payment.TxnID != "T9005" {
		t.Errorf("expected the booking to be confirmed on redelivery, got %+v", booking)
	}
	if h.bookings.ConfirmCallCount != 2 {
		t.Errorf("expected one failed and one repaired confirmation, got %d", h.bookings.ConfirmCallCount)
	}
	if n := len(h.donors.All()); n != 1 {
		t.Errorf("expected exactly 1 donor record, got %d", n)
	}
	if h.payments.PaidTransitions != 1 {
		t.Errorf("expected exactly 1 paid transition, got %d", h.payments.PaidTransitions)
	}
}

func TestCallback_UnknownOrder_NotFound(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)

	_, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainDonation,
		service.CallbackPayload{OrderID: "DN-missing", State: "COMPLETED"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCallback_ProviderOrderID_Resolves(t *testing.T) {
	t.Parallel()
	h := newPaymentHarness(t)
	order := createAshaOrder(t, h)
	h.gateway.SetStatus(order.OrderID, gateway.OrderStateCompleted, "pay_razor")

	result, err := h.service.HandleCallback(context.Background(), domain.PaymentDomainDonation,
		service.CallbackPayload{OrderID: order.ProviderOrderID, State: "captured"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Payment.OrderID != order.OrderID || result.Payment.Status != domain.PaymentStatusPaid {
		t.Errorf("expected order %s paid, got %s %s", order.OrderID, result.Payment.OrderID, result.Payment.Status)
	}
}
