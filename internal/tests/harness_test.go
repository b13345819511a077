package tests

import (
	"testing"
	"time"

	"devalayaum/internal/domain"
	"devalayaum/internal/gateway"
	"devalayaum/internal/service"
)

const testSigningSecret = "test-signing-secret"

// paymentHarness wires a PaymentService to in-memory collaborators.
type paymentHarness struct {
	payments  *MockPaymentRepository
	donors    *MockDonorRepository
	donations *MockDonationRepository
	products  *MockProductRepository
	bookings  *MockBookingRepository
	gateway   *MockGateway
	locks     *MockLockStore
	cache     *MockDonorCache
	service   *service.PaymentService
}

func newPaymentHarness(t *testing.T) *paymentHarness {
	t.Helper()

	h := &paymentHarness{
		payments:  NewMockPaymentRepository(),
		donors:    NewMockDonorRepository(),
		donations: NewMockDonationRepository(),
		products:  NewMockProductRepository(),
		bookings:  NewMockBookingRepository(),
		gateway:   NewMockGateway("mockpay"),
		locks:     NewMockLockStore(),
		cache:     NewMockDonorCache(),
	}

	orderIDs, err := service.NewOrderIDGenerator(7)
	if err != nil {
		t.Fatalf("failed to create order id generator: %v", err)
	}

	notifications := service.NewNotificationService()
	h.service = service.NewPaymentService(service.PaymentDeps{
		Payments: h.payments,
		Donors:   h.donors,
		Descriptors: []service.Descriptor{
			service.NewDonationDescriptor(h.donations),
			service.NewProductDescriptor(h.products),
			service.NewBookingDescriptor(h.bookings),
		},
		Gateways: map[domain.PaymentDomain]gateway.Gateway{
			domain.PaymentDomainDonation: h.gateway,
			domain.PaymentDomainProduct:  h.gateway,
			domain.PaymentDomainPuja:     h.gateway,
		},
		OrderIDs:      orderIDs,
		Locks:         h.locks,
		Cache:         h.cache,
		Receipts:      service.NewReceiptService(notifications),
		Notifications: notifications,
		Settings: service.PaymentSettings{
			SigningSecret:   testSigningSecret,
			FrontendBaseURL: "https://devalayaum.example",
		},
	})

	h.donations.AddDonation(&domain.Donation{
		ID:         "cause-annadanam",
		Title:      "Annadanam",
		TempleName: "Sri Venkateswara Temple",
		MinAmount:  101,
		Active:     true,
	})
	h.donations.AddDonation(&domain.Donation{
		ID:         "cause-closed",
		Title:      "Old Roof Fund",
		TempleName: "Sri Venkateswara Temple",
		MinAmount:  1,
		Active:     false,
	})
	h.products.AddProduct(&domain.Product{
		ID:         "prod-diya",
		Name:       "Brass Diya",
		TempleName: "Meenakshi Temple",
		Price:      250,
		Active:     true,
	})
	h.bookings.AddBooking(&domain.PujaBooking{
		ID:          "booking-1",
		PujaID:      "puja-abhishekam",
		PujaName:    "Abhishekam",
		TempleName:  "Kashi Vishwanath",
		DevoteeName: "Ravi",
		Contact:     "9990001112",
		PujaDate:    time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		Amount:      1100,
		Status:      domain.BookingStatusPending,
	})

	return h
}

// ashaDonation is the reference ₹501 donation request.
func ashaDonation() service.CreateOrderRequest {
	return service.CreateOrderRequest{
		Domain:       domain.PaymentDomainDonation,
		EntityID:     "cause-annadanam",
		PayerName:    "Asha",
		PayerContact: "9998887776",
		Amount:       501,
	}
}

func farFuture() time.Time {
	return time.Now().Add(24 * time.Hour)
}
