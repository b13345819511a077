package app

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"devalayaum/internal/config"
	"devalayaum/internal/domain"
	"devalayaum/internal/gateway"
	internalRedis "devalayaum/internal/redis"
	"devalayaum/internal/repository/postgres"
	"devalayaum/internal/service"
)

// Services holds the wired service layer shared by the server and paymentctl.
type Services struct {
	Payments *service.PaymentService
	Donors   *service.DonorService
	Bookings *service.BookingService
	Catalog  *service.CatalogService
}

// NewGateways builds one gateway client per payment domain. Domains that
// share a provider share its client, and with it the token cache.
func NewGateways(cfg *config.Config) (map[domain.PaymentDomain]gateway.Gateway, error) {
	clients := make(map[string]gateway.Gateway)
	gateways := make(map[domain.PaymentDomain]gateway.Gateway, len(domain.PaymentDomains))

	for _, paymentDomain := range domain.PaymentDomains {
		provider := cfg.Payments.Providers[string(paymentDomain)]
		gw, ok := clients[provider]
		if !ok {
			var err error
			switch provider {
			case config.ProviderPhonePe:
				gw, err = gateway.NewPhonePe(cfg.PhonePe, gateway.NewHTTPClient(cfg.PhonePe.Timeout))
			case config.ProviderRazorpay:
				gw, err = gateway.NewRazorpay(cfg.Razorpay, gateway.NewHTTPClient(cfg.Razorpay.Timeout))
			default:
				err = fmt.Errorf("unknown provider %q", provider)
			}
			if err != nil {
				return nil, fmt.Errorf("%s gateway: %w", paymentDomain, err)
			}
			clients[provider] = gw
		}
		gateways[paymentDomain] = gw
	}
	return gateways, nil
}

// NewServices wires repositories, Redis stores and gateways into services.
func NewServices(cfg *config.Config, db *sql.DB, redisClient *redis.Client) (*Services, error) {
	gateways, err := NewGateways(cfg)
	if err != nil {
		return nil, err
	}

	orderIDs, err := service.NewOrderIDGenerator(cfg.Payments.NodeID)
	if err != nil {
		return nil, err
	}

	// Initialize repositories.
	paymentRepo := postgres.NewPaymentRepository(db)
	donorRepo := postgres.NewDonorRepository(db)
	donationRepo := postgres.NewDonationRepository(db)
	productRepo := postgres.NewProductRepository(db)
	pujaRepo := postgres.NewPujaRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)

	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize services.
	notificationService := service.NewNotificationService()
	receiptService := service.NewReceiptService(notificationService)

	paymentService := service.NewPaymentService(service.PaymentDeps{
		Payments: paymentRepo,
		Donors:   donorRepo,
		Descriptors: []service.Descriptor{
			service.NewDonationDescriptor(donationRepo),
			service.NewProductDescriptor(productRepo),
			service.NewBookingDescriptor(bookingRepo),
		},
		Gateways:      gateways,
		OrderIDs:      orderIDs,
		Locks:         lockStore,
		Cache:         cacheStore,
		Receipts:      receiptService,
		Notifications: notificationService,
		Settings: service.PaymentSettings{
			SigningSecret:   cfg.Payments.SigningSecret,
			FrontendBaseURL: cfg.Payments.FrontendBaseURL,
			Currency:        cfg.Payments.Currency,
		},
	})

	return &Services{
		Payments: paymentService,
		Donors:   service.NewDonorService(donorRepo, cacheStore),
		Bookings: service.NewBookingService(bookingRepo, pujaRepo),
		Catalog:  service.NewCatalogService(donationRepo, productRepo, pujaRepo),
	}, nil
}
