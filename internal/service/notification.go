package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"devalayaum/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationPaymentSuccess   NotificationType = "PAYMENT_SUCCESS"
	NotificationPaymentFailed    NotificationType = "PAYMENT_FAILED"
	NotificationReceiptReady     NotificationType = "RECEIPT_READY"
	NotificationBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // payer contact
	Email       string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService hands payer notices to the delivery channel.
// E-mail delivery is an external collaborator; notices are logged here.
type NotificationService struct {
	now func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{now: time.Now}
}

// NotifyPaymentSuccess tells the payer their payment went through.
func (s *NotificationService) NotifyPaymentSuccess(ctx context.Context, payment *domain.PaymentRecord) error {
	notification := Notification{
		Type:        NotificationPaymentSuccess,
		RecipientID: payment.PayerContact,
		Email:       payment.PayerEmail,
		Title:       "Payment Successful",
		Message:     fmt.Sprintf("Your payment of %s %d for order %s was successful", payment.Currency, payment.Amount, payment.OrderID),
		Data: map[string]interface{}{
			"order_id":   payment.OrderID,
			"domain":     payment.Domain,
			"payment_id": payment.ProviderPaymentID,
			"amount":     payment.Amount,
		},
		CreatedAt: s.now(),
	}
	return s.send(ctx, notification)
}

// NotifyPaymentFailed tells the payer their payment did not go through.
func (s *NotificationService) NotifyPaymentFailed(ctx context.Context, payment *domain.PaymentRecord, reason string) error {
	notification := Notification{
		Type:        NotificationPaymentFailed,
		RecipientID: payment.PayerContact,
		Email:       payment.PayerEmail,
		Title:       "Payment Failed",
		Message:     fmt.Sprintf("Your payment for order %s could not be completed. Please contact support with your order id.", payment.OrderID),
		Data: map[string]interface{}{
			"order_id": payment.OrderID,
			"domain":   payment.Domain,
			"reason":   reason,
		},
		CreatedAt: s.now(),
	}
	return s.send(ctx, notification)
}

// NotifyReceiptReady sends the formatted donor receipt.
func (s *NotificationService) NotifyReceiptReady(ctx context.Context, donor *domain.DonorRecord, email, body string) error {
	notification := Notification{
		Type:        NotificationReceiptReady,
		RecipientID: donor.Contact,
		Email:       email,
		Title:       "Your receipt from " + donor.TempleName,
		Message:     body,
		Data: map[string]interface{}{
			"order_id": donor.OrderID,
			"amount":   donor.Amount,
		},
		CreatedAt: s.now(),
	}
	return s.send(ctx, notification)
}

// NotifyBookingConfirmed tells the devotee their puja booking is confirmed.
func (s *NotificationService) NotifyBookingConfirmed(ctx context.Context, payment *domain.PaymentRecord) error {
	notification := Notification{
		Type:        NotificationBookingConfirmed,
		RecipientID: payment.PayerContact,
		Email:       payment.PayerEmail,
		Title:       "Puja Booking Confirmed",
		Message:     fmt.Sprintf("Your puja booking %s is confirmed", payment.EntityID),
		Data: map[string]interface{}{
			"booking_id": payment.EntityID,
			"order_id":   payment.OrderID,
		},
		CreatedAt: s.now(),
	}
	return s.send(ctx, notification)
}

// send delivers a notification.
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)

	return nil
}
