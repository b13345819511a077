package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"devalayaum/internal/domain"
)

const defaultSweepBatchSize = 100

// SweepResult counts what a sweep did with each stale order.
type SweepResult struct {
	Scanned int
	Paid    int
	Expired int
	Skipped int
	Errors  int
}

// SweepStale closes created orders older than olderThan. Orders the provider
// reports completed are settled; the rest are failed as expired. Orders whose
// status could not be fetched are left for the next run.
func (s *PaymentService) SweepStale(ctx context.Context, olderThan time.Duration, limit int) (*SweepResult, error) {
	if limit <= 0 {
		limit = defaultSweepBatchSize
	}
	cutoff := s.now().Add(-olderThan)

	payments, err := s.paymentRepo.ListStale(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale orders: %w", err)
	}

	result := &SweepResult{Scanned: len(payments)}
	for _, payment := range payments {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		verified, err := s.reconcile(ctx, payment)
		if err != nil {
			if IsGatewayError(err) || errors.Is(err, ErrGatewayNotConfigured) {
				log.Printf("[SWEEP] status check failed, leaving order %s: %v", payment.OrderID, err)
				result.Skipped++
				continue
			}
			if verified != nil && verified.Payment != nil && verified.Payment.Status == domain.PaymentStatusPaid {
				log.Printf("[SWEEP] order %s paid with side effect error: %v", payment.OrderID, err)
				result.Paid++
				result.Errors++
				continue
			}
			log.Printf("[SWEEP] order %s: %v", payment.OrderID, err)
			result.Errors++
			continue
		}

		if verified.Payment.Status == domain.PaymentStatusPaid {
			result.Paid++
			continue
		}
		if verified.Payment.Status != domain.PaymentStatusCreated {
			continue
		}

		if err := s.fail(ctx, payment, reasonExpired); err != nil {
			log.Printf("[SWEEP] expire order %s: %v", payment.OrderID, err)
			result.Errors++
			continue
		}
		result.Expired++
	}

	log.Printf("[SWEEP] scanned=%d paid=%d expired=%d skipped=%d errors=%d",
		result.Scanned, result.Paid, result.Expired, result.Skipped, result.Errors)
	return result, nil
}
