package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"devalayaum/internal/app"
	internalRedis "devalayaum/internal/redis"
	"devalayaum/internal/service"
)

const sweepJobName = "sweep-stale-orders"

// sweepRunner runs one sweep under the cluster-wide job mutex.
type sweepRunner struct {
	payments  *service.PaymentService
	mutex     internalRedis.JobMutexInterface
	nrApp     *newrelic.Application
	staleAge  time.Duration
	batchSize int
	lockTTL   time.Duration
}

func newSweepRunner(e *env, staleAge time.Duration, batchSize int) (*sweepRunner, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid payment configuration: %w", err)
	}
	services, err := app.NewServices(e.cfg, e.db, e.redis)
	if err != nil {
		return nil, err
	}
	return &sweepRunner{
		payments:  services.Payments,
		mutex:     internalRedis.NewJobMutex(e.redis),
		nrApp:     e.nrApp,
		staleAge:  staleAge,
		batchSize: batchSize,
		lockTTL:   e.cfg.Sweep.LockTTL,
	}, nil
}

func (r *sweepRunner) run(ctx context.Context) (*service.SweepResult, error) {
	if r.nrApp != nil {
		txn := r.nrApp.StartTransaction(sweepJobName)
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	var result *service.SweepResult
	err := r.mutex.Run(ctx, sweepJobName, r.lockTTL, func(ctx context.Context) error {
		var err error
		result, err = r.payments.SweepStale(ctx, r.staleAge, r.batchSize)
		return err
	})
	if err != nil {
		if txn := newrelic.FromContext(ctx); txn != nil {
			txn.NoticeError(err)
		}
		return nil, err
	}
	return result, nil
}

func sweepCmd() *cobra.Command {
	var (
		staleAge  time.Duration
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile or expire stale created orders once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			if !cmd.Flags().Changed("older-than") {
				staleAge = e.cfg.Sweep.StaleAge
			}
			if !cmd.Flags().Changed("batch") {
				batchSize = e.cfg.Sweep.BatchSize
			}

			runner, err := newSweepRunner(e, staleAge, batchSize)
			if err != nil {
				return err
			}
			result, err := runner.run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d paid=%d expired=%d skipped=%d errors=%d\n",
				result.Scanned, result.Paid, result.Expired, result.Skipped, result.Errors)
			return nil
		},
	}

	cmd.Flags().DurationVar(&staleAge, "older-than", 0, "only sweep orders created before now minus this duration (default from SWEEP_STALE_AGE)")
	cmd.Flags().IntVar(&batchSize, "batch", 0, "maximum orders per run (default from SWEEP_BATCH_SIZE)")

	return cmd
}

func cronCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cron",
		Short: "Run the stale order sweep on its schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			runner, err := newSweepRunner(e, e.cfg.Sweep.StaleAge, e.cfg.Sweep.BatchSize)
			if err != nil {
				return err
			}

			scheduler := cron.New(cron.WithSeconds())
			_, err = scheduler.AddFunc(e.cfg.Sweep.Schedule, func() {
				log.Println("[CRON] Starting stale order sweep...")
				ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Sweep.LockTTL)
				defer cancel()

				result, err := runner.run(ctx)
				switch {
				case errors.Is(err, internalRedis.ErrLockHeld):
					log.Println("[CRON] Sweep already running elsewhere, skipping")
				case err != nil:
					log.Printf("[CRON] Error sweeping stale orders: %v", err)
				default:
					log.Printf("[CRON] Sweep finished: scanned=%d paid=%d expired=%d",
						result.Scanned, result.Paid, result.Expired)
				}
			})
			if err != nil {
				return fmt.Errorf("schedule sweep %q: %w", e.cfg.Sweep.Schedule, err)
			}

			scheduler.Start()
			log.Printf("[CRON] Sweep scheduled: %s (older than %s, batch %d)",
				e.cfg.Sweep.Schedule, e.cfg.Sweep.StaleAge, e.cfg.Sweep.BatchSize)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("Shutting down gracefully...")
			stopped := scheduler.Stop()
			select {
			case <-stopped.Done():
				log.Println("Cron jobs stopped gracefully")
			case <-time.After(5 * time.Second):
				log.Println("Cron jobs forced to stop after timeout")
			}
			return nil
		},
	}
}
