package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq" // Registers "nrpostgres" driver
	"github.com/newrelic/go-agent/v3/newrelic"

	"devalayaum/internal/config"
)

// ErrSchemaMissing is returned when the payment tables have not been created.
var ErrSchemaMissing = errors.New("payment schema missing, run `paymentctl migrate`")

// requiredTables are the tables the payment lifecycle reads and writes.
var requiredTables = []string{
	"payment_records",
	"donor_records",
	"puja_bookings",
	"donations",
	"products",
	"pujas",
}

// NewDatabase opens the payment record store.
// With nrApp set, the nrpostgres driver traces every query.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application) (*sql.DB, error) {
	db, err := sql.Open(driverName(nrApp), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool := poolSettings(cfg)
	db.SetMaxOpenConns(pool.maxOpen)
	db.SetMaxIdleConns(pool.maxIdle)
	db.SetConnMaxLifetime(pool.maxLifetime)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// CheckSchema fails fast when the payment tables are missing, instead of
// every create-order failing later with a relation error.
func CheckSchema(ctx context.Context, db *sql.DB) error {
	var missing []string
	for _, table := range requiredTables {
		var exists bool
		if err := db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !exists {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, strings.Join(missing, ", "))
	}
	return nil
}

func driverName(nrApp *newrelic.Application) string {
	if nrApp != nil {
		return "nrpostgres"
	}
	return "postgres"
}

type pool struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// poolSettings fills unset pool fields and keeps idle connections within
// the open limit.
func poolSettings(cfg config.DatabaseConfig) pool {
	p := pool{maxOpen: cfg.MaxOpenConns, maxIdle: cfg.MaxIdleConns, maxLifetime: cfg.ConnMaxLifetime}
	if p.maxOpen <= 0 {
		p.maxOpen = 25
	}
	if p.maxIdle <= 0 {
		p.maxIdle = 10
	}
	if p.maxIdle > p.maxOpen {
		p.maxIdle = p.maxOpen
	}
	if p.maxLifetime <= 0 {
		p.maxLifetime = 30 * time.Minute
	}
	return p
}
