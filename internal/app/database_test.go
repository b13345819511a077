package app

import (
	"testing"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/stretchr/testify/assert"

	"devalayaum/internal/config"
)

func TestDriverName(t *testing.T) {
	assert.Equal(t, "postgres", driverName(nil))
	assert.Equal(t, "nrpostgres", driverName(&newrelic.Application{}))
}

func TestPoolSettings(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.DatabaseConfig
		want pool
	}{
		{"defaults", config.DatabaseConfig{}, pool{maxOpen: 25, maxIdle: 10, maxLifetime: 30 * time.Minute}},
		{"configured", config.DatabaseConfig{MaxOpenConns: 40, MaxIdleConns: 20, ConnMaxLifetime: time.Hour},
			pool{maxOpen: 40, maxIdle: 20, maxLifetime: time.Hour}},
		{"idle capped at open", config.DatabaseConfig{MaxOpenConns: 4, MaxIdleConns: 10},
			pool{maxOpen: 4, maxIdle: 4, maxLifetime: 30 * time.Minute}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, poolSettings(tc.cfg))
		})
	}
}
