package app

import (
	"log"

	"github.com/newrelic/go-agent/v3/newrelic"

	"devalayaum/internal/config"
)

// NewNewRelic starts the New Relic agent when it is enabled and licensed.
// A nil application disables every instrumentation point.
func NewNewRelic(cfg config.NewRelicConfig) *newrelic.Application {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return nil
	}
	nrApp, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		log.Printf("failed to initialize New Relic: %v", err)
		return nil
	}
	log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.AppName)
	return nrApp
}
