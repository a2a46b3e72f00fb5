package monitoring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

// NewRelicApp wraps the New Relic application
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return &NewRelicApp{nil, false}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.Shutdown(timeout)
}

// Custom metric helpers

// RecordDeliveryCreated records a new delivery
func (nr *NewRelicApp) RecordDeliveryCreated(deliveryID int64, paymentMethod string) {
	nr.RecordCustomEvent("DeliveryCreated", map[string]interface{}{
		"delivery_id":    deliveryID,
		"payment_method": paymentMethod,
		"timestamp":      time.Now().Unix(),
	})
}

// RecordStatusChange records a delivery status transition
func (nr *NewRelicApp) RecordStatusChange(deliveryID int64, from, to string) {
	nr.RecordCustomEvent("DeliveryStatusChanged", map[string]interface{}{
		"delivery_id": deliveryID,
		"from":        from,
		"to":          to,
	})
	if to == "delivered" {
		nr.RecordCustomMetric("custom/delivery/completed", 1)
	}
}

// RecordLocationUpdate records a tracking update
func (nr *NewRelicApp) RecordLocationUpdate() {
	nr.RecordCustomMetric("custom/delivery/location_update", 1)
}

// RecordNotification records a confirmation email attempt
func (nr *NewRelicApp) RecordNotification(success bool) {
	outcome := "failed"
	if success {
		outcome = "sent"
	}
	nr.RecordCustomMetric(fmt.Sprintf("custom/notification/%s", outcome), 1)
}

// RecordDatabasePoolStats records database connection pool statistics
func (nr *NewRelicApp) RecordDatabasePoolStats(stats sql.DBStats) {
	nr.RecordCustomMetric("custom/db/open_connections", float64(stats.OpenConnections))
	nr.RecordCustomMetric("custom/db/in_use", float64(stats.InUse))
	nr.RecordCustomMetric("custom/db/idle", float64(stats.Idle))
	nr.RecordCustomMetric("custom/db/wait_count", float64(stats.WaitCount))
}

// RecordRedisPoolStats records Redis pool statistics
func (nr *NewRelicApp) RecordRedisPoolStats(stats map[string]interface{}) {
	if hits, ok := stats["hits"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/cache_hits", float64(hits))
	}
	if misses, ok := stats["misses"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/cache_misses", float64(misses))
	}
	if timeouts, ok := stats["timeouts"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/timeouts", float64(timeouts))
	}
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr != nil && nr.enabled
}
