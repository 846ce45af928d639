package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// Backlog gauges over the notification pipeline tables. Sampled on
// scrape, so a slow query slows /metrics rather than the registry.
func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	gauges := []struct {
		name  string
		help  string
		query string
	}{
		{
			name:  metricPrefix + "event_outbox_pending",
			help:  "Notification envelopes waiting for dispatch",
			query: "SELECT COUNT(*) FROM event_outbox WHERE status = 'pending'",
		},
		{
			name:  metricPrefix + "event_outbox_failed",
			help:  "Notification envelopes with failed dispatch attempts",
			query: "SELECT COUNT(*) FROM event_outbox WHERE status = 'failed'",
		},
		{
			name:  metricPrefix + "event_dlq_count",
			help:  "Dead-lettered notification envelopes",
			query: "SELECT COUNT(*) FROM dead_letter_events",
		},
	}
	for _, gauge := range gauges {
		query := gauge.query
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: gauge.name, Help: gauge.help},
			func() float64 {
				return queryCount(db, logger, query)
			},
		))
	}
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
