// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	imports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imports_total",
			Help: "Bulk imports by kind (bands, lineup) and outcome",
		},
		[]string{"kind", "status"},
	)

	importRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Rows written by bulk imports",
		},
		[]string{"kind", "op"},
	)

	ratings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_total",
			Help: "Show rating operations",
		},
		[]string{"op"},
	)

	artistSync = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artist_sync_total",
			Help: "Artist metadata lookups by outcome",
		},
		[]string{"status"},
	)

	mailSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_sent_total",
			Help: "Transactional emails by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	throttled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route",
		},
		[]string{"route"},
	)

	consumerConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mail_consumer_connected",
			Help: "1 while the mail consumer holds a broker connection",
		},
	)
)

// TrackRequest records one served HTTP request.
func TrackRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackImport records the outcome of one bulk import.
func TrackImport(kind string, err error) {
	imports.WithLabelValues(kind, outcome(err)).Inc()
}

// AddImportRows counts rows an import created or updated.
func AddImportRows(kind, op string, n int) {
	if n > 0 {
		importRows.WithLabelValues(kind, op).Add(float64(n))
	}
}

// TrackRating records a rating upsert or delete.
func TrackRating(op string) { ratings.WithLabelValues(op).Inc() }

// TrackArtistSync records an artist lookup: updated, not_found or error.
func TrackArtistSync(status string) { artistSync.WithLabelValues(status).Inc() }

// TrackMail records one email send attempt.
func TrackMail(kind string, err error) { mailSent.WithLabelValues(kind, outcome(err)).Inc() }

// TrackThrottled records a request rejected with 429.
func TrackThrottled(route string) { throttled.WithLabelValues(route).Inc() }

// SetConsumerConnected flips the consumer connection gauge.
func SetConsumerConnected(up bool) {
	if up {
		consumerConnected.Set(1)
		return
	}
	consumerConnected.Set(0)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
