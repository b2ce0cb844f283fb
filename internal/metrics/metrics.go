// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yecy"

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Checkout attempts by result",
		},
		[]string{"result"},
	)

	unitsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_sold_total",
			Help:      "Product units removed from stock by committed orders",
		},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	invoices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_total",
			Help:      "Invoice render attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Checkout results.
const (
	ResultSuccess      = "success"
	ResultEmptyCart    = "empty_cart"
	ResultInsufficient = "insufficient_stock"
	ResultError        = "error"
)

func RecordCheckout(result string) {
	checkouts.WithLabelValues(result).Inc()
}

func RecordUnitsSold(units int) {
	unitsSold.Add(float64(units))
}

// RecordNotification counts one delivery on channel ("store" or "push").
func RecordNotification(channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	notifications.WithLabelValues(channel, outcome).Inc()
}

func RecordInvoice(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	invoices.WithLabelValues(outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
