package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Total accepted transaction submissions",
		},
		[]string{"type"}, // topup|transfer
	)
	TransactionsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_rejected_total",
			Help: "Total rejected transaction submissions",
		},
	)
	AdjudicationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adjudications_total",
			Help: "Total applied adjudications",
		},
		[]string{"resolution"}, // completed|cancelled
	)

	// Notifications
	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionsRejected)
	prometheus.MustRegister(AdjudicationsTotal)
	prometheus.MustRegister(NotificationsDropped)
}
