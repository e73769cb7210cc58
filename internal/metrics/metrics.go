package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated tracks successfully created orders
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		},
	)

	// OrdersRejected tracks orders rejected before persistence
	OrdersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Total number of rejected order creation attempts",
		},
		[]string{"reason"},
	)

	// PaymentVerifications tracks verification callback outcomes
	PaymentVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Total number of payment verification callbacks by outcome",
		},
		[]string{"outcome"},
	)

	// GatewayRequestDuration tracks payment gateway call latency
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Payment gateway request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// CircuitBreakerState tracks gateway circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	// ReconcilerSweeps tracks reconciliation sweep runs
	ReconcilerSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_sweeps_total",
			Help: "Total number of reconciliation sweeps",
		},
	)

	// ReconcilerOrdersReaped tracks orders deleted by the reconciler
	ReconcilerOrdersReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_orders_reaped_total",
			Help: "Total number of unsettled orders deleted by the reconciler",
		},
	)

	// ReconcilerQuantitiesReleased tracks stock units returned by the reconciler
	ReconcilerQuantitiesReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_quantities_released_total",
			Help: "Total product quantity returned to stock by the reconciler",
		},
	)

	// ReconcilerErrors tracks per-order failures inside a sweep
	ReconcilerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_errors_total",
			Help: "Total number of per-order reconciliation failures",
		},
	)
)
