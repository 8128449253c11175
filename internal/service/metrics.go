package service

import "github.com/prometheus/client_golang/prometheus"

var (
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_checkouts_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)
	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)
	reversalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_reversals_total",
			Help: "Sale cancellations by outcome",
		},
		[]string{"outcome"},
	)
	withdrawalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_withdrawals_total",
			Help: "Withdrawal requests by outcome",
		},
		[]string{"outcome"},
	)
	distributedCents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_seller_credited_cents_total",
			Help: "Seller shares credited by settlement, in cents",
		},
	)
	withdrawnCents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_withdrawn_cents_total",
			Help: "Commission amounts consumed by withdrawals, in cents",
		},
	)
	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_payment_gateway_duration_seconds",
			Help:    "Latency of payment gateway charge calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway", "status"},
	)
	eventsPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_event_publish_failures_total",
			Help: "Notification events that could not be published",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(checkoutsTotal)
	prometheus.MustRegister(settlementsTotal)
	prometheus.MustRegister(reversalsTotal)
	prometheus.MustRegister(withdrawalsTotal)
	prometheus.MustRegister(distributedCents)
	prometheus.MustRegister(withdrawnCents)
	prometheus.MustRegister(gatewayDuration)
	prometheus.MustRegister(eventsPublishFailures)
}
