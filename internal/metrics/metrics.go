// Package metrics содержит счётчики Prometheus для платёжного процессора.
// Экспортируются на /metrics через promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики исходов платёжных циклов.
var (
	// PaymentsProcessed число успешных платёжных циклов.
	PaymentsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stablerent_payments_processed_total",
		Help: "Number of successfully settled payment cycles.",
	})

	// PaymentsFailed число мягких отказов по причинам.
	PaymentsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stablerent_payments_failed_total",
		Help: "Number of soft-failed payment cycles by reason.",
	}, []string{"reason"})

	// SubscriptionsCancelled число отмен подписок по причинам.
	SubscriptionsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stablerent_subscriptions_cancelled_total",
		Help: "Number of subscription cancellations by reason.",
	}, []string{"reason"})

	// SubscriptionsCreated число созданных подписок.
	SubscriptionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stablerent_subscriptions_created_total",
		Help: "Number of created subscriptions.",
	})
)
