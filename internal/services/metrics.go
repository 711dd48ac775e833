package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockwatch",
		Name:      "runs_total",
		Help:      "Pipeline runs by kind and outcome.",
	}, []string{"kind", "status"})

	runsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stockwatch",
		Name:      "runs_rejected_total",
		Help:      "Run attempts rejected because the run lock was held.",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stockwatch",
		Name:      "run_duration_seconds",
		Help:      "Pipeline run duration.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"kind"})

	skuFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockwatch",
		Name:      "sku_fetch_total",
		Help:      "Per-SKU fetch attempts by outcome.",
	}, []string{"outcome"})

	providerLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockwatch",
		Name:      "provider_logins_total",
		Help:      "Provider logins by outcome.",
	}, []string{"outcome"})

	alertsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockwatch",
		Name:      "alerts_created_total",
		Help:      "Consumption alerts created by level.",
	}, []string{"level"})

	alertForwardFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockwatch",
		Name:      "alert_forward_failures_total",
		Help:      "Failed alert deliveries by endpoint type.",
	}, []string{"type"})
)
