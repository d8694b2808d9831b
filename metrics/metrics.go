package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bandar_settlements_total",
		Help: "Settlement requests by result code.",
	}, []string{"code"})

	CallbackDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bandar_callback_deliveries_total",
		Help: "Outbound callback attempts by status.",
	}, []string{"status"})

	CallbackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bandar_callback_delivery_seconds",
		Help:    "Outbound callback round-trip time.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	CallbacksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bandar_callbacks_received_total",
		Help: "Inbound settlement callbacks by result code.",
	}, []string{"code"})
)
