package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vocdoni/aadhaar-relief/types"
)

const metricNamePrefix = "relief_ledger_"

type ledgerMetrics struct {
	operations    *prometheus.CounterVec
	poolAvailable *prometheus.GaugeVec
	campaigns     prometheus.Gauge
}

func (l *Ledger) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	l.metrics = &ledgerMetrics{
		operations: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: metricNamePrefix + "operations_total",
			Help: "number of ledger operations by kind and result",
		}, []string{"operation", "result"}),
		poolAvailable: promautoFactory.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricNamePrefix + "pool_available_eth",
			Help: "claimable balance of each campaign pool in ETH",
		}, []string{"campaign"}),
		campaigns: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: metricNamePrefix + "campaigns",
			Help: "number of registered campaigns",
		}),
	}
}

func (l *Ledger) observe(operation string, err error) {
	if l.metrics == nil {
		return
	}
	l.metrics.operations.WithLabelValues(operation, ErrorLabel(err)).Inc()
}

func (l *Ledger) updatePoolMetrics(c *types.Campaign) {
	if l.metrics == nil {
		return
	}
	l.metrics.poolAvailable.WithLabelValues(c.ID.String()).Set(types.EtherFloat(c.Available()))
}
