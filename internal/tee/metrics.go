package tee

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are aggregate counters only; per-entry detail stays out of the
// metrics surface for the same reason it stays out of the logs.
type Metrics struct {
	Entries  prometheus.Counter
	Failures prometheus.Counter
	Upgrades prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Entries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cipherbox_republish_entries_total",
			Help: "Republish entries processed.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cipherbox_republish_failures_total",
			Help: "Republish entries that failed.",
		}),
		Upgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cipherbox_epoch_upgrades_total",
			Help: "Key wrappings upgraded to the current epoch.",
		}),
	}
	reg.MustRegister(m.Entries, m.Failures, m.Upgrades)
	return m
}
