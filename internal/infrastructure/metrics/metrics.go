// Package metrics exports loan engine activity to prometheus.
package metrics

import (
	"net/http"

	"loan-engine/internal/domain/loan"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Engine struct {
	reg         *prometheus.Registry
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	interest    prometheus.Counter
	fees        prometheus.Counter
	lastBlock   prometheus.Gauge
}

// New builds a private registry so several engines (tests) never collide.
func New() *Engine {
	m := &Engine{
		reg: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loan_engine",
			Name:      "events_total",
			Help:      "Committed loan events by kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loan_engine",
			Name:      "status_transitions_total",
			Help:      "Loan status changes by target status.",
		}, []string{"status"}),
		interest: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loan_engine",
			Name:      "interest_paid_units_total",
			Help:      "Interest paid to shareholders, in collateral base units (approximate).",
		}),
		fees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loan_engine",
			Name:      "fees_units_total",
			Help:      "Origination and foreclosure fees charged, in base units (approximate).",
		}),
		lastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loan_engine",
			Name:      "last_event_block",
			Help:      "Block height of the most recent committed event.",
		}),
	}
	m.reg.MustRegister(
		m.events, m.transitions, m.interest, m.fees, m.lastBlock,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Engine) Observe(e loan.Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(e.Kind)).Inc()
	m.lastBlock.Set(float64(e.Block))
	switch e.Kind {
	case loan.EventStatusChanged:
		m.transitions.WithLabelValues(e.Status.String()).Inc()
	case loan.EventInterestsWithdrawn:
		m.interest.Add(e.Amount.InexactFloat64())
	case loan.EventFeePaid:
		m.fees.Add(e.Amount.InexactFloat64())
	}
}

func (m *Engine) Registry() *prometheus.Registry { return m.reg }

func (m *Engine) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
