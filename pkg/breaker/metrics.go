package breaker

import "github.com/prometheus/client_golang/prometheus"

type collectors struct {
	state       *prometheus.GaugeVec
	calls       *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

func newCollectors() *collectors {
	return &collectors{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "tep_broker",
				Subsystem: "breaker",
				Name:      "state",
				Help:      "Current breaker state (0 closed, 1 open, 2 half-open).",
			},
			[]string{"breaker"},
		),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tep_broker",
				Subsystem: "breaker",
				Name:      "calls_total",
				Help:      "Calls seen by a breaker by result (success, failure, rejected).",
			},
			[]string{"breaker", "result"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tep_broker",
				Subsystem: "breaker",
				Name:      "transitions_total",
				Help:      "Breaker state transitions.",
			},
			[]string{"breaker", "from", "to"},
		),
	}
}

func (c *collectors) register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{c.state, c.calls, c.transitions} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *collectors) call(name, result string) {
	c.calls.WithLabelValues(name, result).Inc()
}

func (c *collectors) transition(name string, from, to State) {
	c.state.WithLabelValues(name).Set(float64(to))
	c.transitions.WithLabelValues(name, from.String(), to.String()).Inc()
}
