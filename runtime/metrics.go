package runtime

import (
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK     = "ok"
	resultError  = "error"
	resultRefuse = "refused"
)

type metrics struct {
	inits       *prometheus.CounterVec
	grows       *prometheus.CounterVec
	memoryBytes prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		inits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wasm",
			Subsystem: "module",
			Name:      "initializations_total",
			Help:      "Module initializations by result",
		}, []string{"result"}),
		grows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wasm",
			Subsystem: "memory",
			Name:      "grow_total",
			Help:      "Memory growth attempts by result",
		}, []string{"result"}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wasm",
			Subsystem: "memory",
			Name:      "bytes",
			Help:      "Bytes held by live memory regions",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.inits, err = register(reg, m.inits); err != nil {
		return nil, err
	}
	if m.grows, err = register(reg, m.grows); err != nil {
		return nil, err
	}
	if m.memoryBytes, err = register(reg, m.memoryBytes); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg. Runtimes sharing a registry share collectors.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) initialized(err error) {
	if err != nil {
		m.inits.WithLabelValues(resultError).Inc()
		return
	}
	m.inits.WithLabelValues(resultOK).Inc()
}

func (m *metrics) grew(ok bool, deltaBytes uint64) {
	if !ok {
		m.grows.WithLabelValues(resultRefuse).Inc()
		return
	}
	m.grows.WithLabelValues(resultOK).Inc()
	m.memoryBytes.Add(float64(deltaBytes))
}
