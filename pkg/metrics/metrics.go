// Package metrics exports register runtime activity to Prometheus.
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	ral.Observe(m)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vkochnev/ral/pkg/ral"
)

const namespace = "ral"

// Collector counts register lifecycle events per register name.
// It implements ral.Observer.
type Collector struct {
	// BorrowsTotal counts successful borrows.
	BorrowsTotal *prometheus.CounterVec

	// ContentionsTotal counts borrows refused because the register was owned.
	ContentionsTotal *prometheus.CounterVec

	// WritesTotal counts hardware stores.
	WritesTotal *prometheus.CounterVec

	// Held is 1 while the register is checked out.
	Held *prometheus.GaugeVec
}

// New creates a Collector registered with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		BorrowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "borrows_total",
			Help:      "Successful register borrows",
		}, []string{"register"}),
		ContentionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contentions_total",
			Help:      "Register borrows refused because the register was owned elsewhere",
		}, []string{"register"}),
		WritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Register stores to hardware",
		}, []string{"register"}),
		Held: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "held",
			Help:      "Whether the register is currently checked out",
		}, []string{"register"}),
	}
}

// Borrowed implements ral.Observer.
func (c *Collector) Borrowed(register string) {
	c.BorrowsTotal.WithLabelValues(register).Inc()
	c.Held.WithLabelValues(register).Set(1)
}

// Contended implements ral.Observer.
func (c *Collector) Contended(register string) {
	c.ContentionsTotal.WithLabelValues(register).Inc()
}

// Returned implements ral.Observer.
func (c *Collector) Returned(register string) {
	c.Held.WithLabelValues(register).Set(0)
}

// Written implements ral.Observer.
func (c *Collector) Written(register string) {
	c.WritesTotal.WithLabelValues(register).Inc()
}

// Multi fans notifications out to several observers.
type Multi []ral.Observer

func (m Multi) Borrowed(register string) {
	for _, o := range m {
		o.Borrowed(register)
	}
}

func (m Multi) Contended(register string) {
	for _, o := range m {
		o.Contended(register)
	}
}

func (m Multi) Returned(register string) {
	for _, o := range m {
		o.Returned(register)
	}
}

func (m Multi) Written(register string) {
	for _, o := range m {
		o.Written(register)
	}
}

var (
	_ ral.Observer = (*Collector)(nil)
	_ ral.Observer = Multi(nil)
)
