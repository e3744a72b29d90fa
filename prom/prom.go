package prom

import (
	"math"

	"github.com/minor-industries/ermc/broker"
	"github.com/minor-industries/ermc/schema"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Resistivity     prometheus.Gauge
	Points          prometheus.Gauge
	Voltage         prometheus.Gauge
	Current         prometheus.Gauge
	PersistFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Resistivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ermc_resistivity_ohm_meters",
			Help: "Most recently calculated resistivity.",
		}),
		Points: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ermc_series_points",
			Help: "Number of points in the resistivity series.",
		}),
		Voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ermc_voltage_volts",
			Help: "Last fetched voltage.",
		}),
		Current: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ermc_current_amps",
			Help: "Last fetched current.",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ermc_persist_failures_total",
			Help: "Series snapshots that could not be stored.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Resistivity,
		m.Points,
		m.Voltage,
		m.Current,
		m.PersistFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register prometheus metric")
		}
	}

	return m, nil
}

// RegisterBroker exposes the fan-out state of br: how many subscribers are
// attached and how many messages were dropped because one fell behind.
func RegisterBroker(reg prometheus.Registerer, br *broker.Broker) error {
	for _, c := range []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "ermc_broker_subscribers",
			Help: "Subscribers attached to the update broker.",
		}, func() float64 { return float64(br.SubCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "ermc_broker_dropped_total",
			Help: "Messages not delivered to a subscriber whose buffer was full.",
		}, func() float64 { return float64(br.DropCount()) }),
	} {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "register broker metric")
		}
	}
	return nil
}

// Publish updates the gauges from msgCh, a subscription on br, until the
// subscription is closed.
func (m *Metrics) Publish(br *broker.Broker, msgCh chan broker.Message) {
	defer br.Unsubscribe(msgCh)

	for message := range msgCh {
		m.observe(message)
	}
}

func (m *Metrics) observe(message broker.Message) {
	switch msg := message.(type) {
	case schema.Measurement:
		m.Voltage.Set(msg.Voltage)
		m.Current.Set(msg.Current)
	case schema.Update:
		m.Points.Set(float64(len(msg.Series)))
		if !math.IsInf(msg.Latest.Y, 0) && !math.IsNaN(msg.Latest.Y) {
			m.Resistivity.Set(msg.Latest.Y)
		}
	}
}
