package metrics

import (
	"strconv"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exports channel lifecycle metrics on its own registry.
type Collector struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	channels    *prometheus.GaugeVec
	validations *prometheus.HistogramVec
	tests       *prometheus.HistogramVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "azconnect",
			Name:      "channel_transitions_total",
			Help:      "Committed channel status transitions.",
		}, []string{"type", "from", "to"}),
		channels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "azconnect",
			Name:      "channels",
			Help:      "Channels per type and status.",
		}, []string{"type", "status"}),
		validations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "azconnect",
			Name:      "validation_duration_seconds",
			Help:      "Duration of connect validations by outcome.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"type", "outcome"}),
		tests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "azconnect",
			Name:      "test_duration_seconds",
			Help:      "Duration of connection tests.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"type", "passed"}),
	}
	c.registry.MustRegister(
		c.transitions, c.channels, c.validations, c.tests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Listen keeps the gauges and transition counters in step with the store.
func (c *Collector) Listen(ev channel.ChangeEvent) {
	to := ev.Channel.Status
	typ := string(ev.Channel.Type)
	if ev.Previous == to {
		return
	}
	if ev.Previous != "" {
		c.channels.WithLabelValues(typ, string(ev.Previous)).Dec()
	}
	c.channels.WithLabelValues(typ, string(to)).Inc()
	c.transitions.WithLabelValues(typ, string(ev.Previous), string(to)).Inc()
}

func (c *Collector) ObserveValidation(t channel.ChannelType, outcome string, d time.Duration) {
	c.validations.WithLabelValues(string(t), outcome).Observe(d.Seconds())
}

func (c *Collector) ObserveTest(t channel.ChannelType, passed bool, d time.Duration) {
	c.tests.WithLabelValues(string(t), strconv.FormatBool(passed)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
