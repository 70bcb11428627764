// Package metrics exposes tracker counters and gauges on a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	TelemetryIngested *prometheus.CounterVec // source label: broker|http|simulator
	TelemetryDropped  *prometheus.CounterVec // reason label: malformed|invalid
	VehiclesTracked   prometheus.Gauge

	WSClients prometheus.Gauge
	WSDropped prometheus.Counter

	BrokerConnected prometheus.Gauge

	SimRunning      prometheus.Gauge
	SpeedMultiplier prometheus.Gauge
	TickDuration    prometheus.Histogram

	RoutingRequests *prometheus.CounterVec // result label: ok|fallback
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TelemetryIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_telemetry_ingested_total",
			Help: "Telemetry updates applied to the vehicle store.",
		}, []string{"source"}),
		TelemetryDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_telemetry_dropped_total",
			Help: "Telemetry messages discarded before reaching the store.",
		}, []string{"reason"}),
		VehiclesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_vehicles_tracked",
			Help: "Number of vehicles held in the store.",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_ws_clients",
			Help: "Connected websocket observers.",
		}),
		WSDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_ws_dropped_total",
			Help: "Broadcast messages dropped for slow observers.",
		}),
		BrokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_broker_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
		SimRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_sim_running",
			Help: "1 while the simulator tick loop runs.",
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_sim_speed_multiplier",
			Help: "Current simulator speed multiplier.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_sim_tick_duration_seconds",
			Help:    "Duration of simulator tick computations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		RoutingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_routing_requests_total",
			Help: "Road-routing lookups by outcome.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.TelemetryIngested, c.TelemetryDropped, c.VehiclesTracked,
		c.WSClients, c.WSDropped,
		c.BrokerConnected,
		c.SimRunning, c.SpeedMultiplier, c.TickDuration,
		c.RoutingRequests,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) Ingested(source string) { c.TelemetryIngested.WithLabelValues(source).Inc() }

func (c *Collector) Dropped(reason string) { c.TelemetryDropped.WithLabelValues(reason).Inc() }

func (c *Collector) SetVehicles(n int) { c.VehiclesTracked.Set(float64(n)) }

func (c *Collector) SetClients(n int) { c.WSClients.Set(float64(n)) }

func (c *Collector) ClientDropped() { c.WSDropped.Inc() }

func (c *Collector) SetConnected(connected bool) { c.BrokerConnected.Set(boolGauge(connected)) }

func (c *Collector) SetRunning(running bool) { c.SimRunning.Set(boolGauge(running)) }

func (c *Collector) SetSpeedMultiplier(m float64) { c.SpeedMultiplier.Set(m) }

func (c *Collector) ObserveTick(d time.Duration) { c.TickDuration.Observe(d.Seconds()) }

func (c *Collector) RoutingResult(result string) { c.RoutingRequests.WithLabelValues(result).Inc() }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
