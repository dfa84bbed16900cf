// Package telemetry instruments the agent itself. Its series are served on
// /agent/metrics, separate from the environmental exposition on /metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/envmon/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "envmon"

// Collector holds the agent's self-instrumentation. All methods are safe
// for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	scrapes         prometheus.Counter
	scrapeDuration  prometheus.Histogram
	sensorFaults    *prometheus.CounterVec
	discoveries     prometheus.Counter
	displayUpdates  prometheus.Counter
	pollFaults      prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

// New registers the agent series, plus the Go runtime and process
// collectors, on a private registry.
func New() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scrapes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Total number of /metrics responses rendered",
		}),
		scrapeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Time spent reading sensors and rendering a /metrics response",
			Buckets:   prometheus.DefBuckets,
		}),
		sensorFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_faults_total",
			Help:      "Total number of absorbed sensor faults",
		}, []string{"sensor", "phase"}),
		discoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discoveries_total",
			Help:      "Total number of sensor rediscoveries",
		}),
		displayUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_updates_total",
			Help:      "Total number of display refreshes",
		}),
		pollFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_faults_total",
			Help:      "Total number of failed network polls",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	for _, col := range []prometheus.Collector{
		c.scrapes,
		c.scrapeDuration,
		c.sensorFaults,
		c.discoveries,
		c.displayUpdates,
		c.pollFaults,
		c.httpRequests,
		c.httpRequestTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := c.registry.Register(col); err != nil {
			return nil, errors.New().Wrap(ErrRegister, err)
		}
	}

	return c, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveScrape records one rendered /metrics response.
func (c *Collector) ObserveScrape(elapsed time.Duration) {
	c.scrapes.Inc()
	c.scrapeDuration.Observe(elapsed.Seconds())
}

// OnFault counts a fault absorbed by the sensor manager.
func (c *Collector) OnFault(sensor, phase string, _ error) {
	c.sensorFaults.WithLabelValues(sensor, phase).Inc()
}

func (c *Collector) Discovery()     { c.discoveries.Inc() }
func (c *Collector) DisplayUpdate() { c.displayUpdates.Inc() }
func (c *Collector) PollFault()     { c.pollFaults.Inc() }

// ObserveRequest records a completed HTTP request.
func (c *Collector) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestTime.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
