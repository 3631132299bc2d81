// Package metrics exposes bed occupancy, admission flow and HTTP server
// metrics in the Prometheus format.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bedtracker"

// Collector owns every bedtracker metric. It satisfies bed.Recorder.
type Collector struct {
	bedsTotal        prometheus.Gauge
	bedsOccupied     prometheus.Gauge
	admissions       *prometheus.CounterVec
	discharges       *prometheus.CounterVec
	lengthOfStay     *prometheus.HistogramVec
	transitionErrors *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// New creates the collector and registers its metrics on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		bedsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "beds_total",
			Help:      "Number of beds in the ward",
		}),
		bedsOccupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "beds_occupied",
			Help:      "Number of beds currently holding a patient",
		}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Total number of admissions",
		}, []string{"service"}),
		discharges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discharges_total",
			Help:      "Total number of discharges",
		}, []string{"service"}),
		lengthOfStay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "length_of_stay_seconds",
			Help:      "Length of stay of discharged patients in seconds",
			// 1h .. ~42d
			Buckets: prometheus.ExponentialBuckets(3600, 2, 11),
		}, []string{"service"}),
		transitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_errors_total",
			Help:      "Total number of rejected bed operations",
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.bedsTotal, c.bedsOccupied, c.admissions, c.discharges,
		c.lengthOfStay, c.transitionErrors,
		c.httpRequests, c.httpDuration, c.httpInFlight,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) Admitted(service string) {
	c.admissions.WithLabelValues(service).Inc()
}

func (c *Collector) Discharged(service string, stay time.Duration) {
	c.discharges.WithLabelValues(service).Inc()
	c.lengthOfStay.WithLabelValues(service).Observe(stay.Seconds())
}

func (c *Collector) Occupancy(occupied, total int) {
	c.bedsOccupied.Set(float64(occupied))
	c.bedsTotal.Set(float64(total))
}

func (c *Collector) TransitionFailed(operation string) {
	c.transitionErrors.WithLabelValues(operation).Inc()
}

// Middleware records request count, latency and in-flight requests, labelled
// by the matched route rather than the raw path.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			c.httpInFlight.Inc()
			defer c.httpInFlight.Dec()

			err := next(ctx)

			status := ctx.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = 500
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method

			c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
