package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/translation-quotes/internal/application/dispatcher"
	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

const namespace = "quotes"

// Recorder owns a private registry with the HTTP and quote pipeline collectors.
// It satisfies service.Metrics.
type Recorder struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	processingTotal    *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
	processingDocs     prometheus.Histogram
	gateTotal          *prometheus.CounterVec
	gateReasonsTotal   *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	refundsTotal       *prometheus.CounterVec
	eventsTotal        *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "in_flight_requests",
				Help:      "Number of in-flight HTTP requests.",
			},
		),
		processingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "processing",
				Name:      "runs_total",
				Help:      "Quote processing runs by outcome.",
			},
			[]string{"outcome"},
		),
		processingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Quote processing duration in seconds.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		processingDocs: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processing",
				Name:      "documents",
				Help:      "Documents analysed per processing run.",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 20},
			},
		),
		gateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hitl",
				Name:      "gate_evaluations_total",
				Help:      "HITL gate evaluations by result.",
			},
			[]string{"result"},
		),
		gateReasonsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hitl",
				Name:      "trigger_reasons_total",
				Help:      "HITL trigger reasons raised by the gate.",
			},
			[]string{"reason"},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workflow",
				Name:      "transitions_total",
				Help:      "Quote status transitions.",
			},
			[]string{"from", "to"},
		),
		refundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orders",
				Name:      "refunds_total",
				Help:      "Order cancellation refunds by method and status.",
			},
			[]string{"method", "status"},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "dispatched_total",
				Help:      "Domain events seen by the dispatcher.",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		r.requestTotal,
		r.requestDuration,
		r.requestInFlight,
		r.processingTotal,
		r.processingDuration,
		r.processingDocs,
		r.gateTotal,
		r.gateReasonsTotal,
		r.transitionsTotal,
		r.refundsTotal,
		r.eventsTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return r
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency labelled by route template.
func (r *Recorder) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		r.requestInFlight.Inc()
		defer r.requestInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		r.requestTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		r.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func (r *Recorder) ObserveProcessing(outcome string, documents int, duration time.Duration) {
	r.processingTotal.WithLabelValues(outcome).Inc()
	r.processingDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if documents > 0 {
		r.processingDocs.Observe(float64(documents))
	}
}

func (r *Recorder) ObserveGate(passed bool, reasons []string) {
	result := "review"
	if passed {
		result = "passed"
	}
	r.gateTotal.WithLabelValues(result).Inc()
	for _, reason := range reasons {
		r.gateReasonsTotal.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) ObserveTransition(from, to workflow.State) {
	r.transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func (r *Recorder) ObserveRefund(method, status string) {
	if method == "" {
		method = "none"
	}
	r.refundsTotal.WithLabelValues(method, status).Inc()
}

// CountEvents subscribes a counter to every given event type.
func (r *Recorder) CountEvents(d dispatcher.Dispatcher, types ...event.Type) {
	for _, t := range types {
		d.SubscribeNamed(t, "metrics.count", func(_ context.Context, evt *event.Event) error {
			r.eventsTotal.WithLabelValues(string(evt.Type)).Inc()
			return nil
		})
	}
}
