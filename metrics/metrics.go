package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec   // method, path, status
	HTTPDuration *prometheus.HistogramVec // method, path
	HTTPErrors   *prometheus.CounterVec   // code

	RoutesPlanned  prometheus.Counter
	ConnectorGaps  prometheus.Counter
	SnapRemovals   prometheus.Counter
	StageDuration  *prometheus.HistogramVec // stage
	GraphNodes     prometheus.Histogram
	SegmentsPerReq prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	ArchiveErrors   prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "segment_router_http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "segment_router_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "segment_router_errors_total",
			Help: "Error responses by error code.",
		}, []string{"code"}),
		RoutesPlanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segment_router_routes_planned_total",
			Help: "Total routes assembled.",
		}),
		ConnectorGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segment_router_connector_gaps_total",
			Help: "Connectors replaced by a straight bridge because no network path existed.",
		}),
		SnapRemovals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segment_router_snap_removed_nodes_total",
			Help: "Nodes removed by deviation pruning while snapping segments.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "segment_router_stage_duration_seconds",
			Help:    "Duration of each planning stage.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"stage"}),
		GraphNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "segment_router_graph_nodes",
			Help:    "Road network size per request.",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		}),
		SegmentsPerReq: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "segment_router_segments_per_request",
			Help:    "Segments supplied per best-path request.",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segment_router_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segment_router_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "segment_router_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		ArchiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segment_router_archive_errors_total",
			Help: "Planned routes that could not be written to the database.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests, c.HTTPDuration, c.HTTPErrors,
		c.RoutesPlanned, c.ConnectorGaps, c.SnapRemovals, c.StageDuration,
		c.GraphNodes, c.SegmentsPerReq,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.ArchiveErrors,
	)
	return c
}

// routing.Observer

func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) AddSnapRemovals(n int) { c.SnapRemovals.Add(float64(n)) }

func (c *Collector) IncConnectorGaps(n int) { c.ConnectorGaps.Add(float64(n)) }

// publisher.PublisherMetrics

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Router exposes /metrics and /healthz.
func (c *Collector) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", c.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

// Serve starts the ops listener on addr in the background.
func (c *Collector) Serve(addr string, log logrus.FieldLogger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server error")
		}
	}()
	log.Infof("metrics listening on %s", addr)
	return srv
}
