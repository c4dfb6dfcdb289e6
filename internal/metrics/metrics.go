package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushcms/rush-web/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	httpPanicTotal prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	buildInfo      *prometheus.GaugeVec

	ratelimitDeniedTotal prometheus.Counter

	// upstream CMS client
	upstreamReqTotal *prometheus.CounterVec
	upstreamReqDur   *prometheus.HistogramVec
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// revalidation webhook
	revalidationsTotal *prometheus.CounterVec

	formSubmissionsTotal *prometheus.CounterVec
	unknownBlocksTotal   *prometheus.CounterVec
	webVitalsTotal       *prometheus.CounterVec

	profilingActive prometheus.Gauge
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, code) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		upstreamReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_upstream_requests_total",
			Help: "Total upstream CMS API requests by endpoint class and status",
		}, []string{"endpoint", "status"}),
		upstreamReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cms_upstream_request_duration_seconds",
			Help:    "Upstream CMS API latency by endpoint class",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		cacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_cache_hits_total",
			Help: "Total CMS response cache hits by endpoint class",
		}, []string{"endpoint"}),
		cacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_cache_misses_total",
			Help: "Total CMS response cache misses by endpoint class",
		}, []string{"endpoint"}),
		revalidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revalidations_total",
			Help: "Total revalidation webhook requests by kind (path|tag) and outcome",
		}, []string{"kind", "outcome"}),
		formSubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "form_submissions_total",
			Help: "Total proxied form submissions by upstream status",
		}, []string{"status"}),
		unknownBlocksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_unknown_blocks_total",
			Help: "Total content blocks skipped because no renderer matched their type",
		}, []string{"type"}),
		webVitalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "web_vitals_reports_total",
			Help: "Total web vitals beacon reports by metric name and rating",
		}, []string{"name", "rating"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.httpPanicTotal,
		m.errorsTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.upstreamReqTotal,
		m.upstreamReqDur,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.revalidationsTotal,
		m.formSubmissionsTotal,
		m.unknownBlocksTotal,
		m.webVitalsTotal,
		m.profilingActive,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

func (m *ServerMetrics) IncHttpPanic() { m.httpPanicTotal.Inc() }

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied() { m.ratelimitDeniedTotal.Inc() }

// ObserveUpstream records one CMS API round trip. endpoint is a low-cardinality
// class ("collections", "entries", ...), never a raw path.
func (m *ServerMetrics) ObserveUpstream(endpoint string, status int, dur time.Duration) {
	m.upstreamReqTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.upstreamReqDur.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func (m *ServerMetrics) IncCacheHit(endpoint string)  { m.cacheHitsTotal.WithLabelValues(endpoint).Inc() }
func (m *ServerMetrics) IncCacheMiss(endpoint string) { m.cacheMissesTotal.WithLabelValues(endpoint).Inc() }

func (m *ServerMetrics) IncRevalidation(kind, outcome string) {
	m.revalidationsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *ServerMetrics) IncFormSubmission(status int) {
	m.formSubmissionsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *ServerMetrics) IncUnknownBlock(blockType string) {
	m.unknownBlocksTotal.WithLabelValues(blockType).Inc()
}

func (m *ServerMetrics) IncWebVital(name, rating string) {
	m.webVitalsTotal.WithLabelValues(name, rating).Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}
