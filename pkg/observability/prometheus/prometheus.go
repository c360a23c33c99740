// Package prometheus implements the observability hooks with Prometheus
// collectors.
//
//	reg := prom.NewRegistry()
//	hooks := prometheus.New(reg)
//	hooks.Install()
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/trialviz/pkg/observability"
)

const namespace = "trialviz"

// Hooks implements every observability hook interface.
type Hooks struct {
	loads         *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	loadedNodes   prometheus.Gauge
	malformed     *prometheus.CounterVec
	exports       *prometheus.CounterVec
	exportSeconds prometheus.Histogram

	passes      *prometheus.CounterVec
	passSeconds prometheus.Histogram
	visible     prometheus.Gauge
	transitions *prometheus.CounterVec
	toggles     *prometheus.CounterVec

	cacheOps   *prometheus.CounterVec
	cacheBytes prometheus.Counter

	requests    *prometheus.CounterVec
	httpSeconds *prometheus.HistogramVec
	httpErrors  *prometheus.CounterVec
}

var (
	_ observability.PipelineHooks = (*Hooks)(nil)
	_ observability.EngineHooks   = (*Hooks)(nil)
	_ observability.CacheHooks    = (*Hooks)(nil)
	_ observability.HTTPHooks     = (*Hooks)(nil)
)

// New registers the trialviz collectors with reg.
// A nil reg uses the default Prometheus registerer.
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Hooks{
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "loads_total",
			Help: "Datasets loaded, by outcome",
		}, []string{"outcome"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "load_duration_seconds",
			Help:    "Duration of dataset loads",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		loadedNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "loaded_nodes",
			Help: "Activation records in the most recently loaded dataset",
		}),
		malformed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "malformed_records_total",
			Help: "Records dropped during ingestion",
		}, []string{"kind"}),
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "exports_total",
			Help: "Export runs, by outcome",
		}, []string{"outcome"}),
		exportSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "export_duration_seconds",
			Help:    "Duration of export runs",
			Buckets: prometheus.DefBuckets,
		}),
		passes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "passes_total",
			Help: "Reconciliation passes, by trigger",
		}, []string{"trigger"}),
		passSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pass_duration_seconds",
			Help:    "Duration of reconciliation passes",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		visible: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "visible_nodes",
			Help: "Visible nodes after the latest pass",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transitions_total",
			Help: "Node transitions emitted by passes, by phase",
		}, []string{"phase"}),
		toggles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "toggles_total",
			Help: "Collapse state changes",
		}, []string{"collapsed"}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_operations_total",
			Help: "Cache lookups and writes",
		}, []string{"op", "key_type"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_client_requests_total",
			Help: "Outgoing HTTP requests, by host and status",
		}, []string{"method", "host", "status"}),
		httpSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_client_duration_seconds",
			Help:    "Outgoing HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		httpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_client_errors_total",
			Help: "Outgoing HTTP requests that failed without a response",
		}, []string{"method", "host"}),
	}
}

// Install registers h as every global hook.
func (h *Hooks) Install() {
	observability.SetPipelineHooks(h)
	observability.SetEngineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *Hooks) OnLoadStart(context.Context, string) {}

func (h *Hooks) OnLoadComplete(_ context.Context, _ string, nodeCount int, d time.Duration, err error) {
	h.loads.WithLabelValues(outcome(err)).Inc()
	h.loadDuration.Observe(d.Seconds())
	if err == nil {
		h.loadedNodes.Set(float64(nodeCount))
	}
}

func (h *Hooks) OnMalformed(_ context.Context, kind string, count int) {
	h.malformed.WithLabelValues(kind).Add(float64(count))
}

func (h *Hooks) OnExportStart(context.Context, []string) {}

func (h *Hooks) OnExportComplete(_ context.Context, _ []string, d time.Duration, err error) {
	h.exports.WithLabelValues(outcome(err)).Inc()
	h.exportSeconds.Observe(d.Seconds())
}

func (h *Hooks) OnPass(_ context.Context, info observability.PassInfo, d time.Duration) {
	h.passes.WithLabelValues(info.Trigger).Inc()
	h.passSeconds.Observe(d.Seconds())
	h.visible.Set(float64(info.Visible))
	h.transitions.WithLabelValues("enter").Add(float64(info.Enter))
	h.transitions.WithLabelValues("update").Add(float64(info.Update))
	h.transitions.WithLabelValues("exit").Add(float64(info.Exit))
}

func (h *Hooks) OnToggle(_ context.Context, _ string, collapsed bool) {
	h.toggles.WithLabelValues(strconv.FormatBool(collapsed)).Inc()
}

func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues("hit", keyType).Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues("miss", keyType).Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheOps.WithLabelValues("set", keyType).Inc()
	h.cacheBytes.Add(float64(size))
}

func (h *Hooks) OnRequest(context.Context, string, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	h.requests.WithLabelValues(method, host, strconv.Itoa(status)).Inc()
	h.httpSeconds.WithLabelValues(host).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, method, host, _ string, _ error) {
	h.httpErrors.WithLabelValues(method, host).Inc()
}
