package federation

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SyncMetrics tracks collection export and import activity.
type SyncMetrics struct {
	Exports        *prometheus.CounterVec // result
	ExportedItems  prometheus.Gauge
	ImportStates   *prometheus.CounterVec // state
	ArticlesMerged prometheus.Counter
	Latency        *prometheus.HistogramVec // operation
}

// NewSyncMetrics creates and registers the sync metrics. A nil registry
// registers with the Prometheus default registerer.
func NewSyncMetrics(registry prometheus.Registerer) *SyncMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	return &SyncMetrics{
		Exports: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "articlesync_exports_total",
			Help: "Total number of collection exports by result",
		}, []string{"result"}),
		ExportedItems: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "articlesync_exported_items",
			Help: "Number of items in the most recent export",
		}),
		ImportStates: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "articlesync_import_states_total",
			Help: "Import state machine transitions by state",
		}, []string{"state"}),
		ArticlesMerged: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "articlesync_articles_merged_total",
			Help: "Total number of articles merged into the store",
		}),
		Latency: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "articlesync_operation_latency_seconds",
			Help:    "Export and import latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *SyncMetrics) observeExport(start time.Time, items int, err error) {
	if m == nil {
		return
	}
	m.Latency.WithLabelValues("export").Observe(time.Since(start).Seconds())
	if err != nil {
		m.Exports.WithLabelValues("failed").Inc()
		return
	}
	m.Exports.WithLabelValues("ok").Inc()
	m.ExportedItems.Set(float64(items))
}

func (m *SyncMetrics) observeState(state ImportState) {
	if m == nil {
		return
	}
	m.ImportStates.WithLabelValues(state.String()).Inc()
}

func (m *SyncMetrics) observeImport(start time.Time, merged int) {
	if m == nil {
		return
	}
	m.Latency.WithLabelValues("import").Observe(time.Since(start).Seconds())
	m.ArticlesMerged.Add(float64(merged))
}

// StartMetricsServer serves /metrics from gatherer and a liveness probe on addr.
func StartMetricsServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Starting metrics server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server
}
