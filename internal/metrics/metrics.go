package metrics

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status de importação usados como label.
const (
	StatusSuccess    = "success"
	StatusParseError = "parse_error"
	StatusNotInvoice = "not_invoice"
	StatusDuplicate  = "duplicate"
	StatusDBError    = "db_error"
	StatusTooLarge   = "too_large"
	StatusXSDError   = "xsd_error"
	StatusBlobError  = "blob_error"
)

var (
	importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfe_imports_total",
			Help: "Quantidade de NF-e importadas, por status e origem (xml|zip|api).",
		},
		[]string{"status", "source"},
	)

	importDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nfe_import_duration_seconds",
			Help:    "Tempo de importação de cada NF-e em segundos.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "source"},
	)

	registerOnce sync.Once
)

// Init registra as métricas no registry global. Pode ser chamado mais de
// uma vez (api e worker no mesmo processo de teste).
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(importsTotal, importDuration)
	})
}

// ObserveImport registra o resultado de uma NF-e importada.
func ObserveImport(status, source string, d time.Duration) {
	labels := prometheus.Labels{
		"status": status,
		"source": source,
	}
	importsTotal.With(labels).Inc()
	importDuration.With(labels).Observe(d.Seconds())
}

// StartHTTPServer sobe um /metrics na porta indicada (ex: ":9101").
func StartHTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("iniciando servidor de métricas Prometheus", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("erro no servidor de métricas", "addr", addr, "err", err)
		}
	}()

	return srv
}
