package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/colorfulnotion/cellvm/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	prometheusRuns          *prometheus.CounterVec
	prometheusCyclesRetired prometheus.Counter
	prometheusRunCycles     prometheus.Histogram

	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(func() {
		prometheusRuns = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cellvm",
				Subsystem: "vm",
				Name:      "runs_total",
				Help:      "Script runs by outcome (ok or the fault name)",
			},
			[]string{"outcome"},
		)
		prometheusCyclesRetired = promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cellvm",
				Subsystem: "vm",
				Name:      "cycles_total",
				Help:      "Cycles retired across all runs",
			},
		)
		prometheusRunCycles = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "cellvm",
				Subsystem: "vm",
				Name:      "run_cycles",
				Help:      "Cycles consumed per run",
				Buckets:   prometheus.ExponentialBuckets(1000, 4, 10),
			},
		)
	})
}

// ObserveRun records one finished run. outcome is "ok" or a fault name.
func ObserveRun(outcome string, cycles uint64) {
	initPrometheusMetrics()
	prometheusRuns.WithLabelValues(outcome).Inc()
	prometheusCyclesRetired.Add(float64(cycles))
	prometheusRunCycles.Observe(float64(cycles))
}

// MetricsServer exposes the default Prometheus registry at /metrics.
type MetricsServer struct {
	srv *http.Server
	ln  net.Listener
}

func ServeMetrics(addr string) (*MetricsServer, error) {
	initPrometheusMetrics()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &MetricsServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(log.VMMonitoring, "metrics server stopped", "err", err)
		}
	}()
	log.Info(log.VMMonitoring, "serving metrics", "addr", ln.Addr().String())
	return s, nil
}

func (s *MetricsServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *MetricsServer) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
