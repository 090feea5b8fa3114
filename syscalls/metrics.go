package syscalls

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// syscalls serviced, by name and outcome (success, override_len, fault)
	prometheusSyscalls *prometheus.CounterVec
	// bytes exposed through read-only mappings
	prometheusMappedBytes prometheus.Counter
	// datasets mapped, by kind (tx, input, output)
	prometheusMappings *prometheus.CounterVec
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusSyscalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cellvm",
			Subsystem: "syscalls",
			Name:      "total",
			Help:      "Number of syscalls serviced by outcome",
		},
		[]string{"syscall", "outcome"},
	)
	prometheusMappedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cellvm",
			Subsystem: "syscalls",
			Name:      "mapped_bytes_total",
			Help:      "Bytes exposed to scripts through read-only mappings",
		},
	)
	prometheusMappings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cellvm",
			Subsystem: "syscalls",
			Name:      "mappings_total",
			Help:      "Read-only mappings installed by dataset kind",
		},
		[]string{"kind"},
	)
}

func observeSyscall(num uint64, outcome string) {
	prometheusSyscalls.WithLabelValues(syscallName(num), outcome).Inc()
}
