package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SystemMetrics samples runtime statistics into gauges.
type SystemMetrics struct {
	log        *logger.Logger
	startedAt  time.Time
	goroutines prometheus.Gauge
	heapAlloc  prometheus.Gauge
	sysBytes   prometheus.Gauge
	gcCycles   prometheus.Gauge
	uptime     prometheus.Gauge
}

// NewSystemMetrics registers the runtime gauges on registry.
func NewSystemMetrics(registry prometheus.Registerer, log *logger.Logger) *SystemMetrics {
	factory := promauto.With(registry)

	return &SystemMetrics{
		log:       log,
		startedAt: time.Now(),
		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "system_goroutines",
			Help: "Current number of goroutines",
		}),
		heapAlloc: factory.NewGauge(prometheus.GaugeOpts{
			Name: "system_memory_alloc_bytes",
			Help: "Currently allocated heap memory in bytes",
		}),
		sysBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "system_memory_system_bytes",
			Help: "Total memory obtained from the OS in bytes",
		}),
		// NumGC is already cumulative, so it is exported as a gauge.
		gcCycles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "system_gc_cycles",
			Help: "Completed garbage collection cycles",
		}),
		uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "system_uptime_seconds",
			Help: "Seconds since the process started",
		}),
	}
}

// Record takes one sample.
func (m *SystemMetrics) Record() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.heapAlloc.Set(float64(memStats.HeapAlloc))
	m.sysBytes.Set(float64(memStats.Sys))
	m.gcCycles.Set(float64(memStats.NumGC))
	m.uptime.Set(time.Since(m.startedAt).Seconds())
}

// Run samples every interval until ctx is done.
func (m *SystemMetrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Infow("System metrics recording started", "interval", interval)
	m.Record()
	for {
		select {
		case <-ticker.C:
			m.Record()
		case <-ctx.Done():
			m.log.Infow("System metrics recording stopped")
			return
		}
	}
}
