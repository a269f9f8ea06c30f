package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/feature"
)

const namespace = "osmmaps"

// Metrics holds the counters for one run. Each run gets its own registry so
// results can be written to a node_exporter textfile at exit.
type Metrics struct {
	reg *prometheus.Registry

	diagnostics *prometheus.CounterVec
	features    *prometheus.CounterVec
	system      *prometheus.GaugeVec
	phaseTime   *prometheus.GaugeVec
	phaseRSS    *prometheus.GaugeVec
}

// New creates a registry with all counters at zero
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &Metrics{
		reg: reg,
		diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "closer",
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported while closing multipolygons",
		}, []string{"kind", "severity"}),
		features: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "features_total",
			Help:      "Map features extracted",
		}, []string{"type", "bounded"}),
		system: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "usage",
			Help:      "Last sampled system resource usage",
		}, []string{"resource"}),
		phaseTime: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "phase",
			Name:      "duration_seconds",
			Help:      "Wall time of each finished command phase",
		}, []string{"phase"}),
		phaseRSS: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "phase",
			Name:      "peak_rss_bytes",
			Help:      "Largest sampled resident set size during each phase",
		}, []string{"phase"}),
	}
	// report every kind, including those never seen
	for _, k := range closer.Kinds() {
		m.diagnostics.WithLabelValues(k.String(), k.Severity().String())
	}
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveDiagnostics counts diagnostics by kind. Safe for concurrent use.
func (m *Metrics) ObserveDiagnostics(diags []closer.Diagnostic) {
	for _, d := range diags {
		m.diagnostics.WithLabelValues(d.Kind.String(), d.Severity.String()).Inc()
	}
}

// ObserveFeatures counts features by type and boundedness
func (m *Metrics) ObserveFeatures(features []feature.Feature) {
	for _, f := range features {
		m.features.WithLabelValues(f.Type.String(), strconv.FormatBool(f.Bounded)).Inc()
	}
}

func (m *Metrics) setSystem(s *Sample) {
	m.system.WithLabelValues("cpu_percent").Set(s.CPUPercent)
	m.system.WithLabelValues("process_cpu_percent").Set(s.ProcessCPU)
	m.system.WithLabelValues("iowait_percent").Set(s.IOWaitPercent)
	m.system.WithLabelValues("memory_percent").Set(s.MemoryPercent)
	m.system.WithLabelValues("rss_bytes").Set(float64(s.RSSBytes))
	m.system.WithLabelValues("disk_read_mbps").Set(s.DiskReadMBps)
	m.system.WithLabelValues("disk_write_mbps").Set(s.DiskWriteMBps)
}

// setPhase records a finished phase. A phase run twice keeps the latest.
func (m *Metrics) setPhase(p Phase) {
	m.phaseTime.WithLabelValues(p.Name).Set(p.Duration.Seconds())
	m.phaseRSS.WithLabelValues(p.Name).Set(float64(p.PeakRSS))
}

// WriteTextfile writes all metrics in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
