// Package observability carries the pipeline's Prometheus metrics and
// OpenTelemetry tracing.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineCollector bundles the metrics one render run reports.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	StageDurations *prometheus.HistogramVec
	StageErrors    *prometheus.CounterVec

	GridCells     prometheus.Gauge
	FlatRegions   prometheus.Gauge
	Lakes         prometheus.Gauge
	LakeCells     prometheus.Gauge
	RenderedQuads prometheus.Gauge
}

// NewPipelineCollector registers pipeline metrics against reg, defaulting
// to the global Prometheus registry when nil.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "topomap_stage_duration_seconds",
		Help:    "Pipeline stage latency in seconds, labeled by stage.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"stage"}), "topomap_stage_duration_seconds")
	if err != nil {
		return nil, err
	}
	stageErrors, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "topomap_stage_errors_total",
		Help: "Pipeline stage failures, labeled by stage.",
	}, []string{"stage"}), "topomap_stage_errors_total")
	if err != nil {
		return nil, err
	}

	c := &PipelineCollector{gatherer: gatherer, StageDurations: durations, StageErrors: stageErrors}
	for name, spec := range map[string]struct {
		help string
		dst  *prometheus.Gauge
	}{
		"topomap_grid_cells":     {"Cells in the loaded elevation grid.", &c.GridCells},
		"topomap_flat_regions":   {"Connected flat regions found by the water classifier.", &c.FlatRegions},
		"topomap_lakes":          {"Flat regions large enough to count as lakes.", &c.Lakes},
		"topomap_lake_cells":     {"Grid cells classified as lake.", &c.LakeCells},
		"topomap_rendered_quads": {"Quads drawn into the scene image.", &c.RenderedQuads},
	} {
		g, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: spec.help}), name)
		if err != nil {
			return nil, err
		}
		*spec.dst = g
	}
	return c, nil
}

// ObserveStage records the duration of a stage and counts it as failed
// when err is non-nil.
func (c *PipelineCollector) ObserveStage(stage string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		c.StageErrors.WithLabelValues(stage).Inc()
	}
}

// SetWater publishes classifier counts.
func (c *PipelineCollector) SetWater(cells, regions, lakes, lakeCells int) {
	if c == nil {
		return
	}
	c.GridCells.Set(float64(cells))
	c.FlatRegions.Set(float64(regions))
	c.Lakes.Set(float64(lakes))
	c.LakeCells.Set(float64(lakeCells))
}

// SetRenderedQuads publishes the scene size.
func (c *PipelineCollector) SetRenderedQuads(n int) {
	if c == nil {
		return
	}
	c.RenderedQuads.Set(float64(n))
}

// WriteTextfile writes every gathered metric in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (c *PipelineCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}
