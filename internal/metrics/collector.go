// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/workflow"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	registry *prometheus.Registry

	// 检查点指标
	checkpointDuration *prometheus.HistogramVec
	checkpointTotal    *prometheus.CounterVec

	// 运行指标
	runTotal        *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastRunSuccess  prometheus.Gauge
	lastRunUnixTime prometheus.Gauge

	logger *zap.Logger
	mu     sync.Mutex
}

// NewCollector 创建指标收集器，使用独立 Registry 以便写出 textfile
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.checkpointDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkpoint_duration_seconds",
			Help:      "Checkpoint duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"label"},
	)

	c.checkpointTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_total",
			Help:      "Total number of checkpoints by outcome",
		},
		[]string{"label", "status"},
	)

	c.runTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_total",
			Help:      "Total number of verification runs",
		},
		[]string{"outcome"},
	)

	c.runDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Verification run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	c.lastRunSuccess = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_success",
		Help:      "1 if the last run completed, 0 otherwise",
	})

	c.lastRunUnixTime = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last finished run",
	})

	return c
}

// Registry 返回底层 Registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// =============================================================================
// 🔍 检查点指标
// =============================================================================

// RecordCheckpoint 记录检查点结果
func (c *Collector) RecordCheckpoint(label string, status workflow.StepStatus, duration time.Duration) {
	c.checkpointTotal.WithLabelValues(label, string(status)).Inc()
	if status != workflow.StepSkipped {
		c.checkpointDuration.WithLabelValues(label).Observe(duration.Seconds())
	}
}

// CheckpointStarted implements workflow.Observer.
func (c *Collector) CheckpointStarted(int, string) {}

// CheckpointFinished implements workflow.Observer.
func (c *Collector) CheckpointFinished(rec workflow.StepRecord) {
	c.RecordCheckpoint(rec.Label, rec.Status, rec.Duration)
}

// =============================================================================
// 🏁 运行指标
// =============================================================================

// RecordRun 记录一次运行；跳过的检查点在此补记
func (c *Collector) RecordRun(res workflow.Result, finishedAt time.Time) {
	for _, s := range res.Steps {
		if s.Status == workflow.StepSkipped {
			c.RecordCheckpoint(s.Label, s.Status, 0)
		}
	}

	c.runTotal.WithLabelValues(string(res.Outcome)).Inc()
	c.runDuration.Observe(res.Duration.Seconds())
	if res.Completed() {
		c.lastRunSuccess.Set(1)
	} else {
		c.lastRunSuccess.Set(0)
	}
	c.lastRunUnixTime.Set(float64(finishedAt.Unix()))
}

// WriteTextfile 以 node_exporter textfile 格式写出全部指标
func (c *Collector) WriteTextfile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	c.logger.Debug("metrics textfile written", zap.String("path", path))
	return nil
}
