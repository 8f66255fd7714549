// Package metrics 以 Prometheus 指标记录 Pipeline 运行情况
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LENAX/lazyflow/pkg/core/engine"
)

const namespace = "lazyflow"

// Collector 运行指标收集器（对外导出）
// 实现 engine.Listener；使用独立的 Registry，互不影响的多个实例可以共存
type Collector struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsInFlight *prometheus.GaugeVec
	nodes        *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	deferrals    *prometheus.CounterVec

	// runID -> pipeline名称，节点事件不携带名称
	pipelines sync.Map
}

var _ engine.Listener = (*Collector)(nil)

// NewCollector 创建指标收集器（对外导出）
// withRuntime 为 true 时同时注册 Go 运行时与进程指标
func NewCollector(withRuntime bool) *Collector {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		// Labels: pipeline, status (SUCCESS, FAILED, CANCELLED)
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by final status",
		}, []string{"pipeline", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"pipeline"}),
		runsInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Pipeline runs currently executing",
		}, []string{"pipeline"}),
		// Labels: pipeline, kind (read, transform, write, merge), status (SUCCESS, FAILED)
		nodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "executions_total",
			Help:      "Total node executions by kind and status",
		}, []string{"pipeline", "kind", "status"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "duration_seconds",
			Help:      "Node execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pipeline", "kind"}),
		deferrals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "deferrals_total",
			Help:      "Times a fan-in node was revisited before all parents finished",
		}, []string{"pipeline"}),
	}
}

// Registry 底层 Registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 暴露 /metrics 的 HTTP 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) OnRunStarted(report *engine.RunReport) {
	c.pipelines.Store(report.RunID, report.Pipeline)
	c.runsInFlight.WithLabelValues(report.Pipeline).Inc()
}

func (c *Collector) OnNodeFinished(runID string, node engine.NodeReport) {
	pipeline := c.pipelineOf(runID)
	c.nodes.WithLabelValues(pipeline, node.Kind.String(), node.Status).Inc()
	c.nodeDuration.WithLabelValues(pipeline, node.Kind.String()).Observe(node.Duration.Seconds())
}

func (c *Collector) OnRunFinished(report *engine.RunReport) {
	c.pipelines.Delete(report.RunID)
	c.runsInFlight.WithLabelValues(report.Pipeline).Dec()
	c.runs.WithLabelValues(report.Pipeline, report.Status).Inc()
	c.runDuration.WithLabelValues(report.Pipeline).Observe(report.Duration.Seconds())

	deferred := 0
	for _, nr := range report.Nodes {
		deferred += nr.Deferred
	}
	if deferred > 0 {
		c.deferrals.WithLabelValues(report.Pipeline).Add(float64(deferred))
	}
}

func (c *Collector) pipelineOf(runID string) string {
	if v, ok := c.pipelines.Load(runID); ok {
		return v.(string)
	}
	return "unknown"
}
