// Package metrics 定义流水线的 Prometheus 指标，使用独立的 Registry，便于测试与多实例共存
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medtriage"

// Recorder 聚合所有指标
type Recorder struct {
	registry *prometheus.Registry

	llmCalls      *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	agentRuns     *prometheus.CounterVec
	routedRoles   *prometheus.CounterVec
	riskScore     prometheus.Histogram
	analyses      *prometheus.CounterVec
	escalations   *prometheus.CounterVec
	inflightAgent prometheus.Gauge
}

// NewRecorder 创建并注册全部指标
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Model invocations by caller and outcome.",
		}, []string{"caller", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Model invocation latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"caller"}),
		agentRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_runs_total",
			Help:      "Specialist agent runs by role and outcome.",
		}, []string{"role", "outcome"}),
		routedRoles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_routed_total",
			Help:      "Roles selected by the triage router, by deciding stage.",
		}, []string{"stage", "role"}),
		riskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of computed risk scores.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed analyses by outcome.",
		}, []string{"outcome"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "High-risk escalations by outcome.",
		}, []string{"outcome"}),
		inflightAgent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_inflight",
			Help:      "Specialist agents currently running.",
		}),
	}

	r.registry.MustRegister(
		r.llmCalls, r.llmLatency, r.agentRuns, r.routedRoles,
		r.riskScore, r.analyses, r.escalations, r.inflightAgent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveLLMCall 记录一次模型调用
func (r *Recorder) ObserveLLMCall(caller string, elapsed time.Duration, err error) {
	r.llmCalls.WithLabelValues(caller, outcome(err)).Inc()
	r.llmLatency.WithLabelValues(caller).Observe(elapsed.Seconds())
}

// AgentStarted / AgentFinished 跟踪正在运行的 agent
func (r *Recorder) AgentStarted() { r.inflightAgent.Inc() }

func (r *Recorder) AgentFinished(role string, failed bool) {
	r.inflightAgent.Dec()
	o := "ok"
	if failed {
		o = "failed"
	}
	r.agentRuns.WithLabelValues(role, o).Inc()
}

// ObserveRouted 记录路由结果，stage 为 keyword、model 或 default
func (r *Recorder) ObserveRouted(stage string, roles []string) {
	for _, role := range roles {
		r.routedRoles.WithLabelValues(stage, role).Inc()
	}
}

// ObserveAnalysis 记录一次完整分析
func (r *Recorder) ObserveAnalysis(score float64, err error) {
	r.analyses.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		r.riskScore.Observe(score)
	}
}

// ObserveEscalation 记录一次升级告警
func (r *Recorder) ObserveEscalation(err error) {
	r.escalations.WithLabelValues(outcome(err)).Inc()
}

// Registry 暴露底层 registry
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler 返回 /metrics 的 HTTP handler
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
