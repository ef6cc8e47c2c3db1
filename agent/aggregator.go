package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"text/template"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/llm"
)

// riskSignals 风险词，按子串匹配（"urgently" 也会命中 "urgent"）
var riskSignals = []string{"urgent", "emergency", "severe", "critical", "immediate"}

// Synthesis 综合结果。Text 在模型失败时为错误描述，其余字段始终有值
type Synthesis struct {
	Text     string
	Evidence string
	Results  ResultSet
	Failed   bool
	Err      error
}

// EvidenceRetriever 由 Retriever 实现
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, query string) string
}

// AggregatorConfig 汇总器依赖
type AggregatorConfig struct {
	Model    llm.Invoker
	Evidence EvidenceRetriever
	Logger   *slog.Logger
}

// Aggregator 将专科结果合成为一份评估
type Aggregator struct {
	model    llm.Invoker
	evidence EvidenceRetriever
	prompt   *template.Template
	logger   *slog.Logger
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.Evidence == nil {
		cfg.Evidence = NewRetriever(RetrieverConfig{Logger: cfg.Logger})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Aggregator{
		model:    cfg.Model,
		evidence: cfg.Evidence,
		prompt:   consts.MustParse("synthesis", consts.SynthesisPrompt),
		logger:   cfg.Logger,
	}
}

// Combine 以 "ROLE: text" 的形式拼接各专科输出，空行分隔
func Combine(results ResultSet) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToUpper(string(r.Role)), r.Text))
	}
	return strings.Join(parts, "\n\n")
}

// Synthesize 检索证据并发起一次综合调用，始终返回完整的 Synthesis
func (a *Aggregator) Synthesize(ctx context.Context, results ResultSet, original string) Synthesis {
	s := Synthesis{
		Evidence: a.evidence.Retrieve(ctx, original),
		Results:  results,
	}
	if s.Results == nil {
		s.Results = ResultSet{}
	}

	text, err := a.generate(ctx, Combine(results), s.Evidence)
	if err != nil {
		a.logger.WarnContext(ctx, "aggregator.synthesis.failed", "error", err)
		s.Text = fmt.Sprintf("Error generating synthesis: %v", err)
		s.Failed, s.Err = true, err
		return s
	}
	s.Text = text
	return s
}

func (a *Aggregator) generate(ctx context.Context, combined, evidence string) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	if a.model == nil {
		return "", llm.ErrModelNotFound
	}
	prompt, err := consts.Render(a.prompt, map[string]any{"Combined": combined, "Evidence": evidence})
	if err != nil {
		return "", err
	}
	return a.model.Invoke(ctx, prompt)
}

// RiskScore 风险词密度：命中词数 / 总词数 × 100，上限 10，保留两位小数。
// 这是粗略的启发式，不是临床评分；算法版本见 consts.ScoreVersion
func RiskScore(results ResultSet) float64 {
	var total, matched int
	for _, r := range results {
		for _, word := range strings.Fields(strings.ToLower(r.Text)) {
			total++
			for _, sig := range riskSignals {
				if strings.Contains(word, sig) {
					matched++
					break
				}
			}
		}
	}
	if total == 0 {
		return 0.0
	}
	score := math.Min(float64(matched)/float64(total)*100, 10.0)
	return math.Round(score*100) / 100
}
