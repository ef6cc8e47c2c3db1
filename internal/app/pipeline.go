package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medtriage/agent"
	"github.com/medtriage/generator"
	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/document"
	"github.com/medtriage/internal/extract"
	"github.com/medtriage/internal/preprocess"
	"github.com/medtriage/service"
	"github.com/medtriage/store"
)

var (
	// ErrNotInitialized Initialize 尚未成功执行
	ErrNotInitialized = errors.New("application not initialized")
	// ErrEmptyInput 预处理后没有可分析的文本
	ErrEmptyInput = errors.New("no symptoms to analyze")
	// ErrReportNotFound 报告不存在
	ErrReportNotFound = errors.New("report not found")
)

// Input 一次分析的输入，FilePath 可选
type Input struct {
	Symptoms string
	FilePath string
}

// Analyze 预处理 → 分诊 → 并发执行专科 → 综合与评分 → 保存 → 告警。
// 模型全部不可用时仍返回报告，只有输入无效或存储失败才返回 error
func (a *Application) Analyze(ctx context.Context, in Input) (*store.Report, error) {
	if a.router == nil {
		return nil, ErrNotInitialized
	}

	text := in.Symptoms
	if in.FilePath != "" {
		doc, err := a.extractor.Extract(in.FilePath)
		if err != nil {
			return nil, fmt.Errorf("extract document: %w", err)
		}
		text = document.Combine(text, doc.Text)
	}
	text = preprocess.Process(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	runID := a.newRunID()
	start := time.Now()
	log := a.logger.With("run_id", runID)
	log.InfoContext(ctx, "analysis.start", "chars", len(text))

	decision := a.router.Decide(ctx, text)
	results := a.orchestrator.Execute(ctx, decision.Roles, text)
	synthesis := a.aggregator.Synthesize(ctx, results, text)

	report := &store.Report{
		RunID:        runID,
		CreatedAt:    a.now(),
		Symptoms:     text,
		RouteStage:   string(decision.Stage),
		RiskScore:    agent.RiskScore(results),
		ScoreVersion: consts.ScoreVersion,
		Synthesis:    synthesis.Text,
		Evidence:     synthesis.Evidence,
		Specialists:  specialists(results),
	}

	_, err := a.store.Save(ctx, report)
	a.recorder.ObserveAnalysis(report.RiskScore, err)
	if err != nil {
		log.ErrorContext(ctx, "analysis.save.failed", "error", err)
		return report, fmt.Errorf("save report: %w", err)
	}

	a.escalate(ctx, report)

	log.InfoContext(ctx, "analysis.complete",
		"report_id", report.ID,
		"roles", agent.Strings(decision.Roles),
		"stage", decision.Stage,
		"failures", len(results.Failures()),
		"risk_score", report.RiskScore,
		"elapsed", time.Since(start),
	)
	return report, nil
}

func specialists(results agent.ResultSet) []store.Specialist {
	out := make([]store.Specialist, 0, len(results))
	for _, r := range results {
		out = append(out, store.Specialist{
			Role:   string(r.Role),
			Title:  r.Title,
			Text:   r.Text,
			Failed: r.Failed,
		})
	}
	return out
}

// escalate 尽力而为，失败只记录日志
func (a *Application) escalate(ctx context.Context, r *store.Report) {
	for _, esc := range a.registry.Escalators() {
		triggered, err := esc.Escalate(ctx, service.Escalation{
			RunID:     r.RunID,
			ReportID:  r.ID,
			Symptoms:  r.Symptoms,
			RiskScore: r.RiskScore,
			Summary:   r.Synthesis,
		})
		if err != nil {
			a.recorder.ObserveEscalation(err)
			a.logger.WarnContext(ctx, "analysis.escalation.failed", "service", esc.Name(), "run_id", r.RunID, "error", err)
			continue
		}
		if triggered {
			a.recorder.ObserveEscalation(nil)
			a.logger.InfoContext(ctx, "analysis.escalation.triggered", "service", esc.Name(), "run_id", r.RunID)
		}
	}
}

// Report 按 ID 读取报告
func (a *Application) Report(ctx context.Context, id int64) (*store.Report, error) {
	if a.store == nil {
		return nil, ErrNotInitialized
	}
	r, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %d", ErrReportNotFound, id)
	}
	return r, nil
}

// Reports 最近的报告摘要
func (a *Application) Reports(ctx context.Context, limit int) ([]store.Summary, error) {
	if a.store == nil {
		return nil, ErrNotInitialized
	}
	return a.store.List(ctx, limit)
}

// Stats 报告统计
func (a *Application) Stats(ctx context.Context) (store.Stats, error) {
	if a.store == nil {
		return store.Stats{}, ErrNotInitialized
	}
	return a.store.Stats(ctx)
}

// Wellness 基于已保存报告的综合评估生成健康计划
func (a *Application) Wellness(ctx context.Context, id int64) (extract.Result[generator.WellnessPlan], error) {
	r, err := a.Report(ctx, id)
	if err != nil {
		return extract.Result[generator.WellnessPlan]{}, err
	}
	return a.wellness.Plan(ctx, r.Synthesis), nil
}

// Treatment 基于已保存报告生成治疗建议
func (a *Application) Treatment(ctx context.Context, id int64, profile generator.Profile) (extract.Result[generator.TreatmentPlan], error) {
	r, err := a.Report(ctx, id)
	if err != nil {
		return extract.Result[generator.TreatmentPlan]{}, err
	}
	return a.treatment.Recommend(ctx, r.Synthesis, profile), nil
}

// MedicationDetails 药品说明
func (a *Application) MedicationDetails(ctx context.Context, name string) (string, error) {
	if a.treatment == nil {
		return "", ErrNotInitialized
	}
	return a.treatment.MedicationDetails(ctx, name), nil
}

// Prescription 基于已保存报告生成处方草稿
func (a *Application) Prescription(ctx context.Context, id int64, profile generator.Profile) (generator.Prescription, error) {
	r, err := a.Report(ctx, id)
	if err != nil {
		return generator.Prescription{}, err
	}
	return a.prescriptions.Write(ctx, profile, r.Synthesis), nil
}

// Assess 对已保存报告做结构化分析
func (a *Application) Assess(ctx context.Context, id int64) (extract.Result[agent.Assessment], error) {
	r, err := a.Report(ctx, id)
	if err != nil {
		return extract.Result[agent.Assessment]{}, err
	}
	return a.assessor.Run(ctx, r.Synthesis), nil
}
