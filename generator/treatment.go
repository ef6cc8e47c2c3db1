package generator

import (
	"context"
	"log/slog"
	"strings"
	"text/template"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/extract"
	"github.com/medtriage/internal/llm"
)

// NoMedicationInfo 药品说明获取失败时返回
const NoMedicationInfo = "Information not available"

type Medication struct {
	Name      string      `json:"name"`
	Dosage    string      `json:"dosage"`
	Frequency string      `json:"frequency"`
	Duration  string      `json:"duration"`
	Safety    *DrugSafety `json:"safety_check,omitempty"`
}

type TreatmentPlan struct {
	Medications        []Medication `json:"medications"`
	NonPharmacological []string     `json:"non_pharmacological"`
	Monitoring         []string     `json:"monitoring"`
	Precautions        []string     `json:"precautions"`
}

// DefaultTreatmentPlan 模型不可用或回复无法解析时使用
func DefaultTreatmentPlan() TreatmentPlan {
	return TreatmentPlan{
		Medications:        []Medication{},
		NonPharmacological: []string{"Consult healthcare provider for treatment plan"},
		Monitoring:         []string{},
		Precautions:        []string{},
	}
}

type TreatmentRecommender struct {
	model   llm.Invoker
	call    *structuredCall[TreatmentPlan]
	details *template.Template
	checker *DrugSafetyChecker
	logger  *slog.Logger
}

// NewTreatmentRecommender checker 可为 nil，此时不做用药安全检查
func NewTreatmentRecommender(model llm.Invoker, checker *DrugSafetyChecker) (*TreatmentRecommender, error) {
	example := TreatmentPlan{
		Medications:        []Medication{{}},
		NonPharmacological: []string{},
		Monitoring:         []string{},
		Precautions:        []string{},
	}
	call, err := newStructuredCall(consts.AgentNameTreatment, consts.TreatmentPrompt, model, example)
	if err != nil {
		return nil, err
	}
	details, err := consts.Parse("medication", consts.MedicationPrompt)
	if err != nil {
		return nil, err
	}
	return &TreatmentRecommender{
		model:   model,
		call:    call,
		details: details,
		checker: checker,
		logger:  slog.Default(),
	}, nil
}

// Recommend 生成治疗方案并对每个药品做安全检查
func (t *TreatmentRecommender) Recommend(ctx context.Context, diagnosis string, profile Profile) extract.Result[TreatmentPlan] {
	res := t.call.run(ctx, map[string]any{"Diagnosis": diagnosis, "Profile": profile})
	if !res.OK() {
		t.logger.WarnContext(ctx, "treatment.recommend.degraded", "error", res.Err)
		res.Value = DefaultTreatmentPlan()
		return res
	}
	if t.checker == nil {
		return res
	}
	for i := range res.Value.Medications {
		med := &res.Value.Medications[i]
		if strings.TrimSpace(med.Name) == "" {
			continue
		}
		safety := t.checker.Check(ctx, med.Name, profile)
		med.Safety = &safety
	}
	return res
}

// MedicationDetails 面向患者的药品说明
func (t *TreatmentRecommender) MedicationDetails(ctx context.Context, name string) string {
	text, err := invokeText(ctx, t.model, t.details, map[string]any{"Drug": name})
	if err != nil {
		t.logger.WarnContext(ctx, "treatment.medication.failed", "drug", name, "error", err)
		return NoMedicationInfo
	}
	return text
}
