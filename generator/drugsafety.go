package generator

import (
	"context"
	"log/slog"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/llm"
)

// NoLabelInfo 无法获取 FDA 标签时写入 prompt 的文本
const NoLabelInfo = "Drug information not available from FDA database"

// DrugSafety 单个药品的安全评估
type DrugSafety struct {
	Safety       string   `json:"safety"`
	Interactions []string `json:"interactions"`
	Warnings     []string `json:"warnings"`
	Dosage       string   `json:"dosage"`
}

func DefaultDrugSafety() DrugSafety {
	return DrugSafety{
		Safety:       "Unknown",
		Interactions: []string{"Unable to verify"},
		Warnings:     []string{"Consult healthcare provider"},
		Dosage:       "As prescribed",
	}
}

// Alternative 替代药品
type Alternative struct {
	Drug   string `json:"drug"`
	Reason string `json:"reason"`
}

func DefaultAlternatives() []Alternative {
	return []Alternative{{Drug: "Consult pharmacist", Reason: "For personalized alternatives"}}
}

// DrugSafetyChecker 结合 FDA 标签与模型判断用药安全
type DrugSafetyChecker struct {
	labels       LabelSource
	safety       *structuredCall[DrugSafety]
	alternatives *structuredCall[[]Alternative]
	logger       *slog.Logger
}

// NewDrugSafetyChecker labels 为 nil 时跳过标签查询
func NewDrugSafetyChecker(model llm.Invoker, labels LabelSource) (*DrugSafetyChecker, error) {
	safety, err := newStructuredCall(consts.AgentNameDrugSafety, consts.DrugSafetyPrompt, model,
		DrugSafety{Safety: "Safe/Caution/Contraindicated", Interactions: []string{}, Warnings: []string{}})
	if err != nil {
		return nil, err
	}
	alternatives, err := newStructuredCall("alternatives", consts.AlternativesPrompt, model,
		[]Alternative{{Drug: "name", Reason: "why better"}})
	if err != nil {
		return nil, err
	}
	return &DrugSafetyChecker{labels: labels, safety: safety, alternatives: alternatives, logger: slog.Default()}, nil
}

// Check 评估药品对该患者的安全性，失败时返回 DefaultDrugSafety
func (c *DrugSafetyChecker) Check(ctx context.Context, drug string, profile Profile) DrugSafety {
	label := NoLabelInfo
	if c.labels != nil {
		if text, err := c.labels.Label(ctx, drug); err == nil {
			label = text
		} else {
			c.logger.DebugContext(ctx, "drug_safety.label.unavailable", "drug", drug, "error", err)
		}
	}

	res := c.safety.run(ctx, map[string]any{
		"Drug":    drug,
		"Profile": profile,
		"Label":   label,
	})
	if !res.OK() {
		c.logger.WarnContext(ctx, "drug_safety.check.degraded", "drug", drug, "error", res.Err)
		return DefaultDrugSafety()
	}
	return res.Value
}

// Alternatives 推荐替代药品
func (c *DrugSafetyChecker) Alternatives(ctx context.Context, drug, reason string) []Alternative {
	res := c.alternatives.run(ctx, map[string]any{"Drug": drug, "Reason": reason})
	if !res.OK() || len(res.Value) == 0 {
		return DefaultAlternatives()
	}
	return res.Value
}
