package generator

import (
	"context"
	"log/slog"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/extract"
	"github.com/medtriage/internal/llm"
)

type Diet struct {
	FoodsToEat   []string `json:"foods_to_eat"`
	FoodsToAvoid []string `json:"foods_to_avoid"`
	Hydration    string   `json:"hydration"`
}

type Exercise struct {
	Type        string   `json:"type"`
	Duration    string   `json:"duration"`
	Frequency   string   `json:"frequency"`
	Precautions []string `json:"precautions"`
}

type Lifestyle struct {
	Sleep            string   `json:"sleep"`
	StressManagement []string `json:"stress_management"`
	Habits           []string `json:"habits"`
}

type Preventive struct {
	Screenings  []string `json:"screenings"`
	Supplements []string `json:"supplements"`
	FollowUp    string   `json:"follow_up"`
}

// WellnessPlan 解析失败时只有 RawPlan 有值
type WellnessPlan struct {
	Diet       Diet       `json:"diet"`
	Exercise   Exercise   `json:"exercise"`
	Lifestyle  Lifestyle  `json:"lifestyle"`
	Preventive Preventive `json:"preventive"`
	RawPlan    string     `json:"raw_plan,omitempty"`
}

type WellnessPlanner struct {
	call   *structuredCall[WellnessPlan]
	logger *slog.Logger
}

func NewWellnessPlanner(model llm.Invoker) (*WellnessPlanner, error) {
	example := WellnessPlan{
		Diet:       Diet{FoodsToEat: []string{}, FoodsToAvoid: []string{}},
		Exercise:   Exercise{Precautions: []string{}},
		Lifestyle:  Lifestyle{StressManagement: []string{}, Habits: []string{}},
		Preventive: Preventive{Screenings: []string{}, Supplements: []string{}},
	}
	call, err := newStructuredCall(consts.AgentNameWellness, consts.WellnessPrompt, model, example)
	if err != nil {
		return nil, err
	}
	return &WellnessPlanner{call: call, logger: slog.Default()}, nil
}

// Plan 根据综合评估生成健康计划
func (w *WellnessPlanner) Plan(ctx context.Context, assessment string) extract.Result[WellnessPlan] {
	res := w.call.run(ctx, map[string]any{"Assessment": assessment})
	if !res.OK() {
		w.logger.WarnContext(ctx, "wellness.plan.degraded", "error", res.Err)
		res.Value = WellnessPlan{RawPlan: res.Raw}
	}
	return res
}
