package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/extract"
	"github.com/medtriage/internal/llm"
)

// Assessment 结构化分析结果
type Assessment struct {
	Findings              []string `json:"findings"`
	DifferentialDiagnosis []string `json:"differential_diagnosis"`
	Confidence            float64  `json:"confidence"`
	RecommendedTests      []string `json:"recommended_tests"`
	Recommendations       []string `json:"recommendations"`
}

// DefaultAssessment 无法解析模型回复时使用
func DefaultAssessment() Assessment {
	return Assessment{
		Findings:              []string{"Unable to parse response"},
		DifferentialDiagnosis: []string{},
		Confidence:            0.0,
		RecommendedTests:      []string{},
		Recommendations:       []string{},
	}
}

// StructuredAgent 要求模型输出 T 形状的 JSON。
// 解析失败时返回 Raw 结果，其 Value 为 fallback，Raw 为模型原文
type StructuredAgent[T any] struct {
	instruction string
	model       llm.Invoker
	decoder     *extract.Decoder[T]
	shape       string
	fallback    T
	prompt      *template.Template
	logger      *slog.Logger
}

// NewStructuredAgent example 用于在 prompt 中展示期望的 JSON 结构
func NewStructuredAgent[T any](instruction string, model llm.Invoker, example, fallback T) (*StructuredAgent[T], error) {
	shape, err := json.MarshalIndent(example, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("render example: %w", err)
	}
	decoder, err := extract.NewDecoder[T](false)
	if err != nil {
		return nil, err
	}
	return &StructuredAgent[T]{
		instruction: instruction,
		model:       model,
		decoder:     decoder,
		shape:       string(shape),
		fallback:    fallback,
		prompt:      consts.MustParse("structured", consts.StructuredPrompt),
		logger:      slog.Default(),
	}, nil
}

// NewAssessmentAgent 输出 Assessment 的结构化 agent
func NewAssessmentAgent(instruction string, model llm.Invoker) *StructuredAgent[Assessment] {
	example := Assessment{
		Findings:              []string{"finding1", "finding2"},
		DifferentialDiagnosis: []string{"condition1", "condition2"},
		Confidence:            0.8,
		RecommendedTests:      []string{"test1", "test2"},
		Recommendations:       []string{"recommendation1", "recommendation2"},
	}
	a, err := NewStructuredAgent(instruction, model, example, DefaultAssessment())
	if err != nil {
		panic(err)
	}
	return a
}

// Run 发起一次调用，不返回 error
func (a *StructuredAgent[T]) Run(ctx context.Context, input string) (res extract.Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = a.degrade("", fmt.Errorf("panic: %v", p))
		}
	}()

	if a.model == nil {
		return a.degrade("", llm.ErrModelNotFound)
	}
	prompt, err := consts.Render(a.prompt, map[string]any{
		"Instruction": a.instruction,
		"Report":      input,
		"Schema":      a.shape,
	})
	if err != nil {
		return a.degrade("", err)
	}
	text, err := a.model.Invoke(ctx, prompt)
	if err != nil {
		a.logger.WarnContext(ctx, "structured.invoke.failed", "error", err)
		return a.degrade("", err)
	}

	res = a.decoder.Decode(text)
	if !res.OK() {
		a.logger.WarnContext(ctx, "structured.parse.failed", "error", res.Err)
		return a.degrade(text, res.Err)
	}
	return res
}

func (a *StructuredAgent[T]) degrade(raw string, err error) extract.Result[T] {
	return extract.Result[T]{Kind: extract.Raw, Value: a.fallback, Raw: raw, Err: err}
}
