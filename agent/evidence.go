package agent

import (
	"context"
	"log/slog"
	"strings"
	"text/template"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/llm"
)

// NoEvidence 所有检索途径都失败时返回
const NoEvidence = "No specific evidence found."

// KnowledgeEntry 内置知识条目，Condition 中的下划线同时按空格匹配
type KnowledgeEntry struct {
	Condition string
	Evidence  string
}

// DefaultKnowledge 内置知识表
func DefaultKnowledge() []KnowledgeEntry {
	return []KnowledgeEntry{
		{Condition: "hypertension", Evidence: "Evidence: ACC/AHA guidelines recommend lifestyle modifications and medication for BP >130/80"},
		{Condition: "diabetes", Evidence: "Evidence: ADA standards recommend HbA1c <7% for most adults"},
		{Condition: "chest_pain", Evidence: "Evidence: HEART score helps stratify acute chest pain risk"},
	}
}

// EvidenceSource 外部证据来源，例如 OpenSearch 索引
type EvidenceSource interface {
	Name() string
	Search(ctx context.Context, query string) (string, error)
}

// RetrieverConfig 证据检索器依赖
type RetrieverConfig struct {
	Knowledge []KnowledgeEntry
	Sources   []EvidenceSource
	// Model 为空时跳过模型兜底
	Model  llm.Invoker
	Logger *slog.Logger
}

// Retriever 按 知识表 → 外部来源 → 模型 的顺序检索证据，永不失败
type Retriever struct {
	knowledge []KnowledgeEntry
	sources   []EvidenceSource
	model     llm.Invoker
	prompt    *template.Template
	logger    *slog.Logger
}

func NewRetriever(cfg RetrieverConfig) *Retriever {
	if cfg.Knowledge == nil {
		cfg.Knowledge = DefaultKnowledge()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Retriever{
		knowledge: cfg.Knowledge,
		sources:   cfg.Sources,
		model:     cfg.Model,
		prompt:    consts.MustParse("evidence", consts.EvidencePrompt),
		logger:    cfg.Logger,
	}
}

// Retrieve 返回 query 的证据文本
func (r *Retriever) Retrieve(ctx context.Context, query string) string {
	if hits := r.lookup(query); len(hits) > 0 {
		r.logger.DebugContext(ctx, "evidence.knowledge.hit", "matches", len(hits))
		return strings.Join(hits, " | ")
	}

	for _, src := range r.sources {
		text, err := src.Search(ctx, query)
		if err != nil {
			r.logger.WarnContext(ctx, "evidence.source.failed", "source", src.Name(), "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			r.logger.DebugContext(ctx, "evidence.source.hit", "source", src.Name())
			return text
		}
	}

	if r.model == nil {
		return NoEvidence
	}
	prompt, err := consts.Render(r.prompt, map[string]any{"Query": query})
	if err != nil {
		return NoEvidence
	}
	text, err := r.model.Invoke(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		r.logger.WarnContext(ctx, "evidence.model.failed", "error", err)
		return NoEvidence
	}
	return text
}

func (r *Retriever) lookup(query string) []string {
	lower := strings.ToLower(query)
	var hits []string
	for _, k := range r.knowledge {
		cond := strings.ToLower(k.Condition)
		if strings.Contains(lower, cond) || strings.Contains(lower, strings.ReplaceAll(cond, "_", " ")) {
			hits = append(hits, k.Evidence)
		}
	}
	return hits
}
