package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/extract"
	"github.com/medtriage/internal/llm"
)

// DefaultMaxRoles 单次分诊最多选择的角色数
const DefaultMaxRoles = 4

// Stage 最终决定路由结果的阶段
type Stage string

const (
	StageKeyword Stage = "keyword"
	StageModel   Stage = "model"
	StageDefault Stage = "default"
)

// Decision 路由结果
type Decision struct {
	Roles []Role
	Stage Stage
	// Matched 关键词阶段的原始命中（截断前）
	Matched []Role
}

// RouterConfig 路由器依赖
type RouterConfig struct {
	Registry *Registry
	Table    *TriageTable
	// Model 为空时跳过模型兜底
	Model        llm.Invoker
	MaxRoles     int
	DefaultRoles []Role
	Logger       *slog.Logger
	Observer     Observer
}

// Router 将症状文本映射为 1..MaxRoles 个角色
type Router struct {
	registry     *Registry
	table        *TriageTable
	model        llm.Invoker
	maxRoles     int
	defaultRoles []Role
	prompt       *template.Template
	decoder      *extract.Decoder[[]string]
	logger       *slog.Logger
	observer     Observer
}

func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Registry == nil {
		return nil, errors.New("router requires a registry")
	}
	if cfg.Table == nil {
		cfg.Table = DefaultTriageTable()
	}
	if err := cfg.Table.Validate(cfg.Registry); err != nil {
		return nil, fmt.Errorf("triage table: %w", err)
	}
	if cfg.MaxRoles <= 0 {
		cfg.MaxRoles = DefaultMaxRoles
	}
	if len(cfg.DefaultRoles) == 0 {
		cfg.DefaultRoles = []Role{RoleGeneralPractitioner, RolePharmacologist}
	}
	for _, r := range cfg.DefaultRoles {
		if !cfg.Registry.Known(r) {
			return nil, fmt.Errorf("default role %s is not registered", r)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	decoder, err := extract.NewDecoder[[]string](true)
	if err != nil {
		return nil, err
	}
	return &Router{
		registry:     cfg.Registry,
		table:        cfg.Table,
		model:        cfg.Model,
		maxRoles:     cfg.MaxRoles,
		defaultRoles: cfg.DefaultRoles,
		prompt:       consts.MustParse("triage", consts.TriagePrompt),
		decoder:      decoder,
		logger:       cfg.Logger,
		observer:     cfg.Observer,
	}, nil
}

// Route 返回需要会诊的角色，非空且不超过 MaxRoles
func (r *Router) Route(ctx context.Context, text string) []Role {
	return r.Decide(ctx, text).Roles
}

// Decide 与 Route 相同，额外返回决定结果的阶段
func (r *Router) Decide(ctx context.Context, text string) Decision {
	matched := r.match(text)
	d := Decision{Roles: matched, Stage: StageKeyword, Matched: matched}

	if len(matched) == 0 || len(matched) > r.maxRoles {
		if picked, ok := r.askModel(ctx, text); ok {
			d.Roles, d.Stage = picked, StageModel
		}
	}
	if len(d.Roles) == 0 {
		d.Roles, d.Stage = append([]Role(nil), r.defaultRoles...), StageDefault
	}
	if len(d.Roles) > r.maxRoles {
		r.logger.DebugContext(ctx, "triage.route.truncate", "selected", Strings(d.Roles), "max", r.maxRoles)
		d.Roles = d.Roles[:r.maxRoles]
	}

	r.observer.ObserveRouted(string(d.Stage), Strings(d.Roles))
	r.logger.InfoContext(ctx, "triage.route.complete",
		"stage", d.Stage,
		"roles", Strings(d.Roles),
		"keyword_matches", len(matched),
	)
	return d
}

// match 关键词阶段：先通用症状表（表顺序），再专科关键词（注册顺序）
func (r *Router) match(text string) []Role {
	lower := strings.ToLower(text)
	var sel selection

	for _, g := range r.table.General {
		if strings.Contains(lower, g.Keyword) {
			sel.add(g.Roles...)
		}
	}
	for _, s := range r.registry.specs {
		for _, kw := range s.Keywords {
			if strings.Contains(lower, kw) {
				sel.add(s.Role)
				break
			}
		}
	}
	return sel.roles
}

// askModel 模型兜底，任何失败都只记录日志
func (r *Router) askModel(ctx context.Context, text string) ([]Role, bool) {
	if r.model == nil {
		return nil, false
	}
	prompt, err := consts.Render(r.prompt, map[string]any{
		"Symptoms": text,
		"Roles":    Strings(r.registry.Roles()),
	})
	if err != nil {
		r.logger.WarnContext(ctx, "triage.model.prompt_failed", "error", err)
		return nil, false
	}

	reply, err := r.model.Invoke(ctx, prompt)
	if err != nil {
		r.logger.WarnContext(ctx, "triage.model.failed", "error", err)
		return nil, false
	}

	parsed := r.decoder.Decode(reply)
	if !parsed.OK() {
		r.logger.WarnContext(ctx, "triage.model.unparsable", "error", parsed.Err)
		return nil, false
	}

	var sel selection
	for _, id := range parsed.Value {
		role := Role(strings.ToLower(strings.TrimSpace(id)))
		if !r.registry.Known(role) {
			r.logger.DebugContext(ctx, "triage.model.unknown_role", "role", id)
			continue
		}
		sel.add(role)
	}
	if len(sel.roles) == 0 {
		return nil, false
	}
	return sel.roles, true
}

// selection 保持插入顺序的去重集合
type selection struct {
	roles []Role
	seen  map[Role]struct{}
}

func (s *selection) add(roles ...Role) {
	if s.seen == nil {
		s.seen = make(map[Role]struct{})
	}
	for _, r := range roles {
		if _, ok := s.seen[r]; ok {
			continue
		}
		s.seen[r] = struct{}{}
		s.roles = append(s.roles, r)
	}
}
