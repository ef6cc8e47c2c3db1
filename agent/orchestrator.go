package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medtriage/internal/llm"
)

// ErrAgentTimeout agent 在超时或整体截止时间前未返回
var ErrAgentTimeout = errors.New("agent timed out")

// ModelResolver 按角色名查找模型，llm.ModelRegistry 实现了该接口
type ModelResolver interface {
	Resolve(name string) (llm.Invoker, error)
}

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	Registry *Registry
	Models   ModelResolver
	// Workers 并发上限，默认 5
	Workers int
	// AgentTimeout 单个 agent 的超时，0 表示不限制
	AgentTimeout time.Duration
	// Deadline 整次执行的截止时间，0 表示不限制
	Deadline time.Duration
	Logger   *slog.Logger
	Observer Observer
}

// Orchestrator 并发执行多个专科 agent，单个失败不影响其他 agent
type Orchestrator struct {
	registry     *Registry
	models       ModelResolver
	workers      int
	agentTimeout time.Duration
	deadline     time.Duration
	logger       *slog.Logger
	observer     Observer
}

func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, errors.New("orchestrator requires a registry")
	}
	if cfg.Models == nil {
		return nil, errors.New("orchestrator requires a model resolver")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Orchestrator{
		registry:     cfg.Registry,
		models:       cfg.Models,
		workers:      cfg.Workers,
		agentTimeout: cfg.AgentTimeout,
		deadline:     cfg.Deadline,
		logger:       cfg.Logger,
		observer:     cfg.Observer,
	}, nil
}

// Execute 对每个已知角色新建 agent 并发执行，阻塞直到全部完成或超时。
// 每个已知角色恰好产生一个结果，未知角色被跳过，结果按请求顺序排列
func (o *Orchestrator) Execute(ctx context.Context, roles []Role, text string) ResultSet {
	start := time.Now()
	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	var sel selection
	for _, role := range roles {
		if !o.registry.Known(role) {
			o.logger.DebugContext(ctx, "orchestrator.role.unknown", "role", role)
			continue
		}
		sel.add(role)
	}

	results := make([]Result, len(sel.roles))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, role := range sel.roles {
		spec, _ := o.registry.Lookup(role)
		g.Go(func() error {
			results[i] = o.runOne(ctx, spec, text)
			return nil
		})
	}
	_ = g.Wait()

	set := ResultSet(results)
	o.logger.InfoContext(ctx, "orchestrator.execute.complete",
		"dispatched", len(set),
		"failed", len(set.Failures()),
		"elapsed", time.Since(start),
	)
	return set
}

func (o *Orchestrator) runOne(ctx context.Context, spec Spec, text string) (res Result) {
	o.observer.AgentStarted()
	defer func() {
		o.observer.AgentFinished(string(spec.Role), res.Failed)
		if res.Failed {
			o.logger.WarnContext(ctx, "orchestrator.agent.failed", "role", spec.Role, "error", res.Err)
		} else {
			o.logger.DebugContext(ctx, "orchestrator.agent.complete", "role", spec.Role, "elapsed", res.Elapsed)
		}
	}()

	// 排队期间可能已超过整体截止时间
	if err := ctx.Err(); err != nil {
		return Failure(spec, fmt.Errorf("%w: %v", ErrAgentTimeout, err))
	}

	model, err := o.models.Resolve(string(spec.Role))
	if err != nil {
		return Failure(spec, err)
	}

	actx := ctx
	if o.agentTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, o.agentTimeout)
		defer cancel()
	}

	// 模型实现不一定遵守 ctx，放到独立 goroutine 中以便超时后直接放弃
	done := make(chan Result, 1)
	go func() { done <- New(spec, model).Run(actx, text) }()

	select {
	case res = <-done:
		return res
	case <-actx.Done():
		select {
		case res = <-done:
			return res
		default:
		}
		return Failure(spec, fmt.Errorf("%w: %v", ErrAgentTimeout, actx.Err()))
	}
}

// ResultSet 按请求顺序排列的专科结果
type ResultSet []Result

// Get 按角色查找
func (s ResultSet) Get(role Role) (Result, bool) {
	for _, r := range s {
		if r.Role == role {
			return r, true
		}
	}
	return Result{}, false
}

// Roles 结果中的角色
func (s ResultSet) Roles() []Role {
	out := make([]Role, 0, len(s))
	for _, r := range s {
		out = append(out, r.Role)
	}
	return out
}

// Failures 失败的结果
func (s ResultSet) Failures() []Result {
	var out []Result
	for _, r := range s {
		if r.Failed {
			out = append(out, r)
		}
	}
	return out
}

// Texts 角色到输出文本的映射，用于持久化
func (s ResultSet) Texts() map[Role]string {
	out := make(map[Role]string, len(s))
	for _, r := range s {
		out[r.Role] = r.Text
	}
	return out
}
