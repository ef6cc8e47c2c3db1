package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/llm"
)

// Result 单个专科的输出。失败时 Failed 为 true，Text 为带角色名的错误描述
type Result struct {
	Role    Role
	Title   string
	Text    string
	Failed  bool
	Err     error
	Elapsed time.Duration
}

// Agent 绑定一个角色模板与模型，每次调用新建，无可变状态
type Agent struct {
	spec  Spec
	model llm.Invoker
}

// New 创建 agent。spec 需来自 Registry 以保证模板已解析
func New(spec Spec, model llm.Invoker) *Agent {
	return &Agent{spec: spec, model: model}
}

func (a *Agent) Role() Role    { return a.spec.Role }
func (a *Agent) Title() string { return a.spec.Title }

// Prompt 渲染该角色的 prompt
func (a *Agent) Prompt(input string) (string, error) {
	tmpl := a.spec.tmpl
	if tmpl == nil {
		var err error
		if tmpl, err = consts.Parse(string(a.spec.Role), a.spec.Template); err != nil {
			return "", err
		}
	}
	return consts.Render(tmpl, struct{ Report string }{Report: input})
}

// Run 发起一次模型调用，不重试。任何错误（包括 panic）都转换为失败结果，不会向上传播
func (a *Agent) Run(ctx context.Context, input string) (res Result) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = Failure(a.spec, fmt.Errorf("panic: %v", p))
		}
		res.Elapsed = time.Since(start)
	}()

	if a.model == nil {
		return Failure(a.spec, llm.ErrModelNotFound)
	}
	prompt, err := a.Prompt(input)
	if err != nil {
		return Failure(a.spec, err)
	}
	text, err := a.model.Invoke(ctx, prompt)
	if err != nil {
		return Failure(a.spec, err)
	}
	return Result{Role: a.spec.Role, Title: a.spec.Title, Text: text}
}

// Failure 构造失败结果，文本格式为 "Error in <Title>: <err>"
func Failure(spec Spec, err error) Result {
	title := spec.Title
	if title == "" {
		title = string(spec.Role)
	}
	return Result{
		Role:   spec.Role,
		Title:  title,
		Text:   fmt.Sprintf("Error in %s: %v", title, err),
		Failed: true,
		Err:    err,
	}
}

// Observer 接收流水线事件，metrics.Recorder 实现了该接口
type Observer interface {
	AgentStarted()
	AgentFinished(role string, failed bool)
	ObserveRouted(stage string, roles []string)
}

type nopObserver struct{}

func (nopObserver) AgentStarted()                 {}
func (nopObserver) AgentFinished(string, bool)    {}
func (nopObserver) ObserveRouted(string, []string) {}
