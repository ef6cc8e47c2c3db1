package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medtriage/agent"
	"github.com/medtriage/config"
	"github.com/medtriage/generator"
	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/document"
	"github.com/medtriage/internal/llm"
	"github.com/medtriage/internal/logger"
	"github.com/medtriage/internal/metrics"
	"github.com/medtriage/internal/middleware"
	"github.com/medtriage/service"
	"github.com/medtriage/store"

	_ "github.com/medtriage/service/opensearch"
	_ "github.com/medtriage/service/pagerduty"
)

// InvokerBuilder 根据 agent 配置构建模型
type InvokerBuilder func(ctx context.Context, name string, cfg config.LLMConfig) (llm.Invoker, error)

// Option 调整 Application 的构建方式
type Option func(*Application)

// WithInvokerBuilder 替换默认的 llm.Factory，测试中用来注入桩模型
func WithInvokerBuilder(b InvokerBuilder) Option {
	return func(a *Application) { a.buildInvoker = b }
}

// WithLogger 使用指定 logger，不再按配置初始化全局日志
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) { a.logger = l }
}

type Application struct {
	cfg          *config.Loader
	conf         *config.Config
	buildInvoker InvokerBuilder
	logger       *slog.Logger
	logCloser    io.Closer

	recorder *metrics.Recorder
	modelReg *llm.ModelRegistry
	registry *service.Registry
	store    *store.Store

	catalog       *agent.Catalog
	router        *agent.Router
	orchestrator  *agent.Orchestrator
	aggregator    *agent.Aggregator
	assessor      *agent.StructuredAgent[agent.Assessment]
	wellness      *generator.WellnessPlanner
	treatment     *generator.TreatmentRecommender
	prescriptions *generator.PrescriptionWriter
	extractor     *document.Extractor

	newRunID func() string
	now      func() time.Time
}

func NewApplication(configPath string, opts ...Option) (*Application, error) {
	a := &Application{
		cfg:       config.NewLoader(configPath),
		modelReg:  llm.NewModelRegistry(),
		extractor: document.NewExtractor(),
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
	factory := llm.NewFactory()
	a.buildInvoker = func(ctx context.Context, _ string, cfg config.LLMConfig) (llm.Invoker, error) {
		return factory.NewInvoker(ctx, cfg)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Application) Initialize(ctx context.Context) error {
	cfg, err := a.cfg.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.conf = cfg

	if a.logger == nil {
		a.logCloser = logger.Initialize(cfg.Log)
		a.logger = slog.Default()
	}
	a.recorder = metrics.NewRecorder()

	if err := a.initModels(ctx); err != nil {
		return err
	}
	if err := a.initServices(); err != nil {
		return err
	}
	if err := a.initStore(); err != nil {
		return err
	}
	if err := a.initPipeline(); err != nil {
		return err
	}
	if err := a.initGenerators(); err != nil {
		return err
	}
	return nil
}

func (a *Application) initModels(ctx context.Context) error {
	a.logger.Info("app.init.models.start")
	agents := a.conf.EnabledAgents()
	for name, agentCfg := range agents {
		m, err := a.buildInvoker(ctx, name, agentCfg.LLM)
		if err != nil {
			return fmt.Errorf("build model for %s: %w", name, err)
		}
		a.modelReg.Register(name, m)
		a.logger.Info("app.init.models.register",
			"agent", name,
			"provider", agentCfg.LLM.Provider,
			"model", agentCfg.LLM.Model,
		)
	}
	a.logger.Info("app.init.models.complete", "count", len(agents))
	return nil
}

func (a *Application) initServices() error {
	a.logger.Info("app.init.services.start")
	registry := service.NewRegistry(a.logger)
	if err := registry.InitFromConfig(a.cfg); err != nil {
		return fmt.Errorf("init registry: %w", err)
	}
	a.registry = registry

	services := registry.All()
	serviceNames := make([]string, 0, len(services))
	serviceTypes := make([]string, 0, len(services))
	for _, s := range services {
		serviceNames = append(serviceNames, s.Name())
		serviceTypes = append(serviceTypes, string(s.Type()))
	}
	a.logger.Info("app.init.services.complete",
		"count", len(services),
		"services", serviceNames,
		"types", serviceTypes,
	)
	return nil
}

func (a *Application) initStore() error {
	s, err := store.New(a.conf.Store)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	a.store = s
	a.logger.Info("app.init.store.complete", "path", a.conf.Store.Path)
	return nil
}

func (a *Application) initPipeline() error {
	catalog, err := agent.LoadCatalog(a.conf.Triage.Catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	a.catalog = catalog

	router, err := agent.NewRouter(agent.RouterConfig{
		Registry:     catalog.Registry,
		Table:        catalog.Table,
		Model:        a.model(consts.AgentNameTriage),
		MaxRoles:     a.conf.Triage.MaxRoles,
		DefaultRoles: agent.Roles(a.conf.Triage.DefaultRoles...),
		Logger:       a.logger,
		Observer:     a.recorder,
	})
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}
	a.router = router

	orchestrator, err := agent.NewOrchestrator(agent.OrchestratorConfig{
		Registry:     catalog.Registry,
		Models:       callerResolver{app: a},
		Workers:      a.conf.Orchestrator.Workers,
		AgentTimeout: a.conf.Orchestrator.AgentTimeout.Duration,
		Deadline:     a.conf.Orchestrator.Deadline.Duration,
		Logger:       a.logger,
		Observer:     a.recorder,
	})
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}
	a.orchestrator = orchestrator

	var sources []agent.EvidenceSource
	for _, src := range a.registry.EvidenceSources() {
		sources = append(sources, src)
	}
	retriever := agent.NewRetriever(agent.RetrieverConfig{
		Knowledge: catalog.Knowledge,
		Sources:   sources,
		Model:     a.model(consts.AgentNameEvidence),
		Logger:    a.logger,
	})
	a.aggregator = agent.NewAggregator(agent.AggregatorConfig{
		Model:    a.model(consts.AgentNameSynthesis),
		Evidence: retriever,
		Logger:   a.logger,
	})
	a.assessor = agent.NewAssessmentAgent(
		"Review the patient report below as a clinical analyst.",
		a.model(consts.AgentNameStructured),
	)

	a.logger.Info("app.init.pipeline.complete",
		"roles", agent.Strings(catalog.Registry.Roles()),
		"evidence_sources", len(sources),
		"max_roles", a.conf.Triage.MaxRoles,
	)
	return nil
}

func (a *Application) initGenerators() error {
	var err error
	if a.wellness, err = generator.NewWellnessPlanner(a.model(consts.AgentNameWellness)); err != nil {
		return fmt.Errorf("create wellness planner: %w", err)
	}

	var checker *generator.DrugSafetyChecker
	if a.conf.Generator.DrugSafety {
		checker, err = generator.NewDrugSafetyChecker(
			a.model(consts.AgentNameDrugSafety),
			generator.NewOpenFDA(a.conf.Generator.OpenFDAURL),
		)
		if err != nil {
			return fmt.Errorf("create drug safety checker: %w", err)
		}
	}
	if a.treatment, err = generator.NewTreatmentRecommender(a.model(consts.AgentNameTreatment), checker); err != nil {
		return fmt.Errorf("create treatment recommender: %w", err)
	}
	if a.prescriptions, err = generator.NewPrescriptionWriter(a.model(consts.AgentNamePrescription)); err != nil {
		return fmt.Errorf("create prescription writer: %w", err)
	}
	return nil
}

// model 返回带日志和指标中间件的模型，name 同时作为指标中的调用方标签
func (a *Application) model(name string) llm.Invoker {
	inv, err := a.modelReg.Resolve(name)
	if err != nil {
		a.logger.Warn("app.model.missing", "agent", name, "error", err)
		return nil
	}
	return middleware.Chain(inv,
		middleware.Logging(name, a.logger),
		middleware.Metrics(name, a.recorder),
	)
}

// callerResolver 让每个专科角色的调用带上自己的名称
type callerResolver struct {
	app *Application
}

func (r callerResolver) Resolve(name string) (llm.Invoker, error) {
	if m := r.app.model(name); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("model for agent %s: %w", name, llm.ErrModelNotFound)
}

// Metrics 指标记录器，Initialize 之后可用
func (a *Application) Metrics() *metrics.Recorder {
	return a.recorder
}

// Config 已加载的配置
func (a *Application) Config() *config.Config {
	return a.conf
}

// Services 已初始化的外部集成
func (a *Application) Services() *service.Registry {
	return a.registry
}

func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error

	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close registry: %w", err))
		}
	}
	if a.modelReg != nil {
		if err := a.modelReg.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close models: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *Application) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Shutdown(ctx)
}
