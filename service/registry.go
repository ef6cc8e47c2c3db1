package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/medtriage/config"
)

type ServiceMeta struct {
	Name        string
	Description string
}

type ServiceFactory func(meta ServiceMeta, opts any) (Service, error)

var serviceRegistry = struct {
	mu       sync.RWMutex
	services map[ServiceType]ServiceFactory
}{
	services: make(map[ServiceType]ServiceFactory),
}

func RegisterService(serviceType ServiceType, factory ServiceFactory) {
	serviceRegistry.mu.Lock()
	defer serviceRegistry.mu.Unlock()

	if _, exists := serviceRegistry.services[serviceType]; exists {
		slog.Warn("service.factory.duplicate", "type", serviceType)
		return
	}
	serviceRegistry.services[serviceType] = factory
}

func getServiceFactory(serviceType ServiceType) (ServiceFactory, bool) {
	serviceRegistry.mu.RLock()
	defer serviceRegistry.mu.RUnlock()

	factory, ok := serviceRegistry.services[serviceType]
	return factory, ok
}

// OptionsSource 提供 service 的原始 options，config.Loader 实现该接口
type OptionsSource interface {
	Get() *config.Config
	ServiceOptions(name string) (primitive toml.Primitive, meta *toml.MetaData, err error)
}

type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		services: make(map[string]Service),
		logger:   logger,
	}
}

func (r *Registry) InitFromConfig(loader OptionsSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := loader.Get()
	if cfg == nil {
		return errors.New("config not loaded")
	}

	for name, serviceCfg := range cfg.Services {
		if !serviceCfg.Enabled {
			r.logger.Info("service.disabled", "service", name)
			continue
		}

		primitive, meta, err := loader.ServiceOptions(name)
		if err != nil {
			return fmt.Errorf("get options for %s: %w", name, err)
		}

		serviceType := ServiceType(serviceCfg.Type)
		parser, ok := GetOptionsParser(serviceType)
		if !ok {
			return fmt.Errorf("no parser registered for service type: %s", serviceType)
		}
		opts, err := parser(meta, primitive)
		if err != nil {
			return fmt.Errorf("parse options for %s: %w", name, err)
		}

		svc, err := r.createService(serviceType, ServiceMeta{Name: name, Description: serviceCfg.Description}, opts)
		if err != nil {
			return fmt.Errorf("create service %s: %w", name, err)
		}
		r.services[svc.Name()] = svc
		r.logger.Info("service.initialized", "service", name, "type", serviceType)
	}
	return nil
}

func (r *Registry) createService(serviceType ServiceType, meta ServiceMeta, opts any) (Service, error) {
	factory, ok := getServiceFactory(serviceType)
	if !ok {
		return nil, fmt.Errorf("unknown service type: %s (no factory registered)", serviceType)
	}
	return factory(meta, opts)
}

// Add 直接注册一个已构建的 service
func (r *Registry) Add(svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.Name()] = svc
}

// All 按名称排序返回所有服务
func (r *Registry) All() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Service, 0, len(names))
	for _, name := range names {
		result = append(result, r.services[name])
	}
	return result
}

// EvidenceSources 所有提供证据检索的服务
func (r *Registry) EvidenceSources() []EvidenceSource {
	var out []EvidenceSource
	for _, s := range r.All() {
		if src, ok := s.(EvidenceSource); ok {
			out = append(out, src)
		}
	}
	return out
}

// Escalators 所有提供告警的服务
func (r *Registry) Escalators() []Escalator {
	var out []Escalator
	for _, s := range r.All() {
		if esc, ok := s.(Escalator); ok {
			out = append(out, esc)
		}
	}
	return out
}

// Health 逐个检查服务，返回每个失败服务的错误
func (r *Registry) Health(ctx context.Context) map[string]error {
	out := make(map[string]error)
	for _, s := range r.All() {
		if err := s.Health(ctx); err != nil {
			out[s.Name()] = err
		}
	}
	return out
}

// Close 关闭所有服务
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, s := range r.services {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
