package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/PagerDuty/go-pagerduty"

	"github.com/medtriage/service"
)

func init() {
	service.RegisterOptionsParser(service.PagerDuty, func(meta *toml.MetaData, primitive toml.Primitive) (any, error) {
		return service.ParseOptions[Options](meta, primitive, service.PagerDuty)
	})

	service.RegisterService(service.PagerDuty, func(meta service.ServiceMeta, opts any) (service.Service, error) {
		pdOpts, ok := opts.(*Options)
		if !ok {
			return nil, fmt.Errorf("invalid pagerduty options type, got %T", opts)
		}
		return NewService(meta, pdOpts), nil
	})
}

const (
	defaultThreshold = 7.0
	defaultSource    = "medtriage"
	maxSummaryLen    = 1024
)

type Options struct {
	// RoutingKey Events API v2 的 integration key
	RoutingKey string  `toml:"routing_key" validate:"required"`
	Threshold  float64 `toml:"threshold" validate:"omitempty,min=0,max=10"`
	Source     string  `toml:"source"`
	EventsURL  string  `toml:"events_url" validate:"omitempty,url"`
}

type Service struct {
	name        string
	description string
	routingKey  string
	threshold   float64
	source      string
	client      *pagerduty.Client
}

func NewService(meta service.ServiceMeta, opts *Options) *Service {
	var clientOpts []pagerduty.ClientOptions
	if opts.EventsURL != "" {
		clientOpts = append(clientOpts, pagerduty.WithV2EventsAPIEndpoint(opts.EventsURL))
	}

	s := &Service{
		name:        meta.Name,
		description: meta.Description,
		routingKey:  opts.RoutingKey,
		threshold:   opts.Threshold,
		source:      opts.Source,
		// Events API 只依赖 routing key，不需要 REST token
		client: pagerduty.NewClient("", clientOpts...),
	}
	if s.threshold == 0 {
		s.threshold = defaultThreshold
	}
	if s.source == "" {
		s.source = defaultSource
	}
	if s.description == "" {
		s.description = fmt.Sprintf("Page on-call staff when risk score >= %.1f", s.threshold)
	}
	return s
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Description() string {
	return s.description
}

func (s *Service) Type() service.ServiceType {
	return service.PagerDuty
}

// Threshold 触发告警的最低风险分
func (s *Service) Threshold() float64 {
	return s.threshold
}

func (s *Service) Health(ctx context.Context) error {
	if s.routingKey == "" {
		return errors.New("pagerduty routing key not configured")
	}
	return nil
}

func (s *Service) Close() error {
	return nil
}

// Escalate 风险分达到阈值时触发 Events v2 告警，同一次运行使用相同 dedup key
func (s *Service) Escalate(ctx context.Context, e service.Escalation) (bool, error) {
	if e.RiskScore < s.threshold {
		return false, nil
	}

	event := &pagerduty.V2Event{
		RoutingKey: s.routingKey,
		Action:     "trigger",
		DedupKey:   e.RunID,
		Payload: &pagerduty.V2Payload{
			Summary:   summary(e),
			Source:    s.source,
			Severity:  severity(e.RiskScore),
			Component: "triage",
			Class:     "high-risk-report",
			Details: map[string]any{
				"report_id":  e.ReportID,
				"run_id":     e.RunID,
				"risk_score": e.RiskScore,
				"synthesis":  e.Summary,
			},
		},
	}
	if _, err := s.client.ManageEventWithContext(ctx, event); err != nil {
		return false, fmt.Errorf("trigger pagerduty event: %w", err)
	}
	return true, nil
}

func severity(score float64) string {
	if score >= 9 {
		return "critical"
	}
	return "error"
}

func summary(e service.Escalation) string {
	symptoms := strings.Join(strings.Fields(e.Symptoms), " ")
	text := fmt.Sprintf("High-risk triage report (score %.2f): %s", e.RiskScore, symptoms)
	if len(text) > maxSummaryLen {
		text = text[:maxSummaryLen]
	}
	return text
}
