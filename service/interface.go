package service

import (
	"context"
)

type ServiceType string

const (
	PagerDuty  ServiceType = "pagerduty"
	OpenSearch ServiceType = "opensearch"
)

type Service interface {
	Name() string
	Type() ServiceType
	Description() string
	Health(ctx context.Context) error
	Close() error
}

// EvidenceSource 外部证据检索，返回空字符串表示没有命中
type EvidenceSource interface {
	Service
	Search(ctx context.Context, query string) (string, error)
}

// Escalation 高风险报告的告警内容
type Escalation struct {
	RunID     string
	ReportID  int64
	Symptoms  string
	RiskScore float64
	Summary   string
}

// Escalator 对高风险报告发起告警，未达到阈值时返回 false
type Escalator interface {
	Service
	Escalate(ctx context.Context, e Escalation) (bool, error)
}
