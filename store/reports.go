package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// timeLayout 固定宽度，保证按字符串排序即按时间排序
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// DefaultListLimit List 未指定数量时的默认值
const DefaultListLimit = 10

// Specialist 单个专科的输出
type Specialist struct {
	Role   string `json:"role"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text"`
	Failed bool   `json:"failed,omitempty"`
}

// Report 一次完整分析
type Report struct {
	ID           int64        `json:"id"`
	RunID        string       `json:"run_id"`
	CreatedAt    time.Time    `json:"created_at"`
	Symptoms     string       `json:"symptoms"`
	RouteStage   string       `json:"route_stage,omitempty"`
	RiskScore    float64      `json:"risk_score"`
	ScoreVersion string       `json:"score_version"`
	Synthesis    string       `json:"synthesis"`
	Evidence     string       `json:"evidence"`
	Specialists  []Specialist `json:"specialists"`
}

// SpecialistTexts 角色到输出文本的映射
func (r *Report) SpecialistTexts() map[string]string {
	out := make(map[string]string, len(r.Specialists))
	for _, s := range r.Specialists {
		out[s.Role] = s.Text
	}
	return out
}

// Summary 列表展示用
type Summary struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Symptoms  string    `json:"symptoms"`
	RiskScore float64   `json:"risk_score"`
}

// Stats 汇总统计
type Stats struct {
	Count   int     `json:"count"`
	AvgRisk float64 `json:"avg_risk"`
	MaxRisk float64 `json:"max_risk"`
}

// Save 写入报告并回填 ID，CreatedAt 为空时使用当前时间
func (s *Store) Save(ctx context.Context, r *Report) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if r.Specialists == nil {
		r.Specialists = []Specialist{}
	}

	specialists, err := json.Marshal(r.SpecialistTexts())
	if err != nil {
		return 0, fmt.Errorf("encode specialists: %w", err)
	}
	full, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("encode report: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (timestamp, symptoms, risk_score, synthesis, evidence, specialist_reports, report_json, run_id, score_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CreatedAt.Format(timeLayout), r.Symptoms, r.RiskScore, r.Synthesis, r.Evidence,
		string(specialists), string(full), r.RunID, r.ScoreVersion)
	if err != nil {
		return 0, fmt.Errorf("save report: %w", err)
	}
	r.ID, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save report: %w", err)
	}
	return r.ID, nil
}

// Get 按 ID 读取，不存在时返回 nil, nil
func (s *Store) Get(ctx context.Context, id int64) (*Report, error) {
	var (
		ts          string
		reportJSON  sql.NullString
		specialists sql.NullString
		runID       sql.NullString
		version     sql.NullString
		r           Report
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, symptoms, risk_score, synthesis, evidence, specialist_reports, report_json, run_id, score_version
		FROM reports WHERE id = ?`, id).
		Scan(&r.ID, &ts, &r.Symptoms, &r.RiskScore, &r.Synthesis, &r.Evidence, &specialists, &reportJSON, &runID, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}

	if reportJSON.Valid && reportJSON.String != "" {
		var full Report
		if err := json.Unmarshal([]byte(reportJSON.String), &full); err == nil {
			r.Specialists = full.Specialists
			r.RouteStage = full.RouteStage
		}
	}
	// 只有 specialist_reports 的旧记录
	if r.Specialists == nil && specialists.Valid && specialists.String != "" {
		var texts map[string]string
		if err := json.Unmarshal([]byte(specialists.String), &texts); err != nil {
			return nil, fmt.Errorf("decode specialists of report %d: %w", id, err)
		}
		for role, text := range texts {
			r.Specialists = append(r.Specialists, Specialist{Role: role, Text: text})
		}
	}

	r.CreatedAt, err = parseTime(ts)
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}
	r.RunID, r.ScoreVersion = runID.String, version.String
	return &r, nil
}

// List 最近的报告，最新的在前
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, symptoms, risk_score
		FROM reports
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sm Summary
			ts string
		)
		if err := rows.Scan(&sm.ID, &ts, &sm.Symptoms, &sm.RiskScore); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if sm.CreatedAt, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Stats 报告数量与风险分布
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		st  Stats
		avg sql.NullFloat64
		peak sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), AVG(risk_score), MAX(risk_score) FROM reports`).
		Scan(&st.Count, &avg, &peak)
	if err != nil {
		return Stats{}, fmt.Errorf("report stats: %w", err)
	}
	st.AvgRisk, st.MaxRisk = avg.Float64, peak.Float64
	return st, nil
}

func parseTime(ts string) (time.Time, error) {
	t, err := time.Parse(timeLayout, ts)
	if err == nil {
		return t, nil
	}
	// 兼容不带时区的 ISO 时间
	if t, err2 := time.Parse("2006-01-02T15:04:05.999999", ts); err2 == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
}
