package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtriage/config"
	"github.com/medtriage/generator"
	"github.com/medtriage/internal/llm"
)

// specialistReply 20 个词，其中一个风险词
const specialistReply = "Findings suggest benign causes but seek urgent review if symptoms persist beyond two days or worsen quickly at night today"

var errModelDown = errors.New("model unavailable")

// createTempConfig 创建临时配置文件，报告库放在同一目录
func createTempConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := `
[store]
path = "` + filepath.ToSlash(filepath.Join(dir, "reports.db")) + `"

[agents.default]
enabled = true
[agents.default.llm]
provider = "groq"
model = "llama-3.3-70b-versatile"

[agents.synthesis]
enabled = true
[agents.synthesis.llm]
provider = "openai"
model = "gpt-4o-mini"
` + extra
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// stubModel 按 prompt 内容返回固定回复
func stubModel(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Synthesize these specialist reports"):
		return "Likely benign. Rest and hydrate.", nil
	case strings.Contains(prompt, "Provide evidence-based medical information"):
		return "Model evidence: rest helps", nil
	case strings.Contains(prompt, "Wellness Coach"):
		return `{"diet":{"foods_to_eat":["leafy greens"]},"exercise":{"type":"walking"}}`, nil
	case strings.Contains(prompt, "Create a personalized treatment plan"):
		return `{"medications":[{"name":"Ibuprofen","dosage":"200mg"}],"non_pharmacological":["rest"]}`, nil
	case strings.Contains(prompt, "licensed medical doctor"):
		return "Rx: Ibuprofen 200mg", nil
	case strings.Contains(prompt, "clinical analyst"):
		return `{"findings":["benign"],"confidence":0.6}`, nil
	default:
		return specialistReply, nil
	}
}

type builtModels struct {
	mu    sync.Mutex
	names []string
}

func newTestApp(t *testing.T, extra string, model llm.InvokerFunc) (*Application, *builtModels) {
	t.Helper()
	built := &builtModels{}
	app, err := NewApplication(createTempConfig(t, extra),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithInvokerBuilder(func(_ context.Context, name string, cfg config.LLMConfig) (llm.Invoker, error) {
			built.mu.Lock()
			built.names = append(built.names, name+"/"+cfg.Provider)
			built.mu.Unlock()
			return model, nil
		}),
	)
	require.NoError(t, err)
	require.NoError(t, app.Initialize(t.Context()))
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app, built
}

// TestApplication_Initialize_AgentConfigs 每个 agent 使用自己的 LLM 配置
func TestApplication_Initialize_AgentConfigs(t *testing.T) {
	app, built := newTestApp(t, "", stubModel)

	assert.ElementsMatch(t, []string{"default/groq", "synthesis/openai"}, built.names)
	assert.Equal(t, []string{"default", "synthesis"}, app.modelReg.Names())
	assert.NotNil(t, app.Metrics())
	assert.Equal(t, 4, app.Config().Triage.MaxRoles)
	assert.Empty(t, app.Services().All())
}

func TestApplication_Initialize_Errors(t *testing.T) {
	t.Run("bad config", func(t *testing.T) {
		app, err := NewApplication(filepath.Join(t.TempDir(), "missing.toml"))
		require.NoError(t, err)
		err = app.Initialize(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load config")
	})

	t.Run("model build fails", func(t *testing.T) {
		app, err := NewApplication(createTempConfig(t, ""),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithInvokerBuilder(func(context.Context, string, config.LLMConfig) (llm.Invoker, error) {
				return nil, errors.New("no key")
			}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
		err = app.Initialize(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "build model for")
	})

	t.Run("bad catalog", func(t *testing.T) {
		app, err := NewApplication(createTempConfig(t, "[triage]\ncatalog = \"/nonexistent/catalog.yaml\"\n"),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithInvokerBuilder(func(context.Context, string, config.LLMConfig) (llm.Invoker, error) {
				return llm.InvokerFunc(stubModel), nil
			}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
		err = app.Initialize(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load catalog")
	})
}

func TestApplication_NotInitialized(t *testing.T) {
	app, err := NewApplication("unused.toml")
	require.NoError(t, err)

	_, err = app.Analyze(t.Context(), Input{Symptoms: "cough"})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = app.Report(t.Context(), 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = app.Reports(t.Context(), 10)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, app.Shutdown(t.Context()))
}

func TestApplication_Analyze(t *testing.T) {
	app, _ := newTestApp(t, "", stubModel)
	app.newRunID = func() string { return "run-1" }

	report, err := app.Analyze(t.Context(), Input{Symptoms: "  Sharp headache and palpitations.\n Call me at 555-123-4567 "})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Positive(t, report.ID)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "Sharp headache and palpitations. Call me at [PHONE]", report.Symptoms)
	assert.Equal(t, "keyword", report.RouteStage)
	require.Len(t, report.Specialists, 2)
	assert.Equal(t, "cardiologist", report.Specialists[0].Role)
	assert.Equal(t, "neurologist", report.Specialists[1].Role)
	assert.Equal(t, specialistReply, report.Specialists[0].Text)
	assert.InDelta(t, 5.0, report.RiskScore, 1e-9)
	assert.Equal(t, "keyword-density/v1", report.ScoreVersion)
	assert.Equal(t, "Likely benign. Rest and hydrate.", report.Synthesis)
	assert.Equal(t, "Model evidence: rest helps", report.Evidence)

	saved, err := app.Report(t.Context(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Specialists, saved.Specialists)
	assert.Equal(t, report.Synthesis, saved.Synthesis)

	list, err := app.Reports(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, report.ID, list[0].ID)

	stats, err := app.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)

	rec := httptest.NewRecorder()
	app.Metrics().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `medtriage_analyses_total{outcome="ok"} 1`)
	assert.Contains(t, body, `medtriage_llm_calls_total{caller="synthesis",outcome="ok"} 1`)
	assert.Contains(t, body, `medtriage_agent_runs_total{outcome="ok",role="cardiologist"} 1`)
}

func TestApplication_Analyze_KnowledgeEvidence(t *testing.T) {
	app, _ := newTestApp(t, "", stubModel)

	report, err := app.Analyze(t.Context(), Input{Symptoms: "History of hypertension, now chest pain"})
	require.NoError(t, err)
	assert.Contains(t, report.Evidence, "ACC/AHA")
	assert.Contains(t, report.Evidence, " | Evidence: HEART score")
}

// TestApplication_Analyze_ModelUnavailable 模型全部失败时仍然生成并保存报告
func TestApplication_Analyze_ModelUnavailable(t *testing.T) {
	app, _ := newTestApp(t, "", func(context.Context, string) (string, error) { return "", errModelDown })

	report, err := app.Analyze(t.Context(), Input{Symptoms: "itchy rash"})
	require.NoError(t, err)

	require.Len(t, report.Specialists, 1)
	assert.Equal(t, "dermatologist", report.Specialists[0].Role)
	assert.True(t, report.Specialists[0].Failed)
	assert.Equal(t, "Error in Dermatologist: model unavailable", report.Specialists[0].Text)
	assert.Equal(t, "Error generating synthesis: model unavailable", report.Synthesis)
	assert.Equal(t, "No specific evidence found.", report.Evidence)
	assert.Zero(t, report.RiskScore)

	saved, err := app.Report(t.Context(), report.ID)
	require.NoError(t, err)
	assert.True(t, saved.Specialists[0].Failed)
}

func TestApplication_Analyze_InputErrors(t *testing.T) {
	app, _ := newTestApp(t, "", stubModel)

	_, err := app.Analyze(t.Context(), Input{Symptoms: " \n\t "})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = app.Analyze(t.Context(), Input{FilePath: filepath.Join(t.TempDir(), "missing.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract document")
}

func TestApplication_Analyze_Document(t *testing.T) {
	app, _ := newTestApp(t, "", stubModel)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Patient reports insomnia for weeks.\n"), 0644))

	report, err := app.Analyze(t.Context(), Input{Symptoms: "itchy skin", FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, "itchy skin Extracted from file: Patient reports insomnia for weeks.", report.Symptoms)

	roles := []string{}
	for _, s := range report.Specialists {
		roles = append(roles, s.Role)
	}
	assert.Equal(t, []string{"sleep", "dermatologist"}, roles)
}

func TestApplication_Analyze_Services(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_source":{"content":"Palpitations are usually benign"}}]}}`)
	}))
	defer search.Close()

	var (
		mu     sync.Mutex
		events []map[string]any
	)
	pager := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev map[string]any
		_ = json.NewDecoder(r.Body).Decode(&ev)
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"status":"success","dedup_key":"run-2"}`)
	}))
	defer pager.Close()

	extra := `
[services.kb]
type = "opensearch"
enabled = true
[services.kb.options]
addresses = ["` + search.URL + `"]
index = "evidence"

[services.oncall]
type = "pagerduty"
enabled = true
[services.oncall.options]
routing_key = "rk"
threshold = 5
events_url = "` + pager.URL + `"
`
	app, _ := newTestApp(t, extra, stubModel)
	app.newRunID = func() string { return "run-2" }

	report, err := app.Analyze(t.Context(), Input{Symptoms: "palpitations"})
	require.NoError(t, err)
	assert.Equal(t, "Palpitations are usually benign", report.Evidence)
	assert.InDelta(t, 5.0, report.RiskScore, 1e-9)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "run-2", events[0]["dedup_key"])
}

func TestApplication_Generators(t *testing.T) {
	app, _ := newTestApp(t, "", stubModel)
	report, err := app.Analyze(t.Context(), Input{Symptoms: "headache"})
	require.NoError(t, err)

	plan, err := app.Wellness(t.Context(), report.ID)
	require.NoError(t, err)
	require.True(t, plan.OK())
	assert.Equal(t, []string{"leafy greens"}, plan.Value.Diet.FoodsToEat)

	treatment, err := app.Treatment(t.Context(), report.ID, generator.Profile{Age: 40})
	require.NoError(t, err)
	require.True(t, treatment.OK())
	require.Len(t, treatment.Value.Medications, 1)
	assert.Nil(t, treatment.Value.Medications[0].Safety, "drug safety disabled by default")

	rx, err := app.Prescription(t.Context(), report.ID, generator.Profile{Name: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "Rx: Ibuprofen 200mg", rx.Body)

	assessment, err := app.Assess(t.Context(), report.ID)
	require.NoError(t, err)
	require.True(t, assessment.OK())
	assert.Equal(t, []string{"benign"}, assessment.Value.Findings)

	details, err := app.MedicationDetails(t.Context(), "ibuprofen")
	require.NoError(t, err)
	assert.NotEmpty(t, details)

	_, err = app.Wellness(t.Context(), 9999)
	assert.ErrorIs(t, err, ErrReportNotFound)
}
