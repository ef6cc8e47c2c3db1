package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtriage/config"
)

type fakeOptions struct {
	Answer string `toml:"answer" validate:"required"`
}

type fakeService struct {
	name     string
	answer   string
	closeErr error
	closed   bool
}

func (f *fakeService) Name() string                     { return f.name }
func (f *fakeService) Type() ServiceType                { return "fake" }
func (f *fakeService) Description() string              { return "fake evidence" }
func (f *fakeService) Health(ctx context.Context) error { return nil }
func (f *fakeService) Close() error {
	f.closed = true
	return f.closeErr
}
func (f *fakeService) Search(ctx context.Context, query string) (string, error) {
	return f.answer, nil
}

type fakeEscalator struct{ fakeService }

func (f *fakeEscalator) Escalate(ctx context.Context, e Escalation) (bool, error) {
	return e.RiskScore >= 5, nil
}

func init() {
	RegisterOptionsParser("fake", func(meta *toml.MetaData, primitive toml.Primitive) (any, error) {
		return ParseOptions[fakeOptions](meta, primitive, "fake")
	})
	RegisterService("fake", func(meta ServiceMeta, opts any) (Service, error) {
		o := opts.(*fakeOptions)
		return &fakeService{name: meta.Name, answer: o.Answer}, nil
	})
}

type staticSource struct {
	cfg  *config.Config
	meta *toml.MetaData
	prim map[string]toml.Primitive
}

func (s staticSource) Get() *config.Config { return s.cfg }
func (s staticSource) ServiceOptions(name string) (toml.Primitive, *toml.MetaData, error) {
	p, ok := s.prim[name]
	if !ok {
		return toml.Primitive{}, nil, errors.New("not found")
	}
	return p, s.meta, nil
}

func loadSource(t *testing.T, content string) staticSource {
	t.Helper()
	var doc struct {
		Services map[string]struct {
			Type    string         `toml:"type"`
			Enabled bool           `toml:"enabled"`
			Options toml.Primitive `toml:"options"`
		} `toml:"services"`
	}
	meta, err := toml.Decode(content, &doc)
	require.NoError(t, err)

	src := staticSource{cfg: &config.Config{Services: map[string]config.ServiceConfig{}}, meta: &meta, prim: map[string]toml.Primitive{}}
	for name, svc := range doc.Services {
		src.cfg.Services[name] = config.ServiceConfig{Type: svc.Type, Enabled: svc.Enabled}
		src.prim[name] = svc.Options
	}
	return src
}

func TestRegistry_InitFromConfig(t *testing.T) {
	src := loadSource(t, `
[services.kb]
type = "fake"
enabled = true
[services.kb.options]
answer = "rest and fluids"

[services.off]
type = "fake"
enabled = false
`)
	r := NewRegistry(nil)
	require.NoError(t, r.InitFromConfig(src))

	all := r.All()
	require.Len(t, all, 1)
	assert.Equal(t, "kb", all[0].Name())

	sources := r.EvidenceSources()
	require.Len(t, sources, 1)
	got, err := sources[0].Search(t.Context(), "flu")
	require.NoError(t, err)
	assert.Equal(t, "rest and fluids", got)
	assert.Empty(t, r.Escalators())
	assert.Empty(t, r.Health(t.Context()))
}

func TestRegistry_InitFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown type",
			content: `
[services.x]
type = "carrier-pigeon"
enabled = true
`,
			wantErr: "no parser registered",
		},
		{
			name: "invalid options",
			content: `
[services.kb]
type = "fake"
enabled = true
[services.kb.options]
answer = ""
`,
			wantErr: "validate fake options",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry(nil).InitFromConfig(loadSource(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_NotLoaded(t *testing.T) {
	err := NewRegistry(nil).InitFromConfig(staticSource{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config not loaded")
}

func TestRegistry_WithLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
path = "reports.db"
[agents.default]
enabled = true
[agents.default.llm]
provider = "openai"
model = "gpt-4o-mini"
`), 0644))
	loader := config.NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	r := NewRegistry(nil)
	require.NoError(t, r.InitFromConfig(loader))
	assert.Empty(t, r.All())
}

func TestRegistry_EscalatorsAndClose(t *testing.T) {
	r := NewRegistry(nil)
	kb := &fakeService{name: "b-kb"}
	pager := &fakeEscalator{fakeService{name: "a-pager", closeErr: errors.New("boom")}}
	r.Add(kb)
	r.Add(pager)

	names := []string{}
	for _, s := range r.All() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"a-pager", "b-kb"}, names)

	escalators := r.Escalators()
	require.Len(t, escalators, 1)
	ok, err := escalators[0].Escalate(t.Context(), Escalation{RiskScore: 6})
	require.NoError(t, err)
	assert.True(t, ok)

	// fakeEscalator 同时也是 EvidenceSource
	assert.Len(t, r.EvidenceSources(), 2)

	err = r.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close a-pager")
	assert.True(t, kb.closed)
	assert.True(t, pager.closed)
}
