package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name string
	text string
	err  error
	hits int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(context.Context, string) (string, error) {
	s.hits++
	return s.text, s.err
}

func TestRetriever_Knowledge(t *testing.T) {
	rec := &recorder{reply: "model evidence"}
	src := &stubSource{name: "os", text: "indexed"}
	r := NewRetriever(RetrieverConfig{Model: rec, Sources: []EvidenceSource{src}})

	got := r.Retrieve(context.Background(), "History of HYPERTENSION and diabetes")
	assert.Equal(t,
		"Evidence: ACC/AHA guidelines recommend lifestyle modifications and medication for BP >130/80 | Evidence: ADA standards recommend HbA1c <7% for most adults",
		got)

	assert.Equal(t, "Evidence: HEART score helps stratify acute chest pain risk", r.Retrieve(context.Background(), "sudden chest pain"))
	assert.Equal(t, "Evidence: HEART score helps stratify acute chest pain risk", r.Retrieve(context.Background(), "chest_pain"))

	assert.Zero(t, rec.calls())
	assert.Zero(t, src.hits)
}

func TestRetriever_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		sources []EvidenceSource
		model   *recorder
		want    string
	}{
		{name: "source hit", sources: []EvidenceSource{&stubSource{name: "a", text: "  guideline X  "}}, model: &recorder{reply: "m"}, want: "guideline X"},
		{name: "source error then model", sources: []EvidenceSource{&stubSource{name: "a", err: errors.New("down")}}, model: &recorder{reply: "m"}, want: "m"},
		{name: "empty source then next", sources: []EvidenceSource{&stubSource{name: "a"}, &stubSource{name: "b", text: "b text"}}, model: &recorder{}, want: "b text"},
		{name: "model failure", model: &recorder{err: errModelDown}, want: NoEvidence},
		{name: "model empty reply", model: &recorder{reply: " "}, want: NoEvidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetriever(RetrieverConfig{Sources: tt.sources, Model: tt.model})
			assert.Equal(t, tt.want, r.Retrieve(context.Background(), "odd tingling"))
		})
	}
}

func TestRetriever_ModelPrompt(t *testing.T) {
	rec := &recorder{reply: "x"}
	NewRetriever(RetrieverConfig{Model: rec}).Retrieve(context.Background(), "odd tingling")
	require.Equal(t, 1, rec.calls())
	assert.Contains(t, rec.prompts[0], "Provide evidence-based medical information for: odd tingling")
}

func TestRetriever_NoModel(t *testing.T) {
	assert.Equal(t, NoEvidence, NewRetriever(RetrieverConfig{}).Retrieve(context.Background(), "odd"))
}

func TestRetriever_CustomKnowledge(t *testing.T) {
	r := NewRetriever(RetrieverConfig{Knowledge: []KnowledgeEntry{{Condition: "Migraine", Evidence: "triptans"}}})
	assert.Equal(t, "triptans", r.Retrieve(context.Background(), "migraine aura"))
	assert.Equal(t, NoEvidence, r.Retrieve(context.Background(), "hypertension"))
}
