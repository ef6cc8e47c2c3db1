package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrugSafetyChecker_Check(t *testing.T) {
	tests := []struct {
		name      string
		model     *scripted
		labels    LabelSource
		want      DrugSafety
		wantLabel string
	}{
		{
			name: "label and structured reply",
			model: &scripted{replies: map[string]string{"drug safety": "Assessment: " +
				`{"safety":"Contraindicated","interactions":["warfarin"],"warnings":["bleeding"],"dosage":"avoid"}`}},
			labels:    staticLabels{text: "warnings: GI bleeding"},
			want:      DrugSafety{Safety: "Contraindicated", Interactions: []string{"warfarin"}, Warnings: []string{"bleeding"}, Dosage: "avoid"},
			wantLabel: "Drug Information: warnings: GI bleeding",
		},
		{
			name:      "label lookup fails",
			model:     &scripted{replies: map[string]string{"drug safety": `{"safety":"Safe","interactions":[],"warnings":[],"dosage":"200mg"}`}},
			labels:    staticLabels{err: ErrNoLabel},
			want:      DrugSafety{Safety: "Safe", Interactions: []string{}, Warnings: []string{}, Dosage: "200mg"},
			wantLabel: "Drug Information: " + NoLabelInfo,
		},
		{
			name:      "no label source and model down",
			model:     &scripted{err: errModelDown},
			want:      DefaultDrugSafety(),
			wantLabel: "Drug Information: " + NoLabelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewDrugSafetyChecker(tt.model, tt.labels)
			require.NoError(t, err)

			got := c.Check(t.Context(), "Aspirin", Profile{Medications: []string{"warfarin"}, Conditions: []string{"ulcer"}})
			assert.Equal(t, tt.want, got)
			assert.Contains(t, tt.model.last(), tt.wantLabel)
			assert.Contains(t, tt.model.last(), "- Medical Conditions: ulcer")
		})
	}
}

func TestDrugSafetyChecker_Alternatives(t *testing.T) {
	c, err := NewDrugSafetyChecker(reply(`Options: [{"drug":"Acetaminophen","reason":"gentler on stomach"}]`), nil)
	require.NoError(t, err)
	assert.Equal(t, []Alternative{{Drug: "Acetaminophen", Reason: "gentler on stomach"}},
		c.Alternatives(t.Context(), "Ibuprofen", "ulcer"))

	for _, model := range []*scripted{{err: errModelDown}, {replies: map[string]string{"alternative": "[]"}}} {
		c, err := NewDrugSafetyChecker(model, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultAlternatives(), c.Alternatives(t.Context(), "Ibuprofen", "ulcer"))
	}
}
