package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtriage/internal/extract"
)

func TestWellnessPlanner_Plan(t *testing.T) {
	tests := []struct {
		name     string
		model    *scripted
		wantKind extract.Kind
		check    func(t *testing.T, plan WellnessPlan)
	}{
		{
			name: "structured reply",
			model: &scripted{replies: map[string]string{"Wellness Coach": "Here is your plan:\n```json\n" +
				`{"diet":{"foods_to_eat":["oats"],"foods_to_avoid":["soda"],"hydration":"2L"},` +
				`"exercise":{"type":"walking","duration":"30 min","frequency":"daily","precautions":[]},` +
				`"lifestyle":{"sleep":"8h","stress_management":["breathing"],"habits":["journaling"]},` +
				`"preventive":{"screenings":["lipid panel"],"supplements":[],"follow_up":"3 months"}}` + "\n```"}},
			wantKind: extract.Structured,
			check: func(t *testing.T, plan WellnessPlan) {
				assert.Equal(t, []string{"oats"}, plan.Diet.FoodsToEat)
				assert.Equal(t, "walking", plan.Exercise.Type)
				assert.Equal(t, "3 months", plan.Preventive.FollowUp)
				assert.Empty(t, plan.RawPlan)
			},
		},
		{
			name:     "free text keeps raw plan",
			model:    &scripted{replies: map[string]string{"Wellness Coach": "Walk daily and sleep more."}},
			wantKind: extract.Raw,
			check: func(t *testing.T, plan WellnessPlan) {
				assert.Equal(t, "Walk daily and sleep more.", plan.RawPlan)
			},
		},
		{
			name:     "model error",
			model:    &scripted{err: errModelDown},
			wantKind: extract.Raw,
			check: func(t *testing.T, plan WellnessPlan) {
				assert.Empty(t, plan.RawPlan)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWellnessPlanner(tt.model)
			require.NoError(t, err)

			res := w.Plan(t.Context(), "Mild hypertension, sedentary")
			assert.Equal(t, tt.wantKind, res.Kind)
			tt.check(t, res.Value)
			assert.Contains(t, tt.model.last(), "Patient Assessment: Mild hypertension, sedentary")
			assert.Contains(t, tt.model.last(), `"foods_to_eat": []`)
		})
	}
}

func TestWellnessPlanner_NilModel(t *testing.T) {
	w, err := NewWellnessPlanner(nil)
	require.NoError(t, err)
	res := w.Plan(t.Context(), "x")
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, errNoModel)
}
