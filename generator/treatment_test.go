package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtriage/internal/extract"
)

const planReply = `{"medications":[{"name":"Lisinopril","dosage":"10mg","frequency":"daily","duration":"ongoing"},{"name":""}],
"non_pharmacological":["reduce salt"],"monitoring":["blood pressure weekly"],"precautions":["avoid NSAIDs"]}`

func TestTreatmentRecommender_Recommend(t *testing.T) {
	model := &scripted{replies: map[string]string{
		"personalized treatment plan": planReply,
		"Analyze drug safety":         `{"safety":"Caution","interactions":["NSAIDs"],"warnings":["cough"],"dosage":"10mg"}`,
	}}
	checker, err := NewDrugSafetyChecker(model, staticLabels{text: "warnings: angioedema"})
	require.NoError(t, err)
	rec, err := NewTreatmentRecommender(model, checker)
	require.NoError(t, err)

	profile := Profile{Age: 60, Allergies: []string{"sulfa"}}
	res := rec.Recommend(t.Context(), "Hypertension", profile)
	require.Equal(t, extract.Structured, res.Kind)

	plan := res.Value
	require.Len(t, plan.Medications, 2)
	require.NotNil(t, plan.Medications[0].Safety)
	assert.Equal(t, "Caution", plan.Medications[0].Safety.Safety)
	assert.Nil(t, plan.Medications[1].Safety, "unnamed medication is not checked")
	assert.Equal(t, []string{"reduce salt"}, plan.NonPharmacological)

	model.mu.Lock()
	defer model.mu.Unlock()
	require.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[0], "Diagnosis/Condition: Hypertension")
	assert.Contains(t, model.prompts[0], "- Age: 60 years")
	assert.Contains(t, model.prompts[0], "- Allergies: sulfa")
	assert.Contains(t, model.prompts[1], "Analyze drug safety for: Lisinopril")
	assert.Contains(t, model.prompts[1], "Drug Information: warnings: angioedema")
}

func TestTreatmentRecommender_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		model *scripted
	}{
		{name: "model error", model: &scripted{err: errModelDown}},
		{name: "unparseable", model: &scripted{replies: map[string]string{"treatment": "take rest"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewTreatmentRecommender(tt.model, nil)
			require.NoError(t, err)
			res := rec.Recommend(t.Context(), "Flu", Profile{})
			assert.Equal(t, extract.Raw, res.Kind)
			assert.Equal(t, DefaultTreatmentPlan(), res.Value)
		})
	}
}

func TestTreatmentRecommender_WithoutChecker(t *testing.T) {
	rec, err := NewTreatmentRecommender(reply(planReply), nil)
	require.NoError(t, err)
	res := rec.Recommend(t.Context(), "Hypertension", Profile{})
	require.True(t, res.OK())
	assert.Nil(t, res.Value.Medications[0].Safety)
}

func TestTreatmentRecommender_MedicationDetails(t *testing.T) {
	rec, err := NewTreatmentRecommender(reply("Metformin lowers blood glucose."), nil)
	require.NoError(t, err)
	assert.Equal(t, "Metformin lowers blood glucose.", rec.MedicationDetails(t.Context(), "metformin"))

	rec, err = NewTreatmentRecommender(failing(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoMedicationInfo, rec.MedicationDetails(t.Context(), "metformin"))

	rec, err = NewTreatmentRecommender(reply(""), nil)
	require.NoError(t, err)
	assert.Equal(t, NoMedicationInfo, rec.MedicationDetails(t.Context(), "metformin"))
}
