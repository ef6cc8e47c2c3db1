package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type finding struct {
	Findings   []string `json:"findings"`
	Confidence float64  `json:"confidence"`
}

func TestDecode_Object(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantOK   bool
		findings []string
	}{
		{name: "plain", input: `{"findings":["a"],"confidence":0.5}`, wantOK: true, findings: []string{"a"}},
		{name: "prose around", input: "Here is the assessment:\n{\"findings\":[\"b\"]}\nHope this helps.", wantOK: true, findings: []string{"b"}},
		{name: "code fence", input: "```json\n{\"findings\":[\"c\"]}\n```", wantOK: true, findings: []string{"c"}},
		{name: "braces in strings", input: `note {not json} then {"findings":["x } y {"]}`, wantOK: true, findings: []string{"x } y {"}},
		{name: "nested", input: `result: {"findings":["n"],"meta":{"deep":{"k":1}}} trailing }`, wantOK: true, findings: []string{"n"}},
		{name: "no braces", input: "Patient should rest and hydrate.", wantOK: false},
		{name: "truncated", input: `{"findings":["a"`, wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Decode[finding](tt.input)
			assert.Equal(t, tt.input, res.Raw)
			if !tt.wantOK {
				assert.Equal(t, Raw, res.Kind)
				assert.ErrorIs(t, res.Err, ErrNoJSON)
				return
			}
			require.True(t, res.OK(), "err: %v", res.Err)
			assert.NoError(t, res.Err)
			assert.Equal(t, tt.findings, res.Value.Findings)
		})
	}
}

func TestDecode_Array(t *testing.T) {
	res := Decode[[]string](`I suggest: ["general_practitioner", "pharmacologist"].`)
	require.True(t, res.OK())
	assert.Equal(t, []string{"general_practitioner", "pharmacologist"}, res.Value)

	// 对象不能解码为数组，继续寻找后面的数组
	res = Decode[[]string](`{"note":"x"} then ["sleep"]`)
	require.True(t, res.OK())
	assert.Equal(t, []string{"sleep"}, res.Value)
}

func TestResult_Or(t *testing.T) {
	fallback := finding{Findings: []string{"Unable to parse response"}}
	assert.Equal(t, fallback, Decode[finding]("nothing here").Or(fallback))
	assert.Equal(t, []string{"ok"}, Decode[finding](`{"findings":["ok"]}`).Or(fallback).Findings)
}

func TestDecoder_Schema(t *testing.T) {
	d, err := NewDecoder[finding](true)
	require.NoError(t, err)

	// confidence 类型不匹配的候选值被拒绝，继续使用后面的合法值
	res := d.Decode(`{"findings":"oops","confidence":"high"} {"findings":["ok"],"confidence":0.9}`)
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, []string{"ok"}, res.Value.Findings)
	assert.InDelta(t, 0.9, res.Value.Confidence, 1e-9)

	res = d.Decode(`{"findings":42}`)
	assert.False(t, res.OK())
	assert.Error(t, res.Err)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "structured", Structured.String())
	assert.Equal(t, "raw", Raw.String())
}
