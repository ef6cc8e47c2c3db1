// Package generator 基于综合评估生成健康计划、治疗建议与处方草稿。
// 每个生成器只调用一次模型，解析失败时返回固定的兜底结果
package generator

import (
	"fmt"
	"strings"
)

const notSpecified = "Not specified"

// Profile 患者基本信息，零值字段在 prompt 中显示为未指定
type Profile struct {
	Name        string   `json:"name,omitempty"`
	Age         int      `json:"age,omitempty"`
	WeightKG    float64  `json:"weight_kg,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
	Medications []string `json:"current_medications,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
}

func (p Profile) NameText() string {
	if s := strings.TrimSpace(p.Name); s != "" {
		return s
	}
	return "Patient"
}

func (p Profile) AgeText() string {
	if p.Age <= 0 {
		return notSpecified
	}
	return fmt.Sprintf("%d years", p.Age)
}

func (p Profile) WeightText() string {
	if p.WeightKG <= 0 {
		return notSpecified
	}
	return fmt.Sprintf("%.1f kg (%.0f lbs)", p.WeightKG, p.WeightKG*2.20462)
}

func (p Profile) AllergiesText() string   { return listText(p.Allergies, "None reported") }
func (p Profile) MedicationsText() string { return listText(p.Medications, "None") }
func (p Profile) ConditionsText() string  { return listText(p.Conditions, "None") }

func listText(items []string, empty string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return empty
	}
	return strings.Join(out, ", ")
}

// ParseList 解析逗号分隔的列表输入
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
