package agent

import (
	"errors"
	"fmt"
	"strings"
)

// GeneralSymptom 通用症状关键词及其对应角色
type GeneralSymptom struct {
	Keyword string
	Roles   []Role
}

// TriageTable 第一阶段使用的通用症状表，按顺序匹配
type TriageTable struct {
	General []GeneralSymptom
}

// DefaultTriageTable 内置通用症状表
func DefaultTriageTable() *TriageTable {
	gp := []Role{RoleGeneralPractitioner}
	return &TriageTable{General: []GeneralSymptom{
		{Keyword: "fever", Roles: []Role{RoleGeneralPractitioner, RolePharmacologist}},
		{Keyword: "cold", Roles: gp},
		{Keyword: "cough", Roles: gp},
		{Keyword: "sore throat", Roles: gp},
		{Keyword: "body pain", Roles: gp},
		{Keyword: "body ache", Roles: gp},
		{Keyword: "flu", Roles: gp},
		{Keyword: "infection", Roles: gp},
		{Keyword: "pain", Roles: gp},
		{Keyword: "nausea", Roles: gp},
		{Keyword: "vomiting", Roles: gp},
		{Keyword: "diarrhea", Roles: []Role{RoleGeneralPractitioner, RoleNutritionist}},
		{Keyword: "runny nose", Roles: gp},
		{Keyword: "congestion", Roles: gp},
		{Keyword: "chills", Roles: gp},
		{Keyword: "weakness", Roles: gp},
	}}
}

// Validate 所有角色必须存在于 registry 中
func (t *TriageTable) Validate(reg *Registry) error {
	var errs []error
	for i := range t.General {
		g := &t.General[i]
		g.Keyword = strings.ToLower(strings.TrimSpace(g.Keyword))
		if g.Keyword == "" {
			errs = append(errs, fmt.Errorf("general symptom #%d: empty keyword", i))
		}
		for _, r := range g.Roles {
			if !reg.Known(r) {
				errs = append(errs, fmt.Errorf("general symptom %q: unknown role %s", g.Keyword, r))
			}
		}
	}
	return errors.Join(errs...)
}
