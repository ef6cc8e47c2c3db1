package agent

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/medtriage/internal/consts"
)

// Spec 描述一个专科角色
type Spec struct {
	Role     Role
	Title    string
	Template string
	// Keywords 专科关键词，任意一个出现即选中该角色
	Keywords []string

	tmpl *template.Template
}

// Registry 角色目录，按注册顺序保存。构造后只读，可在多个 goroutine 间共享
type Registry struct {
	specs []Spec
	index map[Role]int
}

// NewRegistry 校验并解析所有模板
func NewRegistry(specs ...Spec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, errors.New("registry requires at least one role")
	}
	r := &Registry{index: make(map[Role]int, len(specs))}
	for _, s := range specs {
		if s.Role == "" {
			return nil, errors.New("role id is required")
		}
		if _, dup := r.index[s.Role]; dup {
			return nil, fmt.Errorf("duplicate role %s", s.Role)
		}
		if s.Title == "" {
			s.Title = string(s.Role)
		}
		tmpl, err := consts.Parse(string(s.Role), s.Template)
		if err != nil {
			return nil, err
		}
		s.tmpl = tmpl
		s.Keywords = normalizeKeywords(s.Keywords)
		r.index[s.Role] = len(r.specs)
		r.specs = append(r.specs, s)
	}
	return r, nil
}

// DefaultRegistry 内置的八个角色
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Spec{Role: RoleCardiologist, Title: "Cardiologist", Template: consts.CardiologistPrompt,
			Keywords: []string{"chest pain", "heart", "palpitation", "hypertension", "blood pressure", "cardiac", "angina", "arrhythmia"}},
		Spec{Role: RoleNeurologist, Title: "Neurologist", Template: consts.NeurologistPrompt,
			Keywords: []string{"headache", "migraine", "seizure", "dizziness", "memory", "tremor", "stroke", "vertigo", "numbness"}},
		Spec{Role: RoleNutritionist, Title: "Nutritionist", Template: consts.NutritionistPrompt,
			Keywords: []string{"diet", "weight loss", "weight gain", "nutrition", "obesity", "eating disorder", "vitamin", "meal plan", "diabetes diet"}},
		Spec{Role: RolePharmacologist, Title: "Pharmacologist", Template: consts.PharmacologistPrompt,
			Keywords: []string{"medication", "drug", "prescription", "side effect", "dosage", "pill", "medicine", "antibiotic"}},
		Spec{Role: RoleFitness, Title: "Fitness Coach", Template: consts.FitnessPrompt,
			Keywords: []string{"exercise", "workout", "fitness", "physical activity", "training", "gym", "muscle pain", "sports injury"}},
		Spec{Role: RoleSleep, Title: "Sleep Advisor", Template: consts.SleepPrompt,
			Keywords: []string{"sleep", "insomnia", "fatigue", "tired", "rest", "snoring", "sleep apnea", "drowsy"}},
		Spec{Role: RoleDermatologist, Title: "Dermatologist", Template: consts.DermatologistPrompt,
			Keywords: []string{"skin", "rash", "acne", "eczema", "mole", "itching", "psoriasis", "hives", "sunburn"}},
		Spec{Role: RoleGeneralPractitioner, Title: "General Practitioner", Template: consts.GeneralPractitionerPrompt},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup 按 id 查找
func (r *Registry) Lookup(role Role) (Spec, bool) {
	i, ok := r.index[role]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// Known 是否为已注册角色
func (r *Registry) Known(role Role) bool {
	_, ok := r.index[role]
	return ok
}

// Roles 按注册顺序返回所有角色
func (r *Registry) Roles() []Role {
	out := make([]Role, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s.Role)
	}
	return out
}

// Specs 按注册顺序返回所有角色描述的拷贝
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Title 返回展示名，未知角色返回 id 本身
func (r *Registry) Title(role Role) string {
	if s, ok := r.Lookup(role); ok {
		return s.Title
	}
	return string(role)
}

func normalizeKeywords(kws []string) []string {
	out := make([]string, 0, len(kws))
	for _, kw := range kws {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
