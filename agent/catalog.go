package agent

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog 可替换的角色目录、通用症状表与知识表
type Catalog struct {
	Registry  *Registry
	Table     *TriageTable
	Knowledge []KnowledgeEntry
}

// DefaultCatalog 内置目录
func DefaultCatalog() *Catalog {
	return &Catalog{
		Registry:  DefaultRegistry(),
		Table:     DefaultTriageTable(),
		Knowledge: DefaultKnowledge(),
	}
}

type catalogFile struct {
	Roles []struct {
		ID       string   `yaml:"id"`
		Title    string   `yaml:"title"`
		Keywords []string `yaml:"keywords"`
		Prompt   string   `yaml:"prompt"`
	} `yaml:"roles"`
	GeneralSymptoms []struct {
		Keyword string   `yaml:"keyword"`
		Roles   []string `yaml:"roles"`
	} `yaml:"general_symptoms"`
	Knowledge []struct {
		Condition string `yaml:"condition"`
		Evidence  string `yaml:"evidence"`
	} `yaml:"knowledge"`
}

// ParseCatalogYAML 解析目录。省略的段落使用内置值；
// 内置角色省略 prompt 或 title 时沿用内置定义
func ParseCatalogYAML(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("catalog: payload is empty")
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	cat := DefaultCatalog()
	if len(f.Roles) > 0 {
		builtin := cat.Registry
		specs := make([]Spec, 0, len(f.Roles))
		for _, r := range f.Roles {
			s := Spec{Role: Role(r.ID), Title: r.Title, Template: r.Prompt, Keywords: r.Keywords}
			if def, ok := builtin.Lookup(s.Role); ok {
				if s.Title == "" {
					s.Title = def.Title
				}
				if s.Template == "" {
					s.Template = def.Template
				}
			}
			if s.Template == "" {
				return nil, fmt.Errorf("catalog: role %s has no prompt", r.ID)
			}
			specs = append(specs, s)
		}
		reg, err := NewRegistry(specs...)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		cat.Registry = reg
	}

	if len(f.GeneralSymptoms) > 0 {
		table := &TriageTable{}
		for _, g := range f.GeneralSymptoms {
			table.General = append(table.General, GeneralSymptom{Keyword: g.Keyword, Roles: Roles(g.Roles...)})
		}
		cat.Table = table
	}
	if err := cat.Table.Validate(cat.Registry); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	if len(f.Knowledge) > 0 {
		cat.Knowledge = make([]KnowledgeEntry, 0, len(f.Knowledge))
		for _, k := range f.Knowledge {
			cat.Knowledge = append(cat.Knowledge, KnowledgeEntry{Condition: k.Condition, Evidence: k.Evidence})
		}
	}
	return cat, nil
}

// LoadCatalog 从文件加载目录，path 为空时返回内置目录
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	cat, err := ParseCatalogYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}
