// Package catalog holds the compliance question set and the clause metadata
// that gaps are reported against.
package catalog

import (
	_ "embed"
	"fmt"

	"audit-readiness-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Default parses the catalog shipped with the binary.
func Default() (domain.Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (domain.Catalog, error) {
	var cat domain.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	for ref, clause := range cat.Clauses {
		clause.Ref = ref
		cat.Clauses[ref] = clause
	}
	if err := Validate(cat); err != nil {
		return domain.Catalog{}, err
	}
	return cat, nil
}

// Validate rejects catalogs a scoring run could not make sense of.
func Validate(cat domain.Catalog) error {
	seen := make(map[string]struct{}, len(cat.Questions))
	for _, q := range cat.Questions {
		if q.ID == "" {
			return fmt.Errorf("question without id")
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("question %s: duplicate id", q.ID)
		}
		seen[q.ID] = struct{}{}
		if len(q.Frameworks) == 0 {
			return fmt.Errorf("question %s: no framework tags", q.ID)
		}
		if q.Weight <= 0 {
			return fmt.Errorf("question %s: weight must be positive", q.ID)
		}
		switch q.Type {
		case domain.QuestionYesNo, domain.QuestionFreeText:
		case domain.QuestionSingleSelect:
			if len(q.Options) == 0 {
				return fmt.Errorf("question %s: select without options", q.ID)
			}
		default:
			return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
		}
		for class, m := range q.RiskMultipliers {
			if m < 0 {
				return fmt.Errorf("question %s: negative multiplier for %s", q.ID, class)
			}
		}
	}
	return nil
}

// Filter returns the questions tagged with any selected framework, in catalog
// order. includeAll or an empty selection returns every question.
func Filter(questions []domain.Question, selected []domain.Framework, includeAll bool) []domain.Question {
	if includeAll || len(selected) == 0 {
		out := make([]domain.Question, len(questions))
		copy(out, questions)
		return out
	}
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		for _, f := range selected {
			if q.HasFramework(f) {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

// Frameworks lists the distinct frameworks in first-seen order.
func Frameworks(questions []domain.Question) []domain.Framework {
	seen := make(map[domain.Framework]struct{})
	var out []domain.Framework
	for _, q := range questions {
		for _, f := range q.Frameworks {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
