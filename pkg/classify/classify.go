// Package classify assigns budget categories to transaction descriptions.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yurifrl/thyme/pkg/models"
)

var ErrUnknownCategory = errors.New("unknown category")

// Normalize trims and lower-cases a description; the result is the key of
// the override table.
func Normalize(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

type rule struct {
	categoryID int64
	patterns   []string
}

// Classifier resolves a description to a category id: an exact override
// first, then the first matching rule in table order, then the default.
type Classifier struct {
	rules     []rule
	defaultID int64
}

// New binds the rule table to category ids. Every category a rule names,
// and the default, must exist in categories.
func New(rules models.RuleTable, categories []models.Category, defaultName string) (*Classifier, error) {
	ids := make(map[string]int64, len(categories))
	for _, c := range categories {
		ids[Normalize(c.Name)] = c.ID
	}

	defaultID, ok := ids[Normalize(defaultName)]
	if !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownCategory, defaultName)
	}

	c := &Classifier{defaultID: defaultID, rules: make([]rule, 0, len(rules))}
	for _, r := range rules {
		id, ok := ids[Normalize(r.Category)]
		if !ok {
			return nil, fmt.Errorf("%w: rule for %q", ErrUnknownCategory, r.Category)
		}
		patterns := make([]string, len(r.Patterns))
		for i, p := range r.Patterns {
			patterns[i] = strings.ToLower(p)
		}
		c.rules = append(c.rules, rule{categoryID: id, patterns: patterns})
	}
	return c, nil
}

// Classify returns the category id for description. overrides maps
// normalized descriptions to category ids and may be nil.
func (c *Classifier) Classify(description string, overrides map[string]int64) int64 {
	normalized := Normalize(description)
	if id, ok := overrides[normalized]; ok {
		return id
	}
	for _, r := range c.rules {
		for _, p := range r.patterns {
			if strings.Contains(normalized, p) {
				return r.categoryID
			}
		}
	}
	return c.defaultID
}

// Default is the category id used when nothing matches.
func (c *Classifier) Default() int64 {
	return c.defaultID
}
