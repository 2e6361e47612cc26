// Package seed holds the category vocabulary, the ordered pattern rules and
// the institution column profiles the engine is constructed with.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/thyme/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultSeed []byte

// DefaultCategory is used when a seed file does not name one.
const DefaultCategory = "uncategorized"

type Category struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
	Budget string `yaml:"budget"`

	budget decimal.Decimal
}

// MonthlyBudget is the parsed budget, zero when none was configured.
func (c Category) MonthlyBudget() decimal.Decimal {
	return c.budget
}

type Seed struct {
	Default    string                 `yaml:"default"`
	Excluded   []string               `yaml:"excluded"`
	Categories []Category             `yaml:"categories"`
	Rules      models.RuleTable       `yaml:"rules"`
	Profiles   []models.ColumnProfile `yaml:"profiles"`
}

// Default returns the built-in vocabulary.
func Default() (*Seed, error) {
	return Parse(defaultSeed)
}

// Load reads a seed file; an empty path yields the built-in vocabulary.
func Load(path string) (*Seed, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a seed document. Names and patterns are
// folded to lower case so they compare against normalized descriptions.
func Parse(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Seed) normalize() error {
	s.Default = fold(s.Default)
	if s.Default == "" {
		s.Default = DefaultCategory
	}

	known := make(map[string]bool, len(s.Categories))
	for i := range s.Categories {
		c := &s.Categories[i]
		c.Name = fold(c.Name)
		c.Parent = fold(c.Parent)
		if c.Name == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if known[c.Name] {
			return fmt.Errorf("category %q declared twice", c.Name)
		}
		if c.Parent != "" && !known[c.Parent] {
			return fmt.Errorf("category %q: parent %q must be declared before it", c.Name, c.Parent)
		}
		if b := strings.TrimSpace(c.Budget); b != "" {
			budget, err := decimal.NewFromString(b)
			if err != nil {
				return fmt.Errorf("category %q: invalid budget %q: %w", c.Name, c.Budget, err)
			}
			c.budget = budget
		}
		known[c.Name] = true
	}

	if !known[s.Default] {
		return fmt.Errorf("default category %q is not declared", s.Default)
	}

	for i, name := range s.Excluded {
		s.Excluded[i] = fold(name)
		if !known[s.Excluded[i]] {
			return fmt.Errorf("excluded category %q is not declared", name)
		}
	}

	for i := range s.Rules {
		r := &s.Rules[i]
		r.Category = fold(r.Category)
		if !known[r.Category] {
			return fmt.Errorf("rule %d references unknown category %q", i, r.Category)
		}
		for j, p := range r.Patterns {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("rule %q has an empty pattern", r.Category)
			}
			r.Patterns[j] = strings.ToLower(p)
		}
	}

	profiles := make(map[string]bool, len(s.Profiles))
	for i := range s.Profiles {
		p := &s.Profiles[i]
		p.Name = fold(p.Name)
		if p.Name == "" {
			return fmt.Errorf("profile %d has no name", i)
		}
		if profiles[p.Name] {
			return fmt.Errorf("profile %q declared twice", p.Name)
		}
		if p.DateColumn < 0 || p.DescriptionColumn < 0 || p.AmountColumn < 0 || p.SkipRows < 0 {
			return fmt.Errorf("profile %q has a negative column", p.Name)
		}
		if p.DateFormat == "" {
			return fmt.Errorf("profile %q has no date format", p.Name)
		}
		profiles[p.Name] = true
	}

	return nil
}

var ErrUnknownProfile = errors.New("unknown column profile")

// Profile looks up a column profile by name.
func (s *Seed) Profile(name string) (models.ColumnProfile, error) {
	name = fold(name)
	for _, p := range s.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return models.ColumnProfile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}

// IsExcluded reports whether a category is left out of spend totals.
func (s *Seed) IsExcluded(category string) bool {
	category = fold(category)
	for _, name := range s.Excluded {
		if name == category {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
