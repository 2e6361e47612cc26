package models

// Rule assigns Category to any normalized description containing one of
// Patterns.
type Rule struct {
	Category string   `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

// RuleTable is evaluated in order; the first matching rule wins.
type RuleTable []Rule
