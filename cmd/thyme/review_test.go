package main

import (
	"testing"
)

func TestListArgs(t *testing.T) {
	tests := []struct {
		args    []string
		filter  string
		month   int
		wantErr bool
	}{
		{nil, "", 0, false},
		{[]string{"10"}, "", 10, false},
		{[]string{"Coffee"}, "coffee", 0, false},
		{[]string{"coffee", "10"}, "coffee", 10, false},
		{[]string{"coffee", "oct"}, "", 0, true},
	}

	for _, tt := range tests {
		filter, month, err := listArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Fatalf("listArgs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
		}
		if filter != tt.filter || month != tt.month {
			t.Errorf("listArgs(%v) = %q, %d; want %q, %d", tt.args, filter, month, tt.filter, tt.month)
		}
	}
}

func TestShorten(t *testing.T) {
	got := shorten("TRINET   DES:PAYROLL ID:00001055623 INDN:SMITH", 29)
	if len([]rune(got)) != 29 {
		t.Errorf("expected 29 runes, got %d (%q)", len([]rune(got)), got)
	}
	if got := shorten("  starbucks  coffee ", 29); got != "Starbucks Coffee" {
		t.Errorf("shorten = %q", got)
	}
}
