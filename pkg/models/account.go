package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is an institution account, created the first time a
// (name, external id) pair is seen. Only Nickname is edited afterwards.
type Account struct {
	ID                    int64
	Nickname              string
	InstitutionName       string
	InstitutionExternalID int64
	DisplayName           string
	Type                  string
}

// Category is a budget category. Names are unique and stored lower-case.
type Category struct {
	ID       int64
	ParentID *int64
	Name     string
	// MonthlyBudget is the expected monthly spend as a positive magnitude.
	MonthlyBudget decimal.Decimal
}

// Override is a learned description -> category correction.
type Override struct {
	NormalizedDescription string
	CategoryID            int64
}

// LoadedFile marks a tagged document that was fully ingested.
type LoadedFile struct {
	FileName string
	ModTime  time.Time
}

// Load is one import or scan operation. The newest load is the watermark
// for "new since last load" queries.
type Load struct {
	ID        string
	StartedAt time.Time
}
