package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Draft is one parsed statement line before it is resolved, deduplicated
// and classified.
type Draft struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	// ExternalID is the institution's per-transaction id (FITID). Empty for
	// delimited and spreadsheet sources.
	ExternalID string
}

// HasExternalID reports whether the draft carries a source-provided id.
func (d Draft) HasExternalID() bool {
	return d.ExternalID != ""
}

// Transaction is a stored statement line. Only CategoryID changes after insert.
type Transaction struct {
	ID          int64
	AccountID   int64
	CategoryID  int64
	Date        time.Time
	ExternalID  string
	Description string
	Amount      decimal.Decimal
	// LoadID is the load operation that inserted the row.
	LoadID string
}

// TransactionView is a transaction joined with its category and account.
type TransactionView struct {
	ID              int64
	Date            time.Time
	Description     string
	Amount          decimal.Decimal
	CategoryName    string
	AccountNickname string
}

// CategoryTotal is the signed sum of a category's transactions in a range.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Day truncates t to a calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
