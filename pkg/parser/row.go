package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/thyme/pkg/models"
)

var (
	ErrShortRow      = errors.New("row has too few columns")
	ErrBadAmount     = errors.New("amount is not numeric")
	ErrBadDate       = errors.New("date does not match format")
	ErrMissingField  = errors.New("transaction node is missing a field")
	ErrEmptyDocument = errors.New("document is empty")
)

// RowError describes a row or node that was skipped. Line is zero-based
// within the source.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseRow converts one row of fields into a draft using profile. It never
// panics on malformed input; callers must check the error and skip the row.
func (p *Parser) ParseRow(profile models.ColumnProfile, row []string) (models.Draft, error) {
	if len(row) < profile.MinColumns() {
		return models.Draft{}, fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(row), profile.MinColumns())
	}

	amountStr := strings.TrimSpace(row[profile.AmountColumn])
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return models.Draft{}, fmt.Errorf("%w: %q", ErrBadAmount, amountStr)
	}
	if profile.AmountNegated {
		amount = amount.Neg()
	}

	dateStr := strings.TrimSpace(row[profile.DateColumn])
	date, err := time.ParseInLocation(goLayout(profile.DateFormat), dateStr, time.UTC)
	if err != nil {
		return models.Draft{}, fmt.Errorf("%w: %q (%s)", ErrBadDate, dateStr, profile.DateFormat)
	}

	return models.Draft{
		Date:        models.Day(date),
		Description: row[profile.DescriptionColumn],
		Amount:      amount,
	}, nil
}

// parseRows applies ParseRow to rows, dropping profile.SkipRows leading rows.
func (p *Parser) parseRows(profile models.ColumnProfile, rows [][]string) *Batch {
	batch := &Batch{Drafts: make([]models.Draft, 0, len(rows))}
	for i, row := range rows {
		if i < profile.SkipRows {
			continue
		}
		draft, err := p.ParseRow(profile, row)
		if err != nil {
			p.logger.Debug("skipping row", "profile", profile.Name, "line", i, "err", err)
			batch.Failures = append(batch.Failures, &RowError{Line: i, Err: err})
			continue
		}
		batch.Drafts = append(batch.Drafts, draft)
	}
	return batch
}
