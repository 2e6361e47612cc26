package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/store"
)

// ListOptions selects transactions dated in [Start, End).
type ListOptions struct {
	Start time.Time
	End   time.Time
	// Filter matches description or category name, case-insensitively.
	Filter string
	// OnlyNew keeps rows inserted by the most recent load.
	OnlyNew bool
}

func (e *Engine) ListTransactions(ctx context.Context, opts ListOptions) ([]models.TransactionView, error) {
	q := store.TransactionQuery{
		Start:  models.Day(opts.Start),
		End:    models.Day(opts.End),
		Filter: strings.TrimSpace(opts.Filter),
	}

	if opts.OnlyNew {
		load, err := e.store.LatestLoad(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return []models.TransactionView{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading latest load: %w", err)
		}
		q.LoadID = load.ID
	}

	return e.store.ListTransactions(ctx, q)
}

// AggregateByCategory returns the signed sum per category in [start, end),
// ordered by category name. Excluded categories are included.
func (e *Engine) AggregateByCategory(ctx context.Context, start, end time.Time) ([]models.CategoryTotal, error) {
	return e.store.SumByCategory(ctx, models.Day(start), models.Day(end))
}

// BudgetLine compares one category's spend with its monthly budget.
// Headroom is Budget + Actual: positive while under budget.
type BudgetLine struct {
	Category string
	Actual   decimal.Decimal
	Budget   decimal.Decimal
	Headroom decimal.Decimal
	Excluded bool
}

// BudgetReport has a line per category with transactions in range.
// TotalActual skips excluded categories; TotalBudget sums every category.
type BudgetReport struct {
	Lines       []BudgetLine
	TotalActual decimal.Decimal
	TotalBudget decimal.Decimal
}

func (e *Engine) BudgetReport(ctx context.Context, start, end time.Time) (*BudgetReport, error) {
	totals, err := e.AggregateByCategory(ctx, start, end)
	if err != nil {
		return nil, err
	}
	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	report := &BudgetReport{}
	budgets := make(map[string]decimal.Decimal, len(categories))
	for _, c := range categories {
		budgets[c.Name] = c.MonthlyBudget
		report.TotalBudget = report.TotalBudget.Add(c.MonthlyBudget)
	}

	for _, t := range totals {
		line := BudgetLine{
			Category: t.Category,
			Actual:   t.Total,
			Budget:   budgets[t.Category],
			Excluded: e.seed.IsExcluded(t.Category),
		}
		line.Headroom = line.Budget.Add(line.Actual)
		if !line.Excluded {
			report.TotalActual = report.TotalActual.Add(line.Actual)
		}
		report.Lines = append(report.Lines, line)
	}
	return report, nil
}
