// Package store defines the record store the engine reads and writes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/thyme/pkg/models"
)

// ErrNotFound is returned by point lookups that match nothing.
var ErrNotFound = errors.New("not found")

// TransactionQuery selects transactions dated in [Start, End).
type TransactionQuery struct {
	Start time.Time
	End   time.Time
	// Filter matches description or category name, case-insensitively.
	Filter string
	// LoadID, when set, keeps only rows inserted by that load.
	LoadID string
}

type TransactionStore interface {
	FindTransactionByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	FindTransactionByKey(ctx context.Context, date time.Time, description string, amount decimal.Decimal) (*models.Transaction, error)
	// InsertTransaction assigns tx.ID.
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, categoryID int64) error

	// ListTransactions returns matching rows ordered by date, then id.
	ListTransactions(ctx context.Context, q TransactionQuery) ([]models.TransactionView, error)
	// SumByCategory totals the signed amounts in [start, end) per category
	// name, ordered by name. Categories with no rows are omitted.
	SumByCategory(ctx context.Context, start, end time.Time) ([]models.CategoryTotal, error)
}

type AccountStore interface {
	FindAccount(ctx context.Context, name string, externalID int64) (*models.Account, error)
	FindAccountByNickname(ctx context.Context, nickname string) (*models.Account, error)
	// InsertAccount assigns a.ID.
	InsertAccount(ctx context.Context, a *models.Account) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateAccountNickname(ctx context.Context, id int64, nickname string) error
}

type CategoryStore interface {
	FindCategory(ctx context.Context, name string) (*models.Category, error)
	// InsertCategory assigns c.ID.
	InsertCategory(ctx context.Context, c *models.Category) error
	// ListCategories returns every category ordered by id.
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategoryBudget(ctx context.Context, id int64, budget decimal.Decimal) error

	// Overrides returns normalized description -> category id.
	Overrides(ctx context.Context) (map[string]int64, error)
	UpsertOverride(ctx context.Context, o models.Override) error
}

type LoadStore interface {
	HasLoadedFile(ctx context.Context, f models.LoadedFile) (bool, error)
	InsertLoadedFile(ctx context.Context, f models.LoadedFile) error

	InsertLoad(ctx context.Context, l models.Load) error
	// LatestLoad returns ErrNotFound before the first load.
	LatestLoad(ctx context.Context) (*models.Load, error)
}

// Store is everything the engine needs from persistence.
type Store interface {
	TransactionStore
	AccountStore
	CategoryStore
	LoadStore
}
