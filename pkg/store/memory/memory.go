// Package memory is an in-process implementation of store.Store. It backs
// the "memory" driver and the engine tests; data is lost on exit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/store"
)

// Store is safe for concurrent use. Values are copied in and out.
type Store struct {
	mu sync.RWMutex

	transactions []models.Transaction
	accounts     []models.Account
	categories   []models.Category
	overrides    map[string]int64
	loadedFiles  []models.LoadedFile
	loads        []models.Load

	nextTxID       int64
	nextAccountID  int64
	nextCategoryID int64
}

func New() *Store {
	return &Store{overrides: make(map[string]int64)}
}

func (s *Store) FindTransactionByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.ExternalID != "" && tx.ExternalID == externalID {
			return &tx, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindTransactionByKey(ctx context.Context, date time.Time, description string, amount decimal.Decimal) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := models.Day(date)
	for _, tx := range s.transactions {
		if tx.Date.Equal(day) && tx.Description == description && tx.Amount.Equal(amount) {
			return &tx, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTxID++
	tx.ID = s.nextTxID
	row := *tx
	row.Date = models.Day(row.Date)
	s.transactions = append(s.transactions, row)
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.txIndex(id); i >= 0 {
		tx := s.transactions[i]
		return &tx, nil
	}
	return nil, fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
}

func (s *Store) UpdateTransactionCategory(ctx context.Context, id, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.txIndex(id)
	if i < 0 {
		return fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
	}
	s.transactions[i].CategoryID = categoryID
	return nil
}

func (s *Store) txIndex(id int64) int {
	for i, tx := range s.transactions {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]models.TransactionView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := strings.ToLower(q.Filter)
	result := []models.TransactionView{}
	for _, tx := range s.transactions {
		if !inRange(tx.Date, q.Start, q.End) {
			continue
		}
		if q.LoadID != "" && tx.LoadID != q.LoadID {
			continue
		}
		category := s.categoryName(tx.CategoryID)
		if filter != "" &&
			!strings.Contains(strings.ToLower(tx.Description), filter) &&
			!strings.Contains(strings.ToLower(category), filter) {
			continue
		}
		result = append(result, models.TransactionView{
			ID:              tx.ID,
			Date:            tx.Date,
			Description:     tx.Description,
			Amount:          tx.Amount,
			CategoryName:    category,
			AccountNickname: s.accountNickname(tx.AccountID),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) SumByCategory(ctx context.Context, start, end time.Time) ([]models.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]decimal.Decimal)
	for _, tx := range s.transactions {
		if !inRange(tx.Date, start, end) {
			continue
		}
		name := s.categoryName(tx.CategoryID)
		sums[name] = sums[name].Add(tx.Amount)
	}

	result := make([]models.CategoryTotal, 0, len(sums))
	for name, total := range sums {
		result = append(result, models.CategoryTotal{Category: name, Total: total})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Category < result[j].Category
	})
	return result, nil
}

func inRange(date, start, end time.Time) bool {
	return !date.Before(start) && date.Before(end)
}

func (s *Store) categoryName(id int64) string {
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (s *Store) accountNickname(id int64) string {
	for _, a := range s.accounts {
		if a.ID == id {
			return a.Nickname
		}
	}
	return ""
}

func (s *Store) FindAccount(ctx context.Context, name string, externalID int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.InstitutionName == name && a.InstitutionExternalID == externalID {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindAccountByNickname(ctx context.Context, nickname string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Nickname == nickname {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) InsertAccount(ctx context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccountID++
	a.ID = s.nextAccountID
	s.accounts = append(s.accounts, *a)
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Account{}, s.accounts...), nil
}

func (s *Store) UpdateAccountNickname(ctx context.Context, id int64, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].Nickname = nickname
			return nil
		}
	}
	return fmt.Errorf("account %d: %w", id, store.ErrNotFound)
}

func (s *Store) FindCategory(ctx context.Context, name string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.Name == name {
			return copyCategory(c), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) InsertCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return fmt.Errorf("category %q already exists", c.Name)
		}
	}
	s.nextCategoryID++
	c.ID = s.nextCategoryID
	s.categories = append(s.categories, *copyCategory(*c))
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, *copyCategory(c))
	}
	return result, nil
}

func (s *Store) UpdateCategoryBudget(ctx context.Context, id int64, budget decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories[i].MonthlyBudget = budget
			return nil
		}
	}
	return fmt.Errorf("category %d: %w", id, store.ErrNotFound)
}

func copyCategory(c models.Category) *models.Category {
	if c.ParentID != nil {
		parent := *c.ParentID
		c.ParentID = &parent
	}
	return &c
}

func (s *Store) Overrides(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64, len(s.overrides))
	for k, v := range s.overrides {
		result[k] = v
	}
	return result, nil
}

func (s *Store) UpsertOverride(ctx context.Context, o models.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overrides[o.NormalizedDescription] = o.CategoryID
	return nil
}

func (s *Store) HasLoadedFile(ctx context.Context, f models.LoadedFile) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, lf := range s.loadedFiles {
		if lf.FileName == f.FileName && lf.ModTime.Equal(f.ModTime) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) InsertLoadedFile(ctx context.Context, f models.LoadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadedFiles = append(s.loadedFiles, f)
	return nil
}

func (s *Store) InsertLoad(ctx context.Context, l models.Load) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loads = append(s.loads, l)
	return nil
}

func (s *Store) LatestLoad(ctx context.Context) (*models.Load, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.loads) == 0 {
		return nil, store.ErrNotFound
	}
	l := s.loads[len(s.loads)-1]
	return &l, nil
}

var _ store.Store = (*Store)(nil)
