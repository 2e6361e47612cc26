// Package postgres implements store.Store on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/store"
)

//go:embed schema.sql
var schemaSQL string

// Store is a pgx connection pool plus the queries the engine needs.
// Amounts travel as text so no precision is lost to floats.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// New connects to dsn, verifies the connection and creates any missing
// tables.
func New(ctx context.Context, dsn string, logger *log.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Debug("connected to postgres", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)

	s := &Store{pool: pool, logger: logger}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const txColumns = `id, account_id, category_id, date, COALESCE(external_id, ''), description, amount::text, COALESCE(load_id, '')`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx     models.Transaction
		amount string
	)
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.CategoryID, &tx.Date, &tx.ExternalID, &tx.Description, &amount, &tx.LoadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning transaction: %w", err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("scanning amount %q: %w", amount, err)
	}
	tx.Date = models.Day(tx.Date)
	return &tx, nil
}

func (s *Store) FindTransactionByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	if externalID == "" {
		return nil, store.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE external_id = $1 LIMIT 1`, externalID)
	return scanTransaction(row)
}

func (s *Store) FindTransactionByKey(ctx context.Context, date time.Time, description string, amount decimal.Decimal) (*models.Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE date = $1 AND description = $2 AND amount = $3::numeric LIMIT 1`,
		models.Day(date), description, amount.String())
	return scanTransaction(row)
}

func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	var externalID, loadID any
	if tx.ExternalID != "" {
		externalID = tx.ExternalID
	}
	if tx.LoadID != "" {
		loadID = tx.LoadID
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO transactions (account_id, category_id, date, external_id, description, amount, load_id)
		 VALUES ($1, $2, $3, $4, $5, $6::numeric, $7) RETURNING id`,
		tx.AccountID, tx.CategoryID, models.Day(tx.Date), externalID, tx.Description, tx.Amount.String(), loadID,
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", id, err)
	}
	return tx, nil
}

func (s *Store) UpdateTransactionCategory(ctx context.Context, id, categoryID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE transactions SET category_id = $2 WHERE id = $1`, id, categoryID)
	if err != nil {
		return fmt.Errorf("updating transaction category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]models.TransactionView, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.date, t.description, t.amount::text, c.name, a.nickname
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 JOIN accounts a ON a.id = t.account_id
		 WHERE t.date >= $1 AND t.date < $2
		   AND ($3 = '' OR strpos(lower(t.description), lower($3)) > 0 OR strpos(lower(c.name), lower($3)) > 0)
		   AND ($4 = '' OR t.load_id = $4)
		 ORDER BY t.date, t.id`,
		models.Day(q.Start), models.Day(q.End), q.Filter, q.LoadID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	result := []models.TransactionView{}
	for rows.Next() {
		var (
			v      models.TransactionView
			amount string
		)
		if err := rows.Scan(&v.ID, &v.Date, &v.Description, &amount, &v.CategoryName, &v.AccountNickname); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if v.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("scanning amount %q: %w", amount, err)
		}
		v.Date = models.Day(v.Date)
		result = append(result, v)
	}
	return result, rows.Err()
}

func (s *Store) SumByCategory(ctx context.Context, start, end time.Time) ([]models.CategoryTotal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.name, SUM(t.amount)::text
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.date >= $1 AND t.date < $2
		 GROUP BY c.name
		 ORDER BY c.name`,
		models.Day(start), models.Day(end))
	if err != nil {
		return nil, fmt.Errorf("summing by category: %w", err)
	}
	defer rows.Close()

	result := []models.CategoryTotal{}
	for rows.Next() {
		var (
			ct    models.CategoryTotal
			total string
		)
		if err := rows.Scan(&ct.Category, &total); err != nil {
			return nil, fmt.Errorf("scanning category total: %w", err)
		}
		if ct.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("scanning total %q: %w", total, err)
		}
		result = append(result, ct)
	}
	return result, rows.Err()
}

const accountColumns = `id, nickname, institution_name, institution_external_id, display_name, type`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Nickname, &a.InstitutionName, &a.InstitutionExternalID, &a.DisplayName, &a.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	return &a, nil
}

func (s *Store) FindAccount(ctx context.Context, name string, externalID int64) (*models.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE institution_name = $1 AND institution_external_id = $2`,
		name, externalID)
	return scanAccount(row)
}

func (s *Store) FindAccountByNickname(ctx context.Context, nickname string) (*models.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE nickname = $1 ORDER BY id LIMIT 1`, nickname)
	return scanAccount(row)
}

func (s *Store) InsertAccount(ctx context.Context, a *models.Account) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (nickname, institution_name, institution_external_id, display_name, type)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.Nickname, a.InstitutionName, a.InstitutionExternalID, a.DisplayName, a.Type,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var result []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (s *Store) UpdateAccountNickname(ctx context.Context, id int64, nickname string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET nickname = $2 WHERE id = $1`, id, nickname)
	if err != nil {
		return fmt.Errorf("updating account nickname: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, store.ErrNotFound)
	}
	return nil
}

const categoryColumns = `id, parent_id, name, monthly_budget::text`

func scanCategory(row pgx.Row) (*models.Category, error) {
	var (
		c      models.Category
		budget string
	)
	err := row.Scan(&c.ID, &c.ParentID, &c.Name, &budget)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning category: %w", err)
	}
	if c.MonthlyBudget, err = decimal.NewFromString(budget); err != nil {
		return nil, fmt.Errorf("scanning budget %q: %w", budget, err)
	}
	return &c, nil
}

func (s *Store) FindCategory(ctx context.Context, name string) (*models.Category, error) {
	return scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = $1`, name))
}

func (s *Store) InsertCategory(ctx context.Context, c *models.Category) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (parent_id, name, monthly_budget) VALUES ($1, $2, $3::numeric) RETURNING id`,
		c.ParentID, c.Name, c.MonthlyBudget.String(),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("inserting category %q: %w", c.Name, err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var result []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (s *Store) UpdateCategoryBudget(ctx context.Context, id int64, budget decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx, `UPDATE categories SET monthly_budget = $2::numeric WHERE id = $1`, id, budget.String())
	if err != nil {
		return fmt.Errorf("updating category budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) Overrides(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT normalized_description, category_id FROM description_category_overrides`)
	if err != nil {
		return nil, fmt.Errorf("listing overrides: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var (
			description string
			categoryID  int64
		)
		if err := rows.Scan(&description, &categoryID); err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		result[description] = categoryID
	}
	return result, rows.Err()
}

func (s *Store) UpsertOverride(ctx context.Context, o models.Override) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO description_category_overrides (normalized_description, category_id) VALUES ($1, $2)
		 ON CONFLICT (normalized_description) DO UPDATE SET category_id = EXCLUDED.category_id`,
		o.NormalizedDescription, o.CategoryID)
	if err != nil {
		return fmt.Errorf("upserting override: %w", err)
	}
	return nil
}

func (s *Store) HasLoadedFile(ctx context.Context, f models.LoadedFile) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM loaded_files WHERE file_name = $1 AND mod_time = $2)`,
		f.FileName, f.ModTime,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("looking up loaded file: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertLoadedFile(ctx context.Context, f models.LoadedFile) error {
	if _, err := s.pool.Exec(ctx, `INSERT INTO loaded_files (file_name, mod_time) VALUES ($1, $2)`, f.FileName, f.ModTime); err != nil {
		return fmt.Errorf("inserting loaded file: %w", err)
	}
	return nil
}

func (s *Store) InsertLoad(ctx context.Context, l models.Load) error {
	if _, err := s.pool.Exec(ctx, `INSERT INTO loads (id, started_at) VALUES ($1, $2)`, l.ID, l.StartedAt); err != nil {
		return fmt.Errorf("inserting load: %w", err)
	}
	return nil
}

func (s *Store) LatestLoad(ctx context.Context) (*models.Load, error) {
	var l models.Load
	err := s.pool.QueryRow(ctx, `SELECT id, started_at FROM loads ORDER BY started_at DESC LIMIT 1`).Scan(&l.ID, &l.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest load: %w", err)
	}
	return &l, nil
}

var _ store.Store = (*Store)(nil)
