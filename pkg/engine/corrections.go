package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/thyme/pkg/classify"
	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/store"
)

// CorrectCategory moves a transaction to the named category and remembers
// the choice for every later transaction with the same normalized
// description. An unknown category changes nothing.
func (e *Engine) CorrectCategory(ctx context.Context, txID int64, categoryName string) error {
	category, err := e.findCategory(ctx, categoryName)
	if err != nil {
		return err
	}

	tx, err := e.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if err := e.store.UpdateTransactionCategory(ctx, tx.ID, category.ID); err != nil {
		return err
	}

	override := models.Override{
		NormalizedDescription: classify.Normalize(tx.Description),
		CategoryID:            category.ID,
	}
	if err := e.store.UpsertOverride(ctx, override); err != nil {
		return fmt.Errorf("recording correction: %w", err)
	}

	e.logger.Info("corrected category", "transaction", tx.ID, "category", category.Name, "description", override.NormalizedDescription)
	return nil
}

func (e *Engine) findCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	c, err := e.store.FindCategory(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up category: %w", err)
	}
	return c, nil
}

func (e *Engine) ListCategories(ctx context.Context) ([]models.Category, error) {
	return e.store.ListCategories(ctx)
}

func (e *Engine) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return e.store.ListAccounts(ctx)
}

func (e *Engine) RenameAccount(ctx context.Context, id int64, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("nickname cannot be empty")
	}
	return e.store.UpdateAccountNickname(ctx, id, nickname)
}

// SetBudget sets a category's expected monthly spend, a positive magnitude.
func (e *Engine) SetBudget(ctx context.Context, categoryName string, amount decimal.Decimal) error {
	c, err := e.findCategory(ctx, categoryName)
	if err != nil {
		return err
	}
	return e.store.UpdateCategoryBudget(ctx, c.ID, amount)
}
