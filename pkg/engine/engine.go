// Package engine turns statement files into categorized transactions and
// answers review queries over them. All persistence goes through
// store.Store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/thyme/pkg/classify"
	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/parser"
	"github.com/yurifrl/thyme/pkg/seed"
	"github.com/yurifrl/thyme/pkg/store"
)

var (
	ErrUnknownCategory     = errors.New("unknown category")
	ErrUnresolvableAccount = errors.New("unresolvable account")
	ErrUnsupportedFile     = errors.New("unsupported statement file")
	ErrUnreadableStatement = errors.New("statement could not be parsed")
)

type Engine struct {
	store  store.Store
	seed   *seed.Seed
	parser *parser.Parser
	logger *log.Logger
	now    func() time.Time
}

func New(st store.Store, sd *seed.Seed, logger *log.Logger) *Engine {
	return &Engine{
		store:  st,
		seed:   sd,
		parser: parser.New(logger),
		logger: logger,
		now:    time.Now,
	}
}

// Bootstrap inserts any seed category missing from the store. Existing
// categories, including their budgets, are left alone.
func (e *Engine) Bootstrap(ctx context.Context) error {
	ids := make(map[string]int64, len(e.seed.Categories))
	created := 0

	for _, sc := range e.seed.Categories {
		existing, err := e.store.FindCategory(ctx, sc.Name)
		if err == nil {
			ids[sc.Name] = existing.ID
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("looking up category %q: %w", sc.Name, err)
		}

		c := &models.Category{Name: sc.Name, MonthlyBudget: sc.MonthlyBudget()}
		if sc.Parent != "" {
			parentID := ids[sc.Parent]
			c.ParentID = &parentID
		}
		if err := e.store.InsertCategory(ctx, c); err != nil {
			return err
		}
		ids[sc.Name] = c.ID
		created++
	}

	e.logger.Debug("category vocabulary ready", "categories", len(ids), "created", created)
	return nil
}

// classifier binds the seed rules to the ids currently in the store.
func (e *Engine) classifier(ctx context.Context) (*classify.Classifier, error) {
	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c, err := classify.New(e.seed.Rules, categories, e.seed.Default)
	if err != nil {
		return nil, fmt.Errorf("building classifier (was the store bootstrapped?): %w", err)
	}
	return c, nil
}
