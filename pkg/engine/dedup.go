package engine

import (
	"context"
	"errors"

	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/store"
)

// Exists reports whether draft is already stored: by external id when the
// draft has one, otherwise by exact (date, description, amount).
//
// The lookup and the following insert are separate store calls, so two
// concurrent imports of the same rows can both insert.
func (e *Engine) Exists(ctx context.Context, draft models.Draft) (bool, error) {
	var err error
	if draft.HasExternalID() {
		_, err = e.store.FindTransactionByExternalID(ctx, draft.ExternalID)
	} else {
		_, err = e.store.FindTransactionByKey(ctx, draft.Date, draft.Description, draft.Amount)
	}

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
