package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/store"
)

// ResolveAccount returns the id of the account for an institution name and
// numeric external id, creating it on first sight.
func (e *Engine) ResolveAccount(ctx context.Context, name, externalID string) (int64, error) {
	a, err := e.resolveAccount(ctx, name, externalID)
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (e *Engine) resolveAccount(ctx context.Context, name, externalID string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty institution name", ErrUnresolvableAccount)
	}
	fid, err := strconv.ParseInt(strings.TrimSpace(externalID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: institution id %q is not numeric", ErrUnresolvableAccount, externalID)
	}

	a, err := e.store.FindAccount(ctx, name, fid)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	a = &models.Account{
		Nickname:              name,
		InstitutionName:       name,
		InstitutionExternalID: fid,
		DisplayName:           name,
	}
	if err := e.store.InsertAccount(ctx, a); err != nil {
		return nil, err
	}
	e.logger.Info("created account", "id", a.ID, "institution", name, "fid", fid)
	return a, nil
}

// ResolveByNickname returns the account with the given nickname. An unknown
// nickname creates an account named after it with external id 0.
func (e *Engine) ResolveByNickname(ctx context.Context, nickname string) (int64, error) {
	a, err := e.resolveByNickname(ctx, nickname)
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (e *Engine) resolveByNickname(ctx context.Context, nickname string) (*models.Account, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("%w: empty nickname", ErrUnresolvableAccount)
	}

	a, err := e.store.FindAccountByNickname(ctx, nickname)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	return e.resolveAccount(ctx, nickname, "0")
}
