package engine

import (
	"context"
	"time"

	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/parser"
)

// NeedsLoad is true for a tagged document whose (name, modification time)
// has not been marked loaded yet.
func (e *Engine) NeedsLoad(ctx context.Context, fileName string, modTime time.Time) (bool, error) {
	if !parser.IsTagDocument(fileName) {
		return false, nil
	}
	loaded, err := e.store.HasLoadedFile(ctx, marker(fileName, modTime))
	if err != nil {
		return false, err
	}
	return !loaded, nil
}

// MarkLoaded records that every transaction of the file was attempted.
func (e *Engine) MarkLoaded(ctx context.Context, fileName string, modTime time.Time) error {
	return e.store.InsertLoadedFile(ctx, marker(fileName, modTime))
}

// Modification times are compared at whole-second precision.
func marker(fileName string, modTime time.Time) models.LoadedFile {
	return models.LoadedFile{
		FileName: fileName,
		ModTime:  modTime.UTC().Truncate(time.Second),
	}
}
