package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ScanDirectory imports every tagged document in dir (not recursing) that
// has not been loaded at its current modification time. Files are handled
// in name order; a failing file is reported in its summary and the scan
// moves on. A file is marked loaded only after all its rows were attempted.
func (e *Engine) ScanDirectory(ctx context.Context, dir string) ([]*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}

	var (
		summaries []*Summary
		r         *run
	)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			summaries = append(summaries, e.failed(entry.Name(), err))
			continue
		}

		needs, err := e.NeedsLoad(ctx, entry.Name(), info.ModTime())
		if err != nil {
			summaries = append(summaries, e.failed(entry.Name(), err))
			continue
		}
		if !needs {
			e.logger.Debug("skipping file", "file", entry.Name())
			continue
		}

		summary, err := e.scanFile(ctx, &r, dir, entry.Name())
		if err != nil {
			return summaries, err
		}
		if summary.Err == nil {
			if err := e.MarkLoaded(ctx, entry.Name(), info.ModTime()); err != nil {
				summary.Err = fmt.Errorf("marking file loaded: %w", err)
			}
		}
		if summary.Err != nil {
			e.logger.Error("failed to load file", "file", entry.Name(), "error", summary.Err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// scanFile imports one file under the scan's load. The load starts with the
// first file that parses and resolves, so a scan that imports nothing keeps
// the previous watermark. Only a failure to start the load is returned.
func (e *Engine) scanFile(ctx context.Context, r **run, dir, name string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return &Summary{File: name, Err: fmt.Errorf("error reading file: %w", err)}, nil
	}

	doc := e.readTagDocument(ctx, name, data)
	if doc.summary.Err != nil {
		return doc.summary, nil
	}
	if *r == nil {
		if *r, err = e.startLoad(ctx); err != nil {
			return doc.summary, err
		}
	}
	e.storeTagDocument(ctx, *r, doc)
	return doc.summary, nil
}

func (e *Engine) failed(name string, err error) *Summary {
	e.logger.Error("failed to process entry", "file", name, "error", err)
	return &Summary{File: name, Err: err}
}
