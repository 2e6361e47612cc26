package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yurifrl/thyme/pkg/classify"
	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/parser"
)

// Source is a statement file handed to ImportStatement. Profile names the
// column profile for delimited and spreadsheet files; Nickname picks the
// account and defaults to the profile name.
type Source struct {
	Name     string
	Data     []byte
	Profile  string
	Nickname string
}

// Summary reports what one file import did. Earliest and Latest span the
// rows actually inserted and are zero when nothing was.
type Summary struct {
	File          string
	Account       string
	Rows          int
	Inserted      int
	Duplicates    int
	ParseFailures int
	Earliest      time.Time
	Latest        time.Time
	Err           error
}

func (s *Summary) record(date time.Time) {
	s.Inserted++
	if s.Earliest.IsZero() || date.Before(s.Earliest) {
		s.Earliest = date
	}
	if date.After(s.Latest) {
		s.Latest = date
	}
}

// run is the state shared by every file of one load operation.
type run struct {
	load       models.Load
	classifier *classify.Classifier
	overrides  map[string]int64
}

// startLoad records a new load; rows inserted under it are "new" until the
// next load starts.
func (e *Engine) startLoad(ctx context.Context) (*run, error) {
	c, err := e.classifier(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := e.store.Overrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading overrides: %w", err)
	}

	load := models.Load{ID: uuid.NewString(), StartedAt: e.now().UTC()}
	if err := e.store.InsertLoad(ctx, load); err != nil {
		return nil, err
	}
	e.logger.Debug("started load", "id", load.ID, "overrides", len(overrides))
	return &run{load: load, classifier: c, overrides: overrides}, nil
}

// ImportStatement imports a delimited or spreadsheet statement with a named
// column profile. Tagged documents are routed to ImportTagDocument.
func (e *Engine) ImportStatement(ctx context.Context, src Source) (*Summary, error) {
	fileType := parser.DetectType(src.Name)
	if fileType == parser.TagDocument {
		return e.ImportTagDocument(ctx, src.Name, src.Data)
	}

	summary := &Summary{File: src.Name}
	fail := func(err error) (*Summary, error) {
		summary.Err = err
		return summary, err
	}

	profile, err := e.seed.Profile(src.Profile)
	if err != nil {
		return fail(err)
	}

	var batch *parser.Batch
	switch fileType {
	case parser.Delimited:
		batch, err = e.parser.ParseDelimited(src.Data, profile)
	case parser.Spreadsheet:
		batch, err = e.parser.ParseXLS(src.Data, profile)
	default:
		return fail(fmt.Errorf("%w: %s", ErrUnsupportedFile, src.Name))
	}
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrUnreadableStatement, err))
	}
	summary.Rows = len(batch.Drafts) + len(batch.Failures)
	summary.ParseFailures = len(batch.Failures)

	nickname := src.Nickname
	if nickname == "" {
		nickname = profile.Name
	}
	account, err := e.resolveByNickname(ctx, nickname)
	if err != nil {
		return fail(err)
	}
	summary.Account = account.Nickname

	r, err := e.startLoad(ctx)
	if err != nil {
		return fail(err)
	}
	if err := e.ingest(ctx, r, account.ID, batch.Drafts, summary); err != nil {
		return fail(err)
	}

	e.logSummary(summary)
	return summary, nil
}

// ImportTagDocument imports a tagged statement, resolving the account from
// the document's institution name and id. A document that cannot be parsed
// or resolved does not start a load.
func (e *Engine) ImportTagDocument(ctx context.Context, name string, data []byte) (*Summary, error) {
	doc := e.readTagDocument(ctx, name, data)
	if doc.summary.Err != nil {
		return doc.summary, doc.summary.Err
	}

	r, err := e.startLoad(ctx)
	if err != nil {
		doc.summary.Err = err
		return doc.summary, err
	}
	e.storeTagDocument(ctx, r, doc)
	return doc.summary, doc.summary.Err
}

// tagDocument is a parsed tagged statement whose account is resolved.
type tagDocument struct {
	summary *Summary
	account *models.Account
	drafts  []models.Draft
}

func (e *Engine) readTagDocument(ctx context.Context, name string, data []byte) *tagDocument {
	doc := &tagDocument{summary: &Summary{File: name}}

	st, err := e.parser.ParseTagDocument(data)
	if err != nil {
		doc.summary.Err = fmt.Errorf("%w: %w", ErrUnreadableStatement, err)
		return doc
	}
	doc.summary.Rows = len(st.Drafts) + len(st.Failures)
	doc.summary.ParseFailures = len(st.Failures)

	account, err := e.resolveAccount(ctx, st.OrgName, st.FID)
	if err != nil {
		doc.summary.Err = err
		return doc
	}
	doc.summary.Account = account.Nickname
	doc.account = account
	doc.drafts = st.Drafts
	return doc
}

func (e *Engine) storeTagDocument(ctx context.Context, r *run, doc *tagDocument) {
	if err := e.ingest(ctx, r, doc.account.ID, doc.drafts, doc.summary); err != nil {
		doc.summary.Err = err
		return
	}
	e.logSummary(doc.summary)
}

// ingest runs each draft, in source order, through the duplicate check and
// the classifier and stores it.
func (e *Engine) ingest(ctx context.Context, r *run, accountID int64, drafts []models.Draft, summary *Summary) error {
	for _, d := range drafts {
		exists, err := e.Exists(ctx, d)
		if err != nil {
			return fmt.Errorf("checking for duplicate: %w", err)
		}
		if exists {
			summary.Duplicates++
			continue
		}

		tx := &models.Transaction{
			AccountID:   accountID,
			CategoryID:  r.classifier.Classify(d.Description, r.overrides),
			Date:        d.Date,
			ExternalID:  d.ExternalID,
			Description: d.Description,
			Amount:      d.Amount,
			LoadID:      r.load.ID,
		}
		if err := e.store.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		summary.record(d.Date)
	}
	return nil
}

func (e *Engine) logSummary(s *Summary) {
	e.logger.Info("imported statement",
		"file", s.File,
		"account", s.Account,
		"rows", s.Rows,
		"inserted", s.Inserted,
		"duplicates", s.Duplicates,
		"parse_failures", s.ParseFailures,
	)
}
