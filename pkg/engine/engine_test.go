package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/seed"
	"github.com/yurifrl/thyme/pkg/store"
	"github.com/yurifrl/thyme/pkg/store/memory"
)

func newEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	sd, err := seed.Default()
	require.NoError(t, err)

	st := memory.New()
	e := New(st, sd, log.New(io.Discard))
	require.NoError(t, e.Bootstrap(context.Background()))
	return e, st
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func categoryOf(t *testing.T, st *memory.Store, txID int64) string {
	t.Helper()
	ctx := context.Background()
	tx, err := st.GetTransaction(ctx, txID)
	require.NoError(t, err)
	cats, err := st.ListCategories(ctx)
	require.NoError(t, err)
	for _, c := range cats {
		if c.ID == tx.CategoryID {
			return c.Name
		}
	}
	t.Fatalf("transaction %d has unknown category %d", txID, tx.CategoryID)
	return ""
}

func all(t *testing.T, e *Engine) []models.TransactionView {
	t.Helper()
	views, err := e.ListTransactions(context.Background(), ListOptions{Start: day("2000-01-01"), End: day("2100-01-01")})
	require.NoError(t, err)
	return views
}

const octoberCSV = `10/31/2013,"Starbucks Coffee Shop",-4.50
10/02/2013,"SAFEWAY #1",-20.00
10/20/2013,"TRADER JOE'S",-35.00
not a date,"BROKEN",-1.00
`

const pizzaQFX = `OFXHEADER:100
<OFX>
<SIGNONMSGSRSV1><SONRS><FI>
<ORG>Bank of Springfield
<FID>5959
</FI></SONRS></SIGNONMSGSRSV1>
<BANKTRANLIST>
<STMTTRN>
<DTPOSTED>20131207000000.000[-7:MST]
<TRNAMT>-12.34
<FITID>TXN998
<NAME>PIZZA HUT #442
</STMTTRN>
<STMTTRN>
<DTPOSTED>20131203
<TRNAMT>-2.50
<FITID>TXN997
<NAME>STARBUCKS #9
</STMTTRN>
</BANKTRANLIST>
</OFX>
`

func TestImportStatement(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	summary, err := e.ImportStatement(ctx, Source{Name: "stmt.csv", Data: []byte(octoberCSV), Profile: "bofa"})
	require.NoError(t, err)

	assert.Equal(t, "bofa", summary.Account)
	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, 3, summary.Inserted)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 1, summary.ParseFailures)
	assert.Equal(t, day("2013-10-02"), summary.Earliest)
	assert.Equal(t, day("2013-10-31"), summary.Latest)

	views := all(t, e)
	require.Len(t, views, 3)
	assert.Equal(t, "SAFEWAY #1", views[0].Description)
	assert.Equal(t, "groceries", views[0].CategoryName)
	assert.Equal(t, "bofa", views[0].AccountNickname)

	last := views[2]
	assert.Equal(t, day("2013-10-31"), last.Date)
	assert.Equal(t, "Starbucks Coffee Shop", last.Description)
	assert.True(t, last.Amount.Equal(dec("-4.50")))
	assert.Equal(t, "coffee", categoryOf(t, st, last.ID))
}

func TestImportStatementIsIdempotent(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	src := Source{Name: "stmt.csv", Data: []byte(octoberCSV), Profile: "bofa", Nickname: "checking"}

	first, err := e.ImportStatement(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := e.ImportStatement(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Duplicates)
	assert.True(t, second.Earliest.IsZero())

	assert.Len(t, all(t, e), 3)
}

func TestImportStatementErrors(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.ImportStatement(ctx, Source{Name: "stmt.csv", Data: []byte(octoberCSV), Profile: "wells"})
	assert.ErrorIs(t, err, seed.ErrUnknownProfile)

	summary, err := e.ImportStatement(ctx, Source{Name: "stmt.pdf", Data: []byte("%PDF"), Profile: "bofa"})
	assert.ErrorIs(t, err, ErrUnsupportedFile)
	assert.ErrorIs(t, summary.Err, ErrUnsupportedFile)

	assert.Empty(t, all(t, e))
}

func TestImportTagDocument(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	summary, err := e.ImportTagDocument(ctx, "dec.qfx", []byte(pizzaQFX))
	require.NoError(t, err)
	assert.Equal(t, "Bank of Springfield", summary.Account)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, day("2013-12-03"), summary.Earliest)
	assert.Equal(t, day("2013-12-07"), summary.Latest)

	tx, err := st.FindTransactionByExternalID(ctx, "TXN998")
	require.NoError(t, err)
	assert.Equal(t, day("2013-12-07"), tx.Date)
	assert.True(t, tx.Amount.Equal(dec("-12.34")))
	assert.Equal(t, "restaurants", categoryOf(t, st, tx.ID))

	again, err := e.ImportTagDocument(ctx, "dec.qfx", []byte(pizzaQFX))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Inserted)
	assert.Equal(t, 2, again.Duplicates)

	accounts, err := e.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, int64(5959), accounts[0].InstitutionExternalID)
}

func TestImportStatementRoutesTagDocuments(t *testing.T) {
	e, _ := newEngine(t)

	summary, err := e.ImportStatement(context.Background(), Source{Name: "DEC.QFX", Data: []byte(pizzaQFX)})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)
}

func TestImportTagDocumentUnresolvableAccount(t *testing.T) {
	e, _ := newEngine(t)

	doc := []byte("<OFX><ORG>Some Bank<FID>not-a-number<STMTTRN><DTPOSTED>20131207<TRNAMT>-1<FITID>X<NAME>Y</STMTTRN></OFX>")
	_, err := e.ImportTagDocument(context.Background(), "bad.qfx", doc)
	assert.ErrorIs(t, err, ErrUnresolvableAccount)
	assert.Empty(t, all(t, e))
}

func TestExistsByExternalIDIgnoresOtherFields(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.ImportTagDocument(ctx, "dec.qfx", []byte(pizzaQFX))
	require.NoError(t, err)

	exists, err := e.Exists(ctx, models.Draft{Date: day("2020-01-01"), Description: "other", Amount: dec("1"), ExternalID: "TXN998"})
	require.NoError(t, err)
	assert.True(t, exists)

	// same date, description and amount but a new external id
	exists, err = e.Exists(ctx, models.Draft{Date: day("2013-12-07"), Description: "PIZZA HUT #442", Amount: dec("-12.34"), ExternalID: "TXN999"})
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = e.Exists(ctx, models.Draft{Date: day("2013-12-07"), Description: "PIZZA HUT #442", Amount: dec("-12.340")})
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestResolveAccount(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	id, err := e.ResolveAccount(ctx, " Bank of Springfield ", "5959")
	require.NoError(t, err)
	again, err := e.ResolveAccount(ctx, "Bank of Springfield", "5959")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	other, err := e.ResolveAccount(ctx, "Bank of Springfield", "6000")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	_, err = e.ResolveAccount(ctx, "", "5959")
	assert.ErrorIs(t, err, ErrUnresolvableAccount)
	_, err = e.ResolveAccount(ctx, "Bank", "abc")
	assert.ErrorIs(t, err, ErrUnresolvableAccount)

	byNick, err := e.ResolveByNickname(ctx, "amex")
	require.NoError(t, err)
	byNickAgain, err := e.ResolveByNickname(ctx, "amex")
	require.NoError(t, err)
	assert.Equal(t, byNick, byNickAgain)

	require.NoError(t, e.RenameAccount(ctx, id, "checking"))
	renamed, err := e.ResolveByNickname(ctx, "checking")
	require.NoError(t, err)
	assert.Equal(t, id, renamed)

	accounts, err := e.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
}

func TestListTransactionsHalfOpenRange(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	csv := "10/01/2013,ON START,-1.00\n10/15/2013,MIDDLE,-2.00\n11/01/2013,ON END,-3.00\n"
	_, err := e.ImportStatement(ctx, Source{Name: "range.csv", Data: []byte(csv), Profile: "bofa"})
	require.NoError(t, err)

	views, err := e.ListTransactions(ctx, ListOptions{Start: day("2013-10-01"), End: day("2013-11-01")})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "ON START", views[0].Description)
	assert.Equal(t, "MIDDLE", views[1].Description)
}

func TestListTransactionsFilter(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.ImportStatement(ctx, Source{Name: "stmt.csv", Data: []byte(octoberCSV), Profile: "bofa"})
	require.NoError(t, err)

	opts := ListOptions{Start: day("2013-10-01"), End: day("2013-11-01")}

	opts.Filter = "Groceries"
	views, err := e.ListTransactions(ctx, opts)
	require.NoError(t, err)
	assert.Len(t, views, 2, "category name match")

	opts.Filter = "starbucks"
	views, err = e.ListTransactions(ctx, opts)
	require.NoError(t, err)
	require.Len(t, views, 1, "description match")
	assert.Equal(t, "Starbucks Coffee Shop", views[0].Description)

	opts.Filter = ""
	views, err = e.ListTransactions(ctx, opts)
	require.NoError(t, err)
	assert.Len(t, views, 3)
}

// recordingStore remembers the last transaction query it was asked.
type recordingStore struct {
	*memory.Store
	last store.TransactionQuery
}

func (r *recordingStore) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]models.TransactionView, error) {
	r.last = q
	return r.Store.ListTransactions(ctx, q)
}

func TestListTransactionsTrimsFilter(t *testing.T) {
	sd, err := seed.Default()
	require.NoError(t, err)
	st := &recordingStore{Store: memory.New()}
	e := New(st, sd, log.New(io.Discard))
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx))

	_, err = e.ImportStatement(ctx, Source{Name: "stmt.csv", Data: []byte(octoberCSV), Profile: "bofa"})
	require.NoError(t, err)

	views, err := e.ListTransactions(ctx, ListOptions{Start: day("2013-10-01"), End: day("2013-11-01"), Filter: "  starbucks\t"})
	require.NoError(t, err)
	assert.Equal(t, "starbucks", st.last.Filter)
	assert.Len(t, views, 1)
}

func TestListTransactionsOnlyNew(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	opts := ListOptions{Start: day("2013-01-01"), End: day("2014-01-01"), OnlyNew: true}

	views, err := e.ListTransactions(ctx, opts)
	require.NoError(t, err)
	assert.Empty(t, views)

	_, err = e.ImportStatement(ctx, Source{Name: "stmt.csv", Data: []byte(octoberCSV), Profile: "bofa"})
	require.NoError(t, err)
	views, err = e.ListTransactions(ctx, opts)
	require.NoError(t, err)
	assert.Len(t, views, 3)

	_, err = e.ImportTagDocument(ctx, "dec.qfx", []byte(pizzaQFX))
	require.NoError(t, err)
	views, err = e.ListTransactions(ctx, opts)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "STARBUCKS #9", views[0].Description)

	// a load that inserts nothing still moves the watermark
	_, err = e.ImportTagDocument(ctx, "dec.qfx", []byte(pizzaQFX))
	require.NoError(t, err)
	views, err = e.ListTransactions(ctx, opts)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestFailedImportKeepsWatermark(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	opts := ListOptions{Start: day("2013-01-01"), End: day("2014-01-01"), OnlyNew: true}

	_, err := e.ImportStatement(ctx, Source{Name: "stmt.csv", Data: []byte(octoberCSV), Profile: "bofa"})
	require.NoError(t, err)

	unresolvable := strings.Replace(pizzaQFX, "<FID>5959", "<FID>not-a-number", 1)
	_, err = e.ImportTagDocument(ctx, "dec.qfx", []byte(unresolvable))
	assert.ErrorIs(t, err, ErrUnresolvableAccount)

	_, err = e.ImportTagDocument(ctx, "empty.qfx", []byte("  \n"))
	assert.ErrorIs(t, err, ErrUnreadableStatement)

	_, err = e.ImportStatement(ctx, Source{Name: "stmt.csv", Data: []byte(octoberCSV), Profile: "nope"})
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dec.qfx"), []byte(unresolvable), 0o644))
	summaries, err := e.ScanDirectory(ctx, dir)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.ErrorIs(t, summaries[0].Err, ErrUnresolvableAccount)

	views, err := e.ListTransactions(ctx, opts)
	require.NoError(t, err)
	assert.Len(t, views, 3)
}

func TestAggregateByCategory(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	csv := "10/02/2013,SAFEWAY #1,-20.00\n10/20/2013,TRADER JOE'S,-35.00\n10/31/2013,STARBUCKS,-5.00\n11/01/2013,STARBUCKS,-6.00\n"
	_, err := e.ImportStatement(ctx, Source{Name: "oct.csv", Data: []byte(csv), Profile: "bofa"})
	require.NoError(t, err)

	totals, err := e.AggregateByCategory(ctx, day("2013-10-01"), day("2013-11-01"))
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "coffee", totals[0].Category)
	assert.True(t, totals[0].Total.Equal(dec("-5.00")))
	assert.Equal(t, "groceries", totals[1].Category)
	assert.True(t, totals[1].Total.Equal(dec("-55.00")))
}

func TestBudgetReport(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	csv := "10/02/2013,SAFEWAY #1,-20.00\n10/20/2013,TRADER JOE'S,-35.00\n10/31/2013,STARBUCKS,-5.00\n10/31/2013,TRINET DES:PAYROLL,4515.26\n"
	_, err := e.ImportStatement(ctx, Source{Name: "oct.csv", Data: []byte(csv), Profile: "bofa"})
	require.NoError(t, err)
	require.NoError(t, e.SetBudget(ctx, "Coffee", dec("4")))

	report, err := e.BudgetReport(ctx, day("2013-10-01"), day("2013-11-01"))
	require.NoError(t, err)
	require.Len(t, report.Lines, 3)

	coffee := report.Lines[0]
	assert.Equal(t, "coffee", coffee.Category)
	assert.True(t, coffee.Budget.Equal(dec("4")))
	assert.True(t, coffee.Headroom.Equal(dec("-1.00")))
	assert.False(t, coffee.Excluded)

	groceries := report.Lines[1]
	assert.True(t, groceries.Headroom.Equal(dec("345.00")))

	paycheck := report.Lines[2]
	assert.Equal(t, "paycheck", paycheck.Category)
	assert.True(t, paycheck.Excluded)

	assert.True(t, report.TotalActual.Equal(dec("-60.00")))

	categories, err := e.ListCategories(ctx)
	require.NoError(t, err)
	want := decimal.Zero
	for _, c := range categories {
		want = want.Add(c.MonthlyBudget)
	}
	assert.True(t, report.TotalBudget.Equal(want))
}

func TestCorrectCategory(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	_, err := e.ImportStatement(ctx, Source{Name: "a.csv", Data: []byte("11/01/2013,ACME SPECIALTY PIZZA,-30.00\n"), Profile: "bofa"})
	require.NoError(t, err)
	views := all(t, e)
	require.Len(t, views, 1)
	assert.Equal(t, "restaurants", views[0].CategoryName)

	require.NoError(t, e.CorrectCategory(ctx, views[0].ID, " Shopping "))
	assert.Equal(t, "shopping", categoryOf(t, st, views[0].ID))

	overrides, err := st.Overrides(ctx)
	require.NoError(t, err)
	assert.Contains(t, overrides, "acme specialty pizza")

	_, err = e.ImportStatement(ctx, Source{Name: "b.csv", Data: []byte("12/01/2013,  Acme Specialty Pizza ,-31.00\n"), Profile: "bofa"})
	require.NoError(t, err)
	views = all(t, e)
	require.Len(t, views, 2)
	assert.Equal(t, "shopping", views[1].CategoryName)

	// last write wins
	require.NoError(t, e.CorrectCategory(ctx, views[1].ID, "restaurants"))
	overrides, err = st.Overrides(ctx)
	require.NoError(t, err)
	restaurants, err := st.FindCategory(ctx, "restaurants")
	require.NoError(t, err)
	assert.Equal(t, restaurants.ID, overrides["acme specialty pizza"])
}

func TestCorrectCategoryUnknown(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	_, err := e.ImportStatement(ctx, Source{Name: "a.csv", Data: []byte("11/01/2013,STARBUCKS,-3.00\n"), Profile: "bofa"})
	require.NoError(t, err)
	views := all(t, e)
	require.Len(t, views, 1)

	err = e.CorrectCategory(ctx, views[0].ID, "yachts")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.Equal(t, "coffee", categoryOf(t, st, views[0].ID))

	overrides, err := st.Overrides(ctx)
	require.NoError(t, err)
	assert.Empty(t, overrides)

	assert.ErrorIs(t, e.CorrectCategory(ctx, 999, "coffee"), store.ErrNotFound)
	assert.ErrorIs(t, e.SetBudget(ctx, "yachts", dec("1")), ErrUnknownCategory)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.SetBudget(ctx, "groceries", dec("999")))
	require.NoError(t, e.Bootstrap(ctx))

	categories, err := e.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(e.seed.Categories))

	byName := map[string]models.Category{}
	for _, c := range categories {
		byName[c.Name] = c
	}
	assert.True(t, byName["groceries"].MonthlyBudget.Equal(dec("999")))
	require.NotNil(t, byName["groceries"].ParentID)
	assert.Equal(t, byName["food"].ID, *byName["groceries"].ParentID)
	assert.Contains(t, byName, "uncategorized")
}

func TestLoadTracker(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	mod := time.Date(2013, 12, 8, 10, 30, 0, 123456789, time.UTC)

	needs, err := e.NeedsLoad(ctx, "stmt.csv", mod)
	require.NoError(t, err)
	assert.False(t, needs, "only tagged documents are tracked")

	needs, err = e.NeedsLoad(ctx, "Checking.QFX", mod)
	require.NoError(t, err)
	assert.True(t, needs)

	require.NoError(t, e.MarkLoaded(ctx, "Checking.QFX", mod))

	needs, err = e.NeedsLoad(ctx, "Checking.QFX", mod.Truncate(time.Second))
	require.NoError(t, err)
	assert.False(t, needs)

	needs, err = e.NeedsLoad(ctx, "Checking.QFX", mod.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestScanDirectory(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	bad := "<OFX><ORG>Nameless<FID>n/a<STMTTRN><DTPOSTED>20131207<TRNAMT>-1<FITID>B1<NAME>X</STMTTRN></OFX>"
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("a.qfx", pizzaQFX)
	write("b.ofx", bad)
	write("notes.csv", octoberCSV)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.qfx"), 0o755))

	summaries, err := e.ScanDirectory(ctx, dir)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "a.qfx", summaries[0].File)
	assert.NoError(t, summaries[0].Err)
	assert.Equal(t, 2, summaries[0].Inserted)

	assert.Equal(t, "b.ofx", summaries[1].File)
	assert.ErrorIs(t, summaries[1].Err, ErrUnresolvableAccount)

	// a.qfx is marked loaded, b.ofx failed and is retried
	summaries, err = e.ScanDirectory(ctx, dir)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "b.ofx", summaries[0].File)

	// a touched file is reprocessed in full and deduplicated
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.qfx"), later, later))
	write("b.ofx", pizzaQFX)

	summaries, err = e.ScanDirectory(ctx, dir)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.NoError(t, s.Err)
		assert.Equal(t, 0, s.Inserted)
		assert.Equal(t, 2, s.Duplicates)
	}

	summaries, err = e.ScanDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.Len(t, all(t, e), 2)
}

func TestScanDirectoryMissing(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
