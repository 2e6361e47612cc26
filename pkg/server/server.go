package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/thyme/pkg/csv"
	"github.com/yurifrl/thyme/pkg/engine"
	"github.com/yurifrl/thyme/pkg/models"
	"github.com/yurifrl/thyme/pkg/period"
	"github.com/yurifrl/thyme/pkg/seed"
	"github.com/yurifrl/thyme/pkg/store"
)

const maxUploadSize = 10 << 20

// Server exposes import and review operations as a small JSON API.
type Server struct {
	engine *engine.Engine
	logger *log.Logger
	mux    *http.ServeMux
	now    func() time.Time
}

// New creates a new HTTP server
func New(e *engine.Engine, logger *log.Logger) *Server {
	s := &Server{
		engine: e,
		logger: logger,
		mux:    http.NewServeMux(),
		now:    time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/import", s.withLogging(s.handleImport))
	s.mux.HandleFunc("/api/transactions", s.withLogging(s.handleTransactions))
	s.mux.HandleFunc("/api/transactions/", s.withLogging(s.handleCorrect))
	s.mux.HandleFunc("/api/categories", s.withLogging(s.handleCategories))
	s.mux.HandleFunc("/api/bycat", s.withLogging(s.handleByCategory))
}

// Transaction is the JSON form of a listed transaction.
type Transaction struct {
	ID          int64           `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Account     string          `json:"account"`
	Amount      decimal.Decimal `json:"amount"`
}

type Summary struct {
	File          string `json:"file"`
	Account       string `json:"account"`
	Rows          int    `json:"rows"`
	Inserted      int    `json:"inserted"`
	Duplicates    int    `json:"duplicates"`
	ParseFailures int    `json:"parse_failures"`
	Earliest      string `json:"earliest,omitempty"`
	Latest        string `json:"latest,omitempty"`
}

type BudgetLine struct {
	Category string          `json:"category"`
	Actual   decimal.Decimal `json:"actual"`
	Budget   decimal.Decimal `json:"budget"`
	Headroom decimal.Decimal `json:"headroom"`
	Excluded bool            `json:"excluded"`
}

// handleImport stores an uploaded statement ("statement" form file) with
// the optional "profile" and "account" form values.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("statement")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to read file", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to read file", err)
		return
	}

	summary, err := s.engine.ImportStatement(r.Context(), engine.Source{
		Name:     header.Filename,
		Data:     data,
		Profile:  r.FormValue("profile"),
		Nickname: r.FormValue("account"),
	})
	if err != nil {
		s.respondError(w, r, importStatus(err), "import failed", err)
		return
	}

	s.logger.Info("statement uploaded", "file", header.Filename, "inserted", summary.Inserted)
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"summary": toSummary(summary),
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func importStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnsupportedFile), errors.Is(err, engine.ErrUnresolvableAccount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrUnreadableStatement), errors.Is(err, seed.ErrUnknownProfile):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// handleTransactions lists a month (?month=10, default current) with an
// optional ?filter= and ?new=true. ?format=csv downloads the listing.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	start, end, ok := s.monthRange(w, r)
	if !ok {
		return
	}
	onlyNew, _ := strconv.ParseBool(r.URL.Query().Get("new"))

	views, err := s.engine.ListTransactions(r.Context(), engine.ListOptions{
		Start:   start,
		End:     end,
		Filter:  r.URL.Query().Get("filter"),
		OnlyNew: onlyNew,
	})
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to list transactions", err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		data, err := csv.Create(views)
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, "failed to render csv", err)
			return
		}
		filename := fmt.Sprintf("thyme-%s.csv", start.Format("2006-01"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
		if _, err := w.Write(data); err != nil {
			s.logger.Warn("failed to write csv response", "err", err)
		}
		return
	}

	txs := make([]Transaction, len(views))
	total := decimal.Zero
	for i, v := range views {
		txs[i] = toTransaction(v)
		total = total.Add(v.Amount)
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"transactions": txs,
		"total":        total,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// handleCorrect serves POST /api/transactions/{id}/category with a
// {"category": "..."} body.
func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	idPart, ok := strings.CutSuffix(rest, "/category")
	if !ok {
		s.respondError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid transaction id", err)
		return
	}

	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid body", err)
		return
	}

	err = s.engine.CorrectCategory(r.Context(), id, body.Category)
	switch {
	case errors.Is(err, engine.ErrUnknownCategory):
		s.respondError(w, r, http.StatusUnprocessableEntity, "unknown category", err)
		return
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, "transaction not found", err)
		return
	case err != nil:
		s.respondError(w, r, http.StatusInternalServerError, "failed to update category", err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, map[string]any{"status": "success"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	categories, err := s.engine.ListCategories(r.Context())
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to list categories", err)
		return
	}

	type category struct {
		ID     int64           `json:"id"`
		Name   string          `json:"name"`
		Budget decimal.Decimal `json:"budget"`
	}
	out := make([]category, len(categories))
	for i, c := range categories {
		out[i] = category{ID: c.ID, Name: c.Name, Budget: c.MonthlyBudget}
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"categories": out,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	start, end, ok := s.monthRange(w, r)
	if !ok {
		return
	}
	report, err := s.engine.BudgetReport(r.Context(), start, end)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to build report", err)
		return
	}

	lines := make([]BudgetLine, len(report.Lines))
	for i, l := range report.Lines {
		lines[i] = BudgetLine{Category: l.Category, Actual: l.Actual, Budget: l.Budget, Headroom: l.Headroom, Excluded: l.Excluded}
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"lines":        lines,
		"total_actual": report.TotalActual,
		"total_budget": report.TotalBudget,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// --- helpers ---

func (s *Server) monthRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	month, ok := period.ParseMonth(r.URL.Query().Get("month"))
	if !ok {
		s.respondError(w, r, http.StatusBadRequest, "invalid month", nil)
		return time.Time{}, time.Time{}, false
	}
	start, end, err := period.MonthRange(s.now(), month)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid month", err)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func toTransaction(v models.TransactionView) Transaction {
	return Transaction{
		ID:          v.ID,
		Date:        v.Date.Format(time.DateOnly),
		Description: v.Description,
		Category:    v.CategoryName,
		Account:     v.AccountNickname,
		Amount:      v.Amount,
	}
}

func toSummary(s *engine.Summary) Summary {
	out := Summary{
		File:          s.File,
		Account:       s.Account,
		Rows:          s.Rows,
		Inserted:      s.Inserted,
		Duplicates:    s.Duplicates,
		ParseFailures: s.ParseFailures,
	}
	if s.Inserted > 0 {
		out.Earliest = s.Earliest.Format(time.DateOnly)
		out.Latest = s.Latest.Format(time.DateOnly)
	}
	return out
}

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log requests and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
