// Package accountinghttp exposes the ledger over a JSON API.
package accountinghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
	"github.com/Mugambi-md/Orion-sub000/internal/accounting/chart"
	"github.com/Mugambi-md/Orion-sub000/internal/accounting/reports"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/httpx"
	"github.com/Mugambi-md/Orion-sub000/internal/rbac"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

type ledgerService interface {
	CreateAccount(ctx context.Context, in accounting.CreateAccountInput) (accounting.Account, error)
	SeedChart(ctx context.Context, defs []accounting.CreateAccountInput) (int, error)
	FindByNameOrCode(ctx context.Context, value string) (accounting.Account, error)
	ListAccounts(ctx context.Context) ([]accounting.Account, error)
	RecordEntry(ctx context.Context, in accounting.EntryInput) (int64, error)
	RecordOpeningBalance(ctx context.Context, in accounting.OpeningBalanceInput) (int64, error)
	GetEntry(ctx context.Context, id int64) (accounting.JournalEntry, error)
	ListEntries(ctx context.Context, filter accounting.EntryFilter) ([]accounting.JournalEntry, error)
	ReverseEntry(ctx context.Context, id int64) (int64, error)
	DeleteEntry(ctx context.Context, id int64) error
	TrialBalance(ctx context.Context, filter accounting.ReportFilter) (reports.TrialBalance, error)
	IncomeStatement(ctx context.Context, filter accounting.ReportFilter) (reports.IncomeStatement, error)
	BalanceSheet(ctx context.Context, filter accounting.ReportFilter) (reports.BalanceSheet, error)
	CashFlow(ctx context.Context, filter accounting.ReportFilter) (reports.CashFlow, error)
	Report(ctx context.Context, name string, filter accounting.ReportFilter) (reports.Table, error)
	UnbalancedEntries(ctx context.Context) ([]accounting.EntryImbalance, error)
	ListFiscalYears(ctx context.Context) ([]accounting.FiscalYear, error)
	CloseYear(ctx context.Context, year int) (accounting.ClosingSummary, error)
	ReverseYear(ctx context.Context, year int) (accounting.ReopenSummary, error)
}

// Handler wires HTTP endpoints for the ledger.
type Handler struct {
	logger    *slog.Logger
	service   ledgerService
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a ledger HTTP handler.
func NewHandler(logger *slog.Logger, service ledgerService, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermLedgerReportsView))
			r.Get("/accounts", h.listAccounts)
			r.Get("/accounts/lookup", h.findAccount)
			r.Get("/entries", h.listEntries)
			r.Get("/entries/{id}", h.getEntry)
			r.Get("/reports/{name}", h.report)
			r.Get("/integrity", h.integrity)
			r.Get("/years", h.listYears)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(shared.PermLedgerAccountsManage))
			r.Post("/accounts", h.createAccount)
			r.Post("/accounts/seed", h.seedChart)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(shared.PermLedgerEntriesPost))
			r.Post("/entries", h.recordEntry)
			r.Post("/entries/opening-balance", h.recordOpeningBalance)
			r.Post("/entries/{id}/reverse", h.reverseEntry)
		})
		r.With(h.rbac.RequireAll(shared.PermLedgerEntriesDelete)).Delete("/entries/{id}", h.deleteEntry)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(shared.PermLedgerYearsClose))
			r.Post("/years/{year}/close", h.closeYear)
			r.Post("/years/{year}/reverse", h.reverseYear)
		})
	})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, r, "list accounts", err)
		return
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, toAccountView(a))
	}
	h.ok(w, http.StatusOK, fmt.Sprintf("%d accounts", len(views)), views)
}

func (h *Handler) findAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.FindByNameOrCode(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "find account", err)
		return
	}
	h.ok(w, http.StatusOK, "account found", toAccountView(account))
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	accountType, err := accounting.ParseAccountType(req.Type)
	if err != nil {
		h.fail(w, r, "create account", err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), accounting.CreateAccountInput{
		Name:        req.Name,
		Type:        accountType,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, "create account", err)
		return
	}
	h.ok(w, http.StatusCreated, fmt.Sprintf("Account %s created with code %s", account.Name, account.Code), toAccountView(account))
}

func (h *Handler) seedChart(w http.ResponseWriter, r *http.Request) {
	defs, err := chart.Default()
	if err != nil {
		h.fail(w, r, "seed chart", err)
		return
	}
	inputs, err := chart.Inputs(defs)
	if err != nil {
		h.fail(w, r, "seed chart", err)
		return
	}
	created, err := h.service.SeedChart(r.Context(), inputs)
	if err != nil {
		h.fail(w, r, "seed chart", err)
		return
	}
	h.ok(w, http.StatusOK, fmt.Sprintf("%d accounts created", created), map[string]int{"created": created})
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		h.fail(w, r, "list entries", err)
		return
	}
	filter := accounting.EntryFilter{From: from, To: to}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.fail(w, r, "list entries", &accounting.Error{Kind: accounting.KindValidation, Msg: "invalid limit"})
			return
		}
		filter.Limit = limit
	}
	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list entries", err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toEntryView(e))
	}
	h.ok(w, http.StatusOK, fmt.Sprintf("%d entries", len(views)), views)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get entry", err)
		return
	}
	h.ok(w, http.StatusOK, "entry found", toEntryView(entry))
}

func (h *Handler) recordEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, _ := time.Parse(dateLayout, req.Date)
	id, err := h.service.RecordEntry(r.Context(), accounting.EntryInput{
		Reference: req.Reference,
		Date:      date,
		Lines:     toLines(req.Lines),
	})
	if err != nil {
		h.fail(w, r, "record entry", err)
		return
	}
	h.ok(w, http.StatusCreated, fmt.Sprintf("Journal entry #%d recorded", id), map[string]int64{"id": id})
}

func (h *Handler) recordOpeningBalance(w http.ResponseWriter, r *http.Request) {
	var req openingBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	var date time.Time
	if req.Date != "" {
		date, _ = time.Parse(dateLayout, req.Date)
	}
	id, err := h.service.RecordOpeningBalance(r.Context(), accounting.OpeningBalanceInput{Date: date, Lines: toLines(req.Lines)})
	if err != nil {
		h.fail(w, r, "record opening balance", err)
		return
	}
	h.ok(w, http.StatusCreated, fmt.Sprintf("Opening balance recorded as entry #%d", id), map[string]int64{"id": id})
}

func (h *Handler) reverseEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	newID, err := h.service.ReverseEntry(r.Context(), id)
	if err != nil {
		h.fail(w, r, "reverse entry", err)
		return
	}
	h.ok(w, http.StatusCreated, fmt.Sprintf("Entry #%d reversed by entry #%d", id, newID), map[string]int64{"id": newID})
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		h.fail(w, r, "delete entry", err)
		return
	}
	h.ok(w, http.StatusOK, fmt.Sprintf("Entry #%d deleted", id), nil)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		h.fail(w, r, "report", err)
		return
	}
	filter := accounting.ReportFilter{From: from, To: to}
	name := strings.ReplaceAll(chi.URLParam(r, "name"), "-", "_")
	if r.URL.Query().Get("format") == "table" {
		table, err := h.service.Report(r.Context(), name, filter)
		if err != nil {
			h.fail(w, r, "report", err)
			return
		}
		h.ok(w, http.StatusOK, table.Title, table)
		return
	}
	var data any
	switch name {
	case accounting.ReportTrialBalance:
		data, err = h.service.TrialBalance(r.Context(), filter)
	case accounting.ReportIncomeStatement:
		data, err = h.service.IncomeStatement(r.Context(), filter)
	case accounting.ReportBalanceSheet:
		data, err = h.service.BalanceSheet(r.Context(), filter)
	case accounting.ReportCashFlow:
		data, err = h.service.CashFlow(r.Context(), filter)
	default:
		err = &accounting.Error{Kind: accounting.KindNotFound, Msg: fmt.Sprintf("unknown report %q", name)}
	}
	if err != nil {
		h.fail(w, r, "report", err)
		return
	}
	h.ok(w, http.StatusOK, name, data)
}

func (h *Handler) integrity(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.UnbalancedEntries(r.Context())
	if err != nil {
		h.fail(w, r, "integrity", err)
		return
	}
	views := make([]imbalanceView, 0, len(items))
	for _, item := range items {
		views = append(views, imbalanceView{
			EntryID:   item.EntryID,
			Reference: item.Reference,
			Date:      item.Date.Format(dateLayout),
			Debit:     item.Debit,
			Credit:    item.Credit,
		})
	}
	h.ok(w, http.StatusOK, fmt.Sprintf("%d unbalanced entries", len(views)), views)
}

func (h *Handler) listYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.ListFiscalYears(r.Context())
	if err != nil {
		h.fail(w, r, "list years", err)
		return
	}
	views := make([]fiscalYearView, 0, len(years))
	for _, fy := range years {
		views = append(views, fiscalYearView{Year: fy.Year, Status: string(fy.Status), ClosedAt: fy.ClosedAt, ClosedBy: fy.ClosedBy})
	}
	h.ok(w, http.StatusOK, fmt.Sprintf("%d fiscal years", len(views)), views)
}

func (h *Handler) closeYear(w http.ResponseWriter, r *http.Request) {
	year, ok := h.year(w, r)
	if !ok {
		return
	}
	summary, err := h.service.CloseYear(r.Context(), year)
	if err != nil {
		h.fail(w, r, "close year", err)
		return
	}
	h.ok(w, http.StatusOK, fmt.Sprintf("Fiscal year %d closed", year), map[string]any{
		"year":              summary.Year,
		"opening_entry_id":  summary.OpeningEntryID,
		"archived_lines":    summary.ArchivedLines,
		"carried_accounts":  summary.CarriedAccounts,
		"retained_earnings": summary.RetainedEarnings,
	})
}

func (h *Handler) reverseYear(w http.ResponseWriter, r *http.Request) {
	year, ok := h.year(w, r)
	if !ok {
		return
	}
	summary, err := h.service.ReverseYear(r.Context(), year)
	if err != nil {
		h.fail(w, r, "reverse year", err)
		return
	}
	h.ok(w, http.StatusOK, fmt.Sprintf("Fiscal year %d reopened", year), map[string]any{
		"year":            summary.Year,
		"entry_id":        summary.EntryID,
		"restored_lines":  summary.RestoredLines,
		"removed_lines":   summary.RemovedLines,
		"removed_entries": summary.RemovedEntries,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := httpx.DecodeJSON(r, dest); err != nil {
		h.fail(w, r, "decode", &accounting.Error{Kind: accounting.KindValidation, Msg: "malformed request body", Err: err})
		return false
	}
	if err := h.validator.Struct(dest); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			err = &accounting.Error{Kind: accounting.KindValidation, Msg: fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())}
		}
		h.fail(w, r, "validate", err)
		return false
	}
	return true
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, r, "entry id", &accounting.Error{Kind: accounting.KindValidation, Msg: "invalid entry id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) year(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.fail(w, r, "year", &accounting.Error{Kind: accounting.KindValidation, Msg: "invalid fiscal year"})
		return 0, false
	}
	return year, true
}

func (h *Handler) ok(w http.ResponseWriter, status int, message string, data any) {
	httpx.JSON(w, status, response{Success: true, Message: message, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	result := accounting.Outcome(err, "")
	status := statusForKind(result.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
		result.Message = "ledger operation failed"
	} else {
		h.logger.WarnContext(r.Context(), op, slog.Any("error", err))
	}
	httpx.JSON(w, status, response{Success: false, Message: result.Message, Kind: result.Kind})
}

func statusForKind(kind accounting.ErrorKind) int {
	switch kind {
	case accounting.KindValidation:
		return http.StatusBadRequest
	case accounting.KindNotFound:
		return http.StatusNotFound
	case accounting.KindDuplicate, accounting.KindConcurrency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseWindow(r *http.Request) (*time.Time, *time.Time, error) {
	parse := func(key string) (*time.Time, error) {
		raw := strings.TrimSpace(r.URL.Query().Get(key))
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, &accounting.Error{Kind: accounting.KindValidation, Msg: fmt.Sprintf("invalid %s date", key)}
		}
		return &t, nil
	}
	from, err := parse("from")
	if err != nil {
		return nil, nil, err
	}
	to, err := parse("to")
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
