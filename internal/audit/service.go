// Package audit reads the ledger audit trail written through shared.AuditLogger.
package audit

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultPageSize applies when a caller does not choose one.
	DefaultPageSize = 20
	// MaxPageSize caps a single timeline page.
	MaxPageSize = 50
	// MaxExportRows caps an unpaged export.
	MaxExportRows = 10000
)

// WindowParams is the query the repository runs. Zero values disable a filter;
// Limit 0 returns every matching row.
type WindowParams struct {
	From    time.Time
	Until   time.Time
	Actor   string
	Section string
	Action  string
	Offset  int
	Limit   int
}

// Repository loads audit rows newest first.
type Repository interface {
	Window(ctx context.Context, params WindowParams) ([]TimelineRow, error)
}

// Service pages through the audit trail.
type Service struct {
	repo Repository
}

// NewService creates an audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit rows.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	params := windowParams(filters)
	params.Offset = (page - 1) * pageSize
	params.Limit = pageSize + 1
	rows, err := s.repo.Window(ctx, params)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching row, up to MaxExportRows.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	params := windowParams(filters)
	params.Limit = MaxExportRows
	return s.repo.Window(ctx, params)
}

func windowParams(filters TimelineFilters) WindowParams {
	params := WindowParams{
		From:    filters.From,
		Actor:   filters.Actor,
		Section: filters.Section,
		Action:  filters.Action,
	}
	if !filters.To.IsZero() {
		params.Until = filters.To.AddDate(0, 0, 1)
	}
	return params
}
