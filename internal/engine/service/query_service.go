package service

import (
	"context"

	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
)

// ListResult is one page of a list query
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func newListResult[T any](items []T, total int, page shared.Pagination) *ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResult[T]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}
}

type QueryServiceImpl struct {
	recordRepo     reconciliation.Repository
	correctionRepo correction.Repository
	healthRepo     health.Repository
}

func NewQueryService(recordRepo reconciliation.Repository, correctionRepo correction.Repository, healthRepo health.Repository) QueryService {
	return &QueryServiceImpl{
		recordRepo:     recordRepo,
		correctionRepo: correctionRepo,
		healthRepo:     healthRepo,
	}
}

func (s *QueryServiceImpl) ListDiscrepancies(ctx context.Context, filter reconciliation.AlertFilter, page shared.Pagination) (*ListResult[*reconciliation.DiscrepancyAlert], error) {
	page = page.Normalize()
	items, total, err := s.recordRepo.ListAlerts(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return newListResult(items, total, page), nil
}

func (s *QueryServiceImpl) ListCorrections(ctx context.Context, filter correction.Filter, page shared.Pagination) (*ListResult[*correction.BalanceCorrection], error) {
	page = page.Normalize()
	items, total, err := s.correctionRepo.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return newListResult(items, total, page), nil
}

func (s *QueryServiceImpl) ListHealthChecks(ctx context.Context, filter health.Filter, page shared.Pagination) (*ListResult[*health.Check], error) {
	page = page.Normalize()
	items, total, err := s.healthRepo.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return newListResult(items, total, page), nil
}

func (s *QueryServiceImpl) ListReconciliations(ctx context.Context, filter reconciliation.RecordFilter, page shared.Pagination) (*ListResult[*reconciliation.Record], error) {
	page = page.Normalize()
	items, total, err := s.recordRepo.ListRecords(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return newListResult(items, total, page), nil
}

func (s *QueryServiceImpl) GetReconciliation(ctx context.Context, id uuid.UUID) (*reconciliation.Record, error) {
	return s.recordRepo.GetRecord(ctx, id)
}
