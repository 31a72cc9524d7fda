package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
	"github.com/Ruscigno/QuantLab/pkg/ingest"
	"github.com/Ruscigno/QuantLab/pkg/repository"
)

// IngestRequest defines the input for ingesting one symbol
type IngestRequest struct {
	Symbol string `json:"symbol"`
	Days   *int   `json:"days,omitempty"`
}

// IngestResponse defines the result of an ingestion run
type IngestResponse struct {
	RunID          string `json:"runId"`
	Symbol         string `json:"symbol"`
	Provider       string `json:"provider"`
	From           string `json:"from"`
	To             string `json:"to"`
	Count          int    `json:"count"`
	Retrieved      int    `json:"retrieved"`
	Inserted       int    `json:"inserted"`
	Duplicates     int    `json:"duplicates"`
	Skipped        int    `json:"skipped"`
	Failed         int    `json:"failed"`
	RetrievalError string `json:"retrievalError,omitempty"`
	DurationMs     int64  `json:"durationMs"`
}

// StatusRequest defines the input for a storage status query
type StatusRequest struct {
	Symbol string `json:"symbol,omitempty"`
}

// StatusResponse reports stored row counts
type StatusResponse struct {
	TotalRows  int64  `json:"totalRows"`
	Symbol     string `json:"symbol,omitempty"`
	SymbolRows *int64 `json:"symbolRows,omitempty"`
}

// Ingester is the pipeline the service drives.
type Ingester interface {
	IngestReport(ctx context.Context, symbol string, days int) ingest.Report
}

// Service defines the QuantLab service interface
type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error)
	Status(ctx context.Context, req StatusRequest) (*StatusResponse, error)
	CheckHealth(ctx context.Context) (*HealthResponse, error)
}

type service struct {
	ingester    Ingester
	prices      repository.PriceRepository
	health      HealthService
	defaultDays int
	logger      *zap.Logger
}

// NewService creates the service over an ingester and the price repository.
func NewService(ingester Ingester, prices repository.PriceRepository, health HealthService, defaultDays int, logger *zap.Logger) Service {
	return &service{
		ingester:    ingester,
		prices:      prices,
		health:      health,
		defaultDays: defaultDays,
		logger:      logger,
	}
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Ingest runs the pipeline for one symbol. Partial failures are reported in
// the response body, not as errors.
func (s *service) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	symbol := NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, apperrors.NewAppError(apperrors.ErrCodeValidation, "symbol is required")
	}
	days := s.defaultDays
	if req.Days != nil {
		days = *req.Days
	}
	if days < 0 {
		return nil, apperrors.NewAppError(apperrors.ErrCodeValidation, "days must not be negative")
	}

	report := s.ingester.IngestReport(ctx, symbol, days)
	if report.Err != nil {
		return nil, apperrors.WrapError(report.Err, apperrors.ErrCodeTimeout, "ingestion interrupted")
	}

	resp := &IngestResponse{
		RunID:      report.RunID.String(),
		Symbol:     report.Symbol,
		Provider:   report.Provider,
		From:       report.Window.Start.Format(time.RFC3339),
		To:         report.Window.End.Format(time.RFC3339),
		Count:      report.Count(),
		Retrieved:  report.Retrieved,
		Inserted:   report.Inserted,
		Duplicates: report.Duplicates,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
		DurationMs: report.Duration.Milliseconds(),
	}
	if report.RetrievalErr != nil {
		resp.RetrievalError = report.RetrievalErr.Error()
	}
	return resp, nil
}

// Status reports how many rows are stored, optionally for one symbol.
func (s *service) Status(ctx context.Context, req StatusRequest) (*StatusResponse, error) {
	total, err := s.prices.Count(ctx)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "failed to count stock prices")
	}
	resp := &StatusResponse{TotalRows: total}

	if symbol := NormalizeSymbol(req.Symbol); symbol != "" {
		n, err := s.prices.CountBySymbol(ctx, symbol)
		if err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "failed to count stock prices")
		}
		resp.Symbol = symbol
		resp.SymbolRows = &n
	}
	return resp, nil
}

// CheckHealth reports database and provider health.
func (s *service) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	resp := s.health.CheckHealth(ctx)
	return &resp, nil
}
