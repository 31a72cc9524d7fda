package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/feed"
	"github.com/Ruscigno/QuantLab/pkg/market"
	"github.com/Ruscigno/QuantLab/pkg/metrics"
	"github.com/Ruscigno/QuantLab/pkg/repository"
)

// RowStore persists one row idempotently.
type RowStore interface {
	Insert(ctx context.Context, row market.PriceRow) (repository.InsertOutcome, error)
}

// Report describes what one ingestion run did.
type Report struct {
	RunID      uuid.UUID
	Symbol     string
	Provider   string
	Window     market.Window
	Retrieved  int
	Inserted   int
	Duplicates int
	Skipped    int
	Failed     int
	Duration   time.Duration

	// RetrievalErr is set when the provider could not be asked. Such a run
	// reports zero rows.
	RetrievalErr error
	// Err is set when ctx ended before every row was attempted.
	Err error
}

// Count is the number of rows whose insert ran without error, including
// rows ignored as duplicates.
func (r Report) Count() int {
	return r.Inserted + r.Duplicates
}

// Ingester fetches, transforms and stores daily bars for one symbol at a time.
// It is safe for concurrent use when its provider and store are.
type Ingester struct {
	provider feed.QuoteProvider
	store    RowStore
	logger   *zap.Logger
	metrics  *metrics.ApplicationMetrics
	now      market.Clock
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Ingester) { i.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.ApplicationMetrics) Option {
	return func(i *Ingester) { i.metrics = m }
}

// WithClock overrides the clock used to end the lookback window.
func WithClock(now market.Clock) Option {
	return func(i *Ingester) { i.now = now }
}

// NewIngester creates an Ingester over an existing provider.
func NewIngester(provider feed.QuoteProvider, store RowStore, opts ...Option) *Ingester {
	i := &Ingester{
		provider: provider,
		store:    store,
		logger:   zap.NewNop(),
		metrics:  metrics.NewApplicationMetrics(nil),
		now:      market.SystemClock,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// New builds the provider described by feedOpts and an Ingester over it.
// It fails with ErrRetrievalUnavailable when the provider cannot be built.
func New(feedOpts feed.Options, store RowStore, opts ...Option) (*Ingester, error) {
	provider, err := feed.New(feedOpts)
	if err != nil {
		return nil, err
	}
	return NewIngester(provider, store, opts...), nil
}

// Ingest stores the last days of history for symbol and returns the number of
// rows written without error. Retrieval failures, bad records and failed
// inserts are logged and reduce the count; they are not returned. The only
// error is ctx ending mid-run, together with the count so far.
func (i *Ingester) Ingest(ctx context.Context, symbol string, days int) (int, error) {
	report := i.IngestReport(ctx, symbol, days)
	return report.Count(), report.Err
}

// IngestReport is Ingest with a per-outcome breakdown.
func (i *Ingester) IngestReport(ctx context.Context, symbol string, days int) Report {
	start := time.Now()
	window := market.LookbackWindow(i.now(), days)
	report := Report{
		RunID:    uuid.New(),
		Symbol:   symbol,
		Provider: i.provider.Name(),
		Window:   window,
	}
	logger := i.logger.With(zap.String("symbol", symbol), zap.String("run_id", report.RunID.String()))

	logger.Info("Fetching data",
		zap.String("from", window.Start.Format(time.DateOnly)),
		zap.String("to", window.End.Format(time.DateOnly)))

	retrieval := Retrieve(ctx, i.provider, symbol, window, logger)
	if retrieval.Failed() {
		report.RetrievalErr = retrieval.Err
		i.metrics.RecordRetrievalFailure(symbol, report.Provider)
		return i.finish(logger, report, start)
	}

	report.Retrieved = len(retrieval.Quotes)
	i.metrics.RecordQuotesRetrieved(symbol, report.Retrieved)

	for _, quote := range retrieval.Quotes {
		if err := ctx.Err(); err != nil {
			report.Err = err
			logger.Warn("Ingestion interrupted", zap.Error(err), zap.Int("remaining", report.Retrieved-report.attempted()))
			break
		}

		row, err := Transform(symbol, quote)
		if err != nil {
			report.Skipped++
			i.metrics.RecordRecordSkipped(symbol, "invalid_timestamp")
			logger.Warn("Skipping invalid timestamp", zap.Int64("timestamp", quote.Timestamp), zap.Error(err))
			continue
		}

		outcome, err := i.store.Insert(ctx, row)
		if err != nil {
			outcome = repository.OutcomeFailed
		}
		i.metrics.RecordRowOutcome(symbol, outcome.String())

		switch outcome {
		case repository.OutcomeInserted:
			report.Inserted++
		case repository.OutcomeDuplicate:
			report.Duplicates++
		default:
			report.Failed++
			logger.Error("Failed to insert row", zap.Time("time", row.Time), zap.Error(err))
		}
	}

	return i.finish(logger, report, start)
}

func (r Report) attempted() int {
	return r.Inserted + r.Duplicates + r.Skipped + r.Failed
}

func (i *Ingester) finish(logger *zap.Logger, report Report, start time.Time) Report {
	report.Duration = time.Since(start)
	i.metrics.RecordIngestDuration(report.Symbol, report.Duration)

	fields := []zap.Field{
		zap.Int("count", report.Count()),
		zap.Int("retrieved", report.Retrieved),
		zap.Int("inserted", report.Inserted),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	}
	switch {
	case report.RetrievalErr != nil:
		logger.Warn("Ingestion finished without data", append(fields, zap.Error(report.RetrievalErr))...)
	case report.Err != nil && !errors.Is(report.Err, context.Canceled):
		logger.Warn("Ingestion finished early", append(fields, zap.Error(report.Err))...)
	default:
		logger.Info("Ingestion finished", fields...)
	}
	return report
}
