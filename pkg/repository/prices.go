package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/market"
)

// InsertOutcome is the effect of one idempotent insert.
type InsertOutcome int

const (
	OutcomeFailed InsertOutcome = iota
	OutcomeInserted
	OutcomeDuplicate
)

func (o InsertOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// PriceRepository defines the interface for stock price data access
type PriceRepository interface {
	Insert(ctx context.Context, row market.PriceRow) (InsertOutcome, error)
	Count(ctx context.Context) (int64, error)
	CountBySymbol(ctx context.Context, symbol string) (int64, error)
	Range(ctx context.Context, symbol string, start, end time.Time) ([]market.PriceRow, error)
}

const insertPriceQuery = `
	INSERT INTO stock_prices (time, symbol, open, high, low, close, volume)
	VALUES (:time, :symbol, :open, :high, :low, :close, :volume)
	ON CONFLICT (time, symbol) DO NOTHING`

// priceRepository implements the PriceRepository interface
type priceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sqlx.DB, logger *zap.Logger) PriceRepository {
	return &priceRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores row unless a row with the same (time, symbol) exists.
// Each call is its own statement; there is no surrounding transaction.
func (r *priceRepository) Insert(ctx context.Context, row market.PriceRow) (InsertOutcome, error) {
	row.Time = row.Time.UTC()

	result, err := r.db.NamedExecContext(ctx, insertPriceQuery, row)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to insert price row: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		// The statement ran; only the effect is unknown.
		r.logger.Debug("Rows affected unavailable", zap.Error(err))
		return OutcomeInserted, nil
	}
	if affected == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeInserted, nil
}

// Count returns the total number of stored rows.
func (r *priceRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM stock_prices`); err != nil {
		return 0, fmt.Errorf("failed to count stock prices: %w", err)
	}
	return n, nil
}

// CountBySymbol returns the number of stored rows for symbol.
func (r *priceRepository) CountBySymbol(ctx context.Context, symbol string) (int64, error) {
	var n int64
	query := r.db.Rebind(`SELECT COUNT(*) FROM stock_prices WHERE symbol = ?`)
	if err := r.db.GetContext(ctx, &n, query, symbol); err != nil {
		return 0, fmt.Errorf("failed to count stock prices for %s: %w", symbol, err)
	}
	return n, nil
}

// Range returns the rows for symbol with start <= time < end, oldest first.
func (r *priceRepository) Range(ctx context.Context, symbol string, start, end time.Time) ([]market.PriceRow, error) {
	query := r.db.Rebind(`
		SELECT time, symbol, open, high, low, close, volume
		FROM stock_prices
		WHERE symbol = ? AND time >= ? AND time < ?
		ORDER BY time ASC`)

	var rows []market.PriceRow
	if err := r.db.SelectContext(ctx, &rows, query, symbol, start.UTC(), end.UTC()); err != nil {
		r.logger.Error("Failed to query price range", zap.Error(err), zap.String("symbol", symbol))
		return nil, fmt.Errorf("failed to query stock prices for %s: %w", symbol, err)
	}
	return rows, nil
}
