package ingest

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
	"github.com/Ruscigno/QuantLab/pkg/feed"
	"github.com/Ruscigno/QuantLab/pkg/market"
)

// Retrieval is the outcome of one provider call: either quotes (possibly
// none) or the reason they could not be fetched.
type Retrieval struct {
	Quotes []market.RawQuote
	Err    error
}

// Failed reports whether the provider could not be asked.
func (r Retrieval) Failed() bool { return r.Err != nil }

// Retrieve asks provider for symbol's history over w. A provider error is
// logged and returned inside the Retrieval, never as a Go error.
func Retrieve(ctx context.Context, provider feed.QuoteProvider, symbol string, w market.Window, logger *zap.Logger) Retrieval {
	quotes, err := provider.History(ctx, symbol, w.Start, w.End)
	if err != nil {
		logger.Error("Failed to fetch quote history",
			zap.String("symbol", symbol),
			zap.String("provider", provider.Name()),
			zap.Error(err))
		return Retrieval{Err: apperrors.ErrRetrievalFailed.WithCause(err)}
	}

	if len(quotes) == 0 {
		logger.Info("No data found", zap.String("symbol", symbol))
	}
	return Retrieval{Quotes: quotes}
}
