package feed

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/market"
)

// yahooProvider reads daily history through the finance-go chart client.
type yahooProvider struct {
	logger *zap.Logger
}

// NewYahooProvider returns a QuoteProvider backed by finance-go.
func NewYahooProvider(logger *zap.Logger) QuoteProvider {
	return &yahooProvider{logger: logger}
}

func (p *yahooProvider) Name() string { return ProviderYahoo }

func (p *yahooProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]market.RawQuote, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	params.Context = &ctx

	p.logger.Debug("Requesting chart history",
		zap.String("symbol", symbol),
		zap.Time("start", start),
		zap.Time("end", end))

	iter := chart.Get(params)
	quotes := make([]market.RawQuote, 0)
	for iter.Next() {
		quotes = append(quotes, quoteFromBar(iter.Bar()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get quote history for %s: %w", symbol, err)
	}
	return quotes, nil
}

func quoteFromBar(bar *finance.ChartBar) market.RawQuote {
	volume := bar.Volume
	if volume < 0 {
		volume = 0
	}
	return market.RawQuote{
		Timestamp: int64(bar.Timestamp),
		Open:      bar.Open.InexactFloat64(),
		High:      bar.High.InexactFloat64(),
		Low:       bar.Low.InexactFloat64(),
		Close:     bar.Close.InexactFloat64(),
		Volume:    uint64(volume),
	}
}
