package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/market"
)

// localProvider serves daily bars from TIME_SERIES_DAILY JSON files named
// <SYMBOL>.json in a directory.
type localProvider struct {
	dir    string
	logger *zap.Logger
}

// NewLocalProvider returns a QuoteProvider reading files under dir.
func NewLocalProvider(dir string, logger *zap.Logger) QuoteProvider {
	return &localProvider{dir: dir, logger: logger}
}

func (p *localProvider) Name() string { return ProviderLocal }

func (p *localProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]market.RawQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}

	fileName := filepath.Join(p.dir, symbol+".json")
	body, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	p.logger.Debug("Read local daily series", zap.String("file", fileName), zap.Int("bytes", len(body)))
	return parseDailySeries(body, start, end, p.logger)
}
