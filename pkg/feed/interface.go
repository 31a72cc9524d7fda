package feed

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
	"github.com/Ruscigno/QuantLab/pkg/market"
)

const (
	ProviderYahoo        = "yahoo"
	ProviderYahooChart   = "yahoo-chart"
	ProviderAlphaVantage = "alphavantage"
	ProviderLocal        = "local"
)

// QuoteProvider returns daily bars for one symbol between start and end.
type QuoteProvider interface {
	Name() string
	History(ctx context.Context, symbol string, start, end time.Time) ([]market.RawQuote, error)
}

// Options select and tune a provider.
type Options struct {
	Provider string
	// BaseURL overrides the provider's public endpoint.
	BaseURL string
	Timeout time.Duration
	// APIKey is required by alphavantage.
	APIKey string
	// DataDir holds <SYMBOL>.json files for the local provider.
	DataDir string
	Logger  *zap.Logger
}

// New builds the provider named in opts. A provider that cannot be built is
// reported as ErrRetrievalUnavailable.
func New(opts Options) (QuoteProvider, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	switch opts.Provider {
	case ProviderYahoo, "":
		return NewYahooProvider(opts.Logger), nil
	case ProviderYahooChart:
		baseURL, err := resolveBaseURL(opts.BaseURL, DefaultChartURL)
		if err != nil {
			return nil, err
		}
		return NewChartProvider(baseURL, opts.Timeout, opts.Logger), nil
	case ProviderAlphaVantage:
		if opts.APIKey == "" {
			return nil, apperrors.ErrRetrievalUnavailable.WithDetails("alphavantage requires PROVIDER_API_KEY")
		}
		baseURL, err := resolveBaseURL(opts.BaseURL, DefaultAlphaVantageURL)
		if err != nil {
			return nil, err
		}
		return NewAlphaVantageProvider(baseURL, opts.APIKey, opts.Timeout, opts.Logger), nil
	case ProviderLocal:
		info, err := os.Stat(opts.DataDir)
		if err != nil || !info.IsDir() {
			return nil, apperrors.ErrRetrievalUnavailable.
				WithDetails(fmt.Sprintf("data directory %q is not readable", opts.DataDir)).
				WithCause(err)
		}
		return NewLocalProvider(opts.DataDir, opts.Logger), nil
	default:
		return nil, apperrors.ErrRetrievalUnavailable.WithDetails(fmt.Sprintf("unknown provider %q", opts.Provider))
	}
}

func resolveBaseURL(baseURL, fallback string) (string, error) {
	if baseURL == "" {
		return fallback, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperrors.ErrRetrievalUnavailable.
			WithDetails(fmt.Sprintf("invalid provider base url %q", baseURL)).
			WithCause(err)
	}
	return baseURL, nil
}
