package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/market"
)

const (
	DefaultChartURL = "https://query2.finance.yahoo.com"
	chartPath       = "/v8/finance/chart/{symbol}"
	UserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"
)

// chartResponse is the subset of Yahoo's v8 chart payload we read.
// Prices are pointers because Yahoo emits null for missing sessions.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// chartProvider calls the Yahoo chart endpoint directly over HTTP.
type chartProvider struct {
	client *resty.Client
	logger *zap.Logger
}

// NewChartProvider returns a QuoteProvider that talks to baseURL.
func NewChartProvider(baseURL string, timeout time.Duration, logger *zap.Logger) QuoteProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "application/json")
	return &chartProvider{client: client, logger: logger}
}

func (p *chartProvider) Name() string { return ProviderYahooChart }

func (p *chartProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]market.RawQuote, error) {
	var chart chartResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"period1":  strconv.FormatInt(start.Unix(), 10),
			"period2":  strconv.FormatInt(end.Unix(), 10),
			"interval": "1d",
			"events":   "history",
		}).
		SetResult(&chart).
		SetError(&chart).
		Get(chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s: %s", symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code for %s: %d", symbol, resp.StatusCode())
	}

	p.logger.Debug("Chart response received",
		zap.String("symbol", symbol),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", resp.Time()))

	return extractQuotes(&chart), nil
}

func extractQuotes(chart *chartResponse) []market.RawQuote {
	quotes := make([]market.RawQuote, 0)
	if len(chart.Chart.Result) == 0 {
		return quotes
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return quotes
	}
	q := result.Indicators.Quote[0]

	for i, ts := range result.Timestamp {
		volume := int64At(q.Volume, i)
		if volume < 0 {
			volume = 0
		}
		quotes = append(quotes, market.RawQuote{
			Timestamp: ts,
			Open:      floatAt(q.Open, i),
			High:      floatAt(q.High, i),
			Low:       floatAt(q.Low, i),
			Close:     floatAt(q.Close, i),
			Volume:    uint64(volume),
		})
	}
	return quotes
}

// floatAt returns values[i], or 0 when it is null or missing.
func floatAt(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

func int64At(values []*int64, i int) int64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
