package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/market"
)

const (
	DefaultAlphaVantageURL = "https://www.alphavantage.co"
	alphaVantagePath       = "/query"
	alphaVantageFunction   = "TIME_SERIES_DAILY"
	alphaVantageDateLayout = "2006-01-02"
	defaultTimeZone        = "US/Eastern"

	fieldTimeZone = "5. Time Zone"
	fieldOpen     = "1. open"
	fieldHigh     = "2. high"
	fieldLow      = "3. low"
	fieldClose    = "4. close"
	fieldVolume   = "5. volume"

	// compact output covers the last 100 sessions.
	compactSpan = 140 * 24 * time.Hour
)

// dailySeries is the TIME_SERIES_DAILY payload, also used for local files.
type dailySeries struct {
	MetaData     map[string]string            `json:"Meta Data"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
}

// alphaVantageProvider reads daily bars from the Alpha Vantage query API.
type alphaVantageProvider struct {
	client *resty.Client
	apiKey string
	logger *zap.Logger
}

// NewAlphaVantageProvider returns a QuoteProvider for the Alpha Vantage API.
func NewAlphaVantageProvider(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) QuoteProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &alphaVantageProvider{client: client, apiKey: apiKey, logger: logger}
}

func (p *alphaVantageProvider) Name() string { return ProviderAlphaVantage }

func (p *alphaVantageProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]market.RawQuote, error) {
	outputSize := "compact"
	if end.Sub(start) > compactSpan {
		outputSize = "full"
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   alphaVantageFunction,
			"symbol":     symbol,
			"outputsize": outputSize,
			"datatype":   "json",
			"apikey":     p.apiKey,
		}).
		Get(alphaVantagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily series for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code for %s: %d", symbol, resp.StatusCode())
	}

	p.logger.Debug("Daily series received",
		zap.String("symbol", symbol),
		zap.String("output_size", outputSize),
		zap.Duration("latency", resp.Time()))

	return parseDailySeries(resp.Body(), start, end, p.logger)
}

// parseDailySeries decodes a TIME_SERIES_DAILY document and returns the bars
// dated within [start, end], oldest first. Bars with unparseable fields are
// dropped with a warning.
func parseDailySeries(body []byte, start, end time.Time, logger *zap.Logger) ([]market.RawQuote, error) {
	var series dailySeries
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("failed to parse daily series: %w", err)
	}
	switch {
	case series.ErrorMessage != "":
		return nil, fmt.Errorf("daily series error: %s", series.ErrorMessage)
	case series.TimeSeries == nil && series.Note != "":
		return nil, fmt.Errorf("daily series unavailable: %s", series.Note)
	case series.TimeSeries == nil && series.Information != "":
		return nil, fmt.Errorf("daily series unavailable: %s", series.Information)
	}

	location := loadLocation(series.MetaData[fieldTimeZone], logger)

	quotes := make([]market.RawQuote, 0, len(series.TimeSeries))
	for date, fields := range series.TimeSeries {
		day, err := time.ParseInLocation(alphaVantageDateLayout, date, location)
		if err != nil {
			logger.Warn("Skipping bar with bad date", zap.String("date", date), zap.Error(err))
			continue
		}
		if day.Before(start) || day.After(end) {
			continue
		}
		quote, err := quoteFromFields(day, fields)
		if err != nil {
			logger.Warn("Skipping malformed bar", zap.String("date", date), zap.Error(err))
			continue
		}
		quotes = append(quotes, quote)
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Timestamp < quotes[j].Timestamp })
	return quotes, nil
}

func quoteFromFields(day time.Time, fields map[string]string) (market.RawQuote, error) {
	quote := market.RawQuote{Timestamp: day.Unix()}

	prices := []struct {
		key string
		dst *float64
	}{
		{fieldOpen, &quote.Open},
		{fieldHigh, &quote.High},
		{fieldLow, &quote.Low},
		{fieldClose, &quote.Close},
	}
	for _, p := range prices {
		d, err := decimal.NewFromString(fields[p.key])
		if err != nil {
			return market.RawQuote{}, fmt.Errorf("field %q: %w", p.key, err)
		}
		*p.dst = d.InexactFloat64()
	}

	volume, err := strconv.ParseUint(fields[fieldVolume], 10, 64)
	if err != nil {
		return market.RawQuote{}, fmt.Errorf("field %q: %w", fieldVolume, err)
	}
	quote.Volume = volume
	return quote, nil
}

// loadLocation returns the named zone, falling back to UTC when the zone
// database does not know it.
func loadLocation(name string, logger *zap.Logger) *time.Location {
	if name == "" {
		name = defaultTimeZone
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("Unknown time zone, using UTC", zap.String("time_zone", name), zap.Error(err))
		return time.UTC
	}
	return location
}
