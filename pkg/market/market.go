package market

import "time"

// RawQuote is one daily bar as returned by a quote provider.
type RawQuote struct {
	Timestamp int64   `json:"timestamp"` // seconds since epoch
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    uint64  `json:"volume"`
}

// PriceRow is a validated bar ready to be stored in stock_prices.
// (Time, Symbol) is unique in storage.
type PriceRow struct {
	Time   time.Time `db:"time" json:"time"`
	Symbol string    `db:"symbol" json:"symbol"`
	Open   float64   `db:"open" json:"open"`
	High   float64   `db:"high" json:"high"`
	Low    float64   `db:"low" json:"low"`
	Close  float64   `db:"close" json:"close"`
	Volume int64     `db:"volume" json:"volume"`
}

// Window is the [Start, End) range of history requested from a provider.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LookbackWindow returns the window ending at now and starting days*24h earlier.
// Negative days yield an inverted window; callers are expected to pass days >= 0.
func LookbackWindow(now time.Time, days int) Window {
	return Window{
		Start: now.Add(-time.Duration(days) * 24 * time.Hour),
		End:   now,
	}
}

// Clock returns the current instant. It is read on every call so that two
// windows computed at different wall-clock times differ.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}
