package ingest

import (
	"fmt"
	"math"
	"time"

	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
	"github.com/Ruscigno/QuantLab/pkg/market"
)

// Representable timestamps: 0001-01-01T00:00:00Z through 9999-12-31T23:59:59Z.
const (
	MinTimestamp int64 = -62135596800
	MaxTimestamp int64 = 253402300799
)

// ErrInvalidTimestamp is returned by Transform for timestamps outside
// [MinTimestamp, MaxTimestamp].
var ErrInvalidTimestamp = apperrors.ErrInvalidTimestamp

// Transform converts a provider quote into a storable row. Only the timestamp
// is validated; prices and volume pass through.
func Transform(symbol string, q market.RawQuote) (market.PriceRow, error) {
	if q.Timestamp < MinTimestamp || q.Timestamp > MaxTimestamp {
		return market.PriceRow{}, ErrInvalidTimestamp.WithDetails(fmt.Sprintf("timestamp %d", q.Timestamp))
	}

	volume := int64(math.MaxInt64)
	if q.Volume <= math.MaxInt64 {
		volume = int64(q.Volume)
	}

	return market.PriceRow{
		Time:   time.Unix(q.Timestamp, 0).UTC(),
		Symbol: symbol,
		Open:   q.Open,
		High:   q.High,
		Low:    q.Low,
		Close:  q.Close,
		Volume: volume,
	}, nil
}
