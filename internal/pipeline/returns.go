package pipeline

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"navledger/internal/dates"
)

// AnnualizedReturn derives the since-inception annualized return percentage
// from a cumulative growth factor. Returns nil when either date is unknown,
// elapsed days are zero or negative, the unit value is missing, or the
// arithmetic degenerates (negative base under a fractional exponent). This
// is a best-effort metric: bad data yields nil, never an error.
func AnnualizedReturn(asOf, inception time.Time, unitValue *decimal.Decimal) *float64 {
	if !dates.Known(asOf) || !dates.Known(inception) || unitValue == nil {
		return nil
	}

	days := int(asOf.Sub(inception).Hours() / 24)
	if days <= 0 {
		return nil
	}

	result := (math.Pow(unitValue.InexactFloat64(), 365/float64(days)) - 1) * 100
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return nil
	}
	return &result
}
