package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"navledger/internal"
	"navledger/internal/dates"
)

// disclosureState is the per-product accumulator for one chronological walk.
type disclosureState struct {
	lastValue *decimal.Decimal
	lastDate  time.Time
}

// AssignDisclosureDates determines, for every record, the date of the most
// recently effective valuation. Open-ended products refresh on every
// observation. Everything else is event-driven: the date moves only when the
// unit value changes from the tracked one, a missing value counting as a
// repeat of the last. The returned slice is aligned to the input order, not
// the chronological order used internally.
func AssignDisclosureDates(records []internal.MergedRecord) []time.Time {
	groups := map[string][]int{}
	for i, rec := range records {
		code := rec.Observation.ProductCode
		groups[code] = append(groups[code], i)
	}

	out := make([]time.Time, len(records))
	for _, idxs := range groups {
		sorted := append([]int(nil), idxs...)
		sort.SliceStable(sorted, func(a, b int) bool {
			da := records[sorted[a]].Observation.ReportingDate
			db := records[sorted[b]].Observation.ReportingDate
			// Unknown dates sort last.
			if !dates.Known(da) {
				return false
			}
			if !dates.Known(db) {
				return true
			}
			return da.Before(db)
		})

		st := disclosureState{}
		for _, i := range sorted {
			obs := records[i].Observation
			if records[i].OpenEnded() {
				st.lastValue = obs.UnitValue
				st.lastDate = obs.ReportingDate
			} else {
				effective := obs.UnitValue
				if effective == nil {
					effective = st.lastValue
				}
				if st.lastValue == nil || valueChanged(effective, st.lastValue) {
					st.lastValue = effective
					st.lastDate = obs.ReportingDate
				}
			}
			out[i] = st.lastDate
		}
	}
	return out
}

func valueChanged(current, last *decimal.Decimal) bool {
	if current == nil || last == nil {
		return current != last
	}
	return !current.Equal(*last)
}
