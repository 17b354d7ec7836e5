package pipeline

import "navledger/internal"

// Merge left-joins valuation observations onto catalog entries by product
// code. Every valuation row survives exactly once; catalog entries without
// observations do not appear. The catalog-side unit value stays available as
// CatalogEntry.BackupUnitValue, so a name collision with the valuation-side
// value cannot drop either.
func Merge(valuations []internal.ValuationObservation, catalog []internal.CatalogEntry) []internal.MergedRecord {
	byCode := make(map[string]*internal.CatalogEntry, len(catalog))
	for i := range catalog {
		code := catalog[i].ProductCode
		if _, seen := byCode[code]; seen {
			continue
		}
		byCode[code] = &catalog[i]
	}

	out := make([]internal.MergedRecord, 0, len(valuations))
	for _, obs := range valuations {
		out = append(out, internal.MergedRecord{
			Observation: obs,
			Catalog:     byCode[obs.ProductCode],
		})
	}
	return out
}
