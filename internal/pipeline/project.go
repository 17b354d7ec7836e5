package pipeline

import (
	"github.com/shopspring/decimal"

	"navledger/internal"
	"navledger/internal/util"
)

// Scale figures are reported in hundred-million units (亿元).
var hundredMillion = decimal.NewFromInt(100_000_000)

// BuildReport projects merged records into the fixed output field set.
// Unmatched rows keep their catalog-derived fields empty. The market value
// appears twice in the output (nominal and CNY-equivalent columns carry the
// same figure in the source data), and the cumulative value is an alias of
// the unit value.
func BuildReport(records []internal.MergedRecord) []internal.ReportRow {
	rows := make([]internal.ReportRow, 0, len(records))
	for _, rec := range records {
		cat := internal.CatalogEntry{}
		if rec.Catalog != nil {
			cat = *rec.Catalog
		}

		row := internal.ReportRow{
			ReportingDate:        rec.Observation.ReportingDate,
			ProductCode:          rec.Observation.ProductCode,
			ProductName:          cat.ProductName,
			OperatingMode:        cat.OperatingMode,
			OpenType:             cat.OpenType,
			RiskTier:             cat.RiskTier,
			InvestmentClass:      cat.InvestmentClass,
			SubscriptionStart:    cat.SubscriptionStart,
			SubscriptionEnd:      cat.SubscriptionEnd,
			InceptionDate:        cat.InceptionDate,
			MaturityDate:         cat.MaturityDate,
			TenorDays:            cat.TenorDays,
			Benchmark:            cat.Benchmark,
			BenchmarkLow:         cat.BenchmarkLow,
			BenchmarkHigh:        cat.BenchmarkHigh,
			SalesFee:             cat.SalesFee,
			MgmtFee:              cat.MgmtFee,
			RaisedScale:          scaleToHundredMillion(util.ParseDecimal(cat.RaisedScale)),
			RaisedScaleCNY:       scaleToHundredMillion(util.ParseDecimal(cat.RaisedScaleCNY)),
			MarketValue:          scaleToHundredMillion(rec.Observation.MarketValue),
			MarketValueCNY:       scaleToHundredMillion(rec.Observation.MarketValue),
			AnnualizedReturn:     rec.AnnualizedReturn,
			UnitValue:            rec.Observation.UnitValue,
			CumulativeValue:      rec.Observation.UnitValue,
			DisclosureDate:       rec.DisclosureDate,
			Distributor:          cat.Distributor,
			SalesTarget:          cat.SalesTarget,
			ProductSeries:        cat.ProductSeries,
			SubscriptionMethod:   cat.SubscriptionMethod,
			SubscriptionCurrency: cat.SubscriptionCurrency,
		}
		rows = append(rows, row)
	}
	return rows
}

func scaleToHundredMillion(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	scaled := v.Div(hundredMillion)
	return &scaled
}
