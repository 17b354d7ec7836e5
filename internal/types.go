package internal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ObservationSource string

const (
	SourceWorkbook       ObservationSource = "workbook"
	SourceEmailXLSX      ObservationSource = "email_xlsx"
	SourceEmailHTMLTable ObservationSource = "email_html_table"
	SourceEmailPDF       ObservationSource = "email_pdf"
)

// OpenModeMarker flags an open-ended fund in the catalog's operating-mode text.
const OpenModeMarker = "开放式"

type CatalogEntry struct {
	ProductCode          string
	ProductName          string
	OperatingMode        string
	OpenType             string
	RiskTier             string
	InvestmentClass      string
	SubscriptionStart    time.Time
	SubscriptionEnd      time.Time
	InceptionDate        time.Time
	MaturityDate         time.Time
	TenorDays            string
	Benchmark            string
	BenchmarkLow         string
	BenchmarkHigh        string
	SalesFee             string
	MgmtFee              string
	RaisedScale          string
	RaisedScaleCNY       string
	BackupUnitValue      *decimal.Decimal
	Distributor          string
	SalesTarget          string
	ProductSeries        string
	SubscriptionMethod   string
	SubscriptionCurrency string
}

func (c CatalogEntry) OpenEnded() bool {
	return strings.Contains(c.OperatingMode, OpenModeMarker)
}

// ValuationObservation is one (product, reporting date) row from a valuation
// source. RowID is the position in the concatenated valuation set and is the
// identity disclosure dates are realigned against.
type ValuationObservation struct {
	RowID         int
	Source        ObservationSource
	SourceRef     string
	ProductCode   string
	ReportingDate time.Time
	UnitValue     *decimal.Decimal
	MarketValue   *decimal.Decimal
}

// MergedRecord is one valuation row joined with at most one catalog entry.
// Catalog is nil when the product code has no catalog match; such rows are
// kept, not dropped. AnnualizedReturn and DisclosureDate are filled by the
// pipeline after the merge.
type MergedRecord struct {
	Observation      ValuationObservation
	Catalog          *CatalogEntry
	AnnualizedReturn *float64
	DisclosureDate   time.Time
}

func (m MergedRecord) OpenEnded() bool {
	return m.Catalog != nil && m.Catalog.OpenEnded()
}

// ReportRow is the projected output shape. Scale figures are already in
// hundred-million units; dates are formatted at export time.
type ReportRow struct {
	ReportingDate        time.Time
	ProductCode          string
	ProductName          string
	OperatingMode        string
	OpenType             string
	RiskTier             string
	InvestmentClass      string
	SubscriptionStart    time.Time
	SubscriptionEnd      time.Time
	InceptionDate        time.Time
	MaturityDate         time.Time
	TenorDays            string
	Benchmark            string
	BenchmarkLow         string
	BenchmarkHigh        string
	SalesFee             string
	MgmtFee              string
	RaisedScale          *decimal.Decimal
	RaisedScaleCNY       *decimal.Decimal
	MarketValue          *decimal.Decimal
	MarketValueCNY       *decimal.Decimal
	AnnualizedReturn     *float64
	UnitValue            *decimal.Decimal
	CumulativeValue      *decimal.Decimal
	DisclosureDate       time.Time
	Distributor          string
	SalesTarget          string
	ProductSeries        string
	SubscriptionMethod   string
	SubscriptionCurrency string
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
