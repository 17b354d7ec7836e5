package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"navledger/internal"
	"navledger/internal/dates"
	"navledger/internal/util"
)

// ReadValuations concatenates every sheet of every valuation workbook into
// one observation set, assigning row identity in concatenation order.
func ReadValuations(paths []string, headerRow int) ([]internal.ValuationObservation, error) {
	out := []internal.ValuationObservation{}
	for _, path := range paths {
		obs, err := ReadValuationWorkbook(path, headerRow)
		if err != nil {
			return nil, err
		}
		out = append(out, obs...)
	}
	for i := range out {
		out[i].RowID = i
	}
	return out, nil
}

func ReadValuationWorkbook(path string, headerRow int) ([]internal.ValuationObservation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open valuation workbook %s: %w", path, err)
	}
	defer f.Close()
	return observationsFromWorkbook(f, headerRow, internal.SourceWorkbook, path)
}

// ParseValuationWorkbook reads observations from an in-memory workbook, e.g.
// a mail attachment.
func ParseValuationWorkbook(blob []byte, headerRow int, source internal.ObservationSource, ref string) ([]internal.ValuationObservation, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return observationsFromWorkbook(f, headerRow, source, ref)
}

func observationsFromWorkbook(f *excelize.File, headerRow int, source internal.ObservationSource, ref string) ([]internal.ValuationObservation, error) {
	out := []internal.ValuationObservation{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		out = append(out, ObservationsFromRows(rows, headerRow, source, fmt.Sprintf("%s#%s", ref, sheet))...)
	}
	return out, nil
}

// ObservationsFromRows resolves a valuation sheet's loose schema into typed
// observations. headerRow is 1-based. Column resolution: an explicit 产品代码
// column, else the first column; an explicit 最新单位净值 column, else the
// first column whose header contains 单位净值; 汇总日期 is accepted as an
// alias of 规模计算日期.
func ObservationsFromRows(rows [][]string, headerRow int, source internal.ObservationSource, ref string) []internal.ValuationObservation {
	if len(rows) <= headerRow {
		return nil
	}

	header := rows[headerRow-1]
	index := headerIndex(header)

	codeIdx, ok := index["产品代码"]
	if !ok {
		codeIdx = 0
	}
	unitIdx, ok := index["最新单位净值"]
	if !ok {
		unitIdx = findSubstringColumn(header, "单位净值")
	}
	dateIdx, ok := index["规模计算日期"]
	if !ok {
		dateIdx, ok = index["汇总日期"]
		if !ok {
			dateIdx = -1
		}
	}
	marketIdx, ok := index["产品市值"]
	if !ok {
		marketIdx = -1
	}

	out := []internal.ValuationObservation{}
	for _, row := range rows[headerRow:] {
		if rowEmpty(row) {
			continue
		}
		obs := internal.ValuationObservation{
			Source:        source,
			SourceRef:     ref,
			ProductCode:   cellAt(row, codeIdx),
			ReportingDate: dates.Normalize(cellAt(row, dateIdx)),
		}
		if unitIdx >= 0 {
			obs.UnitValue = util.ParseDecimal(cellAt(row, unitIdx))
		}
		if marketIdx >= 0 {
			obs.MarketValue = util.ParseDecimal(cellAt(row, marketIdx))
		}
		out = append(out, obs)
	}
	return out
}
