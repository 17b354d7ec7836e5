package ingest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"navledger/internal"
	"navledger/internal/dates"
	"navledger/internal/util"
)

// catalogRenames maps the issuer's export headers onto the canonical catalog
// field names used everywhere downstream.
var catalogRenames = map[string]string{
	"发行机构销售代码": "产品代码",
	"首次募集开始日期": "募集开始日期",
	"首次募集结束日期": "募集结束日期",
	"最早实际成立日期": "成立日",
	"最早实际结束日期": "到期日",
}

// ReadCatalog loads the product catalog sheet. headerRow is 1-based; rows
// above it are banner/filter rows in the issuer's export and are skipped.
func ReadCatalog(path, sheet string, headerRow int) ([]internal.CatalogEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read catalog sheet %q: %w", sheet, err)
	}
	if len(rows) <= headerRow {
		return nil, fmt.Errorf("catalog sheet %q has no data below header row %d", sheet, headerRow)
	}

	header := make([]string, 0, len(rows[headerRow-1]))
	for _, h := range rows[headerRow-1] {
		name := strings.TrimSpace(h)
		if renamed, ok := catalogRenames[name]; ok {
			name = renamed
		}
		header = append(header, name)
	}
	index := headerIndex(header)

	out := make([]internal.CatalogEntry, 0, len(rows)-headerRow)
	for _, row := range rows[headerRow:] {
		if rowEmpty(row) {
			continue
		}
		cell := func(name string) string {
			idx, ok := index[name]
			if !ok {
				return ""
			}
			return cellAt(row, idx)
		}

		entry := internal.CatalogEntry{
			ProductCode:          cell("产品代码"),
			ProductName:          cell("产品名称"),
			OperatingMode:        cell("运作模式"),
			OpenType:             cell("开放类型"),
			RiskTier:             cell("风险等级"),
			InvestmentClass:      cell("投资性质二级"),
			SubscriptionStart:    dates.Normalize(cell("募集开始日期")),
			SubscriptionEnd:      dates.Normalize(cell("募集结束日期")),
			InceptionDate:        dates.Normalize(cell("成立日")),
			MaturityDate:         dates.Normalize(cell("到期日")),
			TenorDays:            cell("投资周期（天）"),
			Benchmark:            cell("业绩比较基准（%）"),
			BenchmarkLow:         cell("当前业绩比较基准下限（%）"),
			BenchmarkHigh:        cell("当前业绩比较基准上限（%）"),
			SalesFee:             cell("最新销售费(%)"),
			MgmtFee:              cell("最新固定管理费(%)"),
			RaisedScale:          cell("实际募集总规模"),
			RaisedScaleCNY:       cell("折合人民币实际募集总规模"),
			BackupUnitValue:      util.ParseDecimal(cell("最新单位净值")),
			Distributor:          cell("销售商名称"),
			SalesTarget:          cell("销售对象"),
			ProductSeries:        cell("产品系列"),
			SubscriptionMethod:   cell("募集方式"),
			SubscriptionCurrency: cell("募集币种"),
		}
		out = append(out, entry)
	}

	return out, nil
}
