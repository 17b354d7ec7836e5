package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"navledger/internal"
	"navledger/internal/dates"
)

const singleYearSheet = "产品达标分析结果"

var reportHeaders = []string{
	"规模计算日期", "产品代码（发行机构销售代码）", "产品名称", "运作模式", "开放类型", "风险等级", "投资类型（投资性质二级）",
	"募集开始日期", "募集结束日期", "成立日", "到期日", "期限（天）",
	"业绩比较基准（%）", "当前业绩比较基准下限（%）", "当前业绩比较基准上限（%）",
	"最新销售费（%）", "最新固定管理费（%）",
	"实际募集总规模（亿元）", "折合人民币实际募集总规模（亿元）", "计算日存续规模（亿元）", "折合人民币计算日存续规模（亿元）",
	"成立以来年化收益率（%）", "最新单位净值", "最新累计净值", "最新净值日期",
	"代销机构", "销售对象", "产品系列", "募集方式", "募集币种",
}

// WriteReport writes the projected rows as a workbook. A single distinct
// reporting year yields one sheet with every row; multiple years yield one
// sheet per year, rows with an unknown reporting year dropped.
func WriteReport(rows []internal.ReportRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	years := distinctYears(rows)
	if len(years) <= 1 {
		f.SetSheetName(f.GetSheetName(0), singleYearSheet)
		writeSheet(f, singleYearSheet, rows)
	} else {
		for i, year := range years {
			name := strconv.Itoa(year)
			if i == 0 {
				f.SetSheetName(f.GetSheetName(0), name)
			} else {
				if _, err := f.NewSheet(name); err != nil {
					return err
				}
			}
			group := []internal.ReportRow{}
			for _, row := range rows {
				if dates.Known(row.ReportingDate) && row.ReportingDate.Year() == year {
					group = append(group, row)
				}
			}
			writeSheet(f, name, group)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeSheet(f *excelize.File, sheet string, rows []internal.ReportRow) {
	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		col := 0
		set := func(value any) {
			col++
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(dates.Format(row.ReportingDate))
		set(row.ProductCode)
		set(row.ProductName)
		set(row.OperatingMode)
		set(row.OpenType)
		set(row.RiskTier)
		set(row.InvestmentClass)
		set(dates.Format(row.SubscriptionStart))
		set(dates.Format(row.SubscriptionEnd))
		set(dates.Format(row.InceptionDate))
		set(dates.Format(row.MaturityDate))
		set(row.TenorDays)
		set(row.Benchmark)
		set(row.BenchmarkLow)
		set(row.BenchmarkHigh)
		set(row.SalesFee)
		set(row.MgmtFee)
		set(decimalCell(row.RaisedScale))
		set(decimalCell(row.RaisedScaleCNY))
		set(decimalCell(row.MarketValue))
		set(decimalCell(row.MarketValueCNY))
		set(floatCell(row.AnnualizedReturn))
		set(decimalCell(row.UnitValue))
		set(decimalCell(row.CumulativeValue))
		set(dates.Format(row.DisclosureDate))
		set(row.Distributor)
		set(row.SalesTarget)
		set(row.ProductSeries)
		set(row.SubscriptionMethod)
		set(row.SubscriptionCurrency)
	}
}

func distinctYears(rows []internal.ReportRow) []int {
	seen := map[int]struct{}{}
	for _, row := range rows {
		if dates.Known(row.ReportingDate) {
			seen[row.ReportingDate.Year()] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func decimalCell(v *decimal.Decimal) any {
	if v == nil {
		return ""
	}
	value, _ := v.Float64()
	return value
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
