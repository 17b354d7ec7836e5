package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"navledger/internal/ingest"
)

func writeXLSX(t *testing.T, path, sheet string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), sheet)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
}

func TestSmokeWorkbooksToReport(t *testing.T) {
	tmp := t.TempDir()

	catalogRows := make([][]any, 8)
	for i := range catalogRows {
		catalogRows[i] = []any{"banner"}
	}
	catalogRows = append(catalogRows,
		[]any{"发行机构销售代码", "产品名称", "运作模式", "最早实际成立日期", "实际募集总规模"},
		[]any{"OPEN1", "开放1号", "开放式净值型", "20230101", "250000000"},
		[]any{"CLOSED1", "封闭1号", "封闭式", "20230101", "100000000"},
	)
	writeXLSX(t, filepath.Join(tmp, "产品查询.xlsx"), "产品列表", catalogRows)

	writeXLSX(t, filepath.Join(tmp, "净值.xlsx"), "Sheet1", [][]any{
		{"净值汇总"}, {""},
		{"产品代码", "最新单位净值", "规模计算日期"},
		{"OPEN1", "1.05", "20240105"},
		{"OPEN1", "1.05", "20240112"},
		{"CLOSED1", "1.10", "20240105"},
		{"CLOSED1", "1.10", "20240112"},
		{"CLOSED1", "1.20", "20240119"},
	})

	catalogPath, valuationPaths, err := ingest.DiscoverWorkbooks(tmp, "产品查询")
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := ingest.ReadCatalog(catalogPath, "产品列表", 9)
	if err != nil {
		t.Fatal(err)
	}
	valuations, err := ingest.ReadValuations(valuationPaths, 3)
	if err != nil {
		t.Fatal(err)
	}

	rows := Reconcile(valuations, catalog)
	if len(rows) != 5 {
		t.Fatalf("rows=%d", len(rows))
	}

	// Open regime: disclosure date tracks every reporting date.
	if !rows[1].DisclosureDate.Equal(day(2024, 1, 12)) {
		t.Fatalf("open disclosure: %v", rows[1].DisclosureDate)
	}
	// Event regime: the date holds until the value changes.
	if !rows[3].DisclosureDate.Equal(day(2024, 1, 5)) {
		t.Fatalf("closed held disclosure: %v", rows[3].DisclosureDate)
	}
	if !rows[4].DisclosureDate.Equal(day(2024, 1, 19)) {
		t.Fatalf("closed moved disclosure: %v", rows[4].DisclosureDate)
	}

	if rows[0].AnnualizedReturn == nil {
		t.Fatal("annualized return missing")
	}
	if rows[0].RaisedScale == nil || !rows[0].RaisedScale.Equal(*dec("2.5")) {
		t.Fatalf("raised scale: %v", rows[0].RaisedScale)
	}

	out := filepath.Join(tmp, "report.xlsx")
	if err := WriteReport(rows, out); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) != 1 {
		t.Fatalf("sheets: %v", sheets)
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 6 {
		t.Fatalf("output rows=%d", len(cells))
	}
}
