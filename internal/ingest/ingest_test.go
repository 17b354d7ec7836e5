package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"navledger/internal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

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

func TestReadCatalog(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "产品查询.xlsx")

	rows := make([][]any, 8)
	for i := range rows {
		rows[i] = []any{"筛选条件"}
	}
	rows = append(rows, []any{
		" 发行机构销售代码 ", "产品名称", "运作模式", "最早实际成立日期", "最早实际结束日期",
		"首次募集开始日期", "首次募集结束日期", "实际募集总规模", "最新单位净值",
	})
	rows = append(rows, []any{"P1", "现金管理1号", "开放式净值型", "20230101", "20280101", "20221220", "20221230", "250000000", "1.0100"})
	rows = append(rows, []any{"P2", "固收2号", "封闭式", "45292", "", "", "", "", ""})

	writeXLSX(t, path, "产品列表", rows)

	catalog, err := ReadCatalog(path, "产品列表", 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 2 {
		t.Fatalf("len=%d", len(catalog))
	}

	p1 := catalog[0]
	if p1.ProductCode != "P1" || p1.ProductName != "现金管理1号" {
		t.Fatalf("p1: %+v", p1)
	}
	if !p1.OpenEnded() {
		t.Fatal("p1 should be open-ended")
	}
	if !p1.InceptionDate.Equal(day(2023, time.January, 1)) {
		t.Fatalf("p1 inception: %v", p1.InceptionDate)
	}
	if p1.BackupUnitValue == nil || p1.BackupUnitValue.String() != "1.0100" {
		t.Fatalf("p1 backup unit value: %v", p1.BackupUnitValue)
	}

	p2 := catalog[1]
	if p2.OpenEnded() {
		t.Fatal("p2 should not be open-ended")
	}
	// Serial day count resolves against the 1899-12-30 epoch.
	if !p2.InceptionDate.Equal(day(2024, time.January, 1)) {
		t.Fatalf("p2 inception: %v", p2.InceptionDate)
	}
	if !p2.MaturityDate.IsZero() {
		t.Fatalf("p2 maturity should be unknown: %v", p2.MaturityDate)
	}
}

func TestObservationsFromRowsExplicitColumns(t *testing.T) {
	rows := [][]string{
		{"理财产品净值汇总"},
		{"出具日期: 2024-01-08"},
		{"产品代码", "最新单位净值", "规模计算日期", "产品市值"},
		{"P1", "1.0523", "20240105", "120000000"},
		{"P2", "", "20240105", ""},
		{"", "", "", ""},
	}

	obs := ObservationsFromRows(rows, 3, internal.SourceWorkbook, "test")
	if len(obs) != 2 {
		t.Fatalf("len=%d", len(obs))
	}
	if obs[0].ProductCode != "P1" || obs[0].UnitValue == nil {
		t.Fatalf("obs0: %+v", obs[0])
	}
	if !obs[0].ReportingDate.Equal(day(2024, time.January, 5)) {
		t.Fatalf("obs0 date: %v", obs[0].ReportingDate)
	}
	if obs[1].UnitValue != nil {
		t.Fatalf("obs1 unit value should be nil: %v", obs[1].UnitValue)
	}
}

func TestObservationsFromRowsFallbackColumns(t *testing.T) {
	// No 产品代码 header: first column is the code. No exact unit-value
	// header: substring match adopts the first 单位净值 column. 汇总日期 is
	// an alias of the reporting date.
	rows := [][]string{
		{}, {},
		{"代码", "T-1单位净值", "T日单位净值", "汇总日期"},
		{"P1", "1.0100", "1.0200", "20240105"},
	}

	obs := ObservationsFromRows(rows, 3, internal.SourceWorkbook, "test")
	if len(obs) != 1 {
		t.Fatalf("len=%d", len(obs))
	}
	if obs[0].ProductCode != "P1" {
		t.Fatalf("code: %q", obs[0].ProductCode)
	}
	if obs[0].UnitValue == nil || obs[0].UnitValue.String() != "1.0100" {
		t.Fatalf("unit value: %v", obs[0].UnitValue)
	}
	if !obs[0].ReportingDate.Equal(day(2024, time.January, 5)) {
		t.Fatalf("date: %v", obs[0].ReportingDate)
	}
}

func TestObservationsFromRowsDuplicateHeaders(t *testing.T) {
	rows := [][]string{
		{}, {},
		{"产品代码", "最新单位净值", "最新单位净值", "规模计算日期"},
		{"P1", "1.05", "9.99", "20240105"},
	}

	obs := ObservationsFromRows(rows, 3, internal.SourceWorkbook, "test")
	if obs[0].UnitValue == nil || obs[0].UnitValue.String() != "1.05" {
		t.Fatalf("duplicate column should keep the first: %v", obs[0].UnitValue)
	}
}

func TestReadValuationsConcatenatesWithRowIdentity(t *testing.T) {
	tmp := t.TempDir()
	header := []any{"", ""}
	a := filepath.Join(tmp, "a.xlsx")
	writeXLSX(t, a, "Sheet1", [][]any{
		header, header,
		{"产品代码", "最新单位净值", "规模计算日期"},
		{"P1", "1.01", "20240105"},
		{"P2", "2.02", "20240105"},
	})
	b := filepath.Join(tmp, "b.xlsx")
	writeXLSX(t, b, "Sheet1", [][]any{
		header, header,
		{"产品代码", "最新单位净值", "规模计算日期"},
		{"P3", "3.03", "20240112"},
	})

	obs, err := ReadValuations([]string{a, b}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 3 {
		t.Fatalf("len=%d", len(obs))
	}
	for i, o := range obs {
		if o.RowID != i {
			t.Fatalf("row %d has RowID %d", i, o.RowID)
		}
	}
	if obs[2].ProductCode != "P3" {
		t.Fatalf("obs2: %+v", obs[2])
	}
}

func TestDiscoverWorkbooks(t *testing.T) {
	tmp := t.TempDir()
	for _, name := range []string{"产品查询2024.xlsx", "净值0105.xlsx", "净值0112.xlsx", "~$净值0105.xlsx", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(tmp, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	catalogPath, valuationPaths, err := DiscoverWorkbooks(tmp, "产品查询")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(catalogPath) != "产品查询2024.xlsx" {
		t.Fatalf("catalog: %s", catalogPath)
	}
	if len(valuationPaths) != 2 {
		t.Fatalf("valuations: %v", valuationPaths)
	}
}

func TestDiscoverWorkbooksFatalPreconditions(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "净值0105.xlsx"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := DiscoverWorkbooks(tmp, "产品查询"); err == nil {
		t.Fatal("missing catalog must be fatal")
	}

	tmp2 := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp2, "产品查询.xlsx"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := DiscoverWorkbooks(tmp2, "产品查询"); err == nil {
		t.Fatal("missing valuations must be fatal")
	}
}
