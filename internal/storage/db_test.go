package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"navledger/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "navledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestCatalogRoundTrip(t *testing.T) {
	db := openTestDB(t)

	entries := []internal.CatalogEntry{
		{
			ProductCode:     "P1",
			ProductName:     "现金管理1号",
			OperatingMode:   "开放式净值型",
			InceptionDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			RaisedScale:     "250000000",
			BackupUnitValue: dec("1.01"),
		},
		{ProductCode: "P2", ProductName: "固收2号", OperatingMode: "封闭式"},
	}
	if err := db.UpsertCatalog(entries); err != nil {
		t.Fatal(err)
	}

	// Reloading the same codes replaces, never duplicates.
	entries[0].ProductName = "现金管理1号B"
	if err := db.UpsertCatalog(entries[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].ProductName != "现金管理1号B" {
		t.Fatalf("name: %q", got[0].ProductName)
	}
	if !got[0].InceptionDate.Equal(entries[0].InceptionDate) {
		t.Fatalf("inception: %v", got[0].InceptionDate)
	}
	if got[0].BackupUnitValue == nil || !got[0].BackupUnitValue.Equal(*dec("1.01")) {
		t.Fatalf("backup unit value: %v", got[0].BackupUnitValue)
	}
	if got[1].BackupUnitValue != nil {
		t.Fatalf("p2 backup unit value should be nil: %v", got[1].BackupUnitValue)
	}
}

func TestObservationsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	email, err := db.UpsertEmail("imap", "<m1@example.com>", "净值披露", "ops@example.com", "2024-01-05T00:00:00Z", "hash", "/tmp/raw.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}

	obs := []internal.ValuationObservation{
		{Source: internal.SourceEmailXLSX, SourceRef: "净值.xlsx#Sheet1", ProductCode: "P1", ReportingDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), UnitValue: dec("1.05")},
		{Source: internal.SourceEmailHTMLTable, SourceRef: "body", ProductCode: "P2"},
	}
	if err := db.InsertObservations(email.ID, obs); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListObservations()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].RowID != 0 || got[1].RowID != 1 {
		t.Fatalf("row ids: %d %d", got[0].RowID, got[1].RowID)
	}
	if got[0].UnitValue == nil || !got[0].UnitValue.Equal(*dec("1.05")) {
		t.Fatalf("unit value: %v", got[0].UnitValue)
	}
	if got[1].UnitValue != nil || !got[1].ReportingDate.IsZero() {
		t.Fatalf("obs1: %+v", got[1])
	}

	// Re-processing a mail replaces its observations.
	if err := db.ClearEmailObservations(email.ID); err != nil {
		t.Fatal(err)
	}
	got, err = db.ListObservations()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("len=%d after clear", len(got))
	}
}

func TestEmailStatusFlow(t *testing.T) {
	db := openTestDB(t)

	email, err := db.UpsertEmail("imap", "<m1@example.com>", "净值披露", "ops@example.com", "2024-01-05T00:00:00Z", "hash", "/tmp/raw.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}

	pending, err := db.ListEmailsByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending=%d", len(pending))
	}

	if err := db.UpdateEmailStatus(email.ID, "processed"); err != nil {
		t.Fatal(err)
	}
	pending, err = db.ListEmailsByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending=%d after update", len(pending))
	}

	if err := db.InsertRun("trace-1", email.ID, map[string]float64{"totalMs": 12}, map[string]int{"observations": 2}); err != nil {
		t.Fatal(err)
	}
}
