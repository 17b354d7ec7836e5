package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"navledger/internal"
	"navledger/internal/dates"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS catalog (
  productCode TEXT PRIMARY KEY,
  productName TEXT,
  operatingMode TEXT,
  openType TEXT,
  riskTier TEXT,
  investmentClass TEXT,
  subscriptionStart TEXT,
  subscriptionEnd TEXT,
  inceptionDate TEXT,
  maturityDate TEXT,
  tenorDays TEXT,
  benchmark TEXT,
  benchmarkLow TEXT,
  benchmarkHigh TEXT,
  salesFee TEXT,
  mgmtFee TEXT,
  raisedScale TEXT,
  raisedScaleCNY TEXT,
  backupUnitValue TEXT,
  distributor TEXT,
  salesTarget TEXT,
  productSeries TEXT,
  subscriptionMethod TEXT,
  subscriptionCurrency TEXT,
  loadedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS observations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  emailId INTEGER,
  source TEXT NOT NULL,
  sourceRef TEXT,
  productCode TEXT NOT NULL,
  reportingDate TEXT,
  unitValue TEXT,
  marketValue TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_observations_code ON observations(productCode);
CREATE INDEX IF NOT EXISTS idx_observations_email ON observations(emailId);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  emailId INTEGER,
  timingsJson TEXT NOT NULL,
  countersJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertCatalog(entries []internal.CatalogEntry) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
INSERT INTO catalog (
  productCode, productName, operatingMode, openType, riskTier, investmentClass,
  subscriptionStart, subscriptionEnd, inceptionDate, maturityDate, tenorDays,
  benchmark, benchmarkLow, benchmarkHigh, salesFee, mgmtFee,
  raisedScale, raisedScaleCNY, backupUnitValue,
  distributor, salesTarget, productSeries, subscriptionMethod, subscriptionCurrency,
  loadedAt
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
ON CONFLICT(productCode) DO UPDATE SET
  productName=excluded.productName, operatingMode=excluded.operatingMode,
  openType=excluded.openType, riskTier=excluded.riskTier,
  investmentClass=excluded.investmentClass,
  subscriptionStart=excluded.subscriptionStart, subscriptionEnd=excluded.subscriptionEnd,
  inceptionDate=excluded.inceptionDate, maturityDate=excluded.maturityDate,
  tenorDays=excluded.tenorDays, benchmark=excluded.benchmark,
  benchmarkLow=excluded.benchmarkLow, benchmarkHigh=excluded.benchmarkHigh,
  salesFee=excluded.salesFee, mgmtFee=excluded.mgmtFee,
  raisedScale=excluded.raisedScale, raisedScaleCNY=excluded.raisedScaleCNY,
  backupUnitValue=excluded.backupUnitValue,
  distributor=excluded.distributor, salesTarget=excluded.salesTarget,
  productSeries=excluded.productSeries, subscriptionMethod=excluded.subscriptionMethod,
  subscriptionCurrency=excluded.subscriptionCurrency,
  loadedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.Exec(
			e.ProductCode, e.ProductName, e.OperatingMode, e.OpenType, e.RiskTier, e.InvestmentClass,
			dates.Format(e.SubscriptionStart), dates.Format(e.SubscriptionEnd),
			dates.Format(e.InceptionDate), dates.Format(e.MaturityDate), e.TenorDays,
			e.Benchmark, e.BenchmarkLow, e.BenchmarkHigh, e.SalesFee, e.MgmtFee,
			e.RaisedScale, e.RaisedScaleCNY, decimalText(e.BackupUnitValue),
			e.Distributor, e.SalesTarget, e.ProductSeries, e.SubscriptionMethod, e.SubscriptionCurrency,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListCatalog() ([]internal.CatalogEntry, error) {
	rows, err := d.conn.Query(`
SELECT productCode, productName, operatingMode, openType, riskTier, investmentClass,
  subscriptionStart, subscriptionEnd, inceptionDate, maturityDate, tenorDays,
  benchmark, benchmarkLow, benchmarkHigh, salesFee, mgmtFee,
  raisedScale, raisedScaleCNY, backupUnitValue,
  distributor, salesTarget, productSeries, subscriptionMethod, subscriptionCurrency
FROM catalog ORDER BY productCode`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.CatalogEntry{}
	for rows.Next() {
		var e internal.CatalogEntry
		var subStart, subEnd, inception, maturity string
		var backup sql.NullString
		if err := rows.Scan(
			&e.ProductCode, &e.ProductName, &e.OperatingMode, &e.OpenType, &e.RiskTier, &e.InvestmentClass,
			&subStart, &subEnd, &inception, &maturity, &e.TenorDays,
			&e.Benchmark, &e.BenchmarkLow, &e.BenchmarkHigh, &e.SalesFee, &e.MgmtFee,
			&e.RaisedScale, &e.RaisedScaleCNY, &backup,
			&e.Distributor, &e.SalesTarget, &e.ProductSeries, &e.SubscriptionMethod, &e.SubscriptionCurrency,
		); err != nil {
			return nil, err
		}
		e.SubscriptionStart = dates.Normalize(subStart)
		e.SubscriptionEnd = dates.Normalize(subEnd)
		e.InceptionDate = dates.Normalize(inception)
		e.MaturityDate = dates.Normalize(maturity)
		e.BackupUnitValue = decimalFromText(backup.String)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject, sender=excluded.sender, receivedAt=excluded.receivedAt,
  hash=excluded.hash, rawRef=excluded.rawRef, updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}
	return d.MustEmailByProviderMessageID(provider, messageID)
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID)

	var e internal.EmailRow
	err := row.Scan(&e.ID, &e.Provider, &e.MessageID, &e.Subject, &e.Sender, &e.ReceivedAt, &e.Hash, &e.Status, &e.RawRef)
	if err != nil {
		return internal.EmailRow{}, fmt.Errorf("email not found provider=%s messageId=%s: %w", provider, messageID, err)
	}
	return e, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ? ORDER BY id LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.EmailRow{}
	for rows.Next() {
		var e internal.EmailRow
		if err := rows.Scan(&e.ID, &e.Provider, &e.MessageID, &e.Subject, &e.Sender, &e.ReceivedAt, &e.Hash, &e.Status, &e.RawRef); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(id int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

func (d *DB) ClearEmailObservations(emailID int) error {
	_, err := d.conn.Exec(`DELETE FROM observations WHERE emailId = ?`, emailID)
	return err
}

func (d *DB) InsertObservations(emailID int, obs []internal.ValuationObservation) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
INSERT INTO observations (emailId, source, sourceRef, productCode, reportingDate, unitValue, marketValue)
VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range obs {
		emailRef := any(emailID)
		if emailID == 0 {
			emailRef = nil
		}
		_, err := stmt.Exec(emailRef, string(o.Source), o.SourceRef, o.ProductCode,
			dates.Format(o.ReportingDate), decimalText(o.UnitValue), decimalText(o.MarketValue))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListObservations returns every stored observation in insertion order,
// re-assigning row identity for the reconciliation pass.
func (d *DB) ListObservations() ([]internal.ValuationObservation, error) {
	rows, err := d.conn.Query(`
SELECT source, sourceRef, productCode, reportingDate, unitValue, marketValue
FROM observations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.ValuationObservation{}
	for rows.Next() {
		var o internal.ValuationObservation
		var source, reportingDate string
		var unitValue, marketValue sql.NullString
		if err := rows.Scan(&source, &o.SourceRef, &o.ProductCode, &reportingDate, &unitValue, &marketValue); err != nil {
			return nil, err
		}
		o.Source = internal.ObservationSource(source)
		o.ReportingDate = dates.Normalize(reportingDate)
		o.UnitValue = decimalFromText(unitValue.String)
		o.MarketValue = decimalFromText(marketValue.String)
		o.RowID = len(out)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID string, emailID int, timings map[string]float64, counters map[string]int) error {
	timingsJSON, err := json.Marshal(timings)
	if err != nil {
		return err
	}
	countersJSON, err := json.Marshal(counters)
	if err != nil {
		return err
	}
	emailRef := any(emailID)
	if emailID == 0 {
		emailRef = nil
	}
	_, err = d.conn.Exec(`INSERT INTO runs (traceId, emailId, timingsJson, countersJson) VALUES (?,?,?,?)`,
		traceID, emailRef, string(timingsJSON), string(countersJSON))
	return err
}

func decimalText(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.String()
}

func decimalFromText(text string) *decimal.Decimal {
	if text == "" {
		return nil
	}
	parsed, err := decimal.NewFromString(text)
	if err != nil {
		return nil
	}
	return &parsed
}
