package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/phuslu/log"

	"navledger/internal"
	"navledger/internal/config"
	"navledger/internal/storage"
)

// Reconcile is the pure reconciliation pass over one in-memory batch:
// merge, row-wise annualized return, disclosure dating, projection.
func Reconcile(valuations []internal.ValuationObservation, catalog []internal.CatalogEntry) []internal.ReportRow {
	records := Merge(valuations, catalog)

	for i := range records {
		inception := time.Time{}
		if records[i].Catalog != nil {
			inception = records[i].Catalog.InceptionDate
		}
		records[i].AnnualizedReturn = AnnualizedReturn(records[i].Observation.ReportingDate, inception, records[i].Observation.UnitValue)
	}

	for i, d := range AssignDisclosureDates(records) {
		records[i].DisclosureDate = d
	}

	return BuildReport(records)
}

// ProcessingService drives the store-backed path: valuation mails are
// extracted into persisted observations, and the report is rebuilt from the
// accumulated store.
type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type ProcessResult struct {
	EmailID   int
	Processed int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(email)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	processedRows := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(email)
		if err != nil {
			return processedEmails, processedRows, err
		}
		processedEmails++
		processedRows += res.Processed
	}
	return processedEmails, processedRows, nil
}

func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	extraction, err := ExtractObservationsFromEmailRaw(raw, s.cfg.ValuationHeaderRow)
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectValuationReport(firstNonEmpty(extraction.Subject, email.Subject), extraction.Text, extraction.AttachmentNames)
	if err := s.db.ClearEmailObservations(email.ID); err != nil {
		return ProcessResult{}, err
	}

	if !detect.IsValuation {
		log.Info().Str("messageId", email.MessageID).Float64("score", detect.Score).Msg("mail skipped, not a valuation report")
		_ = s.db.UpdateEmailStatus(email.ID, "skipped")
		_ = s.db.InsertRun(traceID(), email.ID, map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}, map[string]int{"observations": 0})
		return ProcessResult{EmailID: email.ID, Processed: 0}, nil
	}

	if err := s.db.InsertObservations(email.ID, extraction.Observations); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.UpdateEmailStatus(email.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	_ = s.db.InsertRun(traceID(), email.ID, map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}, map[string]int{"observations": len(extraction.Observations)})

	log.Info().
		Str("messageId", email.MessageID).
		Int("observations", len(extraction.Observations)).
		Msg("valuation mail processed")

	return ProcessResult{EmailID: email.ID, Processed: len(extraction.Observations)}, nil
}

// BuildFromStore reconciles every stored observation against the stored
// catalog. The two fatal preconditions of a run apply here as well.
func (s *ProcessingService) BuildFromStore() ([]internal.ReportRow, error) {
	catalog, err := s.db.ListCatalog()
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("no catalog loaded, run catalog:load first")
	}
	valuations, err := s.db.ListObservations()
	if err != nil {
		return nil, err
	}
	if len(valuations) == 0 {
		return nil, fmt.Errorf("no valuation observations in store")
	}
	return Reconcile(valuations, catalog), nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
