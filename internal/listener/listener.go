package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/phuslu/log"

	"navledger/internal/config"
	"navledger/internal/connectors"
	gmailconnector "navledger/internal/connectors/gmail"
	imapconnector "navledger/internal/connectors/imap"
	"navledger/internal/pipeline"
	"navledger/internal/storage"
)

// Service polls the report mailbox, extracts valuation observations from new
// mail, and keeps a current report workbook rebuilt from the store.
type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(); err != nil {
			log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle() error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg)
	processedEmails, processedRows, err := processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport && processedRows > 0 {
		rows, err := processor.BuildFromStore()
		if err != nil {
			return err
		}
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", fmt.Sprintf("report_%s.xlsx", time.Now().Format("20060102_150405")))
		if err := pipeline.WriteReport(rows, outputPath); err != nil {
			return err
		}
		log.Info().Str("output", outputPath).Int("rows", len(rows)).Msg("report rebuilt")
	}

	log.Info().
		Str("provider", provider).
		Int("fetched", fetchResult.Fetched).
		Int("stored", fetchResult.Stored).
		Int("emails", processedEmails).
		Int("observations", processedRows).
		Msg("listener cycle done")
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
