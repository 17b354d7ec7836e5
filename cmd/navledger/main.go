package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"navledger/internal/config"
	"navledger/internal/connectors"
	gmailconnector "navledger/internal/connectors/gmail"
	imapconnector "navledger/internal/connectors/imap"
	"navledger/internal/ingest"
	"navledger/internal/listener"
	"navledger/internal/pipeline"
	"navledger/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "report":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", cfg.InputDir, "directory holding the catalog and valuation workbooks")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		out := *output
		if out == "" {
			out = filepath.Join(*input, "产品达标分析结果.xlsx")
		}

		catalogPath, valuationPaths, err := ingest.DiscoverWorkbooks(*input, cfg.CatalogFileMarker)
		must(err)
		catalog, err := ingest.ReadCatalog(catalogPath, cfg.CatalogSheet, cfg.CatalogHeaderRow)
		must(err)
		valuations, err := ingest.ReadValuations(valuationPaths, cfg.ValuationHeaderRow)
		must(err)

		rows := pipeline.Reconcile(valuations, catalog)
		must(pipeline.WriteReport(rows, out))
		fmt.Printf("report done rows=%d output=%s\n", len(rows), out)
	case "catalog:load":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "catalog workbook path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		catalog, err := ingest.ReadCatalog(*file, cfg.CatalogSheet, cfg.CatalogHeaderRow)
		must(err)
		db := openDB(cfg)
		defer db.Close()
		must(db.UpsertCatalog(catalog))
		fmt.Printf("catalog loaded products=%d\n", len(catalog))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d observations=%d\n", res.EmailID, res.Processed)
			return
		}
		processedEmails, processedRows, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d observations=%d\n", processedEmails, processedRows)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		db := openDB(cfg)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, cfg)
		rows, err := processor.BuildFromStore()
		must(err)
		must(pipeline.WriteReport(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "mail:listen":
		db := openDB(cfg)
		defer db.Close()
		s := listener.NewService(db, cfg)
		must(s.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func openDB(cfg config.Config) *storage.DB {
	db, err := storage.Open(cfg.DBPath)
	must(err)
	return db
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: navledger <command>")
	fmt.Println("commands:")
	fmt.Println("  report --input=DIR [--output=...xlsx]")
	fmt.Println("  catalog:load --file=...xlsx")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  export:xlsx --out=./out/report.xlsx")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
