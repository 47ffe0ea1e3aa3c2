package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"filaflow/internal/colors"
	"filaflow/internal/config"
	"filaflow/internal/connectors"
	gmailconnector "filaflow/internal/connectors/gmail"
	imapconnector "filaflow/internal/connectors/imap"
	"filaflow/internal/inventory"
	"filaflow/internal/invoice"
	"filaflow/internal/labels"
	"filaflow/internal/listener"
	"filaflow/internal/pipeline"
	"filaflow/internal/reconcile"
	"filaflow/internal/server"
	"filaflow/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx := context.Background()

	cmd := os.Args[1]
	switch cmd {
	case "invoice:parse":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path or raw text")
		inType := fs.String("type", "text", "text|html|pdf|email")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		items, err := invoice.ExtractFromInput(*inType, readInputMaybeFile(*inType, *input))
		must(err)
		for _, item := range items {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\t%.0fg\t%s\n",
				item.LineNo, item.SKU, item.ArticleNumber, item.Material, item.ColorName, item.NetWeightGrams, item.UnitPrice.StringFixed(2))
		}
		fmt.Printf("parsed %d line(s)\n", len(items))
	case "invoice:reconcile":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path or raw text")
		inType := fs.String("type", "text", "text|html|pdf|email")
		applyPrices := fs.Bool("apply-prices", false, "update catalog prices from matched lines")
		addMissing := fs.Bool("add-missing", false, "create filaments and spools for unmatched lines")
		out := fs.String("out", "", "optional output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		items, err := invoice.ExtractFromInput(*inType, readInputMaybeFile(*inType, *input))
		must(err)

		engine := reconcile.NewEngine(db)
		sess := reconcile.NewSession()
		rows, err := engine.Run(ctx, items, sess, reconcile.Options{
			ApplyPrices:  *applyPrices,
			AddUnmatched: *addMissing,
		}, colors.Resolve)
		must(err)

		counts := map[string]int{}
		for _, row := range rows {
			counts[string(row.Action)]++
			fmt.Printf("%d\t%s\t%s\t%s\n", row.LineNo, row.ArticleNumber, row.Action, row.ColorName)
		}
		fmt.Printf("reconcile done session=%s lines=%d matched=%d updated=%d added=%d unmatched=%d failed=%d\n",
			sess.ID, len(rows), counts["MATCHED"], counts["PRICE_UPDATED"], counts["ADDED"], counts["UNMATCHED"], counts["FAILED"])

		if strings.TrimSpace(*out) != "" {
			must(pipeline.ReportToXLSX(rows, *out))
			fmt.Printf("exported %d rows to %s\n", len(rows), *out)
		}
	case "inventory:summary":
		spools, err := db.ListSpoolDetails(ctx)
		must(err)
		filaments, err := db.ListFilaments(ctx)
		must(err)
		vendors, err := db.ListVendors(ctx)
		must(err)

		s := inventory.Summarize(spools, len(filaments), len(vendors))
		fmt.Printf("spools=%d filaments=%d vendors=%d remaining=%.0fg value=%s\n",
			s.SpoolCount, s.FilamentCount, s.VendorCount, s.TotalRemainingGrams, s.TotalValue.StringFixed(2))
		for _, group := range s.Groups {
			fmt.Printf("  %s: %d spool(s)\n", group.Material, len(group.Spools))
		}
		for _, sp := range s.LowStock {
			fmt.Printf("  low stock: #%d %s %s (%d%%)\n", sp.ID, sp.Filament.Material, sp.Filament.Name, inventory.StockPercent(sp.Spool))
		}
		for _, sp := range s.Unverified {
			fmt.Printf("  pending scan: #%d %s %s\n", sp.ID, sp.Filament.Material, sp.Filament.Name)
		}
	case "spool:verify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "spool id")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 {
			must(fmt.Errorf("--id is required"))
		}
		changed, err := inventory.ConfirmVerified(ctx, db, *id)
		must(err)
		if changed {
			fmt.Printf("spool %d verified\n", *id)
		} else {
			fmt.Printf("spool %d was already verified\n", *id)
		}
	case "labels:pdf":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output pdf path")
		unverifiedOnly := fs.Bool("unverified-only", false, "only spools pending scan")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		spools, err := db.ListSpoolDetails(ctx)
		must(err)
		if *unverifiedOnly {
			kept := spools[:0]
			for _, sp := range spools {
				if inventory.IsUnverified(sp.Spool) {
					kept = append(kept, sp)
				}
			}
			spools = kept
		}
		if len(spools) == 0 {
			must(fmt.Errorf("no spools to print"))
		}
		blob, err := labels.GenerateSpoolLabelsPDF(spools, labels.DefaultSheetConfig(cfg.LabelCols, cfg.LabelRows))
		must(err)
		must(os.WriteFile(*out, blob, 0o644))
		fmt.Printf("wrote %d label(s) to %s\n", len(spools), *out)
	case "vendor:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "vendor name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*name) == "" {
			must(fmt.Errorf("--name is required"))
		}
		vendor, err := db.CreateVendor(ctx, strings.TrimSpace(*name))
		must(err)
		fmt.Printf("vendor created id=%d name=%s\n", vendor.ID, vendor.Name)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(ctx, *provider, *messageID)
			must(err)
			fmt.Printf("processed invoice id=%d skipped=%t lines=%d\n", res.InvoiceID, res.Skipped, len(res.Rows))
			return
		}
		results, err := processor.ProcessPending(ctx, *batch, *provider)
		must(err)
		lines := 0
		for _, res := range results {
			lines += len(res.Rows)
		}
		fmt.Printf("processed pending invoices=%d lines=%d\n", len(results), lines)
	case "mail:listen":
		s := listener.NewService(db, cfg)
		must(s.Run(ctx))
	case "serve":
		must(server.New(db, cfg).ListenAndServe())
	default:
		usage()
		os.Exit(1)
	}
}

// readInputMaybeFile lets text and html inputs come either from a file or
// pasted straight onto the command line. File-based types pass through as
// paths.
func readInputMaybeFile(inType, input string) string {
	if inType != "text" && inType != "html" {
		return input
	}
	if blob, err := os.ReadFile(input); err == nil {
		return string(blob)
	}
	return input
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
	fmt.Println("usage: filaflow <command>")
	fmt.Println("commands:")
	fmt.Println("  invoice:parse --input=... [--type=text|html|pdf|email]")
	fmt.Println("  invoice:reconcile --input=... [--type=...] [--apply-prices] [--add-missing] [--out=report.xlsx]")
	fmt.Println("  inventory:summary")
	fmt.Println("  spool:verify --id=1")
	fmt.Println("  labels:pdf --out=labels.pdf [--unverified-only]")
	fmt.Println("  vendor:add --name=...")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  serve")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
