package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/config"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/db"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/journal"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/optomate"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reconcile"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reference"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/tradingday"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/xero"
)

var (
	syncDate   string
	syncDryRun bool
	syncForce  bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync [branch]",
	Short: "Post one trading day's POS journals to Xero",
	Long: `Build and post the daily manual journal for one branch, or for
every configured branch when no branch code is given.

This command:
1. Computes the trading day window in TRADING_TIMEZONE
2. Fetches invoices and receipts from Optomate
3. Nets them by stock and payment type into journal lines
4. Posts one balanced manual journal per branch to Xero
5. Records the outcome in SQLite and, if ARCHIVE_ROOT is set,
   appends the journal to the Beancount archive

Branches already posted for the day are skipped unless --force is given.

Example:
  pos-journal sync
  pos-journal sync PA1 --date 2024-03-15
  pos-journal sync --dry-run`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncDate, "date", "", "Trading date (YYYY-MM-DD), default today in TRADING_TIMEZONE")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Build and print journals without posting")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Post even if the branch/day was already posted")
}

func runSync(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	required := [][]string{
		{"optomate", "apiBase"},
		{"storage", "dbPath"},
	}
	if !syncDryRun {
		required = append(required,
			[]string{"xero", "clientId"},
			[]string{"xero", "clientSecret"},
			[]string{"xero", "tenantId"},
		)
	}
	if err := cfg.Validate(required...); err != nil {
		exitOnError(err, "invalid configuration")
	}

	tables, err := reference.LoadOrDefault(cfg.Sync.ReferenceTables)
	exitOnError(err, "failed to load reference tables")

	branchCode := ""
	if len(args) > 0 {
		branchCode = args[0]
	}
	branches, err := tables.ResolveBranches(branchCode)
	exitOnError(err, "failed to resolve branch")

	window, err := resolveWindow(cfg.Sync.Timezone, syncDate)
	exitOnError(err, "failed to resolve trading day")

	slog.Info("Starting sync",
		"date", window.DateString(),
		"from", window.StartString(),
		"to", window.EndString(),
		"branches", len(branches),
		"dry_run", syncDryRun,
		"force", syncForce,
	)

	slog.Debug("Opening database", "path", cfg.Storage.DBPath)
	conn, err := db.Open(cfg.Storage.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	serviceCfg := reconcile.Config{
		Tables: tables,
		Fetcher: optomate.NewClient(optomate.ClientConfig{
			BaseURL:  cfg.Optomate.APIBase,
			Username: cfg.Optomate.Username,
			Password: cfg.Optomate.Password,
			Timeout:  30 * time.Second,
		}),
		History:     db.NewPostingHistory(conn),
		Concurrency: cfg.Sync.APIConcurrency,
	}

	if !syncDryRun {
		serviceCfg.Poster = xero.NewClient(xero.ClientConfig{
			APIURL:       cfg.Xero.APIURL,
			TokenURL:     cfg.Xero.TokenURL,
			ClientID:     cfg.Xero.ClientID,
			ClientSecret: cfg.Xero.ClientSecret,
			TenantID:     cfg.Xero.TenantID,
			Timeout:      30 * time.Second,
		}, db.NewTokenStore(conn))

		if cfg.Storage.ArchiveRoot != "" {
			archive, err := reconcile.NewArchive(cfg.Storage.ArchiveRoot, cfg.Storage.ArchiveAccounts)
			exitOnError(err, "failed to open archive")
			serviceCfg.Archive = archive
			slog.Debug("Archiving posted journals", "root", cfg.Storage.ArchiveRoot)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := reconcile.NewService(serviceCfg)
	summary, err := service.Run(ctx, window, branches, reconcile.RunOptions{
		DryRun: syncDryRun,
		Force:  syncForce,
	})
	if summary != nil {
		if syncDryRun {
			printJournals(summary)
		}
		printSummary(summary)
	}
	exitOnError(err, "sync failed")

	if failed := summary.Failed(); failed > 0 {
		exitOnError(fmt.Errorf("%d of %d branches failed", failed, len(summary.Results)), "sync finished with errors")
	}
}

// loadConfig loads the configuration and raises the log level when DEBUG
// is set in the environment.
func loadConfig() *config.Config {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if cfg.Debug && !debug {
		setupLogging(true)
	}
	return cfg
}

func resolveWindow(timezone, date string) (tradingday.Window, error) {
	loc, err := tradingday.LoadLocation(timezone)
	if err != nil {
		return tradingday.Window{}, err
	}
	if date == "" {
		return tradingday.Today(time.Now(), loc), nil
	}
	return tradingday.Parse(date, loc)
}

// printJournals writes each built journal as the document that would be posted.
func printJournals(summary *reconcile.Summary) {
	for _, result := range summary.Results {
		if result.Journal == nil {
			continue
		}

		doc := map[string][]*journal.ManualJournal{
			"ManualJournals": {result.Journal},
		}
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			slog.Error("Failed to encode journal", "branch", result.Branch.Code, "error", err)
			continue
		}

		fmt.Printf("[DRY RUN] %s (%s)\n", result.Branch.Name, result.Branch.Code)
		fmt.Println(string(out))
	}
}

func printSummary(summary *reconcile.Summary) {
	title := "Sync Summary"
	if summary.DryRun {
		title = "Sync Summary (dry run)"
	}

	fmt.Printf("\n=== %s ===\n", title)
	fmt.Printf("Trading date: %s\n", summary.Date)
	fmt.Printf("Run ID:       %s\n\n", summary.RunID)

	for _, result := range summary.Results {
		line := fmt.Sprintf("  %-6s %-24s %-15s", result.Branch.Code, result.Branch.Name, result.Outcome)
		switch {
		case result.Err != nil:
			line += " " + result.Err.Error()
		case result.Journal != nil:
			line += fmt.Sprintf(" %d lines, %s", len(result.Journal.Lines), journal.FormatAUD(result.Journal.Debits()))
			if result.JournalID != "" {
				line += " " + result.JournalID
			}
		}
		fmt.Println(line)

		for _, warning := range result.Warnings {
			fmt.Printf("         warning: %s\n", warning)
		}
		if result.ArchivePath != "" {
			fmt.Printf("         archived to %s\n", result.ArchivePath)
		}
	}

	fmt.Printf("\nSucceeded: %d  Failed: %d  Skipped: %d  Total: %s\n\n",
		summary.Succeeded(),
		summary.Failed(),
		summary.Skipped(),
		journal.FormatAUD(summary.Total()),
	)
}
