package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/db"
)

var (
	historyBranch string
	historyLimit  int
)

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display recent posting history",
	Long: `Display the most recent posting outcomes and overall statistics.

Shows:
- Recent runs per branch and trading day with their status
- Total posted, empty and failed branch/days
- Last successful posting timestamp

Example:
  pos-journal history
  pos-journal history --branch PA1 --limit 50`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyBranch, "branch", "", "Only show this branch code")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of rows to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if err := cfg.Validate([]string{"storage", "dbPath"}); err != nil {
		exitOnError(err, "invalid configuration")
	}
	if historyLimit < 1 {
		exitOnError(fmt.Errorf("--limit must be at least 1, got %d", historyLimit), "invalid flag")
	}

	slog.Debug("Opening database", "path", cfg.Storage.DBPath)
	conn, err := db.Open(cfg.Storage.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewPostingHistory(conn)

	records, err := history.Recent(strings.ToUpper(historyBranch), historyLimit)
	exitOnError(err, "failed to get posting history")

	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Posting History ===")
	if len(records) == 0 {
		fmt.Println("(no postings recorded)")
	}
	for _, rec := range records {
		detail := rec.JournalID
		if rec.Error != "" {
			detail = rec.Error
		}
		fmt.Printf("%s  %-10s %-6s %-8s %3d lines %12s  %s\n",
			rec.RecordedAt.Format("2006-01-02 15:04"),
			rec.TradingDate,
			rec.BranchCode,
			rec.Status,
			rec.LineCount,
			rec.Total,
			detail,
		)
	}

	fmt.Println("\n=== Posting Statistics ===")
	fmt.Printf("Posted:      %d\n", stats.Posted)
	fmt.Printf("Empty:       %d\n", stats.Empty)
	fmt.Printf("Failed:      %d\n", stats.Failed)
	if stats.LastPost.Valid {
		fmt.Printf("Last posted: %s\n", stats.LastPost.String)
	} else {
		fmt.Printf("Last posted: (never)\n")
	}
	fmt.Println()
}
