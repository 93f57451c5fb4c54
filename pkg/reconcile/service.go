// Package reconcile runs the daily POS-to-ledger reconciliation across
// branches: fetch, build, post, record.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/db"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/journal"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reference"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/tradingday"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/xero"
)

// Fetcher loads a branch's raw POS records for one trading day.
type Fetcher interface {
	FetchInvoices(ctx context.Context, branchCode string, w tradingday.Window) ([]journal.Record, error)
	FetchReceipts(ctx context.Context, branchCode string, w tradingday.Window) ([]journal.Record, error)
}

// Poster posts journals to the ledger.
type Poster interface {
	TestConnection(ctx context.Context) (*xero.Organisation, error)
	CreateManualJournal(ctx context.Context, mj *journal.ManualJournal) (*xero.CreatedJournal, error)
}

// History records outcomes and guards against posting a day twice.
type History interface {
	IsPosted(branchCode, tradingDate string) (bool, error)
	Record(rec db.PostingRecord) error
}

// Config holds the collaborators of a Service. Poster may be nil for
// dry runs; History and Archive are optional.
type Config struct {
	Tables      *reference.Tables
	Fetcher     Fetcher
	Poster      Poster
	History     History
	Archive     *Archive
	Logger      *slog.Logger
	Concurrency int // in-flight fetch calls across the run, default 2
}

// Service orchestrates reconciliation runs.
type Service struct {
	tables   *reference.Tables
	builder  *journal.Builder
	fetcher  Fetcher
	poster   Poster
	history  History
	archive  *Archive
	logger   *slog.Logger
	limit    int64
	newRunID func() string
}

// RunOptions controls one run.
type RunOptions struct {
	DryRun bool // build only, never post
	Force  bool // post even if the day was already posted
}

// NewService creates a new Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := int64(cfg.Concurrency)
	if limit < 1 {
		limit = 2
	}

	return &Service{
		tables:   cfg.Tables,
		builder:  journal.NewBuilder(cfg.Tables),
		fetcher:  cfg.Fetcher,
		poster:   cfg.Poster,
		history:  cfg.History,
		archive:  cfg.Archive,
		logger:   logger,
		limit:    limit,
		newRunID: uuid.NewString,
	}
}

// Run reconciles the given branches for one trading day. Branches are
// processed one after another; a failing branch is recorded and the run
// continues. The returned error is non-nil only when the run could not
// start at all.
func (s *Service) Run(ctx context.Context, w tradingday.Window, branches []reference.Branch, opts RunOptions) (*Summary, error) {
	if !opts.DryRun {
		if s.poster == nil {
			return nil, errors.New("no ledger client configured for a posting run")
		}
		org, err := s.poster.TestConnection(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ledger: %w", err)
		}
		s.logger.Info("connected to ledger", "organisation", org.Name)
	}

	summary := &Summary{
		RunID:  s.newRunID(),
		Date:   w.DateString(),
		DryRun: opts.DryRun,
	}
	sem := semaphore.NewWeighted(s.limit)

	s.logger.Info("starting run",
		"run_id", summary.RunID,
		"date", summary.Date,
		"branches", len(branches),
		"dry_run", opts.DryRun,
	)

	for _, branch := range branches {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}

		result := s.processBranch(ctx, sem, summary.RunID, w, branch, opts)
		s.record(summary.RunID, w, result)
		summary.Results = append(summary.Results, result)
	}

	s.logger.Info("run complete",
		"run_id", summary.RunID,
		"succeeded", summary.Succeeded(),
		"failed", summary.Failed(),
		"skipped", summary.Skipped(),
	)

	return summary, nil
}

func (s *Service) processBranch(ctx context.Context, sem *semaphore.Weighted, runID string, w tradingday.Window, branch reference.Branch, opts RunOptions) BranchResult {
	result := BranchResult{Branch: branch}
	logger := s.logger.With("branch", branch.Code, "date", w.DateString())

	if !opts.DryRun && !opts.Force && s.history != nil {
		posted, err := s.history.IsPosted(branch.Code, w.DateString())
		if err != nil {
			return result.fail(err)
		}
		if posted {
			logger.Info("already posted, skipping (use --force to post again)")
			result.Outcome = OutcomeAlreadyPosted
			return result
		}
	}

	invoices, receipts, err := s.fetch(ctx, sem, branch.Code, w)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return result.fail(err)
	}
	logger.Debug("fetched records", "invoices", len(invoices), "receipts", len(receipts))

	day := s.builder.BuildDaily(journal.DayInput{
		BranchName: branch.Name,
		Date:       w.Date,
		Invoices:   invoices,
		Receipts:   receipts,
	})
	result.Warnings = day.Warnings
	for _, warning := range day.Warnings {
		logger.Warn("unresolved reference", "kind", warning.Kind, "key", warning.Key, "net", warning.Net.String())
	}

	if day.Journal == nil {
		logger.Info("nothing to post")
		result.Outcome = OutcomeEmpty
		return result
	}
	result.Journal = day.Journal

	if opts.DryRun {
		result.Outcome = OutcomeDryRun
		logger.Info("dry run, journal not posted", "lines", len(day.Journal.Lines), "total", day.Journal.Debits().String())
		return result
	}

	created, err := s.poster.CreateManualJournal(ctx, day.Journal)
	if err != nil {
		logger.Error("post failed", "error", err)
		return result.fail(err)
	}
	result.Outcome = OutcomePosted
	result.JournalID = created.ManualJournalID
	logger.Info("journal posted", "journal_id", created.ManualJournalID, "lines", len(day.Journal.Lines))

	if s.archive != nil {
		path, err := s.archive.Append(runID, branch, result.JournalID, day.Journal)
		if err != nil {
			// The journal is already in the ledger; archive failures are reported only.
			logger.Warn("failed to archive journal", "error", err)
		} else {
			result.ArchivePath = path
		}
	}

	return result
}

// fetch loads invoices and receipts concurrently, bounded by the run-wide
// semaphore.
func (s *Service) fetch(ctx context.Context, sem *semaphore.Weighted, branchCode string, w tradingday.Window) ([]journal.Record, []journal.Record, error) {
	var invoices, receipts []journal.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		defer sem.Release(1)

		records, err := s.fetcher.FetchInvoices(gctx, branchCode, w)
		invoices = records
		return err
	})
	g.Go(func() error {
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		defer sem.Release(1)

		records, err := s.fetcher.FetchReceipts(gctx, branchCode, w)
		receipts = records
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return invoices, receipts, nil
}

func (s *Service) record(runID string, w tradingday.Window, result BranchResult) {
	if s.history == nil || result.Outcome == OutcomeAlreadyPosted {
		return
	}

	rec := db.PostingRecord{
		RunID:       runID,
		BranchCode:  result.Branch.Code,
		TradingDate: w.DateString(),
		Status:      result.Outcome.postingStatus(),
		JournalID:   result.JournalID,
	}
	if result.Journal != nil {
		rec.LineCount = len(result.Journal.Lines)
		rec.Total = result.Journal.Debits().String()
	}
	if result.Err != nil {
		rec.Error = result.Err.Error()
	}

	if err := s.history.Record(rec); err != nil {
		s.logger.Warn("failed to record posting history", "branch", result.Branch.Code, "error", err)
	}
}
