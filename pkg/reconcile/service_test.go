package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/db"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/journal"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reference"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/tradingday"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/xero"
)

type fakeFetcher struct {
	invoices map[string][]journal.Record
	receipts map[string][]journal.Record
	failFor  map[string]error
	delay    time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeFetcher) enter() func() {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeFetcher) FetchInvoices(ctx context.Context, branchCode string, w tradingday.Window) ([]journal.Record, error) {
	defer f.enter()()
	if err := f.failFor[branchCode]; err != nil {
		return nil, err
	}
	return f.invoices[branchCode], nil
}

func (f *fakeFetcher) FetchReceipts(ctx context.Context, branchCode string, w tradingday.Window) ([]journal.Record, error) {
	defer f.enter()()
	return f.receipts[branchCode], nil
}

type fakePoster struct {
	mu       sync.Mutex
	posted   []*journal.ManualJournal
	connErr  error
	postErr  error
	connects int
}

func (p *fakePoster) TestConnection(ctx context.Context) (*xero.Organisation, error) {
	p.connects++
	if p.connErr != nil {
		return nil, p.connErr
	}
	return &xero.Organisation{Name: "Demo Optical"}, nil
}

func (p *fakePoster) CreateManualJournal(ctx context.Context, mj *journal.ManualJournal) (*xero.CreatedJournal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.postErr != nil {
		return nil, p.postErr
	}
	p.posted = append(p.posted, mj)
	return &xero.CreatedJournal{ManualJournalID: "mj-" + mj.Lines[0].Branch, Status: "DRAFT"}, nil
}

type fakeHistory struct {
	posted  map[string]bool
	records []db.PostingRecord
}

func (h *fakeHistory) IsPosted(branchCode, tradingDate string) (bool, error) {
	return h.posted[branchCode+"/"+tradingDate], nil
}

func (h *fakeHistory) Record(rec db.PostingRecord) error {
	h.records = append(h.records, rec)
	return nil
}

func salesInvoice() journal.Record {
	return journal.Record{"ITEMS": []any{
		map[string]any{"STOCK_TYPE_ID": 2, "TOTAL": "110.00", "GST_AMOUNT": "10.00"},
	}}
}

func cashReceipt() journal.Record {
	return journal.Record{"RECEIPT_ITEMS": []any{
		map[string]any{"PAYMENT_TYPE_CODE": "CAS", "AMOUNT": "110.00"},
	}}
}

func testWindow(t *testing.T) tradingday.Window {
	t.Helper()
	loc, err := tradingday.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	w, err := tradingday.Parse("2024-07-15", loc)
	require.NoError(t, err)
	return w
}

func testBranches(t *testing.T, codes ...string) []reference.Branch {
	t.Helper()
	tables := reference.Default()
	var out []reference.Branch
	for _, code := range codes {
		b, ok := tables.Branch(code)
		require.True(t, ok, code)
		out = append(out, b)
	}
	return out
}

func newTestService(f Fetcher, p Poster, h History) *Service {
	svc := NewService(Config{
		Tables:  reference.Default(),
		Fetcher: f,
		Poster:  p,
		History: h,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	svc.newRunID = func() string { return "run-1" }
	return svc
}

func TestRun_PostsAndRecords(t *testing.T) {
	fetcher := &fakeFetcher{
		invoices: map[string][]journal.Record{"PA1": {salesInvoice()}},
		receipts: map[string][]journal.Record{"PA1": {cashReceipt()}},
	}
	poster := &fakePoster{}
	history := &fakeHistory{}

	summary, err := newTestService(fetcher, poster, history).
		Run(context.Background(), testWindow(t), testBranches(t, "PA1", "BKT"), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, poster.connects)
	require.Len(t, poster.posted, 1)
	assert.Equal(t, "2024-07-15", poster.posted[0].DateString())
	assert.True(t, poster.posted[0].Balance().IsZero())

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 1, summary.Succeeded())
	assert.Equal(t, 1, summary.Skipped())
	assert.Equal(t, 0, summary.Failed())
	assert.Equal(t, "220", summary.Total().String())

	require.Len(t, summary.Results, 2)
	assert.Equal(t, OutcomePosted, summary.Results[0].Outcome)
	assert.Equal(t, "mj-Parramatta", summary.Results[0].JournalID)
	assert.Equal(t, OutcomeEmpty, summary.Results[1].Outcome)

	require.Len(t, history.records, 2)
	assert.Equal(t, db.PostingRecord{
		RunID: "run-1", BranchCode: "PA1", TradingDate: "2024-07-15",
		Status: db.StatusPosted, JournalID: "mj-Parramatta", LineCount: 4, Total: "220",
	}, history.records[0])
	assert.Equal(t, db.StatusEmpty, history.records[1].Status)
}

func TestRun_DryRunDoesNotPost(t *testing.T) {
	fetcher := &fakeFetcher{
		invoices: map[string][]journal.Record{"PA1": {salesInvoice()}},
	}
	history := &fakeHistory{posted: map[string]bool{"PA1/2024-07-15": true}}

	summary, err := newTestService(fetcher, nil, history).
		Run(context.Background(), testWindow(t), testBranches(t, "PA1"), RunOptions{DryRun: true})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	result := summary.Results[0]
	assert.Equal(t, OutcomeDryRun, result.Outcome, "history guard does not apply to dry runs")
	require.NotNil(t, result.Journal)
	assert.Len(t, result.Journal.Lines, 2)
	assert.Empty(t, result.JournalID)

	require.Len(t, history.records, 1)
	assert.Equal(t, db.StatusDryRun, history.records[0].Status)
}

func TestRun_PostingRunRequiresPoster(t *testing.T) {
	_, err := newTestService(&fakeFetcher{}, nil, nil).
		Run(context.Background(), testWindow(t), testBranches(t, "PA1"), RunOptions{})
	require.Error(t, err)
}

func TestRun_ConnectionFailureAbortsRun(t *testing.T) {
	fetcher := &fakeFetcher{}
	poster := &fakePoster{connErr: &xero.APIError{Operation: "organisation lookup", StatusCode: 401}}

	_, err := newTestService(fetcher, poster, nil).
		Run(context.Background(), testWindow(t), testBranches(t, "PA1"), RunOptions{})
	require.Error(t, err)

	assert.True(t, xero.IsUnauthorized(err))
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestRun_AlreadyPostedIsSkippedUnlessForced(t *testing.T) {
	newFetcher := func() *fakeFetcher {
		return &fakeFetcher{invoices: map[string][]journal.Record{"PA1": {salesInvoice()}}}
	}

	t.Run("guarded", func(t *testing.T) {
		fetcher := newFetcher()
		poster := &fakePoster{}
		history := &fakeHistory{posted: map[string]bool{"PA1/2024-07-15": true}}

		summary, err := newTestService(fetcher, poster, history).
			Run(context.Background(), testWindow(t), testBranches(t, "PA1"), RunOptions{})
		require.NoError(t, err)

		assert.Equal(t, OutcomeAlreadyPosted, summary.Results[0].Outcome)
		assert.Equal(t, 1, summary.Skipped())
		assert.Empty(t, poster.posted)
		assert.Equal(t, int32(0), fetcher.calls.Load())
		assert.Empty(t, history.records)
	})

	t.Run("forced", func(t *testing.T) {
		poster := &fakePoster{}
		history := &fakeHistory{posted: map[string]bool{"PA1/2024-07-15": true}}

		summary, err := newTestService(newFetcher(), poster, history).
			Run(context.Background(), testWindow(t), testBranches(t, "PA1"), RunOptions{Force: true})
		require.NoError(t, err)

		assert.Equal(t, OutcomePosted, summary.Results[0].Outcome)
		assert.Len(t, poster.posted, 1)
	})
}

func TestRun_BranchFailureDoesNotAbort(t *testing.T) {
	fetcher := &fakeFetcher{
		invoices: map[string][]journal.Record{"BKT": {salesInvoice()}},
		failFor:  map[string]error{"PA1": errors.New("optomate unavailable")},
	}
	poster := &fakePoster{}
	history := &fakeHistory{}

	summary, err := newTestService(fetcher, poster, history).
		Run(context.Background(), testWindow(t), testBranches(t, "PA1", "BKT"), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, 1, summary.Succeeded())
	assert.EqualError(t, summary.Results[0].Err, "optomate unavailable")
	assert.Len(t, poster.posted, 1)

	require.Len(t, history.records, 2)
	assert.Equal(t, db.StatusFailed, history.records[0].Status)
	assert.Equal(t, "optomate unavailable", history.records[0].Error)
}

func TestRun_PostFailureIsRecorded(t *testing.T) {
	fetcher := &fakeFetcher{invoices: map[string][]journal.Record{"PA1": {salesInvoice()}}}
	poster := &fakePoster{postErr: &xero.APIError{Operation: "manual journal create", StatusCode: 403}}
	history := &fakeHistory{}

	summary, err := newTestService(fetcher, poster, history).
		Run(context.Background(), testWindow(t), testBranches(t, "PA1"), RunOptions{})
	require.NoError(t, err)

	result := summary.Results[0]
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.NotNil(t, result.Journal)

	require.Len(t, history.records, 1)
	assert.Equal(t, db.StatusFailed, history.records[0].Status)
	assert.Equal(t, 2, history.records[0].LineCount)
	assert.Contains(t, history.records[0].Error, "status 403")
	assert.Equal(t, "0", summary.Total().String())
}

func TestRun_WarningsAreReturned(t *testing.T) {
	fetcher := &fakeFetcher{
		invoices: map[string][]journal.Record{"PA1": {{"ITEMS": []any{
			map[string]any{"STOCK_TYPE_ID": 99, "TOTAL": "10", "GST_AMOUNT": "0"},
		}}}},
		receipts: map[string][]journal.Record{"PA1": {{"RECEIPT_ITEMS": []any{
			map[string]any{"PAYMENT_TYPE_CODE": "XXX", "AMOUNT": "10"},
		}}}},
	}

	summary, err := newTestService(fetcher, nil, nil).
		Run(context.Background(), testWindow(t), testBranches(t, "PA1"), RunOptions{DryRun: true})
	require.NoError(t, err)

	result := summary.Results[0]
	assert.Equal(t, OutcomeEmpty, result.Outcome)
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, journal.WarnUnknownStockType, result.Warnings[0].Kind)
	assert.Equal(t, journal.WarnUnknownPaymentType, result.Warnings[1].Kind)
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	tests := []struct {
		limit int
		max   int32
	}{
		{1, 1},
		{2, 2},
	}

	for _, tt := range tests {
		fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
		svc := NewService(Config{
			Tables:      reference.Default(),
			Fetcher:     fetcher,
			Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
			Concurrency: tt.limit,
		})

		_, err := svc.Run(context.Background(), testWindow(t), testBranches(t, "PA1", "BKT", "BON"), RunOptions{DryRun: true})
		require.NoError(t, err)

		assert.Equal(t, int32(6), fetcher.calls.Load())
		assert.LessOrEqual(t, fetcher.maxSeen.Load(), tt.max, "limit %d", tt.limit)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newTestService(&fakeFetcher{}, nil, nil).
		Run(ctx, testWindow(t), testBranches(t, "PA1"), RunOptions{DryRun: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, summary.Results)
}

func TestRun_ArchivesPostedJournals(t *testing.T) {
	archive, err := NewArchive(t.TempDir(), "")
	require.NoError(t, err)

	fetcher := &fakeFetcher{invoices: map[string][]journal.Record{"PA1": {salesInvoice()}}}
	svc := newTestService(fetcher, &fakePoster{}, nil)
	svc.archive = archive

	summary, err := svc.Run(context.Background(), testWindow(t), testBranches(t, "PA1"), RunOptions{})
	require.NoError(t, err)

	path := summary.Results[0].ArchivePath
	require.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "2024-07.beancount"))

	content, err := archive.repo.ReadMonthFile("2024-07")
	require.NoError(t, err)
	assert.Contains(t, content, `2024-07-15 * "Parramatta" "Daily Trading Sales and receipt" #pos-PA1 ^xero-mj-Parramatta`)
	assert.Contains(t, content, "Income:Sales:40002")
}
