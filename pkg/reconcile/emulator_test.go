package reconcile

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigeonworks-llc/pos-journal-sync/internal/emulator"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/db"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/optomate"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reference"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/xero"
)

type emulatorEnv struct {
	server  *httptest.Server
	store   *emulator.Store
	tokens  *db.TokenStore
	history *db.PostingHistory
	archive string
}

func newEmulatorEnv(t *testing.T) *emulatorEnv {
	t.Helper()
	ctx := context.Background()

	st, err := emulator.OpenStore(filepath.Join(t.TempDir(), "emulator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.LoadFixtures(filepath.Join("..", "..", "internal", "emulator", "testdata", "fixtures.json"))
	require.NoError(t, err)

	srv := emulator.NewServer(st, emulator.Config{
		ClientID:         "client",
		ClientSecret:     "secret",
		TenantID:         "tenant-1",
		OptomateUsername: "api",
		OptomatePassword: "pw",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Tokens().SeedRefreshToken("seed"))

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	conn, err := db.Open(filepath.Join(t.TempDir(), "pos-journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	tokens := db.NewTokenStore(conn)
	require.NoError(t, tokens.SaveRefreshToken(ctx, "seed"))

	return &emulatorEnv{
		server:  ts,
		store:   st,
		tokens:  tokens,
		history: db.NewPostingHistory(conn),
		archive: t.TempDir(),
	}
}

// service builds a fresh set of clients, as a new process would.
func (e *emulatorEnv) service(t *testing.T) *Service {
	t.Helper()

	archive, err := NewArchive(e.archive, filepath.Join("..", "..", "config", "beancount-accounts.yaml"))
	require.NoError(t, err)

	return NewService(Config{
		Tables: reference.Default(),
		Fetcher: optomate.NewClient(optomate.ClientConfig{
			BaseURL:  e.server.URL + "/optomate",
			Username: "api",
			Password: "pw",
		}),
		Poster: xero.NewClient(xero.ClientConfig{
			APIURL:       e.server.URL + "/api.xro/2.0",
			TokenURL:     e.server.URL + "/connect/token",
			ClientID:     "client",
			ClientSecret: "secret",
			TenantID:     "tenant-1",
		}, e.tokens),
		History:     e.history,
		Archive:     archive,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Concurrency: 2,
	})
}

func TestRun_AgainstEmulator(t *testing.T) {
	env := newEmulatorEnv(t)
	ctx := context.Background()
	w := testWindow(t)
	branches := testBranches(t, "PA1", "BKT")

	summary, err := env.service(t).Run(ctx, w, branches, RunOptions{})
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	pa1, bkt := summary.Results[0], summary.Results[1]

	require.Equal(t, OutcomePosted, pa1.Outcome, "error: %v", pa1.Err)
	assert.NotEmpty(t, pa1.JournalID)
	assert.Equal(t, "666", pa1.Journal.Debits().String())
	assert.NotEmpty(t, pa1.ArchivePath)

	assert.Equal(t, OutcomeEmpty, bkt.Outcome)
	require.Len(t, bkt.Warnings, 1)
	assert.Equal(t, "99", bkt.Warnings[0].Key)

	journals, err := env.store.ListManualJournals("tenant-1")
	require.NoError(t, err)
	require.Len(t, journals, 1)

	mj := journals[0]
	assert.Equal(t, pa1.JournalID, mj.ManualJournalID)
	assert.Equal(t, "2024-07-15", mj.Date)

	type line struct{ desc, amount, account, tax string }
	var got []line
	for _, l := range mj.JournalLines {
		got = append(got, line{l.Description, l.LineAmount.String(), l.AccountCode, l.TaxType})
		assert.Equal(t, []emulator.Tracking{{Name: "Store", Option: "Parramatta"}}, l.Tracking)
	}
	assert.Equal(t, []line{
		{"Spectacle Frame", "-198", "40002", "OUTPUT"},
		{"Contact Lens", "-55", "40005", "OUTPUT"},
		{"POS Clearing", "253", "18011", "NONE"},
		{"Consultation Item", "-80", "82240", "EXEMPTOUTPUT"},
		{"POS Clearing", "80", "18011", "NONE"},
		{"Cash", "-33", "18000", "NONE"},
		{"EFTPOS - Visa", "-300", "18001", "NONE"},
		{"POS Clearing", "333", "18011", "NONE"},
	}, got)

	rotated, err := env.tokens.RefreshToken(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "seed", rotated, "rotated refresh token is persisted")

	// A second run with fresh clients redeems the rotated token and skips the posted day.
	again, err := env.service(t).Run(ctx, w, branches, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyPosted, again.Results[0].Outcome)
	assert.Equal(t, 2, again.Skipped())

	journals, err = env.store.ListManualJournals("tenant-1")
	require.NoError(t, err)
	assert.Len(t, journals, 1)

	stats, err := env.history.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Posted)
	assert.Equal(t, 2, stats.Empty)
	assert.Equal(t, 0, stats.Failed)

	recent, err := env.history.Recent("PA1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, pa1.JournalID, recent[0].JournalID)
	assert.Equal(t, 8, recent[0].LineCount)
	assert.Equal(t, "666", recent[0].Total)
}

func TestRun_AgainstEmulator_StaleRefreshToken(t *testing.T) {
	env := newEmulatorEnv(t)
	ctx := context.Background()
	require.NoError(t, env.tokens.SaveRefreshToken(ctx, "revoked"))

	_, err := env.service(t).Run(ctx, testWindow(t), testBranches(t, "PA1"), RunOptions{})
	require.Error(t, err)

	var apiErr *xero.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Hint(), "init-token")
}
