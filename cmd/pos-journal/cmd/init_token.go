package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/db"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/xero"
)

var initTokenVerify bool

// initTokenCmd represents the init-token command.
var initTokenCmd = &cobra.Command{
	Use:   "init-token",
	Short: "Store the initial Xero refresh token",
	Long: `Store XERO_REFRESH_TOKEN in the local token store.

Xero rotates the refresh token on every use; after this command the
current token lives only in the database and the environment value is
no longer read.

Example:
  XERO_REFRESH_TOKEN=... pos-journal init-token
  pos-journal init-token --verify`,
	Run: runInitToken,
}

func init() {
	initTokenCmd.Flags().BoolVar(&initTokenVerify, "verify", false, "Exchange the token and look up the organisation")
}

func runInitToken(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	required := [][]string{
		{"xero", "refreshToken"},
		{"storage", "dbPath"},
	}
	if initTokenVerify {
		required = append(required,
			[]string{"xero", "clientId"},
			[]string{"xero", "clientSecret"},
			[]string{"xero", "tenantId"},
		)
	}
	if err := cfg.Validate(required...); err != nil {
		exitOnError(err, "invalid configuration")
	}

	slog.Debug("Opening database", "path", cfg.Storage.DBPath)
	conn, err := db.Open(cfg.Storage.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	store := db.NewTokenStore(conn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err = store.SaveRefreshToken(ctx, cfg.Xero.RefreshToken)
	exitOnError(err, "failed to store refresh token")
	slog.Info("Refresh token stored", "db_path", conn.GetPath())

	if !initTokenVerify {
		fmt.Println("Refresh token stored.")
		return
	}

	client := xero.NewClient(xero.ClientConfig{
		APIURL:       cfg.Xero.APIURL,
		TokenURL:     cfg.Xero.TokenURL,
		ClientID:     cfg.Xero.ClientID,
		ClientSecret: cfg.Xero.ClientSecret,
		TenantID:     cfg.Xero.TenantID,
		Timeout:      30 * time.Second,
	}, store)

	org, err := client.TestConnection(ctx)
	exitOnError(err, "failed to verify refresh token")

	fmt.Printf("Refresh token stored and verified for %s (%s).\n", org.Name, org.BaseCurrency)
}
