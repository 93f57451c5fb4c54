// Package main runs a local stand-in for the Xero and Optomate APIs.
//
// Point XERO_TOKEN_URL at http://localhost:8080/connect/token,
// XERO_API_URL at http://localhost:8080/api.xro/2.0 and OPTOMATE_API_BASE
// at http://localhost:8080/optomate to run pos-journal against it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pigeonworks-llc/pos-journal-sync/internal/emulator"
)

const (
	defaultPort     = "8080"
	defaultDBPath   = "./data/emulator.db"
	defaultTenantID = "00000000-0000-0000-0000-000000000001"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	port := getEnvOrDefault("PORT", defaultPort)
	dbPath := getEnvOrDefault("EMULATOR_DB_PATH", defaultDBPath)

	st, err := emulator.OpenStore(dbPath)
	if err != nil {
		slog.Error("failed to initialize store", "error", err, "db_path", dbPath)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	slog.Info("database initialized", "db_path", dbPath)

	if fixtures := os.Getenv("EMULATOR_FIXTURES"); fixtures != "" {
		n, err := st.LoadFixtures(fixtures)
		if err != nil {
			slog.Error("failed to load fixtures", "error", err, "path", fixtures)
			os.Exit(1)
		}
		slog.Info("fixtures loaded", "path", fixtures, "records", n)
	}

	server := emulator.NewServer(st, emulator.Config{
		ClientID:         os.Getenv("EMULATOR_CLIENT_ID"),
		ClientSecret:     os.Getenv("EMULATOR_CLIENT_SECRET"),
		TenantID:         getEnvOrDefault("EMULATOR_TENANT_ID", defaultTenantID),
		OrganisationName: os.Getenv("EMULATOR_ORGANISATION"),
		OptomateUsername: os.Getenv("EMULATOR_OPTOMATE_USERNAME"),
		OptomatePassword: os.Getenv("EMULATOR_OPTOMATE_PASSWORD"),
	}, logger)

	if seed := os.Getenv("EMULATOR_REFRESH_TOKEN"); seed != "" {
		if err := server.Tokens().SeedRefreshToken(seed); err != nil {
			slog.Error("failed to seed refresh token", "error", err)
			os.Exit(1)
		}
		slog.Info("refresh token seeded")
	}

	addr := fmt.Sprintf(":%s", port)
	slog.Info("starting ledger emulator", "addr", addr, "port", port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
