// Command accordd serves the maritime bargaining table: negotiation
// sessions, incident simulation, and calibration over HTTP.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/talgya/shoal-accord/internal/api"
	"github.com/talgya/shoal-accord/internal/incident"
	"github.com/talgya/shoal-accord/internal/scenario"
	"github.com/talgya/shoal-accord/internal/session"
	"github.com/talgya/shoal-accord/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Shoal Accord: maritime dispute bargaining table")

	scenarioPath := os.Getenv("ACCORD_SCENARIO")
	dbPath := envOr("ACCORD_DB", "data/accord.db")
	port := envInt("ACCORD_PORT", 8080)
	adminKey := os.Getenv("ACCORD_ADMIN_KEY")

	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		slog.Error("failed to load scenario", "path", scenarioPath, "error", err)
		os.Exit(1)
	}
	slog.Info("scenario loaded",
		"name", sc.Name,
		"case_id", sc.CaseID,
		"parties", len(sc.Parties),
		"weather", sc.Weather,
		"media_visibility", sc.MediaVisibility,
	)

	db, err := store.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// Tunable defaults start from the baseline config, or from the last
	// stored calibration when one exists.
	defaults := incident.NewDefaults(incident.DefaultConfig())
	if best, err := db.LatestCalibration(); err == nil {
		defaults.Set(best.Alpha, best.BaseP)
		slog.Info("restored calibrated defaults", "alpha", best.Alpha, "base_p", best.BaseP)
	}

	server := &api.Server{
		Registry: session.NewRegistry(),
		Scenario: sc,
		Defaults: defaults,
		DB:       db,
		Port:     port,
		AdminKey: adminKey,
	}
	server.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
