// Command citysim runs the Blockrow city economy simulation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/blockrow/internal/api"
	"github.com/talgya/blockrow/internal/engine"
	"github.com/talgya/blockrow/internal/persistence"
	"github.com/talgya/blockrow/internal/rules"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Blockrow — multi-agent city economy")

	seed := envOr("CITYSIM_SEED", "blockrow-1")
	dbPath := envOr("CITYSIM_DB", "data/blockrow.db")
	apiPort := envIntOr("CITYSIM_PORT", 8080)
	tickMs := envIntOr("CITYSIM_TICK_MS", 1000)
	districts := envIntOr("CITYSIM_DISTRICTS", 8)
	rulesPath := os.Getenv("CITYSIM_RULES")

	// ── Rules ─────────────────────────────────────────────────────────
	var (
		r   *rules.Rules
		err error
	)
	if rulesPath != "" {
		r, err = rules.Load(rulesPath)
		if err != nil {
			slog.Error("failed to load rules", "path", rulesPath, "error", err)
			os.Exit(1)
		}
		slog.Info("rules loaded", "path", rulesPath)
	} else {
		r = rules.Default()
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(dbPath), 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Load or Generate World ────────────────────────────────────────
	w, err := db.LoadWorld()
	if err != nil {
		slog.Error("failed to restore world", "error", err)
		os.Exit(1)
	}
	if w == nil {
		slog.Info("no saved world, generating", "seed", seed, "districts", districts)
		w = engine.NewWorld(seed, r, districts)
	}

	eng := engine.NewEngine(w, r, db)

	idem, err := db.LoadIdempotency()
	if err != nil {
		slog.Error("failed to restore idempotency ledger", "error", err)
		os.Exit(1)
	}
	eng.RestoreIdempotency(idem)

	// ── NPCs and Clock ────────────────────────────────────────────────
	npcs := engine.NewNPCPool(eng, r.NPCCount)
	clock := engine.NewClock(eng, npcs, time.Duration(tickMs)*time.Millisecond)

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("CITYSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("CITYSIM_ADMIN_KEY not set, admin POST endpoints disabled")
	}

	hub := api.NewHub()
	eng.SetSink(hub.Publish)

	apiServer := &api.Server{
		Eng:      eng,
		Clock:    clock,
		DB:       db,
		Hub:      hub,
		Port:     apiPort,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Run ───────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	clock.Start(ctx)

	var startTick uint64
	eng.View(func(world *engine.World) { startTick = world.Tick })
	fmt.Printf("\nBlockrow is open for business at tick %d.\n", startTick)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Running... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	cancel()
	clock.Stop()

	fmt.Println("Simulation stopped. World state saved.")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
