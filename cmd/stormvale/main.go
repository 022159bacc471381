package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stormvale/server/internal/config"
	"github.com/stormvale/server/internal/core/event"
	coresys "github.com/stormvale/server/internal/core/system"
	"github.com/stormvale/server/internal/data"
	"github.com/stormvale/server/internal/persist"
	"github.com/stormvale/server/internal/scripting"
	"github.com/stormvale/server/internal/system"
	"github.com/stormvale/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           Stormvale  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      world object lifecycle server        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("STORMVALE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("postgres connected")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	// 4. Create repositories
	spawnRepo := persist.NewSpawnRepo(db)
	respawnRepo := persist.NewRespawnRepo(db)
	useLogRepo := persist.NewUseLogRepo(db)

	purged, err := respawnRepo.PurgeElapsed(ctx)
	if err != nil {
		return fmt.Errorf("purge respawn journal: %w", err)
	}
	if purged > 0 {
		log.Info("stale respawn journal rows purged", zap.Int64("rows", purged))
	}

	// 5. Load immutable data tables
	printSection("data")

	tables, err := data.LoadObjectTable(filepath.Join(cfg.World.DataDir, "object_list.yaml"))
	if err != nil {
		return fmt.Errorf("load object table: %w", err)
	}
	if err := tables.LoadAddons(filepath.Join(cfg.World.DataDir, "object_addons.yaml")); err != nil {
		return fmt.Errorf("load object addons: %w", err)
	}
	printStat("object templates", tables.Count())

	// 6. Initialize Lua scripting engine
	luaEngine, err := scripting.NewEngine(cfg.World.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("lua scripts loaded")

	// 7. Build the map, wire collaborators, materialize spawns
	bus := event.NewBus()
	m := world.NewMap(int32(cfg.Server.ID), tables, log)
	m.Store = spawnRepo
	m.Journal = respawnRepo
	m.Bus = bus
	m.AIFactory = luaEngine.Factory()
	m.Respawn = cfg.Respawn

	if err := m.LoadSpawns(ctx); err != nil {
		return fmt.Errorf("load spawns: %w", err)
	}
	printStat("objects resident", m.ObjectCount())
	fmt.Println()

	// 8. Create systems and register with runner
	runner := coresys.NewRunner()
	runner.Register(system.NewDispatchSystem(bus))
	runner.Register(system.NewObjectUpdateSystem(m))
	runner.Register(system.NewObjectRespawnSystem(m, log))
	persistSys := system.NewPersistenceSystem(m, useLogRepo, bus, log, cfg.World.SaveInterval)
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(m))

	// 9. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.World.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.World.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.World.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			// final save regardless of dirty flags
			persistSys.SaveAll(false)
			log.Info("server stopped")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
