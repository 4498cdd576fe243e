package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pable/go-hltv-harvest/internal/archive"
	"github.com/pable/go-hltv-harvest/internal/browser"
	"github.com/pable/go-hltv-harvest/internal/config"
	"github.com/pable/go-hltv-harvest/internal/pipeline"
	"github.com/pable/go-hltv-harvest/internal/storage"
	"github.com/pable/go-hltv-harvest/internal/validate"
)

var (
	cfgPath string
	dbPath  string
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "hltvharvest",
	Short: "HLTV historical match-data harvester",
	Long: "Walk the HLTV results archive through a real browser, parse match\n" +
		"overview, map-stats, performance and economy pages, and store the\n" +
		"validated records in a local SQLite database.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ~/.hltvharvest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "raw page archive directory (overrides config)")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(mapstatsCmd)
	rootCmd.AddCommand(perfEconomyCmd)
	rootCmd.AddCommand(runAllCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(quarantineCmd)
	rootCmd.AddCommand(showCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Paths.DBPath = dbPath
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func openStore(cfg *config.Config) (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(cfg.Paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// harness bundles everything a scraping stage needs. Read-only commands
// (status, quarantine, show) open the store directly instead.
type harness struct {
	cfg       *config.Config
	log       zerolog.Logger
	db        *storage.DB
	transport *browser.Transport
	pipe      *pipeline.Pipeline
}

func openHarness(ctx context.Context) (*harness, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.Logging)

	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	arc, err := archive.New(cfg.Paths.DataDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}

	transport := browser.New(cfg.Timing, cfg.Fetch, log)
	if err := transport.Start(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	check := validate.New(db, log)
	pipe := pipeline.New(transport, db, arc, check, cfg.Pipeline, log)

	return &harness{
		cfg:       cfg,
		log:       log,
		db:        db,
		transport: transport,
		pipe:      pipe,
	}, nil
}

func (h *harness) Close() {
	if err := h.transport.Close(); err != nil {
		h.log.Warn().Err(err).Msg("close browser")
	}
	if err := h.db.Close(); err != nil {
		h.log.Warn().Err(err).Msg("close storage")
	}
}

// reportStage logs the stage counters together with the transport totals.
func (h *harness) reportStage(stage string, s *pipeline.Stats) {
	ts := h.transport.Stats()
	h.log.Info().
		Str("stage", stage).
		Int("fetched", s.Fetched).
		Int("persisted", s.Persisted).
		Int("skipped", s.Skipped).
		Int("failed", s.Failed).
		Int("fetch_errors", s.FetchErrors).
		Uint64("requests", ts.Requests).
		Uint64("successes", ts.Successes).
		Dur("current_delay", ts.CurrentDelay).
		Msg("stage finished")
}
