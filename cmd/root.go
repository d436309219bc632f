package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/app"
	"github.com/abhisek/lumen/internal/config"
	"github.com/abhisek/lumen/internal/logger"
	"github.com/abhisek/lumen/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "lumen",
	Short:         "Adaptive flashcards from your documents",
	Long:          "Lumen turns uploaded documents into concepts and Bloom-leveled flashcards, and tracks mastery as you study.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default $XDG_CONFIG_HOME/lumen/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LUMEN_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(ecosystemCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config and applies --db on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Database.Path = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the config file or LUMEN_DB env var, then the default XDG path.
func resolveDBPath(cfg *config.Config) (string, error) {
	if cfg.Database.Path != "" {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}

// openApp loads configuration and builds the full service graph.
func openApp(cmd *cobra.Command, opts app.Options) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Path, err = resolveDBPath(cfg); err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	opts.Config = cfg
	opts.Logger = log
	a, err := app.New(cmd.Context(), opts)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return a, nil
}

// openStore opens only the database, for commands that never call the
// generative service.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("close store", zap.Error(err))
	}
	_ = a.Logger.Sync()
}
