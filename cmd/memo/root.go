package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/cliconfig"
	"github.com/sakif/memopad/internal/client"
	"github.com/sakif/memopad/internal/editor"
	"github.com/sakif/memopad/internal/localstore"
	"github.com/sakif/memopad/internal/model"
)

var (
	verbose    bool
	configPath string
	serverURL  string
	localMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "memo",
	Short: "Write, render and sync markdown memos",
	Long: `memo keeps markdown memos on a memopad server, or in a local SQLite
file with --local. Sign in once with 'memo login' and 'memo verify'.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", cliconfig.DefaultPath(), "Config file")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Memo server URL (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&localMode, "local", false, "Use the local database instead of a server")
}

// memoStore is what the memo commands need from either backend.
type memoStore interface {
	editor.Persistence
	Search(ctx context.Context, query string) ([]model.Memo, error)
	Get(ctx context.Context, id string) (*model.Memo, error)
	RenderHTML(ctx context.Context, id string) (string, error)
}

var (
	_ memoStore = (*client.Client)(nil)
	_ memoStore = (*localstore.Store)(nil)
)

func loadConfig() cliconfig.Config {
	cfg, err := cliconfig.Load(configPath)
	if err != nil {
		fatal("Error loading config", err)
	}
	if serverURL != "" {
		cfg.Server = serverURL
	}
	return cfg
}

func newClient(cfg cliconfig.Config) *client.Client {
	return client.New(cfg.Server,
		client.WithToken(cfg.Token),
		client.WithLogger(slog.Default()),
	)
}

func openLocal(ctx context.Context, cfg cliconfig.Config) *localstore.Store {
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		fatal("Error creating data directory", err)
	}
	st, err := localstore.Open(ctx, cfg.Database, cfg.User, slog.Default())
	if err != nil {
		fatal("Error opening local database", err)
	}
	slog.Debug("using local database", slog.String("path", cfg.Database), slog.String("user", st.User().Login))
	return st
}

// openStore returns the backend picked by --local. The returned func
// releases it.
func openStore(ctx context.Context, cfg cliconfig.Config) (memoStore, func()) {
	if localMode {
		st := openLocal(ctx, cfg)
		return st, func() { st.Close() }
	}
	if cfg.Token == "" {
		fatal("Not signed in", errors.New("run 'memo login <email>' first, or pass --local"))
	}
	return newClient(cfg), func() {}
}
