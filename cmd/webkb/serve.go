package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the crawler, bulk fetcher and importer over HTTP",
		Long: `Serve starts the HTTP control surface.

Generated knowledge bases are also written to the output directory, and
every crawl is stored in the history database so /debug/last-run survives
restarts.

Examples:
  # Listen on the default address
  webkb serve

  # Listen on localhost only and keep outputs in ./outputs
  webkb serve --listen 127.0.0.1:8080 --output-dir outputs`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr, "Listen address")
	cmd.Flags().String("output-dir", config.DefaultOutputDir(), "Directory receiving generated knowledge bases (empty: disabled)")
	cmd.Flags().StringP("config", "c", "", "Configuration file (default: .webkb.yaml in current or home directory)")
	cmd.Flags().Bool("no-history", false, "Do not store runs in the history database")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	fs := cmd.Flags()

	configPath, err := fs.GetString("config")
	if err != nil {
		return err
	}
	if err := loadConfigFile(cfg, configPath); err != nil {
		return err
	}
	if cfg.ListenAddr, err = fs.GetString("listen"); err != nil {
		return err
	}
	if cfg.OutputDir, err = fs.GetString("output-dir"); err != nil {
		return err
	}
	noHistory, err := fs.GetBool("no-history")
	if err != nil {
		return err
	}
	if !noHistory {
		cfg.DBDir = config.XDGDataDir()
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithOutputDir(cfg.OutputDir),
		server.WithVersion(server.VersionInfo{
			App:       server.AppName,
			GitSHA:    getCommit(),
			BuildTime: getDate(),
		}),
	}
	history, err := openHistory(cfg.DBDir)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
		opts = append(opts, server.WithHistory(history))
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "webkb listening on %s\n", cfg.ListenAddr)
	return server.New(cfg, opts...).ListenAndServe(ctx, cfg.ListenAddr)
}
