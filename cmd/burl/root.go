package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/burl/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "burl",
	Short: "burl is a parametric solid editor",
	Long: `burl edits boxes, cylinders and spheres through a geometry kernel.
The run command evaluates console scripts headlessly against a fresh session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $BURL_CONFIG or ~/.config/burl/config.toml)")
}

// loadConfig reads the --config flag and installs a stderr logger at the
// configured level.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	return cfg, logger, nil
}
