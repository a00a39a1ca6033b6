package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignite/visitor-insights/internal/app"
	"github.com/ignite/visitor-insights/internal/config"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:          "visitorctl",
	Short:        "Visitor engagement insights",
	Long:         "visitorctl classifies website visitors by engagement, normalizes spreadsheet exports and summarizes the configured visitor source.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetOutput(cmd.ErrOrStderr())
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config (defaults and environment are used when empty)")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(askCmd)
}

// loadConfig reads --config, falling back to defaults plus environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if _, err := os.Stat("config/config.yaml"); err == nil {
			path = "config/config.yaml"
		}
	}
	return config.LoadFromEnv(path)
}

// openApp loads config and connects the configured backends.
func openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
