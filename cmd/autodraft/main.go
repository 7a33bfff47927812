// Package main is the autodraft operator CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"autodraft/internal/app"
	"autodraft/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "autodraft",
	Short: "Generate AI content and publish it as WordPress drafts",
	Long: `autodraft sends prompts to a chat-completion backend with a persona's system
prompt, converts the generated markdown to HTML and creates WordPress drafts.

Settings come from a .env file, the environment (OPENAI_API_KEY, WP_BASE_URL,
WP_USERNAME, WP_PASSWORD, ...) and an optional YAML file given with --config.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file (environment variables take precedence)")
}

// withApp loads configuration, wires the pipeline and runs fn.
func withApp(fn func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		logger, logCloser := app.NewLogger(cfg.Logging, os.Stderr)
		defer func() { _ = logCloser.Close() }()

		a, err := app.Build(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		return fn(cmd, args, a)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
