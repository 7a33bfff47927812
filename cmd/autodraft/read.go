package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"autodraft/internal/app"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the enabled personas",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		personas := a.Pipeline.ListPersonas()
		keys := make([]string, 0, len(personas))
		for k := range personas {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s - %s\n", k, personas[k].Name, personas[k].Description)
		}
		return nil
	}),
}

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check generation configuration and WordPress reachability",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		res := a.Pipeline.TestConnectivity(cmd.Context())
		if err := printJSON(cmd, res); err != nil {
			return err
		}
		if res.PublishingStatus != "connected" || res.GenerationStatus != "connected" {
			return fmt.Errorf("connection test failed")
		}
		return nil
	}),
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List recent drafts",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		drafts, err := a.Pipeline.ListDrafts(cmd.Context(), limit, offset)
		if err != nil {
			return err
		}
		return printJSON(cmd, drafts)
	}),
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List WordPress categories",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		cats, err := a.Pipeline.ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, cats)
	}),
}

var rateStatusCmd = &cobra.Command{
	Use:   "rate-status",
	Short: "Show generation calls used in the current hour",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		state, err := a.Limiter.Current(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"bucket":     state.BucketKey,
			"used":       state.Count,
			"limit":      a.Limiter.Ceiling(),
			"expires_at": state.ExpiresAt,
		})
	}),
}

func init() {
	draftsCmd.Flags().Int("limit", 10, "number of drafts")
	draftsCmd.Flags().Int("offset", 0, "drafts to skip")

	rootCmd.AddCommand(personasCmd, testConnectionCmd, draftsCmd, categoriesCmd, rateStatusCmd)
}
