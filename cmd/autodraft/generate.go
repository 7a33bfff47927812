package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"autodraft/internal/app"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate one article and create a draft",
	Long: `Generate sends the prompt with the chosen persona, formats the result and
creates a single WordPress draft. The prompt may be given as an argument or
with --prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		if len(args) == 1 {
			prompt = args[0]
		}
		if strings.TrimSpace(prompt) == "" {
			return errors.New("a prompt is required")
		}
		persona, _ := cmd.Flags().GetString("persona")
		persona = personaOrDefault(persona, a.Pipeline.DefaultPersona())

		out, err := a.Pipeline.GenerateAndPublish(cmd.Context(), prompt, persona, publishOptions(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	}),
}

func init() {
	generateCmd.Flags().String("prompt", "", "prompt text")
	generateCmd.Flags().String("persona", "", "persona key (default from personas.default)")
	addPublishFlags(generateCmd.Flags())

	rootCmd.AddCommand(generateCmd)
}

func personaOrDefault(flag, fallback string) string {
	if key := strings.TrimSpace(flag); key != "" {
		return key
	}
	return fallback
}
