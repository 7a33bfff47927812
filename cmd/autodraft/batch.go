package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"autodraft/internal/app"
	"autodraft/internal/usecase"
)

var batchCmd = &cobra.Command{
	Use:   "batch [prompt...]",
	Short: "Generate and publish several prompts in order",
	Long: `Batch processes prompts one at a time with a fixed delay between calls. A
failing prompt is reported and the batch continues. Prompts come from the
arguments or from --file (one prompt per line, "-" for stdin).`,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		prompts := append([]string(nil), args...)
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			lines, err := readPrompts(cmd, file)
			if err != nil {
				return err
			}
			prompts = append(prompts, lines...)
		}
		if len(prompts) == 0 {
			return errors.New("no prompts given")
		}
		personas, _ := cmd.Flags().GetString("personas")

		res := a.Pipeline.Run(cmd.Context(), usecase.BatchRequest{
			Prompts:     prompts,
			PersonaKeys: splitKeys(personas),
			Options:     publishOptions(cmd),
		})
		if err := printJSON(cmd, res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d succeeded, %d failed\n", res.SuccessCount(), res.FailureCount())
		return nil
	}),
}

func init() {
	batchCmd.Flags().String("file", "", "file with one prompt per line (- for stdin)")
	batchCmd.Flags().String("personas", "", "comma-separated persona keys by position (blank uses the default)")
	addPublishFlags(batchCmd.Flags())

	rootCmd.AddCommand(batchCmd)
}

func readPrompts(cmd *cobra.Command, path string) ([]string, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open prompts: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return out, nil
}

// splitKeys keeps blank positions so that "gpt1,,gpt2" uses the default for
// the second prompt.
func splitKeys(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

