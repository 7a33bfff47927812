package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"autodraft/internal/domain"
	"autodraft/internal/usecase"
)

func addPublishFlags(fs *pflag.FlagSet) {
	fs.IntSlice("category", nil, "category ID (repeatable; default from config)")
	fs.String("tags", "", "comma-separated tag names")
	fs.String("status", "", "post status (default from config)")
	fs.Int("author", 0, "author ID (default from config)")
	fs.String("model", "", "model name (default from config)")
	fs.Int("max-tokens", 0, "max tokens (default from config)")
	fs.Float64("temperature", 0, "sampling temperature (default from config)")
}

func publishOptions(cmd *cobra.Command) usecase.PublishOptions {
	fs := cmd.Flags()
	cats, _ := fs.GetIntSlice("category")
	tags, _ := fs.GetString("tags")
	status, _ := fs.GetString("status")
	author, _ := fs.GetInt("author")
	model, _ := fs.GetString("model")
	maxTokens, _ := fs.GetInt("max-tokens")

	opts := usecase.PublishOptions{
		Generate: usecase.GenerateOptions{
			Model:     model,
			MaxTokens: maxTokens,
		},
		Status:      status,
		AuthorID:    author,
		CategoryIDs: cats,
		Tags:        domain.ParseTags(tags),
	}
	if fs.Changed("temperature") {
		t, _ := fs.GetFloat64("temperature")
		opts.Generate.Temperature = &t
	}
	return opts
}
