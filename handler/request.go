package handler

import (
	"encoding/json"
	"errors"
	"strings"

	"autodraft/internal/domain"
	"autodraft/internal/usecase"
)

// tagList accepts either a comma-separated string or a JSON array.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = domain.ParseTags(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("tags must be a string or an array of strings")
	}
	*t = domain.ParseTags(strings.Join(list, ","))
	return nil
}

type publishFields struct {
	Category    *int     `json:"category"`
	Categories  []int    `json:"categories"`
	Tags        tagList  `json:"tags"`
	PostStatus  string   `json:"post_status"`
	Author      int      `json:"author"`
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
}

func (f publishFields) validate() error {
	if f.MaxTokens < 0 {
		return invalidInput("invalid_max_tokens", "max_tokens must not be negative")
	}
	if f.Temperature != nil && (*f.Temperature < 0 || *f.Temperature > 2) {
		return invalidInput("invalid_temperature", "temperature must be between 0 and 2")
	}
	return nil
}

func (f publishFields) publishOptions() usecase.PublishOptions {
	cats := append([]int(nil), f.Categories...)
	if f.Category != nil {
		cats = append([]int{*f.Category}, cats...)
	}
	return usecase.PublishOptions{
		Generate: usecase.GenerateOptions{
			Model:       f.Model,
			MaxTokens:   f.MaxTokens,
			Temperature: f.Temperature,
		},
		Status:      strings.TrimSpace(f.PostStatus),
		AuthorID:    f.Author,
		CategoryIDs: cats,
		Tags:        f.Tags,
	}
}

type generateRequest struct {
	Persona string `json:"persona"`
	Prompt  string `json:"prompt"`
	publishFields
}

func (r generateRequest) validate() error {
	if strings.TrimSpace(r.Persona) == "" {
		return invalidInput("missing_persona", "field 'persona' is required")
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return invalidInput("missing_prompt", "field 'prompt' is required")
	}
	return r.publishFields.validate()
}

type batchRequest struct {
	Prompts  []string `json:"prompts"`
	Personas []string `json:"personas"`
	publishFields
}

func (r batchRequest) validate() error {
	if len(r.Prompts) == 0 {
		return invalidInput("missing_prompts", "prompts array is required")
	}
	return r.publishFields.validate()
}

func decodeBody(body string, v any) error {
	if strings.TrimSpace(body) == "" {
		return invalidInput("empty_body", "request body is required")
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return domain.NewError(domain.ErrorInvalidInput, "invalid_json", err)
	}
	return nil
}

func invalidInput(reason, msg string) error {
	return domain.NewError(domain.ErrorInvalidInput, reason, errors.New(msg))
}
