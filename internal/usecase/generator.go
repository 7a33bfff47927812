package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"autodraft/internal/domain"
	"autodraft/internal/integrations/openai"
)

const (
	defaultModel       = "gpt-4"
	defaultMaxTokens   = 2000
	defaultTemperature = 0.7
	defaultPersonaKey  = "gpt1"
	promptPreviewRunes = 100
)

// Completer is the generation backend transport.
type Completer interface {
	Complete(ctx context.Context, in openai.CompletionRequest) (openai.Completion, error)
}

// RateChecker enforces the hourly generation ceiling.
type RateChecker interface {
	Check(ctx context.Context) error
}

// Waiter spaces sequential calls.
type Waiter interface {
	Wait(ctx context.Context) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// GenerationDefaults fill in options the caller leaves unset.
type GenerationDefaults struct {
	Model          string
	MaxTokens      int
	Temperature    float64
	DefaultPersona string
}

// GenerateOptions override the defaults for one call. A nil Temperature means
// "use the default" so that 0 stays expressible.
type GenerateOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

// GeneratedItem is one successful generation inside a batch.
type GeneratedItem struct {
	Index  int
	Result domain.GenerationResult
}

// ItemError is one failed generation inside a batch.
type ItemError struct {
	Index      int
	PersonaKey string
	Prompt     string
	Err        error
}

// BatchGeneration holds per-item results and errors, both in input order.
type BatchGeneration struct {
	Results []GeneratedItem
	Errors  []ItemError
}

// Generator turns prompts into generated text for a persona.
type Generator struct {
	personas *domain.PersonaCatalog
	llm      Completer
	limiter  RateChecker
	pacer    Waiter
	defaults GenerationDefaults
	logger   *slog.Logger
	now      func() time.Time
}

type GeneratorOption func(*Generator)

func WithRateLimiter(l RateChecker) GeneratorOption {
	return func(g *Generator) {
		g.limiter = l
	}
}

func WithPacer(p Waiter) GeneratorOption {
	return func(g *Generator) {
		g.pacer = p
	}
}

func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGenerator(personas *domain.PersonaCatalog, llm Completer, defaults GenerationDefaults, opts ...GeneratorOption) (*Generator, error) {
	if personas == nil {
		return nil, errors.New("usecase: persona catalog must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: completion client must not be nil")
	}
	if defaults.Model == "" {
		defaults.Model = defaultModel
	}
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = defaultMaxTokens
	}
	if defaults.DefaultPersona == "" {
		defaults.DefaultPersona = defaultPersonaKey
	}
	g := &Generator{
		personas: personas,
		llm:      llm,
		defaults: defaults,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate produces text for prompt with the persona named by personaKey.
// Persona validation happens before any network or rate-store call.
func (g *Generator) Generate(ctx context.Context, prompt, personaKey string, opts GenerateOptions) (domain.GenerationResult, error) {
	persona, err := g.persona(personaKey)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.GenerationResult{}, domain.NewError(domain.ErrorInvalidInput, "empty_prompt", nil)
	}
	if err := g.CheckRateLimit(ctx); err != nil {
		return domain.GenerationResult{}, err
	}

	req := g.request(persona, prompt, opts)
	completion, err := g.llm.Complete(ctx, openai.CompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages(),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		wrapped := classifyUpstream(err)
		g.logger.Error("content generation failed",
			"persona", persona.Key,
			"prompt", preview(prompt),
			"err", wrapped,
		)
		return domain.GenerationResult{}, wrapped
	}

	g.logger.Info("generated content",
		"persona", persona.Key,
		"prompt_length", len(prompt),
		"response_length", len(completion.Content),
		"tokens_used", completion.TotalTokens,
	)
	return domain.GenerationResult{
		Text:        completion.Content,
		TokenUsage:  completion.TotalTokens,
		PersonaKey:  persona.Key,
		PersonaName: persona.DisplayName,
		Model:       req.Model,
		Prompt:      prompt,
		GeneratedAt: g.now().UTC(),
	}, nil
}

// BatchGenerate generates each prompt in order. A failing item never stops
// the batch; cancellation turns the remaining items into errors.
func (g *Generator) BatchGenerate(ctx context.Context, prompts, personaKeys []string, opts GenerateOptions) BatchGeneration {
	out := BatchGeneration{
		Results: make([]GeneratedItem, 0, len(prompts)),
		Errors:  make([]ItemError, 0),
	}
	for i, prompt := range prompts {
		key := PersonaFor(personaKeys, i, g.defaults.DefaultPersona)
		if err := g.wait(ctx); err != nil {
			out.Errors = append(out.Errors, ItemError{Index: i, PersonaKey: key, Prompt: prompt, Err: err})
			continue
		}
		res, err := g.Generate(ctx, prompt, key, opts)
		if err != nil {
			out.Errors = append(out.Errors, ItemError{Index: i, PersonaKey: key, Prompt: prompt, Err: err})
			continue
		}
		out.Results = append(out.Results, GeneratedItem{Index: i, Result: res})
	}
	return out
}

// CheckRateLimit consumes one call from the current hour bucket.
func (g *Generator) CheckRateLimit(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Check(ctx)
}

// ListAvailablePersonas returns the enabled personas.
func (g *Generator) ListAvailablePersonas() map[string]domain.PersonaSummary {
	return g.personas.Enabled()
}

// DefaultPersona is the key used when a batch item names no persona.
func (g *Generator) DefaultPersona() string {
	return g.defaults.DefaultPersona
}

func (g *Generator) persona(key string) (domain.Persona, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = g.defaults.DefaultPersona
	}
	p, ok := g.personas.Lookup(key)
	if !ok {
		return domain.Persona{}, domain.ConfigurationError("unknown_persona", fmt.Errorf("persona %q is not configured", key))
	}
	if !p.Enabled {
		return domain.Persona{}, domain.ConfigurationError("persona_disabled", fmt.Errorf("persona %q is disabled", key))
	}
	return p, nil
}

func (g *Generator) request(p domain.Persona, prompt string, opts GenerateOptions) domain.GenerationRequest {
	req := domain.GenerationRequest{
		Persona:     p,
		UserPrompt:  prompt,
		Model:       strings.TrimSpace(opts.Model),
		MaxTokens:   opts.MaxTokens,
		Temperature: g.defaults.Temperature,
	}
	if req.Model == "" {
		req.Model = g.defaults.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.defaults.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	return req
}

func (g *Generator) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	if g.pacer == nil {
		return nil
	}
	if err := g.pacer.Wait(ctx); err != nil {
		return cancelled(err)
	}
	return nil
}

// PersonaFor returns personaKeys[i], or fallback when that entry is missing
// or blank.
func PersonaFor(personaKeys []string, i int, fallback string) string {
	if i < len(personaKeys) {
		if key := strings.TrimSpace(personaKeys[i]); key != "" {
			return key
		}
	}
	return fallback
}

func classifyUpstream(err error) error {
	if isTimeout(err) {
		return domain.UpstreamError("generation_timeout", err)
	}
	if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
		return domain.UpstreamError("openai_rate_limited", err)
	}
	return domain.UpstreamError("openai_error", err)
}

func cancelled(err error) error {
	return domain.NewError(domain.ErrorInternal, "cancelled", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= promptPreviewRunes {
		return s
	}
	return string(r[:promptPreviewRunes]) + "..."
}
