package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"autodraft/internal/content"
	"autodraft/internal/domain"
	"autodraft/internal/integrations/wordpress"
)

const (
	statusConnected   = "connected"
	statusUnavailable = "unavailable"
	statusFailed      = "failed"
)

// Publisher is the content-management backend.
type Publisher interface {
	BuildDocument(title, bodyHTML string, opts wordpress.DraftOptions) domain.PublishDocument
	Publish(ctx context.Context, doc domain.PublishDocument) (domain.PublishedPost, error)
	TestConnection(ctx context.Context) error
	ListDrafts(ctx context.Context, limit, offset int) ([]domain.DraftSummary, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Formatter turns generated markdown into publishable HTML.
type Formatter interface {
	Render(text string) string
}

// PublishOptions configure one generate-and-publish call.
type PublishOptions struct {
	Generate    GenerateOptions
	Status      string
	AuthorID    int
	CategoryIDs []int
	Tags        []string
}

// GenerateAndPublishResult is the outcome of a single generate-and-publish.
type GenerateAndPublishResult struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Excerpt     string `json:"excerpt"`
	PostID      int    `json:"post_id"`
	URL         string `json:"url"`
	EditURL     string `json:"edit_url"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	PersonaKey  string `json:"persona_key"`
	PersonaName string `json:"persona_name"`
	TokensUsed  int    `json:"tokens_used"`
}

// BatchRequest lists prompts with optional per-item persona keys.
type BatchRequest struct {
	Prompts     []string
	PersonaKeys []string
	Options     PublishOptions
}

// Connectivity reports backend availability.
type Connectivity struct {
	GenerationStatus string                           `json:"generation_status"`
	PublishingStatus string                           `json:"publishing_status"`
	PublishingError  string                           `json:"publishing_error,omitempty"`
	Personas         map[string]domain.PersonaSummary `json:"available_personas"`
	CheckedAt        time.Time                        `json:"checked_at"`
}

// Pipeline generates content, formats it and publishes drafts.
type Pipeline struct {
	gen       *Generator
	pub       Publisher
	formatter Formatter
	pacer     Waiter
	logger    *slog.Logger
	now       func() time.Time
}

type PipelineOption func(*Pipeline)

func WithFormatter(f Formatter) PipelineOption {
	return func(p *Pipeline) {
		if f != nil {
			p.formatter = f
		}
	}
}

func WithBatchPacer(w Waiter) PipelineOption {
	return func(p *Pipeline) {
		p.pacer = w
	}
}

func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPipeline(gen *Generator, pub Publisher, opts ...PipelineOption) (*Pipeline, error) {
	if gen == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if pub == nil {
		return nil, errors.New("usecase: publisher must not be nil")
	}
	p := &Pipeline{
		gen:       gen,
		pub:       pub,
		formatter: content.RendererBasic,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GenerateAndPublish runs one prompt end to end. Errors from either stage are
// returned as is.
func (p *Pipeline) GenerateAndPublish(ctx context.Context, prompt, personaKey string, opts PublishOptions) (GenerateAndPublishResult, error) {
	if strings.TrimSpace(personaKey) == "" {
		return GenerateAndPublishResult{}, domain.NewError(domain.ErrorInvalidInput, "empty_persona", nil)
	}
	res, err := p.gen.Generate(ctx, prompt, personaKey, opts.Generate)
	if err != nil {
		return GenerateAndPublishResult{}, err
	}

	doc := p.document(res, opts, nil)
	post, err := p.pub.Publish(ctx, doc)
	if err != nil {
		return GenerateAndPublishResult{}, err
	}

	return GenerateAndPublishResult{
		Title:       post.Title,
		Content:     doc.BodyHTML,
		Excerpt:     doc.Excerpt,
		PostID:      post.ID,
		URL:         post.URL,
		EditURL:     post.EditURL,
		Status:      post.Status,
		CreatedAt:   post.Timestamp,
		PersonaKey:  res.PersonaKey,
		PersonaName: res.PersonaName,
		TokensUsed:  res.TokenUsage,
	}, nil
}

// Run processes every prompt in input order and records exactly one outcome
// per prompt. It never returns an error: failures are outcomes.
func (p *Pipeline) Run(ctx context.Context, req BatchRequest) domain.BatchResult {
	result := domain.BatchResult{
		ID:       newUUID(),
		Outcomes: make([]domain.BatchItemOutcome, 0, len(req.Prompts)),
	}
	fallback := p.gen.DefaultPersona()

	for i, prompt := range req.Prompts {
		key := PersonaFor(req.PersonaKeys, i, fallback)
		result.Outcomes = append(result.Outcomes, p.runItem(ctx, result.ID, i, prompt, key, req.Options))
	}

	p.logger.Info("batch finished",
		"batch_id", result.ID,
		"total", result.Total(),
		"success_count", result.SuccessCount(),
		"failure_count", result.FailureCount(),
	)
	return result
}

// BatchGenerateAndPublish is Run with positional arguments.
func (p *Pipeline) BatchGenerateAndPublish(ctx context.Context, prompts, personaKeys []string, opts PublishOptions) domain.BatchResult {
	return p.Run(ctx, BatchRequest{Prompts: prompts, PersonaKeys: personaKeys, Options: opts})
}

func (p *Pipeline) runItem(ctx context.Context, batchID string, i int, prompt, key string, opts PublishOptions) domain.BatchItemOutcome {
	if err := ctx.Err(); err != nil {
		return domain.Failed(i, key, domain.StageCancelled, err)
	}
	if p.pacer != nil {
		if err := p.pacer.Wait(ctx); err != nil {
			return domain.Failed(i, key, domain.StageCancelled, err)
		}
	}

	res, err := p.gen.Generate(ctx, prompt, key, opts.Generate)
	if err != nil {
		p.logger.Warn("batch item generation failed", "batch_id", batchID, "index", i, "persona", key, "err", err)
		return domain.Failed(i, key, domain.StageGeneration, err)
	}

	doc := p.document(res, opts, map[string]any{
		"ai_batch_index": i,
		"ai_batch_id":    batchID,
	})
	post, err := p.pub.Publish(ctx, doc)
	if err != nil {
		p.logger.Warn("batch item publish failed", "batch_id", batchID, "index", i, "persona", key, "err", err)
		return domain.Failed(i, key, domain.StagePublish, err)
	}
	return domain.Succeeded(i, key, post, res.TokenUsage)
}

func (p *Pipeline) document(res domain.GenerationResult, opts PublishOptions, extra map[string]any) domain.PublishDocument {
	meta := map[string]any{
		"ai_persona_name": res.PersonaName,
		"ai_tokens_used":  res.TokenUsage,
	}
	for k, v := range extra {
		meta[k] = v
	}
	return p.pub.BuildDocument(
		content.ExtractTitle(res.Text),
		p.formatter.Render(res.Text),
		wordpress.DraftOptions{
			Status:         opts.Status,
			AuthorID:       opts.AuthorID,
			CategoryIDs:    opts.CategoryIDs,
			Tags:           opts.Tags,
			Excerpt:        content.GenerateExcerpt(res.Text, content.DefaultExcerptLength),
			Model:          res.Model,
			PersonaKey:     res.PersonaKey,
			OriginalPrompt: res.Prompt,
			Meta:           meta,
		},
	)
}

// DefaultPersona is the persona used when a request names none.
func (p *Pipeline) DefaultPersona() string {
	return p.gen.DefaultPersona()
}

// ListPersonas returns the enabled personas.
func (p *Pipeline) ListPersonas() map[string]domain.PersonaSummary {
	return p.gen.ListAvailablePersonas()
}

// TestConnectivity reports generation availability from configuration and
// probes the publishing backend.
func (p *Pipeline) TestConnectivity(ctx context.Context) Connectivity {
	personas := p.gen.ListAvailablePersonas()
	out := Connectivity{
		GenerationStatus: statusConnected,
		PublishingStatus: statusConnected,
		Personas:         personas,
		CheckedAt:        p.now().UTC(),
	}
	if len(personas) == 0 {
		out.GenerationStatus = statusUnavailable
	}
	if err := p.pub.TestConnection(ctx); err != nil {
		out.PublishingStatus = statusFailed
		out.PublishingError = err.Error()
	}
	return out
}

func (p *Pipeline) ListDrafts(ctx context.Context, limit, offset int) ([]domain.DraftSummary, error) {
	return p.pub.ListDrafts(ctx, limit, offset)
}

func (p *Pipeline) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return p.pub.ListCategories(ctx)
}

// CheckRateLimit exposes the generator's hourly ceiling check.
func (p *Pipeline) CheckRateLimit(ctx context.Context) error {
	return p.gen.CheckRateLimit(ctx)
}

var newUUID = defaultNewUUID

func defaultNewUUID() string {
	return uuid.NewString()
}
