package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"autodraft/internal/domain"
	"autodraft/internal/integrations/openai"
	"autodraft/internal/integrations/wordpress"
)

type fakeCompleter struct {
	mu       sync.Mutex
	requests []openai.CompletionRequest
	replies  map[string]string
	errs     map[string]error
	tokens   int
}

func (f *fakeCompleter) Complete(_ context.Context, in openai.CompletionRequest) (openai.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, in)
	prompt := in.Messages[len(in.Messages)-1].Content
	if err, ok := f.errs[prompt]; ok {
		return openai.Completion{}, err
	}
	text, ok := f.replies[prompt]
	if !ok {
		text = "# " + prompt + "\nGenerated body for " + prompt + "."
	}
	return openai.Completion{Content: text, TotalTokens: f.tokens}, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeLimiter struct {
	calls int
	err   error
}

func (f *fakeLimiter) Check(context.Context) error {
	f.calls++
	return f.err
}

type fakePublisher struct {
	nextID   int
	docs     []domain.PublishDocument
	failFor  map[string]error
	connErr  error
	drafts   []domain.DraftSummary
	cats     []domain.Category
	listArgs [2]int
}

func (f *fakePublisher) BuildDocument(title, bodyHTML string, opts wordpress.DraftOptions) domain.PublishDocument {
	meta := map[string]any{
		"ai_generated":    true,
		"ai_model":        opts.Model,
		"ai_persona":      opts.PersonaKey,
		"original_prompt": opts.OriginalPrompt,
	}
	for k, v := range opts.Meta {
		meta[k] = v
	}
	status := opts.Status
	if status == "" {
		status = "draft"
	}
	return domain.PublishDocument{
		Title:       title,
		BodyHTML:    bodyHTML,
		Excerpt:     opts.Excerpt,
		Status:      status,
		AuthorID:    opts.AuthorID,
		CategoryIDs: domain.UniqueIDs(opts.CategoryIDs),
		TagNames:    opts.Tags,
		Metadata:    meta,
	}
}

func (f *fakePublisher) Publish(_ context.Context, doc domain.PublishDocument) (domain.PublishedPost, error) {
	if err, ok := f.failFor[doc.Title]; ok {
		return domain.PublishedPost{}, err
	}
	f.docs = append(f.docs, doc)
	f.nextID++
	id := 100 + f.nextID
	return domain.PublishedPost{
		ID:        id,
		Title:     doc.Title,
		URL:       "https://blog.example/?p=" + doc.Title,
		EditURL:   "https://blog.example/wp-admin/post.php?action=edit",
		Status:    doc.Status,
		Timestamp: "2026-10-18T09:30:00",
	}, nil
}

func (f *fakePublisher) TestConnection(context.Context) error { return f.connErr }

func (f *fakePublisher) ListDrafts(_ context.Context, limit, offset int) ([]domain.DraftSummary, error) {
	f.listArgs = [2]int{limit, offset}
	return f.drafts, nil
}

func (f *fakePublisher) ListCategories(context.Context) ([]domain.Category, error) {
	return f.cats, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *domain.PersonaCatalog {
	t.Helper()
	c, err := domain.NewPersonaCatalog([]domain.Persona{
		{Key: "gpt1", DisplayName: "Blog Writer", Description: "long-form posts", SystemPrompt: "You are a blog writer.", Enabled: true},
		{Key: "gpt2", DisplayName: "News Writer", Description: "news articles", SystemPrompt: "You are a news writer.", Enabled: true},
		{Key: "gpt3", DisplayName: "Retired", SystemPrompt: "unused", Enabled: false},
	})
	require.NoError(t, err)
	return c
}

func newTestGenerator(t *testing.T, llm Completer, opts ...GeneratorOption) *Generator {
	t.Helper()
	opts = append([]GeneratorOption{WithGeneratorLogger(discardLogger())}, opts...)
	g, err := NewGenerator(testCatalog(t), llm, GenerationDefaults{Model: "gpt-4", MaxTokens: 2000, Temperature: 0.7, DefaultPersona: "gpt1"}, opts...)
	require.NoError(t, err)
	return g
}
