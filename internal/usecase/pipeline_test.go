package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"autodraft/internal/content"
	"autodraft/internal/domain"
	"autodraft/internal/integrations/openai"
	"autodraft/internal/ratelimit"
)

func newTestPipeline(t *testing.T, llm Completer, pub Publisher, opts ...PipelineOption) *Pipeline {
	t.Helper()
	opts = append([]PipelineOption{WithPipelineLogger(discardLogger())}, opts...)
	p, err := NewPipeline(newTestGenerator(t, llm), pub, opts...)
	require.NoError(t, err)
	return p
}

func TestNewPipeline_ValidatesDependencies(t *testing.T) {
	_, err := NewPipeline(nil, &fakePublisher{})
	require.Error(t, err)
	_, err = NewPipeline(newTestGenerator(t, &fakeCompleter{}), nil)
	require.Error(t, err)
}

func TestGenerateAndPublish_HappyPath(t *testing.T) {
	llm := &fakeCompleter{replies: map[string]string{"Write about Go": "# My Title\nBody text here."}, tokens: 42}
	pub := &fakePublisher{}
	p := newTestPipeline(t, llm, pub)

	out, err := p.GenerateAndPublish(context.Background(), "Write about Go", "gpt1", PublishOptions{
		CategoryIDs: []int{4, 4},
		Tags:        []string{"go"},
	})
	require.NoError(t, err)
	require.Equal(t, "My Title", out.Title)
	require.Equal(t, "<h1>My Title</h1>\n<p>Body text here.</p>", out.Content)
	require.Equal(t, "My Title Body text here.", out.Excerpt)
	require.Equal(t, 101, out.PostID)
	require.Equal(t, "draft", out.Status)
	require.Equal(t, "gpt1", out.PersonaKey)
	require.Equal(t, "Blog Writer", out.PersonaName)
	require.Equal(t, 42, out.TokensUsed)

	require.Len(t, pub.docs, 1)
	doc := pub.docs[0]
	require.Equal(t, []int{4}, doc.CategoryIDs)
	require.Equal(t, []string{"go"}, doc.TagNames)
	require.Equal(t, "gpt-4", doc.Metadata["ai_model"])
	require.Equal(t, "gpt1", doc.Metadata["ai_persona"])
	require.Equal(t, "Write about Go", doc.Metadata["original_prompt"])
	require.Equal(t, 42, doc.Metadata["ai_tokens_used"])
	require.NotContains(t, doc.Metadata, "ai_batch_index")
}

func TestGenerateAndPublish_PropagatesErrors(t *testing.T) {
	llm := &fakeCompleter{errs: map[string]error{"bad": &openai.HTTPStatusError{StatusCode: 500, Message: "HTTP 500 error"}}}
	pub := &fakePublisher{failFor: map[string]error{"ok": domain.UpstreamError("wordpress_error", errors.New("Sorry, you are not allowed"))}}
	p := newTestPipeline(t, llm, pub)

	_, err := p.GenerateAndPublish(context.Background(), "bad", "gpt1", PublishOptions{})
	require.True(t, domain.IsCode(err, domain.ErrorUpstream))

	_, err = p.GenerateAndPublish(context.Background(), "ok", "gpt1", PublishOptions{})
	require.True(t, domain.IsCode(err, domain.ErrorUpstream))
	require.Contains(t, err.Error(), "not allowed")

	_, err = p.GenerateAndPublish(context.Background(), "ok", " ", PublishOptions{})
	require.True(t, domain.IsCode(err, domain.ErrorInvalidInput))
}

func TestRun_FailureInMiddleOfBatch(t *testing.T) {
	llm := &fakeCompleter{errs: map[string]error{"second": &openai.HTTPStatusError{StatusCode: 500, Message: "HTTP 500 error"}}, tokens: 10}
	pub := &fakePublisher{}
	p := newTestPipeline(t, llm, pub)
	newUUID = func() string { return "batch-1" }
	t.Cleanup(func() { newUUID = defaultNewUUID })

	res := p.Run(context.Background(), BatchRequest{Prompts: []string{"first", "second", "third"}})

	require.Equal(t, "batch-1", res.ID)
	require.Equal(t, 3, res.Total())
	require.Equal(t, 2, res.SuccessCount())
	require.Equal(t, 1, res.FailureCount())
	require.Equal(t, res.Total(), res.SuccessCount()+res.FailureCount())

	for i, o := range res.Outcomes {
		require.Equal(t, i, o.Index)
		require.Equal(t, "gpt1", o.PersonaKey)
	}
	fail := res.Outcomes[1]
	require.Equal(t, domain.OutcomeFailure, fail.Kind)
	require.Equal(t, domain.StageGeneration, fail.Stage)
	require.Contains(t, fail.Error, "HTTP 500 error")

	require.Len(t, pub.docs, 2)
	require.Equal(t, 0, pub.docs[0].Metadata["ai_batch_index"])
	require.Equal(t, 2, pub.docs[1].Metadata["ai_batch_index"])
	require.Equal(t, "batch-1", pub.docs[1].Metadata["ai_batch_id"])
	require.Equal(t, 10, res.Outcomes[2].TokensUsed)
}

func TestRun_PublishFailureIsRecordedWithStage(t *testing.T) {
	llm := &fakeCompleter{replies: map[string]string{"b": "# Broken\nx"}}
	pub := &fakePublisher{failFor: map[string]error{"Broken": domain.UpstreamError("wordpress_error", errors.New("HTTP 500 error"))}}
	p := newTestPipeline(t, llm, pub)

	res := p.Run(context.Background(), BatchRequest{Prompts: []string{"a", "b"}, PersonaKeys: []string{"gpt2", "gpt2"}})
	require.Equal(t, 1, res.SuccessCount())
	require.Equal(t, domain.StagePublish, res.Outcomes[1].Stage)
	require.Equal(t, "gpt2", res.Outcomes[1].PersonaKey)
	require.Equal(t, 1, res.Failures()[0].Index)
}

func TestRun_DisabledPersonaMakesNoCalls(t *testing.T) {
	llm := &fakeCompleter{}
	pub := &fakePublisher{}
	p := newTestPipeline(t, llm, pub)

	res := p.Run(context.Background(), BatchRequest{Prompts: []string{"a", "b"}, PersonaKeys: []string{"gpt3", "missing"}})
	require.Equal(t, 0, res.SuccessCount())
	require.Equal(t, 2, res.FailureCount())
	for _, o := range res.Outcomes {
		require.Equal(t, domain.StageGeneration, o.Stage)
		require.Contains(t, o.Error, string(domain.ErrorConfiguration))
	}
	require.Zero(t, llm.calls())
	require.Empty(t, pub.docs)
}

func TestRun_CancelledContext(t *testing.T) {
	llm := &fakeCompleter{}
	p := newTestPipeline(t, llm, &fakePublisher{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Run(ctx, BatchRequest{Prompts: []string{"a", "b", "c"}})
	require.Equal(t, 3, res.FailureCount())
	for _, o := range res.Outcomes {
		require.Equal(t, domain.StageCancelled, o.Stage)
	}
	require.Zero(t, llm.calls())
}

func TestRun_PacesBetweenItems(t *testing.T) {
	llm := &fakeCompleter{}
	p := newTestPipeline(t, llm, &fakePublisher{}, WithBatchPacer(ratelimit.NewPacer(30*time.Millisecond)))

	start := time.Now()
	res := p.BatchGenerateAndPublish(context.Background(), []string{"a", "b", "c"}, nil, PublishOptions{})
	require.Equal(t, 3, res.SuccessCount())
	require.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestRun_EmptyBatch(t *testing.T) {
	res := newTestPipeline(t, &fakeCompleter{}, &fakePublisher{}).Run(context.Background(), BatchRequest{})
	require.Zero(t, res.Total())
	require.NotNil(t, res.Outcomes)
}

func TestRun_CommonMarkFormatter(t *testing.T) {
	llm := &fakeCompleter{replies: map[string]string{"list": "# Items\n\n- one\n- two"}}
	pub := &fakePublisher{}
	p := newTestPipeline(t, llm, pub, WithFormatter(content.RendererCommonMark))

	res := p.Run(context.Background(), BatchRequest{Prompts: []string{"list"}})
	require.Equal(t, 1, res.SuccessCount())
	require.Contains(t, pub.docs[0].BodyHTML, "<li>one</li>")
	require.Equal(t, "Items", pub.docs[0].Title)
}

func TestTestConnectivity(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	p := newTestPipeline(t, &fakeCompleter{}, &fakePublisher{}, WithPipelineClock(func() time.Time { return now }))
	c := p.TestConnectivity(context.Background())
	require.Equal(t, "connected", c.GenerationStatus)
	require.Equal(t, "connected", c.PublishingStatus)
	require.Len(t, c.Personas, 2)
	require.Equal(t, now, c.CheckedAt)

	p = newTestPipeline(t, &fakeCompleter{}, &fakePublisher{connErr: domain.UpstreamError("wordpress_unreachable", errors.New("dial tcp: refused"))})
	c = p.TestConnectivity(context.Background())
	require.Equal(t, "failed", c.PublishingStatus)
	require.Contains(t, c.PublishingError, "refused")
}

func TestPassThroughs(t *testing.T) {
	pub := &fakePublisher{
		drafts: []domain.DraftSummary{{ID: 1, Title: "A"}},
		cats:   []domain.Category{{ID: 1, Name: "Uncategorized"}},
	}
	p := newTestPipeline(t, &fakeCompleter{}, pub)

	drafts, err := p.ListDrafts(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Equal(t, pub.drafts, drafts)
	require.Equal(t, [2]int{5, 10}, pub.listArgs)

	cats, err := p.ListCategories(context.Background())
	require.NoError(t, err)
	require.Equal(t, pub.cats, cats)

	require.Len(t, p.ListPersonas(), 2)
	require.Equal(t, "gpt1", p.DefaultPersona())
}
