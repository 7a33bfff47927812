package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPersonaCatalog_RejectsDuplicatesAndEmptyKeys(t *testing.T) {
	_, err := NewPersonaCatalog([]Persona{{Key: "gpt1"}, {Key: " gpt1 "}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")

	_, err = NewPersonaCatalog([]Persona{{Key: "  "}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty key")
}

func TestPersonaCatalog_EnabledFiltersDisabled(t *testing.T) {
	c, err := NewPersonaCatalog([]Persona{
		{Key: "gpt1", DisplayName: "Blog", Description: "blog posts", Enabled: true},
		{Key: "gpt2", DisplayName: "News", Enabled: false},
	})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	require.Equal(t, map[string]PersonaSummary{"gpt1": {Name: "Blog", Description: "blog posts"}}, c.Enabled())

	p, ok := c.Lookup("gpt2")
	require.True(t, ok)
	require.False(t, p.Enabled)

	_, ok = c.Lookup("missing")
	require.False(t, ok)
}

func TestGenerationRequest_Messages(t *testing.T) {
	req := GenerationRequest{
		Persona:    Persona{Key: "gpt1", SystemPrompt: "You are a blog writer", Enabled: true},
		UserPrompt: "Write about cats",
	}
	msgs := req.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, ChatMessage{Role: "system", Content: "You are a blog writer"}, msgs[0])
	require.Equal(t, ChatMessage{Role: "user", Content: "Write about cats"}, msgs[1])
}

func TestBatchResult_CountsAreDerived(t *testing.T) {
	r := BatchResult{Outcomes: []BatchItemOutcome{
		Succeeded(0, "gpt1", PublishedPost{ID: 10}, 42),
		Failed(1, "gpt1", StageGeneration, errors.New("HTTP 500 error")),
		Succeeded(2, "gpt2", PublishedPost{ID: 11}, 7),
	}}
	require.Equal(t, 2, r.SuccessCount())
	require.Equal(t, 1, r.FailureCount())
	require.Equal(t, 3, r.Total())
	require.Equal(t, 1, r.Failures()[0].Index)
	require.Equal(t, "HTTP 500 error", r.Failures()[0].Error)
	require.Equal(t, []int{0, 2}, []int{r.Successes()[0].Index, r.Successes()[1].Index})
}

func TestUniqueIDs(t *testing.T) {
	require.Equal(t, []int{3, 1, 2}, UniqueIDs([]int{3, 1, 3, 2, 1}))
	require.Empty(t, UniqueIDs(nil))
}

func TestBatchResult_JSONCarriesCounts(t *testing.T) {
	r := BatchResult{ID: "b-1", Outcomes: []BatchItemOutcome{
		Succeeded(0, "gpt1", PublishedPost{ID: 10}, 42),
		Failed(1, "gpt2", StagePublish, errors.New("HTTP 500 error")),
	}}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, "b-1", got["batch_id"])
	require.Equal(t, float64(1), got["success_count"])
	require.Equal(t, float64(1), got["failure_count"])
	require.Equal(t, float64(2), got["total_prompts"])
	require.Len(t, got["outcomes"], 2)

	data, err = json.Marshal(BatchResult{ID: "empty"})
	require.NoError(t, err)
	require.Contains(t, string(data), `"outcomes":[]`)
}

func TestParseTags(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, ParseTags(" a ,b,, "))
	require.Equal(t, []string{}, ParseTags(""))
}
