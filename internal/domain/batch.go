package domain

import "encoding/json"

// OutcomeKind tags a BatchItemOutcome.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
)

// Stage names the pipeline step at which a batch item failed.
type Stage string

const (
	StageGeneration Stage = "generation"
	StagePublish    Stage = "publish"
	StageCancelled  Stage = "cancelled"
)

// BatchItemOutcome is either a success (Post set) or a failure (Error set).
// Index always refers to the item's position in the input prompts.
type BatchItemOutcome struct {
	Kind       OutcomeKind    `json:"kind"`
	Index      int            `json:"index"`
	PersonaKey string         `json:"persona_key"`
	Post       *PublishedPost `json:"post,omitempty"`
	TokensUsed int            `json:"tokens_used,omitempty"`
	Stage      Stage          `json:"stage,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Succeeded builds a success outcome.
func Succeeded(index int, personaKey string, post PublishedPost, tokens int) BatchItemOutcome {
	return BatchItemOutcome{Kind: OutcomeSuccess, Index: index, PersonaKey: personaKey, Post: &post, TokensUsed: tokens}
}

// Failed builds a failure outcome.
func Failed(index int, personaKey string, stage Stage, err error) BatchItemOutcome {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return BatchItemOutcome{Kind: OutcomeFailure, Index: index, PersonaKey: personaKey, Stage: stage, Error: msg}
}

// BatchResult aggregates one outcome per input prompt.
type BatchResult struct {
	ID       string             `json:"batch_id"`
	Outcomes []BatchItemOutcome `json:"outcomes"`
}

// BatchSummary is the wire shape of a BatchResult, counts included.
type BatchSummary struct {
	BatchID      string             `json:"batch_id"`
	Outcomes     []BatchItemOutcome `json:"outcomes"`
	SuccessCount int                `json:"success_count"`
	FailureCount int                `json:"failure_count"`
	TotalPrompts int                `json:"total_prompts"`
}

// Summary returns r with its derived counts.
func (r BatchResult) Summary() BatchSummary {
	outcomes := r.Outcomes
	if outcomes == nil {
		outcomes = []BatchItemOutcome{}
	}
	return BatchSummary{
		BatchID:      r.ID,
		Outcomes:     outcomes,
		SuccessCount: r.SuccessCount(),
		FailureCount: r.FailureCount(),
		TotalPrompts: r.Total(),
	}
}

func (r BatchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Summary())
}

// SuccessCount is derived from Outcomes.
func (r BatchResult) SuccessCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeSuccess {
			n++
		}
	}
	return n
}

// FailureCount is derived from Outcomes.
func (r BatchResult) FailureCount() int {
	return len(r.Outcomes) - r.SuccessCount()
}

// Total is the number of outcomes, equal to the number of input prompts.
func (r BatchResult) Total() int {
	return len(r.Outcomes)
}

// Successes returns success outcomes in input order.
func (r BatchResult) Successes() []BatchItemOutcome {
	return r.filter(OutcomeSuccess)
}

// Failures returns failure outcomes in input order.
func (r BatchResult) Failures() []BatchItemOutcome {
	return r.filter(OutcomeFailure)
}

func (r BatchResult) filter(kind OutcomeKind) []BatchItemOutcome {
	out := make([]BatchItemOutcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}
