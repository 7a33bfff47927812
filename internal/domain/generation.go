package domain

import "time"

// GenerationRequest is built once per generation call.
type GenerationRequest struct {
	Persona     Persona
	UserPrompt  string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Messages returns the fixed two-message exchange sent to the backend.
func (r GenerationRequest) Messages() []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: r.Persona.SystemPrompt},
		{Role: RoleUser, Content: r.UserPrompt},
	}
}

// GenerationResult is the outcome of one successful generation call.
type GenerationResult struct {
	Text        string    `json:"text"`
	TokenUsage  int       `json:"tokens_used"`
	PersonaKey  string    `json:"persona_key"`
	PersonaName string    `json:"persona_name"`
	Model       string    `json:"model"`
	Prompt      string    `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}
