package domain

// ChatMessage is the provider-agnostic chat message shape used by the
// generation client and its transport.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)
