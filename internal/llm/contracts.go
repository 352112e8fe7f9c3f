package llm

import "context"

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat-completion turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is an extraction request in chat-completion shape. Temperature is
// always serialized, including zero.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

// Credentials is the per-session secret for the extraction backend.
type Credentials struct {
	APIKey string
}

// Present reports whether a key was supplied at all. Validity is the backend's call.
func (c Credentials) Present() bool { return c.APIKey != "" }

// Credentials lets a plain value act as a CredentialSource.
func (c Credentials) Credentials() Credentials { return c }

// CredentialSource yields the credentials current at the moment of the call.
type CredentialSource interface {
	Credentials() Credentials
}

// FieldExtractor sends a request to a chat-completion backend and returns the
// first choice's content verbatim.
type FieldExtractor interface {
	Extract(ctx context.Context, req Request, creds Credentials) (string, error)
}
