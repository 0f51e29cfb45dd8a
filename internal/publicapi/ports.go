package publicapi

import (
	"context"
	"time"

	"github.com/Vovarama1992/assistantjs-go/pkg/assistantjs"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Message struct {
	ID             int64
	ConversationID string
	Sender         Sender
	Text           string
	Metadata       map[string]string
	CreatedAt      time.Time
}

// Repo persists conversations and their messages.
type Repo interface {
	// EnsureConversation returns the conversation of (sessionToken, assistant),
	// creating it on first use.
	EnsureConversation(ctx context.Context, sessionToken, assistant string) (string, error)
	SaveMessage(ctx context.Context, msg *Message) error
	GetHistory(ctx context.Context, conversationID string) ([]Message, error)
}

type CreateSessionInput struct {
	ProjectID      string         `json:"project_id"`
	UserIdentifier string         `json:"user_identifier"`
	Metadata       map[string]any `json:"metadata"`
	Origin         string         `json:"-"`
}

type CreateSessionResult struct {
	SessionToken string `json:"session_token"`
	ExpiresAt    string `json:"expires_at"`
	ProjectID    string `json:"project_id"`
}

type MessageInput struct {
	SessionToken string            `json:"session_token"`
	AssistantID  string            `json:"assistant_id"`
	Message      string            `json:"message"`
	Metadata     map[string]string `json:"metadata"`
}

// Service is the public API behind the HTTP handlers. Failures that map to an
// HTTP status are returned as *APIError.
type Service interface {
	ProjectInfo(ctx context.Context, projectID, origin string) (*assistantjs.ProjectInfo, error)
	CreateSession(ctx context.Context, in CreateSessionInput) (*CreateSessionResult, error)
	SendMessage(ctx context.Context, in MessageInput) (*assistantjs.Reply, error)
}

// APIError carries the status and the client-facing detail of a failure.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return e.Detail
}

func apiError(status int, detail string) *APIError {
	return &APIError{Status: status, Detail: detail}
}
