package publicapi

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/assistantjs-go/internal/ai"
	"github.com/Vovarama1992/assistantjs-go/pkg/assistantjs"
)

type service struct {
	registry *Registry
	repo     Repo
	ai       ai.AI
	sessions *sessionStore
	now      func() time.Time
	logger   zerolog.Logger
}

type ServiceOption func(*service)

// WithClock replaces time.Now, for expiry and rate-limit tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		s.now = now
	}
}

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *service) {
		s.logger = l
	}
}

func NewService(registry *Registry, repo Repo, aiClient ai.AI, opts ...ServiceOption) Service {
	s := &service{
		registry: registry,
		repo:     repo,
		ai:       aiClient,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = newSessionStore(s.now)
	return s
}

// lookupProject applies the checks shared by the info and session endpoints.
func (s *service) lookupProject(projectID, origin string) (*Project, error) {
	p, ok := s.registry.project(projectID)
	if !ok {
		return nil, apiError(http.StatusNotFound, "Project not found or inactive")
	}
	if !domainAllowed(p.AllowedDomains, origin) {
		s.logger.Warn().Str("project_id", projectID).Str("origin", origin).Msg("domain not allowed")
		return nil, apiError(http.StatusForbidden, "Domain not allowed for this project")
	}
	return p, nil
}

func (s *service) ProjectInfo(_ context.Context, projectID, origin string) (*assistantjs.ProjectInfo, error) {
	p, err := s.lookupProject(projectID, origin)
	if err != nil {
		return nil, err
	}
	return p.publicInfo(), nil
}

func (s *service) CreateSession(_ context.Context, in CreateSessionInput) (*CreateSessionResult, error) {
	if in.ProjectID == "" {
		return nil, apiError(http.StatusBadRequest, "project_id is required")
	}
	if utf8.RuneCountInString(in.UserIdentifier) > assistantjs.MaxUserIdentifierLength {
		return nil, apiError(http.StatusBadRequest, "user_identifier is too long")
	}
	p, err := s.lookupProject(in.ProjectID, in.Origin)
	if err != nil {
		return nil, err
	}

	sess := s.sessions.create(p, in)
	s.logger.Info().
		Str("project_id", p.ID).
		Str("origin", in.Origin).
		Time("expires_at", sess.ExpiresAt).
		Msg("session created")

	return &CreateSessionResult{
		SessionToken: sess.Token,
		ExpiresAt:    sess.ExpiresAt.UTC().Format(time.RFC3339),
		ProjectID:    p.ID,
	}, nil
}

func (s *service) SendMessage(ctx context.Context, in MessageInput) (*assistantjs.Reply, error) {
	start := s.now()

	if in.SessionToken == "" || in.AssistantID == "" {
		return nil, apiError(http.StatusBadRequest, "session_token and assistant_id are required")
	}
	if n := utf8.RuneCountInString(in.Message); n == 0 || n > assistantjs.MaxMessageLength {
		return nil, apiError(http.StatusBadRequest, "message must be 1 to 10000 characters")
	}

	sess, ok := s.sessions.get(in.SessionToken)
	if !ok {
		return nil, apiError(http.StatusUnauthorized, "Invalid or expired session token")
	}
	p, ok := s.registry.project(sess.ProjectID)
	if !ok {
		return nil, apiError(http.StatusUnauthorized, "Invalid or expired session token")
	}
	if !s.sessions.allow(sess.Token, p) {
		return nil, apiError(http.StatusTooManyRequests, "Rate limit exceeded")
	}
	if !p.allowsAssistant(in.AssistantID) {
		return nil, apiError(http.StatusForbidden, "Assistant '"+in.AssistantID+"' not allowed for this project")
	}
	assistant, ok := s.registry.assistant(in.AssistantID)
	if !ok {
		return nil, apiError(http.StatusNotFound, "Assistant '"+in.AssistantID+"' not found or inactive")
	}

	text := sanitizeMessage(in.Message)
	if utf8.RuneCountInString(text) > maxSanitizedLength {
		return nil, apiError(http.StatusBadRequest, "Message too long after sanitization")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apiError(http.StatusBadRequest, "Message cannot be empty")
	}

	convID, err := s.repo.EnsureConversation(ctx, sess.Token, assistant.Name)
	if err != nil {
		return nil, errors.Wrap(err, "ensure conversation")
	}
	if err := s.repo.SaveMessage(ctx, &Message{
		ConversationID: convID,
		Sender:         SenderUser,
		Text:           text,
		Metadata:       in.Metadata,
	}); err != nil {
		return nil, errors.Wrap(err, "save user message")
	}

	history, err := s.repo.GetHistory(ctx, convID)
	if err != nil {
		return nil, errors.Wrap(err, "load history")
	}
	aiHistory := make([]ai.Message, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Sender == SenderAssistant {
			role = "assistant"
		}
		aiHistory = append(aiHistory, ai.Message{Role: role, Text: m.Text})
	}

	answer, err := s.ai.GetReply(ctx, assistant.Instructions, aiHistory)
	if err != nil {
		return nil, errors.Wrap(err, "assistant reply")
	}
	if err := s.repo.SaveMessage(ctx, &Message{
		ConversationID: convID,
		Sender:         SenderAssistant,
		Text:           answer,
	}); err != nil {
		return nil, errors.Wrap(err, "save assistant message")
	}

	elapsed := s.now().Sub(start)
	s.logger.Info().
		Str("project_id", p.ID).
		Str("assistant", assistant.Name).
		Str("conversation_id", convID).
		Dur("elapsed", elapsed).
		Msg("message answered")

	return &assistantjs.Reply{
		Message:          answer,
		ConversationID:   convID,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}, nil
}
