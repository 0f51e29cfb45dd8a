package assistantjs

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Backends emit either RFC 3339 or a zone-less ISO timestamp (UTC).
var expiryLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

func parseExpiry(s string) time.Time {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// State is the client's lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

type RateLimits struct {
	RequestsPerMinute  int `json:"requests_per_minute" yaml:"requests_per_minute"`
	RequestsPerDay     int `json:"requests_per_day" yaml:"requests_per_day"`
	RequestsPerSession int `json:"requests_per_session" yaml:"requests_per_session"`
}

// ProjectInfo is the public description of a project. An empty
// AllowedAssistants means every assistant is allowed.
type ProjectInfo struct {
	ProjectID              string     `json:"project_id" yaml:"project_id"`
	Name                   string     `json:"name" yaml:"name"`
	Description            string     `json:"description" yaml:"description"`
	AllowedAssistants      []string   `json:"allowed_assistants" yaml:"allowed_assistants"`
	SessionDurationMinutes int        `json:"session_duration_minutes" yaml:"session_duration_minutes"`
	RateLimits             RateLimits `json:"rate_limits" yaml:"rate_limits"`

	// Raw is the full response body, including fields not modelled above.
	Raw json.RawMessage `json:"-" yaml:"-"`
}

func decodeProjectInfo(raw json.RawMessage) (*ProjectInfo, error) {
	var p ProjectInfo
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "decode project info")
	}
	p.Raw = raw
	return &p, nil
}

func (p *ProjectInfo) clone() *ProjectInfo {
	if p == nil {
		return nil
	}
	c := *p
	c.AllowedAssistants = append([]string(nil), p.AllowedAssistants...)
	c.Raw = append(json.RawMessage(nil), p.Raw...)
	return &c
}

func (p *ProjectInfo) allows(assistantID string) bool {
	if len(p.AllowedAssistants) == 0 {
		return true
	}
	for _, a := range p.AllowedAssistants {
		if a == assistantID {
			return true
		}
	}
	return false
}

// SendOptions is one outgoing message. Metadata values that are not strings
// are dropped before sending.
type SendOptions struct {
	AssistantID string
	Message     string
	Metadata    map[string]any
}

// Reply is the assistant's answer to one message.
type Reply struct {
	Message          string `json:"message" yaml:"message"`
	ConversationID   string `json:"conversation_id" yaml:"conversation_id"`
	ProcessingTimeMs int64  `json:"processing_time_ms" yaml:"processing_time_ms"`
}

type Health struct {
	Status    string  `json:"status" yaml:"status"`
	Service   string  `json:"service" yaml:"service"`
	Timestamp float64 `json:"timestamp" yaml:"timestamp"`
}

// --- wire ---

type createSessionRequest struct {
	ProjectID      string         `json:"project_id"`
	UserIdentifier string         `json:"user_identifier,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type createSessionResponse struct {
	SessionToken string `json:"session_token"`
	ExpiresAt    string `json:"expires_at"`
	ProjectID    string `json:"project_id"`
}

type messageRequest struct {
	SessionToken string            `json:"session_token"`
	AssistantID  string            `json:"assistant_id"`
	Message      string            `json:"message"`
	Metadata     map[string]string `json:"metadata"`
}
