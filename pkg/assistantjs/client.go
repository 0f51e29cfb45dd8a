// Package assistantjs is the client for the AssistantJS public messaging API.
//
// A host program creates a Client, calls Init with its public project ID and
// then Send for every message:
//
//	c := assistantjs.New(assistantjs.WithLogger(logger))
//	if _, err := c.Init(ctx, "proj_shop_public", &assistantjs.InitOptions{BaseURL: url}); err != nil {
//		return err
//	}
//	reply, err := c.Send(ctx, assistantjs.SendOptions{AssistantID: "support", Message: "hi"})
//
// Every error returned is an *Error with a message safe to show to end users;
// use errors.Is with the Err* sentinels to branch on its kind.
//
// A Client is safe for concurrent use. Concurrent Send calls are independent
// requests and their replies may complete in any order. Reset while a Send is
// in flight does not cancel it; the Send finishes with the session it started
// with.
package assistantjs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type session struct {
	state        State
	projectID    string
	sessionToken string
	expiresAt    time.Time
	baseURL      string
	projectInfo  *ProjectInfo
	config       RetryConfig
}

type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
	origin     OriginResolver
	sleep      Sleeper

	initMu sync.Mutex
	mu     sync.RWMutex
	sess   session
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
		origin:     EnvOrigin,
		sleep:      sleepContext,
		sess:       session{config: DefaultRetryConfig()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init validates projectID, resolves the API base URL, fetches the project's
// public info and opens a session. On any failure the client is left
// uninitialized. It returns c so calls can be chained.
func (c *Client) Init(ctx context.Context, projectID string, opts *InitOptions) (*Client, error) {
	if opts == nil {
		opts = &InitOptions{}
	}

	c.initMu.Lock()
	defer c.initMu.Unlock()

	c.mu.Lock()
	c.sess = session{state: StateInitializing, config: DefaultRetryConfig()}
	c.mu.Unlock()

	sess, err := c.bootstrap(ctx, projectID, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.sess = session{config: DefaultRetryConfig()}
		e := classify(opInit, err)
		c.logger.Error().Str("project_id", projectID).Str("kind", e.Kind.String()).Int("status", e.Status).Msg("init failed")
		return c, &Error{Kind: e.Kind, Status: e.Status, Message: "initialization failed: " + e.Message, Err: e}
	}
	c.sess = sess
	c.logger.Info().
		Str("project_id", projectID).
		Str("base_url", sess.baseURL).
		Str("session", tokenPrefix(sess.sessionToken)).
		Msg("session ready")
	return c, nil
}

func (c *Client) bootstrap(ctx context.Context, projectID string, opts *InitOptions) (session, error) {
	if err := validateProjectID(projectID); err != nil {
		return session{}, err
	}
	if err := validateUserIdentifier(opts.UserIdentifier); err != nil {
		return session{}, err
	}
	cfg, err := opts.Retry.merge(DefaultRetryConfig())
	if err != nil {
		return session{}, err
	}

	raw := opts.BaseURL
	if raw == "" {
		if raw, err = DefaultBaseURL(c.origin()); err != nil {
			return session{}, err
		}
	}
	baseURL, err := checkBaseURL(raw)
	if err != nil {
		return session{}, err
	}

	t := c.newTransport(baseURL, cfg)

	var rawInfo json.RawMessage
	if err := t.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/info", nil, &rawInfo); err != nil {
		return session{}, err
	}
	info, err := decodeProjectInfo(rawInfo)
	if err != nil {
		return session{}, err
	}

	var created createSessionResponse
	req := createSessionRequest{
		ProjectID:      projectID,
		UserIdentifier: opts.UserIdentifier,
		Metadata:       opts.Metadata,
	}
	if err := t.do(ctx, http.MethodPost, "/sessions/create", req, &created); err != nil {
		return session{}, err
	}
	if created.SessionToken == "" {
		return session{}, newError(KindRequestFailed, "server returned no session token")
	}

	return session{
		state:        StateReady,
		projectID:    projectID,
		sessionToken: created.SessionToken,
		expiresAt:    parseExpiry(created.ExpiresAt),
		baseURL:      baseURL,
		projectInfo:  info,
		config:       cfg,
	}, nil
}

// Send validates and sanitizes opts locally and posts the message. It never
// touches the network when the client is not ready or validation fails.
func (c *Client) Send(ctx context.Context, opts SendOptions) (*Reply, error) {
	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()

	if sess.state != StateReady || sess.sessionToken == "" {
		return nil, newError(KindNotInitialized, "client not initialized, call Init first")
	}

	assistantID, err := validateAssistantID(opts.AssistantID)
	if err != nil {
		return nil, err
	}
	message, err := validateMessage(opts.Message)
	if err != nil {
		return nil, err
	}
	if !sess.projectInfo.allows(assistantID) {
		return nil, newError(KindForbiddenAssistant, "assistant "+assistantID+" is not allowed for this project")
	}

	metadata := SanitizeMetadata(opts.Metadata)
	if dropped := len(opts.Metadata) - len(metadata); dropped > 0 {
		c.logger.Debug().Int("dropped", dropped).Msg("metadata entries dropped")
	}

	req := messageRequest{
		SessionToken: sess.sessionToken,
		AssistantID:  assistantID,
		Message:      message,
		Metadata:     metadata,
	}
	var reply Reply
	if err := c.newTransport(sess.baseURL, sess.config).do(ctx, http.MethodPost, "/assistants/message", req, &reply); err != nil {
		e := classify(opSend, err)
		c.logger.Warn().Str("assistant_id", assistantID).Str("kind", e.Kind.String()).Int("status", e.Status).Msg("send failed")
		return nil, e
	}
	return &reply, nil
}

// HealthCheck queries the API's health endpoint of the current session.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()
	if sess.state != StateReady {
		return nil, newError(KindNotInitialized, "client not initialized, call Init first")
	}
	var h Health
	if err := c.newTransport(sess.baseURL, sess.config).do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, classify(opSend, err)
	}
	return &h, nil
}

// Reset drops the session. It performs no network call.
func (c *Client) Reset() {
	c.mu.Lock()
	c.sess = session{config: DefaultRetryConfig()}
	c.mu.Unlock()
}

func (c *Client) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.state == StateReady && c.sess.sessionToken != ""
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.state
}

// GetProjectInfo returns a copy of the project info, or nil when not ready.
func (c *Client) GetProjectInfo() *ProjectInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess.state != StateReady {
		return nil
	}
	return c.sess.projectInfo.clone()
}

// SessionExpiresAt is zero when unknown or not ready.
func (c *Client) SessionExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.expiresAt
}

func (c *Client) newTransport(baseURL string, cfg RetryConfig) *transport {
	return &transport{
		client:  c.httpClient,
		baseURL: baseURL,
		cfg:     cfg,
		sleep:   c.sleep,
		logger:  c.logger,
	}
}

func tokenPrefix(tok string) string {
	if len(tok) > 8 {
		return tok[:8] + "..."
	}
	return tok
}
