package assistantjs

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func initClient(t *testing.T, c *Client, baseURL string) {
	t.Helper()
	_, err := c.Init(context.Background(), "proj_test_public", &InitOptions{BaseURL: baseURL})
	require.NoError(t, err)
}

func TestInitOpensSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.set(func(f *fakeAPI) { f.allowed = []string{"support"} })
	c := newTestClient(&recordingSleeper{})

	got, err := c.Init(context.Background(), "proj_test_public", &InitOptions{
		BaseURL:        srv.URL + "/",
		UserIdentifier: "visitor-7",
		Metadata:       map[string]any{"page": "/pricing"},
	})
	require.NoError(t, err)
	require.Same(t, c, got)
	require.True(t, c.IsReady())
	require.Equal(t, StateReady, c.State())

	info := c.GetProjectInfo()
	require.NotNil(t, info)
	require.Equal(t, "Test", info.Name)
	require.Equal(t, []string{"support"}, info.AllowedAssistants)
	require.Contains(t, string(info.Raw), "extra_field")

	require.Equal(t, "proj_test_public", api.initReq().ProjectID)
	require.Equal(t, "visitor-7", api.initReq().UserIdentifier)
	require.True(t, time.Date(2030, 1, 1, 10, 0, 0, 123456000, time.UTC).Equal(c.SessionExpiresAt()))
}

func TestInitRejectsMalformedProjectIDWithoutNetwork(t *testing.T) {
	api, srv := newFakeAPI(t)
	for _, id := range []string{"", "proj_", "proj__public", "project_x_public", "proj_a-b_public", "proj_x_private", " proj_x_public", "proj_x_public\n"} {
		c := newTestClient(&recordingSleeper{})
		_, err := c.Init(context.Background(), id, &InitOptions{BaseURL: srv.URL})
		require.ErrorIs(t, err, ErrValidation, "id %q", id)
		require.False(t, c.IsReady())
	}
	require.Zero(t, api.total())
}

func TestInitRequiresHTTPSOutsideLoopback(t *testing.T) {
	c := newTestClient(&recordingSleeper{})
	_, err := c.Init(context.Background(), "proj_test_public", &InitOptions{BaseURL: "http://api.example.com/api/public"})
	require.ErrorIs(t, err, ErrSecurity)
	require.Equal(t, StateUninitialized, c.State())
}

func TestInitWithoutBaseURLOrOrigin(t *testing.T) {
	c := New(WithOriginResolver(StaticOrigin("")))
	_, err := c.Init(context.Background(), "proj_test_public", nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestInitRejectsBadRetryConfig(t *testing.T) {
	_, srv := newFakeAPI(t)
	neg := -1
	c := newTestClient(&recordingSleeper{})
	_, err := c.Init(context.Background(), "proj_test_public", &InitOptions{
		BaseURL: srv.URL,
		Retry:   &RetryOverrides{MaxRetries: &neg},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestInitMapsProjectErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"domain", http.StatusForbidden, ErrDomainNotAllowed},
		{"missing project", http.StatusNotFound, ErrProjectNotFound},
		{"backend down", http.StatusInternalServerError, ErrServiceUnavailable},
		{"bad request", http.StatusBadRequest, ErrRequestFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api, srv := newFakeAPI(t)
			api.set(func(f *fakeAPI) { f.infoStatus = []int{tc.status} })
			c := newTestClient(&recordingSleeper{})

			_, err := c.Init(context.Background(), "proj_test_public", &InitOptions{BaseURL: srv.URL})
			require.ErrorIs(t, err, tc.want)
			require.Contains(t, err.Error(), "initialization failed")
			require.NotContains(t, err.Error(), "secret")
			require.Equal(t, tc.status, StatusCode(err))
			require.False(t, c.IsReady())
			require.Nil(t, c.GetProjectInfo())
			require.Zero(t, api.count("/sessions/create"))
		})
	}
}

func TestInitFailureDuringSessionCreateRollsBack(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)

	api.set(func(f *fakeAPI) { f.createStatus = []int{http.StatusForbidden} })
	_, err := c.Init(context.Background(), "proj_test_public", &InitOptions{BaseURL: srv.URL})
	require.ErrorIs(t, err, ErrDomainNotAllowed)
	require.False(t, c.IsReady())
	require.Nil(t, c.GetProjectInfo())

	_, err = c.Send(context.Background(), SendOptions{AssistantID: "support", Message: "hi"})
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestSecondInitReplacesSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.set(func(f *fakeAPI) { f.allowed = []string{"old"} })
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)

	api.set(func(f *fakeAPI) { f.allowed = []string{"new"} })
	api.set(func(f *fakeAPI) { f.token = "tok_2" })
	initClient(t, c, srv.URL)

	require.Equal(t, []string{"new"}, c.GetProjectInfo().AllowedAssistants)

	_, err := c.Send(context.Background(), SendOptions{AssistantID: "old", Message: "hi"})
	require.ErrorIs(t, err, ErrForbiddenAssistant)

	_, err = c.Send(context.Background(), SendOptions{AssistantID: "new", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "tok_2", api.sent().SessionToken)
}

func TestSendBeforeInit(t *testing.T) {
	api, _ := newFakeAPI(t)
	c := newTestClient(&recordingSleeper{})
	_, err := c.Send(context.Background(), SendOptions{AssistantID: "support", Message: "hello"})
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Zero(t, api.total())
}

func TestSendReturnsReply(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)

	reply, err := c.Send(context.Background(), SendOptions{
		AssistantID: "support",
		Message:     "  where is my order?  ",
	})
	require.NoError(t, err)
	require.Equal(t, "echo: where is my order?", reply.Message)
	require.Equal(t, "conv_1", reply.ConversationID)
	require.EqualValues(t, 12, reply.ProcessingTimeMs)
	require.Equal(t, "tok_1", api.sent().SessionToken)
	require.Equal(t, "support", api.sent().AssistantID)
}

func TestSendValidatesLocally(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)
	before := api.count("/assistants/message")

	cases := []SendOptions{
		{AssistantID: "support", Message: ""},
		{AssistantID: "support", Message: " \n\t "},
		{AssistantID: "support", Message: strings.Repeat("a", MaxMessageLength+1)},
		{AssistantID: "", Message: "hi"},
		{AssistantID: "   ", Message: "hi"},
		{AssistantID: "sup<port>", Message: "hi"},
		{AssistantID: "support;drop", Message: "hi"},
	}
	for _, opts := range cases {
		_, err := c.Send(context.Background(), opts)
		require.ErrorIs(t, err, ErrValidation, "%+v", opts)
	}
	require.Equal(t, before, api.count("/assistants/message"))

	_, err := c.Send(context.Background(), SendOptions{AssistantID: "support", Message: strings.Repeat("a", MaxMessageLength)})
	require.NoError(t, err)
}

func TestSendEnforcesAllowList(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.set(func(f *fakeAPI) { f.allowed = []string{"x"} })
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)

	_, err := c.Send(context.Background(), SendOptions{AssistantID: "y", Message: "hi"})
	require.ErrorIs(t, err, ErrForbiddenAssistant)
	require.Zero(t, api.count("/assistants/message"))

	_, err = c.Send(context.Background(), SendOptions{AssistantID: "x", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, 1, api.count("/assistants/message"))
}

func TestSendDropsBadMetadata(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)

	_, err := c.Send(context.Background(), SendOptions{
		AssistantID: "support",
		Message:     "hi",
		Metadata: map[string]any{
			"page":                   "/checkout",
			"count":                  3,
			"nested":                 map[string]any{"a": "b"},
			"bad key":                "v",
			strings.Repeat("k", 101): "v",
			"long":                   strings.Repeat("v", MaxMetadataValueLength+1),
		},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"page": "/checkout"}, api.sent().Metadata)
}

func TestSendMapsStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAccessDenied},
		{http.StatusForbidden, ErrAccessDenied},
		{http.StatusNotFound, ErrAssistantNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServiceUnavailable},
		{http.StatusBadGateway, ErrServiceUnavailable},
		{http.StatusBadRequest, ErrRequestFailed},
		{http.StatusConflict, ErrRequestFailed},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			api, srv := newFakeAPI(t)
			c := newTestClient(&recordingSleeper{})
			no := false
			_, err := c.Init(context.Background(), "proj_test_public", &InitOptions{
				BaseURL: srv.URL,
				Retry:   &RetryOverrides{AutoRetry: &no},
			})
			require.NoError(t, err)

			api.set(func(f *fakeAPI) { f.sendStatus = []int{tc.status} })
			_, err = c.Send(context.Background(), SendOptions{AssistantID: "support", Message: "hi"})
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, tc.status, StatusCode(err))
			require.NotContains(t, err.Error(), "secret")
			require.NotContains(t, err.Error(), "password")
		})
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	api, srv := newFakeAPI(t)
	sleeper := &recordingSleeper{}
	c := newTestClient(sleeper)
	initClient(t, c, srv.URL)

	api.set(func(f *fakeAPI) { f.sendStatus = []int{http.StatusTooManyRequests} })
	reply, err := c.Send(context.Background(), SendOptions{AssistantID: "support", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "echo: hi", reply.Message)
	require.Equal(t, 2, api.count("/assistants/message"))
	require.Equal(t, []time.Duration{time.Second}, sleeper.delays)
}

func TestSendGivesUpAfterMaxRetries(t *testing.T) {
	api, srv := newFakeAPI(t)
	sleeper := &recordingSleeper{}
	c := newTestClient(sleeper)
	two, delay := 2, 10*time.Millisecond
	_, err := c.Init(context.Background(), "proj_test_public", &InitOptions{
		BaseURL: srv.URL,
		Retry:   &RetryOverrides{MaxRetries: &two, RetryDelay: &delay},
	})
	require.NoError(t, err)

	api.set(func(f *fakeAPI) { f.sendStatus = []int{429, 429, 429, 429} })
	_, err = c.Send(context.Background(), SendOptions{AssistantID: "support", Message: "hi"})
	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	require.Equal(t, 3, api.count("/assistants/message"))
	require.Equal(t, []time.Duration{delay, 2 * delay}, sleeper.delays)
}

func TestSendDoesNotRetryServerErrors(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)

	api.set(func(f *fakeAPI) { f.sendStatus = []int{http.StatusServiceUnavailable} })
	_, err := c.Send(context.Background(), SendOptions{AssistantID: "support", Message: "hi"})
	require.ErrorIs(t, err, ErrServiceUnavailable)
	require.Equal(t, 1, api.count("/assistants/message"))
}

func TestSendTimesOut(t *testing.T) {
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	srv := newSlowAPI(t, slow)
	defer close(release)

	c := newTestClient(&recordingSleeper{})
	no, timeout := false, 50*time.Millisecond
	_, err := c.Init(context.Background(), "proj_test_public", &InitOptions{
		BaseURL: srv.URL,
		Retry:   &RetryOverrides{AutoRetry: &no, Timeout: &timeout},
	})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), SendOptions{AssistantID: "support", Message: "hi"})
	require.ErrorIs(t, err, ErrTimeout)
	require.Zero(t, StatusCode(err))
}

func TestResetClearsSession(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)

	c.Reset()
	require.False(t, c.IsReady())
	require.Nil(t, c.GetProjectInfo())
	require.True(t, c.SessionExpiresAt().IsZero())

	_, err := c.Send(context.Background(), SendOptions{AssistantID: "support", Message: "hi"})
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestGetProjectInfoReturnsCopy(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.set(func(f *fakeAPI) { f.allowed = []string{"a"} })
	c := newTestClient(&recordingSleeper{})
	initClient(t, c, srv.URL)

	c.GetProjectInfo().AllowedAssistants[0] = "mutated"
	require.Equal(t, []string{"a"}, c.GetProjectInfo().AllowedAssistants)
}

func TestHealthCheck(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(&recordingSleeper{})

	_, err := c.HealthCheck(context.Background())
	require.ErrorIs(t, err, ErrNotInitialized)

	initClient(t, c, srv.URL)
	h, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", h.Status)
}

func TestErrorsAreTyped(t *testing.T) {
	c := newTestClient(&recordingSleeper{})
	_, err := c.Send(context.Background(), SendOptions{})
	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, KindNotInitialized, e.Kind)
	require.Equal(t, "NotInitializedError", e.Kind.String())
}
