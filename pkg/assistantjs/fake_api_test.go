package assistantjs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeAPI is a scriptable stand-in for the public API. Status queues are
// consumed one per request; an empty queue answers 200.
type fakeAPI struct {
	mu sync.Mutex

	allowed      []string
	token        string
	infoStatus   []int
	createStatus []int
	sendStatus   []int

	calls    map[string]int
	lastSend messageRequest
	lastInit createSessionRequest
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{token: "tok_1", calls: map[string]int{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) next(q *[]int) int {
	if len(*q) == 0 {
		return http.StatusOK
	}
	s := (*q)[0]
	*q = (*q)[1:]
	return s
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) set(fn func(*fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) sent() messageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSend
}

func (f *fakeAPI) initReq() createSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInit
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++

	fail := func(status int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"detail":"internal secret: db password leaked"}`))
	}

	switch r.URL.Path {
	case "/projects/proj_test_public/info":
		if s := f.next(&f.infoStatus); s != http.StatusOK {
			fail(s)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"project_id":         "proj_test_public",
			"name":               "Test",
			"allowed_assistants": f.allowed,
			"extra_field":        "kept in raw",
		})
	case "/sessions/create":
		if s := f.next(&f.createStatus); s != http.StatusOK {
			fail(s)
			return
		}
		json.NewDecoder(r.Body).Decode(&f.lastInit)
		json.NewEncoder(w).Encode(map[string]any{
			"session_token": f.token,
			"expires_at":    "2030-01-01T10:00:00.123456",
			"project_id":    "proj_test_public",
		})
	case "/assistants/message":
		if s := f.next(&f.sendStatus); s != http.StatusOK {
			fail(s)
			return
		}
		json.NewDecoder(r.Body).Decode(&f.lastSend)
		json.NewEncoder(w).Encode(map[string]any{
			"message":            "echo: " + f.lastSend.Message,
			"conversation_id":    "conv_1",
			"processing_time_ms": 12,
		})
	case "/health":
		json.NewEncoder(w).Encode(map[string]any{"status": "healthy", "service": "fake", "timestamp": 1.5})
	default:
		http.NotFound(w, r)
	}
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestClient(s *recordingSleeper) *Client {
	return New(WithSleeper(s.sleep), WithOriginResolver(StaticOrigin("")))
}

// newSlowAPI serves init normally and routes message requests to slow.
func newSlowAPI(t *testing.T, slow http.Handler) *httptest.Server {
	t.Helper()
	f := &fakeAPI{token: "tok_1", calls: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/assistants/message" {
			slow.ServeHTTP(w, r)
			return
		}
		f.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}
