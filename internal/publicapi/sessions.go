package publicapi

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	Token          string
	ProjectID      string
	UserIdentifier string
	Origin         string
	Metadata       map[string]any
	ExpiresAt      time.Time

	total    int
	requests []time.Time // within the last day
}

// sessionStore keeps public sessions in memory and enforces the per-minute,
// per-day and per-session request limits of their project.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func newSessionStore(now func() time.Time) *sessionStore {
	return &sessionStore{sessions: map[string]*session{}, now: now}
}

func (s *sessionStore) create(p *Project, in CreateSessionInput) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)

	sess := &session{
		Token:          "sess_" + uuid.NewString(),
		ProjectID:      p.ID,
		UserIdentifier: in.UserIdentifier,
		Origin:         in.Origin,
		Metadata:       in.Metadata,
		ExpiresAt:      now.Add(time.Duration(p.SessionDurationMinutes) * time.Minute),
	}
	s.sessions[sess.Token] = sess
	return sess
}

// get returns a copy of a live session.
func (s *sessionStore) get(token string) (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || !s.now().Before(sess.ExpiresAt) {
		return session{}, false
	}
	return *sess, true
}

// allow records one request for token and reports whether it is within the
// project's limits. Rejected requests are not counted.
func (s *sessionStore) allow(token string, p *Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return false
	}

	now := s.now()
	dayAgo, minuteAgo := now.Add(-24*time.Hour), now.Add(-time.Minute)
	kept := sess.requests[:0]
	lastMinute := 0
	for _, t := range sess.requests {
		if t.After(dayAgo) {
			kept = append(kept, t)
			if t.After(minuteAgo) {
				lastMinute++
			}
		}
	}
	sess.requests = kept

	if sess.total >= p.RequestsPerSession ||
		len(sess.requests) >= p.RequestsPerDay ||
		lastMinute >= p.RequestsPerMinute {
		return false
	}
	sess.total++
	sess.requests = append(sess.requests, now)
	return true
}

func (s *sessionStore) evictExpired(now time.Time) {
	for tok, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, tok)
		}
	}
}
