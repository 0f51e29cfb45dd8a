package assistantjs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Responses larger than this are treated as malformed.
const maxResponseSize = 4 << 20

// transport performs one logical call with bounded retries.
type transport struct {
	client  *http.Client
	baseURL string
	cfg     RetryConfig
	sleep   Sleeper
	logger  zerolog.Logger
}

// shouldRetry decides whether failed attempt number attempt (1-based) is
// followed by another one. status 0 means no response was received.
func shouldRetry(cfg RetryConfig, status int, attempt int) bool {
	if !cfg.AutoRetry || attempt > cfg.MaxRetries {
		return false
	}
	return status == 0 || status == http.StatusTooManyRequests
}

// backoff is the wait after failed attempt number attempt.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	return cfg.RetryDelay * time.Duration(attempt)
}

func (t *transport) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		payload = b
	}

	for attempt := 1; ; attempt++ {
		err := t.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// Caller gave up; report as an abort and stop.
			return &transportError{Err: err, Timeout: true}
		}

		var status int
		var se *statusError
		var te *transportError
		switch {
		case errors.As(err, &se):
			status = se.Status
		case errors.As(err, &te):
			status = 0
		default:
			// Malformed responses are not transient.
			return err
		}
		if !shouldRetry(t.cfg, status, attempt) {
			return err
		}

		delay := backoff(t.cfg, attempt)
		t.logger.Warn().
			Str("path", path).
			Int("attempt", attempt).
			Int("status", status).
			Dur("delay", delay).
			Msg("request failed, retrying")
		if err := t.sleep(ctx, delay); err != nil {
			return &transportError{Err: err, Timeout: true}
		}
	}
}

func (t *transport) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, rdr)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &transportError{Err: err, Timeout: isTimeout(ctx, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies are never surfaced.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return &statusError{Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return &transportError{Err: err, Timeout: true}
		}
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
