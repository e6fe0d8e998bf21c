package backendapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/observability"
	apperrors "github.com/nearbuy/nearbuy-gateway/pkg/errors"
)

// replayHeader marks a request that already went through one refresh-and-retry
// cycle. A 401 on a marked request is returned as-is instead of triggering
// another refresh. The mark lives on the request clone, so the caller's
// request is never mutated.
const replayHeader = "X-Nearbuy-Replay"

// refreshFunc performs a session refresh against the backend using a
// transport that does not intercept 401s.
type refreshFunc func(ctx context.Context) error

// authTransport attaches the current bearer token to outgoing requests and
// transparently recovers from expired-session 401s: refresh once, then replay
// the original request once. Concurrent 401s from parallel requests share a
// single refresh via singleflight.
type authTransport struct {
	base           http.RoundTripper
	creds          *CredentialStore
	refresh        refreshFunc
	refreshTimeout time.Duration
	group          singleflight.Group
	metrics        *observability.Metrics

	// onRefreshFailure is invoked at most once per failed refresh, after
	// credentials are cleared. The session service hooks this to broadcast
	// a forced logout.
	onRefreshFailure func()
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if tok := t.creds.Token(); tok != "" {
		out.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Session probes and auth endpoints answer 401 as a normal outcome:
	// refreshing on their behalf would loop.
	if isSessionProbe(req.URL.Path) || isAuthEndpoint(req.URL.Path) {
		return resp, nil
	}
	if req.Header.Get(replayHeader) != "" {
		return resp, nil
	}
	// A request whose body cannot be rewound cannot be replayed.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := t.refreshSession(req.Context()); err != nil {
		return nil, err
	}

	return t.replay(req)
}

// refreshSession runs the shared refresh. All requests that hit a 401 while a
// refresh is in flight wait for that same refresh instead of starting their
// own. The refresh runs on a detached context so that cancelling one of the
// waiting requests does not abort the refresh for the others.
func (t *authTransport) refreshSession(ctx context.Context) error {
	_, err, _ := t.group.Do("refresh", func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.refreshTimeout)
		defer cancel()

		err := t.refresh(refreshCtx)
		if t.metrics != nil {
			observability.RecordRefresh(refreshCtx, t.metrics, err == nil)
		}
		if err != nil {
			t.creds.Clear()
			if t.onRefreshFailure != nil {
				t.onRefreshFailure()
			}
			return nil, apperrors.NewRefreshFailedError("session refresh failed", err)
		}
		return nil, nil
	})
	return err
}

func (t *authTransport) replay(req *http.Request) (*http.Response, error) {
	retry := req.Clone(req.Context())
	retry.Header.Set(replayHeader, "1")
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, apperrors.NewInternalError("failed to rewind request body for replay", err)
		}
		retry.Body = body
	}

	if tok := t.creds.Token(); tok != "" {
		retry.Header.Set("Authorization", "Bearer "+tok)
	} else {
		retry.Header.Del("Authorization")
	}

	return t.base.RoundTrip(retry)
}

func isSessionProbe(path string) bool {
	return strings.HasSuffix(path, "/users/me") || strings.HasSuffix(path, "/owners/me")
}

func isAuthEndpoint(path string) bool {
	return strings.Contains(path, "/auth/refresh") ||
		strings.Contains(path, "/auth/login") ||
		strings.Contains(path, "/auth/owner/login") ||
		strings.Contains(path, "/auth/logout")
}
