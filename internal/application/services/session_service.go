package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/backendapi"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/observability"
	apperrors "github.com/nearbuy/nearbuy-gateway/pkg/errors"
	"github.com/nearbuy/nearbuy-gateway/pkg/retry"
)

// SessionService owns the ambient session state: which principals are logged
// in, for both roles at once. All mutation funnels through its operations;
// consumers only ever read snapshots.
type SessionService struct {
	client   backendapi.Client
	creds    *backendapi.CredentialStore
	retryCfg retry.Config

	mu    sync.RWMutex
	state entities.SessionState
	// gen increments on every logout. Probe results from a bootstrap that
	// started before a logout are stale and must not resurrect the session.
	gen uint64

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSubID   int
}

// NewSessionService creates a session service.
func NewSessionService(client backendapi.Client, creds *backendapi.CredentialStore, retryCfg retry.Config) *SessionService {
	return &SessionService{
		client:      client,
		creds:       creds,
		retryCfg:    retryCfg,
		subscribers: make(map[int]func()),
	}
}

// Bootstrap resolves both session probes concurrently and updates the session
// state. The probes write disjoint fields, so neither outcome depends on the
// other: one role failing leaves the other role's result intact.
//
// A 401-class probe answer resolves that role to "not logged in". A probe
// that keeps failing on transport errors after all retries leaves the prior
// principal in place and records a soft error.
func (s *SessionService) Bootstrap(ctx context.Context) entities.SessionState {
	s.mu.Lock()
	s.state.Loading = true
	s.state.Err = nil
	gen := s.gen
	s.mu.Unlock()

	var (
		user, owner       *entities.Principal
		userErr, ownerErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, userErr = s.probe(gctx, entities.RoleUser)
		return nil
	})
	g.Go(func() error {
		owner, ownerErr = s.probe(gctx, entities.RoleOwner)
		return nil
	})
	g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if s.gen != gen {
		// a logout happened mid-bootstrap; discard the probe results
		return s.state
	}
	if userErr == nil {
		s.state.User = user
	}
	if ownerErr == nil {
		s.state.Owner = owner
	}
	if userErr != nil {
		s.state.Err = userErr
	} else if ownerErr != nil {
		s.state.Err = ownerErr
	}
	return s.state
}

func (s *SessionService) probe(ctx context.Context, role entities.Role) (*entities.Principal, error) {
	fetch := s.client.CurrentUser
	if role == entities.RoleOwner {
		fetch = s.client.CurrentOwner
	}

	logger := observability.LoggerFromContext(ctx)

	var principal *entities.Principal
	err := retry.DoWithLog(ctx, s.retryCfg, "session probe", func() error {
		p, err := fetch(ctx)
		if err != nil {
			if apperrors.IsUnauthenticated(err) {
				principal = nil
				return nil
			}
			return err
		}
		principal = p
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().
			Err(err).
			Str("role", string(role)).
			Int("attempt", attempt).
			Dur("retry_in", nextDelay).
			Msg("session probe failed, retrying")
	})
	if err != nil {
		return nil, apperrors.NewTransientError("session probe did not complete", err)
	}
	return principal, nil
}

// Login authenticates a consumer and records the resolved principal.
func (s *SessionService) Login(ctx context.Context, email, password string) (*entities.Principal, error) {
	principal, err := s.client.Login(ctx, backendapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.state.User = principal
	s.mu.Unlock()
	return principal, nil
}

// OwnerLogin authenticates a shop owner and records the resolved principal.
func (s *SessionService) OwnerLogin(ctx context.Context, email, password string) (*entities.Principal, error) {
	principal, err := s.client.OwnerLogin(ctx, backendapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.state.Owner = principal
	s.mu.Unlock()
	return principal, nil
}

// Register creates a consumer account. The caller logs in afterwards.
func (s *SessionService) Register(ctx context.Context, req backendapi.RegisterRequest) (*entities.Principal, error) {
	return s.client.Register(ctx, req)
}

// Refresh explicitly renews the backend session. A terminal refresh failure
// forces a full logout before the error is returned.
func (s *SessionService) Refresh(ctx context.Context) error {
	err := s.client.Refresh(ctx)
	if err != nil && apperrors.IsRefreshFailed(err) {
		s.ForceLogout()
	}
	return err
}

// Logout terminates the session: best-effort server-side invalidation, then
// local credential and state teardown. Safe to call repeatedly; the logout
// broadcast fires only on the transition out of an authenticated state.
func (s *SessionService) Logout(ctx context.Context) {
	if err := s.client.Logout(ctx); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("server-side logout failed, clearing local session anyway")
	}
	s.clearSession()
}

// ForceLogout tears the session down locally without calling the backend.
// Wired as the refresh-failure hook: by the time it runs, the backend has
// already rejected the session.
func (s *SessionService) ForceLogout() {
	s.clearSession()
}

func (s *SessionService) clearSession() {
	s.creds.Clear()

	s.mu.Lock()
	wasAuthenticated := s.state.IsAuthenticated()
	s.state.User = nil
	s.state.Owner = nil
	s.state.Err = nil
	s.gen++
	s.mu.Unlock()

	if wasAuthenticated {
		s.notifyLogout()
	}
}

// Subscribe registers a callback invoked once per logout. The returned
// function removes the subscription.
func (s *SessionService) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *SessionService) notifyLogout() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns the current session state.
func (s *SessionService) Snapshot() entities.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
