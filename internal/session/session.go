// Package session owns the authentication state of one browser session:
// the persisted token pair, the validated profile, and the derived
// moderator flag. All mutation goes through the explicit
// init/login/logout/refresh lifecycle.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/model"
)

// State is the position in the auth lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// refreshLeeway refreshes ahead of the recorded expiry so a token that dies
// in flight does not cost a round trip.
const refreshLeeway = 10 * time.Second

// Session is the single owned auth state object for one browser. Not safe
// for concurrent use; each request builds its own from the cookie store.
type Session struct {
	client *backend.Client
	handle Handle
	logger *zap.Logger

	state  State
	tokens model.TokenPair
	user   *model.User
}

// New restores a session from the persisted token pair. With tokens present
// the session starts loading and needs Init to validate them; without, it
// starts unauthenticated.
func New(client *backend.Client, handle Handle, logger *zap.Logger) *Session {
	s := &Session{client: client, handle: handle, logger: logger, state: StateUnauthenticated}
	if pair, ok := handle.Load(); ok {
		s.tokens = pair
		s.state = StateLoading
	}
	return s
}

// Init validates a persisted token by fetching the current profile. A token
// the backend rejects (even after one refresh attempt) clears the persisted
// pair and leaves the session unauthenticated.
func (s *Session) Init(ctx context.Context) error {
	if s.state != StateLoading {
		return nil
	}

	var user *model.User
	err := s.Authorized(ctx, func(token string) error {
		fetched, meErr := s.client.Me(ctx, token)
		if meErr != nil {
			return meErr
		}
		user = fetched
		return nil
	})
	if err != nil {
		s.logger.Info("persisted token rejected, clearing session", zap.Error(err))
		s.clear()
		return nil
	}

	s.user = user
	s.state = StateAuthenticated
	return nil
}

// Login authenticates and persists the returned token pair.
func (s *Session) Login(ctx context.Context, username, password string) error {
	resp, err := s.client.Login(ctx, model.LoginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	return s.establish(resp)
}

// Register creates an account; registration success logs the session in.
func (s *Session) Register(ctx context.Context, req model.RegisterRequest) error {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return err
	}
	return s.establish(resp)
}

// Logout clears the persisted tokens synchronously. No backend call: the
// refresh token simply goes unused until it expires server-side.
func (s *Session) Logout() {
	s.clear()
}

// State returns the current lifecycle position.
func (s *Session) State() State { return s.state }

// User returns the validated profile, nil unless authenticated.
func (s *Session) User() *model.User { return s.user }

// IsAuthenticated reports a validated session.
func (s *Session) IsAuthenticated() bool { return s.state == StateAuthenticated }

// IsModerator is derived from the profile on every call, never cached.
func (s *Session) IsModerator() bool { return s.user.CanModerate() }

// SetUser replaces the cached profile after a profile mutation.
func (s *Session) SetUser(user *model.User) {
	if s.state == StateAuthenticated {
		s.user = user
	}
}

// Authorized runs fn with the current access token, refreshing the pair at
// most once: ahead of a known expiry, or after the backend reports the
// token expired. Refresh failure tears the session down.
func (s *Session) Authorized(ctx context.Context, fn func(token string) error) error {
	if s.tokens.Access == "" {
		return model.ErrSessionExpired
	}

	refreshed := false
	if tokenExpired(s.tokens.Access) {
		if err := s.refresh(ctx); err != nil {
			return err
		}
		refreshed = true
	}

	err := fn(s.tokens.Access)
	if err == nil || refreshed || !errors.Is(err, backend.ErrTokenExpired) {
		return err
	}

	if err := s.refresh(ctx); err != nil {
		return err
	}
	return fn(s.tokens.Access)
}

// establish adopts a fresh auth response and persists its pair.
func (s *Session) establish(resp *model.AuthResponse) error {
	if err := s.handle.Save(resp.Tokens); err != nil {
		return err
	}
	s.tokens = resp.Tokens
	user := resp.User
	s.user = &user
	s.state = StateAuthenticated
	return nil
}

func (s *Session) refresh(ctx context.Context) error {
	if s.tokens.Refresh == "" {
		s.clear()
		return model.ErrSessionExpired
	}
	pair, err := s.client.Refresh(ctx, s.tokens.Refresh)
	if err != nil {
		s.logger.Info("token refresh failed, clearing session", zap.Error(err))
		s.clear()
		return model.ErrSessionExpired
	}
	// Rotation: the old refresh token is already invalid, persist now.
	if pair.Refresh == "" {
		pair.Refresh = s.tokens.Refresh
	}
	if err := s.handle.Save(*pair); err != nil {
		return err
	}
	s.tokens = *pair
	return nil
}

func (s *Session) clear() {
	if err := s.handle.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted tokens", zap.Error(err))
	}
	s.tokens = model.TokenPair{}
	s.user = nil
	s.state = StateUnauthenticated
}

// tokenExpired decodes the access token's exp claim without verifying the
// signature (the signing secret is the backend's). Unreadable tokens are
// treated as live and left for the backend to judge.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().Add(refreshLeeway).After(exp.Time)
}
