package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"doska-client/internal/model"
)

const (
	cookieName = "doska_session"

	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"

	// Cookie lifetime tracks the refresh token's 30 days; an outlived
	// access token inside it is handled by the refresh flow.
	cookieMaxAge = 30 * 24 * 60 * 60
)

// Handle reads and writes the persisted token pair for one browser. The
// cookie implementation is bound to a single request/response pair; the
// memory implementation backs tests.
type Handle interface {
	Load() (model.TokenPair, bool)
	Save(pair model.TokenPair) error
	Clear() error
}

// CookieStore persists token pairs in an encrypted session cookie.
type CookieStore struct {
	store *sessions.CookieStore
}

// NewCookieStore builds the store from the configured secret. An empty
// secret gets a random key, which invalidates sessions on restart.
func NewCookieStore(secret []byte) *CookieStore {
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieStore{store: store}
}

// Bind returns a Handle scoped to one request.
func (s *CookieStore) Bind(w http.ResponseWriter, r *http.Request) Handle {
	return &cookieHandle{store: s.store, w: w, r: r}
}

type cookieHandle struct {
	store *sessions.CookieStore
	w     http.ResponseWriter
	r     *http.Request
}

func (h *cookieHandle) Load() (model.TokenPair, bool) {
	// Get never fails fatally: a corrupt cookie yields a fresh session.
	sess, _ := h.store.Get(h.r, cookieName)
	access, _ := sess.Values[accessTokenKey].(string)
	refresh, _ := sess.Values[refreshTokenKey].(string)
	if access == "" {
		return model.TokenPair{}, false
	}
	return model.TokenPair{Access: access, Refresh: refresh}, true
}

func (h *cookieHandle) Save(pair model.TokenPair) error {
	sess, _ := h.store.Get(h.r, cookieName)
	sess.Values[accessTokenKey] = pair.Access
	sess.Values[refreshTokenKey] = pair.Refresh
	if err := sess.Save(h.r, h.w); err != nil {
		return fmt.Errorf("persist session cookie: %w", err)
	}
	return nil
}

func (h *cookieHandle) Clear() error {
	sess, _ := h.store.Get(h.r, cookieName)
	delete(sess.Values, accessTokenKey)
	delete(sess.Values, refreshTokenKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(h.r, h.w); err != nil {
		return fmt.Errorf("expire session cookie: %w", err)
	}
	return nil
}

// MemoryHandle is an in-process Handle for tests.
type MemoryHandle struct {
	Pair   model.TokenPair
	Stored bool
}

func (m *MemoryHandle) Load() (model.TokenPair, bool) {
	return m.Pair, m.Stored
}

func (m *MemoryHandle) Save(pair model.TokenPair) error {
	m.Pair = pair
	m.Stored = true
	return nil
}

func (m *MemoryHandle) Clear() error {
	m.Pair = model.TokenPair{}
	m.Stored = false
	return nil
}
