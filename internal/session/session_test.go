package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/model"
)

// ============================================================================
// Test Helpers
// ============================================================================

// signedToken mints a decodable JWT; the signing key is irrelevant since
// the session only reads the exp claim without verification.
func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func fakeBackend(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, 5*time.Second, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestNewWithoutTokensStartsUnauthenticated(t *testing.T) {
	s := New(nil, &MemoryHandle{}, zap.NewNop())
	if s.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", s.State())
	}
	if err := s.Init(context.Background()); err != nil {
		t.Errorf("Init on empty session: %v", err)
	}
	if s.IsModerator() {
		t.Error("nil user must not moderate")
	}
}

func TestNewWithTokensStartsLoading(t *testing.T) {
	handle := &MemoryHandle{Pair: model.TokenPair{Access: "a", Refresh: "r"}, Stored: true}
	s := New(nil, handle, zap.NewNop())
	if s.State() != StateLoading {
		t.Errorf("state = %v, want loading", s.State())
	}
}

func TestLoginEstablishesAndPersists(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, model.AuthResponse{
			User:   model.User{ID: 1, Username: "alice"},
			Tokens: model.TokenPair{Access: "acc1", Refresh: "ref1"},
		})
	})

	handle := &MemoryHandle{}
	s := New(client, handle, zap.NewNop())
	if err := s.Login(context.Background(), "alice", "password"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if !s.IsAuthenticated() || s.User().Username != "alice" {
		t.Errorf("state = %v, user = %+v", s.State(), s.User())
	}
	if !handle.Stored || handle.Pair.Access != "acc1" {
		t.Errorf("persisted pair = %+v", handle.Pair)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"No active account found"}`, http.StatusUnauthorized)
	})

	s := New(client, &MemoryHandle{}, zap.NewNop())
	err := s.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if s.IsAuthenticated() {
		t.Error("failed login must not authenticate")
	}
}

func TestInitValidatesPersistedToken(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("Init must send the persisted token")
		}
		writeJSON(w, model.User{ID: 2, Username: "bob", IsModerator: true})
	})

	handle := &MemoryHandle{
		Pair:   model.TokenPair{Access: signedToken(t, time.Hour), Refresh: "ref"},
		Stored: true,
	}
	s := New(client, handle, zap.NewNop())
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !s.IsAuthenticated() || !s.IsModerator() {
		t.Errorf("state = %v, user = %+v", s.State(), s.User())
	}
}

func TestInitClearsRejectedToken(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Invalid token"}`, http.StatusUnauthorized)
	})

	handle := &MemoryHandle{
		Pair:   model.TokenPair{Access: signedToken(t, time.Hour), Refresh: "ref"},
		Stored: true,
	}
	s := New(client, handle, zap.NewNop())
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init should swallow the rejection: %v", err)
	}
	if s.IsAuthenticated() || handle.Stored {
		t.Error("rejected token must clear session and persisted pair")
	}
}

func TestLogoutClearsWithoutNetwork(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("logout must not call the backend, got %s", r.URL.Path)
	})

	handle := &MemoryHandle{Pair: model.TokenPair{Access: "a"}, Stored: true}
	s := New(client, handle, zap.NewNop())
	s.Logout()

	if s.State() != StateUnauthenticated || handle.Stored {
		t.Error("logout must clear state and persisted pair")
	}
}

// ============================================================================
// Token Refresh
// ============================================================================

func TestAuthorizedRefreshesAheadOfExpiry(t *testing.T) {
	freshAccess := signedToken(t, time.Hour)
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh/":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refresh"] != "ref1" {
				t.Errorf("refresh body = %v", body)
			}
			writeJSON(w, model.TokenPair{Access: freshAccess, Refresh: "ref2"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	handle := &MemoryHandle{
		Pair:   model.TokenPair{Access: signedToken(t, -time.Minute), Refresh: "ref1"},
		Stored: true,
	}
	s := New(client, handle, zap.NewNop())

	var usedToken string
	err := s.Authorized(context.Background(), func(token string) error {
		usedToken = token
		return nil
	})
	if err != nil {
		t.Fatalf("Authorized: %v", err)
	}
	if usedToken != freshAccess {
		t.Error("callback should run with the rotated access token")
	}
	if handle.Pair.Refresh != "ref2" {
		t.Errorf("rotated pair not persisted: %+v", handle.Pair)
	}
}

func TestAuthorizedRetriesOnceAfterBackendExpiry(t *testing.T) {
	calls := 0
	err := errTokenExpiredSession(t).Authorized(context.Background(), func(token string) error {
		calls++
		if calls == 1 {
			return backend.ErrTokenExpired
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Authorized: %v", err)
	}
	if calls != 2 {
		t.Errorf("callback ran %d times, want 2 (original + one retry)", calls)
	}
}

// errTokenExpiredSession builds a session whose token looks live locally
// but whose backend will accept exactly one refresh.
func errTokenExpiredSession(t *testing.T) *Session {
	t.Helper()
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/refresh/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, model.TokenPair{Access: signedToken(t, time.Hour), Refresh: "ref2"})
	})
	handle := &MemoryHandle{
		Pair:   model.TokenPair{Access: signedToken(t, time.Hour), Refresh: "ref1"},
		Stored: true,
	}
	return New(client, handle, zap.NewNop())
}

func TestAuthorizedRefreshFailureTearsDown(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Token is blacklisted","code":"token_not_valid"}`, http.StatusUnauthorized)
	})

	handle := &MemoryHandle{
		Pair:   model.TokenPair{Access: signedToken(t, -time.Minute), Refresh: "dead"},
		Stored: true,
	}
	s := New(client, handle, zap.NewNop())

	err := s.Authorized(context.Background(), func(token string) error {
		t.Error("callback must not run when refresh fails")
		return nil
	})
	if !errors.Is(err, model.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if s.State() != StateUnauthenticated || handle.Stored {
		t.Error("failed refresh must clear session and persisted pair")
	}
}

func TestAuthorizedWithoutTokens(t *testing.T) {
	s := New(nil, &MemoryHandle{}, zap.NewNop())
	err := s.Authorized(context.Background(), func(token string) error { return nil })
	if !errors.Is(err, model.ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestRefreshKeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		// Backend that rotates access only.
		writeJSON(w, model.TokenPair{Access: signedToken(t, time.Hour)})
	})

	handle := &MemoryHandle{
		Pair:   model.TokenPair{Access: signedToken(t, -time.Minute), Refresh: "keepme"},
		Stored: true,
	}
	s := New(client, handle, zap.NewNop())

	if err := s.Authorized(context.Background(), func(token string) error { return nil }); err != nil {
		t.Fatalf("Authorized: %v", err)
	}
	if handle.Pair.Refresh != "keepme" {
		t.Errorf("refresh token = %q, want the previous one kept", handle.Pair.Refresh)
	}
}
