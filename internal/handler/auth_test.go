package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/model"
	"doska-client/internal/session"
	"doska-client/internal/transport/http/middleware"
)

func authRequest(t *testing.T, backendHandler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	srv := httptest.NewServer(backendHandler)
	t.Cleanup(srv.Close)
	client := backend.NewClient(srv.URL, 5*time.Second, zap.NewNop())

	sess := session.New(client, &session.MemoryHandle{}, zap.NewNop())
	h := NewAuthHandler(client, zap.NewNop())

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req = req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, sess))
	rec := httptest.NewRecorder()

	switch path {
	case "/auth/login":
		h.Login(rec, req)
	case "/auth/register":
		h.Register(rec, req)
	}
	return rec
}

func TestLoginSuccess(t *testing.T) {
	rec := authRequest(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.AuthResponse{
			User:   model.User{ID: 1, Username: "alice"},
			Tokens: model.TokenPair{Access: "a", Refresh: "r"},
		})
	}, "/auth/login", model.LoginRequest{Username: "alice", Password: "password1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var user model.User
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user.Username != "alice" {
		t.Errorf("user = %+v", user)
	}
}

func TestLoginMissingFields(t *testing.T) {
	rec := authRequest(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("incomplete login must not reach the backend")
	}, "/auth/login", model.LoginRequest{Username: "alice"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("login without password: %d, want 400", rec.Code)
	}
}

func TestLoginRejected(t *testing.T) {
	rec := authRequest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"No active account found"}`, http.StatusUnauthorized)
	}, "/auth/login", model.LoginRequest{Username: "alice", Password: "wrong"})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("rejected login: %d, want 401", rec.Code)
	}
}

func TestRegisterLocalValidationFirst(t *testing.T) {
	rec := authRequest(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid registration must not reach the backend")
	}, "/auth/register", model.RegisterRequest{
		Username:        "",
		Email:           "not-an-email",
		Password:        "short",
		PasswordConfirm: "different",
		Phone:           "abc",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("register: %d, want 400", rec.Code)
	}
	var envelope struct {
		Error struct {
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &envelope)
	for _, field := range []string{"username", "email", "password", "phone"} {
		if _, ok := envelope.Error.Fields[field]; !ok {
			t.Errorf("missing error for %s in %v", field, envelope.Error.Fields)
		}
	}
}

func TestRegisterBackendFieldErrors(t *testing.T) {
	rec := authRequest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"username":["A user with that username already exists."]}`))
	}, "/auth/register", model.RegisterRequest{
		Username:        "alice",
		Email:           "a@b.com",
		Password:        "password1",
		PasswordConfirm: "password1",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("register: %d, want 400", rec.Code)
	}
	var envelope struct {
		Error struct {
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &envelope)
	if envelope.Error.Fields["username"] == "" {
		t.Errorf("fields = %v, want backend username error surfaced", envelope.Error.Fields)
	}
}

func TestValidateRegistrationPasswordMismatch(t *testing.T) {
	fields := validateRegistration(&model.RegisterRequest{
		Username:        "alice",
		Email:           "a@b.com",
		Password:        "password1",
		PasswordConfirm: "password2",
	})
	if fields["password_confirm"] == "" {
		t.Errorf("fields = %v, want password_confirm error", fields)
	}
}
