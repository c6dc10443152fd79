package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"doska-client/internal/model"
)

// Login exchanges credentials for a profile plus token pair.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.sendJSON(ctx, http.MethodPost, "/api/auth/login/", "", req, &resp)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and logs it in atomically.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/auth/register/", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me fetches the profile behind an access token. Used both for request
// handling and to validate a persisted token at session start.
func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	if err := c.getJSON(ctx, "/api/auth/me/", token, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh rotates the token pair. The backend invalidates the presented
// refresh token, so the caller must persist the returned pair immediately.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	body := map[string]string{"refresh": refreshToken}
	var pair model.TokenPair
	if err := c.sendJSON(ctx, http.MethodPost, "/api/auth/refresh/", "", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// UpdateProfile patches the profile. avatar may be nil; when present it is
// sent as a multipart file part alongside the scalar fields.
func (c *Client) UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate, avatar *FilePart) (*model.User, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"first_name": update.FirstName,
		"last_name":  update.LastName,
		"phone":      update.Phone,
		"email":      update.Email,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write profile field %s: %w", name, err)
		}
	}
	if avatar != nil {
		if err := writeFilePart(w, "avatar", avatar); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize profile form: %w", err)
	}

	var user model.User
	if err := c.do(ctx, http.MethodPatch, "/api/auth/profile/", token, &buf, w.FormDataContentType(), &user); err != nil {
		return nil, err
	}
	return &user, nil
}
