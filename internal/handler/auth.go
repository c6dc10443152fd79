package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/httputil"
	"doska-client/internal/model"
	"doska-client/internal/transport/http/middleware"
	"doska-client/internal/validate"
)

// AuthHandler groups the auth endpoints: login, register, logout, current
// profile, and profile editing.
type AuthHandler struct {
	client *backend.Client
	logger *zap.Logger
}

func NewAuthHandler(client *backend.Client, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{client: client, logger: logger}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		httputil.WriteInternalError(w, "Session unavailable")
		return
	}

	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Username == "" {
		httputil.WriteBadRequest(w, "Username is required")
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "Password is required")
		return
	}

	if err := sess.Login(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Invalid username or password")
			return
		}
		h.logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		httputil.WriteInternalError(w, "Failed to login")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sess.User())
}

// Register handles POST /auth/register. Field rules run client-side first
// so the full error set is shown before any backend round trip.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		httputil.WriteInternalError(w, "Session unavailable")
		return
	}

	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if fields := validateRegistration(&req); len(fields) > 0 {
		httputil.WriteFieldErrors(w, http.StatusBadRequest, model.CodeValidationFailed, "Validation failed", fields)
		return
	}

	if err := sess.Register(r.Context(), req); err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			fields := make(map[string]string, len(apiErr.Fields))
			for field, msgs := range apiErr.Fields {
				fields[field] = strings.Join(msgs, "; ")
			}
			httputil.WriteFieldErrors(w, http.StatusBadRequest, model.CodeValidationFailed, "Validation failed", fields)
			return
		}
		h.logger.Error("registration failed", zap.String("username", req.Username), zap.Error(err))
		httputil.WriteInternalError(w, "Failed to register")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, sess.User())
}

func validateRegistration(req *model.RegisterRequest) map[string]string {
	fields := make(map[string]string)
	if !validate.Required(req.Username) {
		fields["username"] = "Username is required"
	}
	switch {
	case !validate.Required(req.Email):
		fields["email"] = "Email is required"
	case !validate.Email(req.Email):
		fields["email"] = "Invalid email format"
	}
	switch {
	case req.Password == "":
		fields["password"] = "Password is required"
	case !validate.Password(req.Password):
		fields["password"] = "Password must be at least 8 characters"
	case !validate.PasswordsMatch(req.Password, req.PasswordConfirm):
		fields["password_confirm"] = "Passwords do not match"
	}
	// Phone is optional on registration; only its format is checked.
	if !validate.Phone(req.Phone) {
		fields["phone"] = "Invalid phone format"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Logout handles POST /auth/logout. Tokens are cleared synchronously; no
// backend call is made.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if ok {
		sess.Logout()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /auth/me behind RequireAuth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":         sess.User(),
		"is_moderator": sess.IsModerator(),
	})
}

// UpdateProfile handles PATCH /auth/profile as multipart with an optional
// avatar file, mirroring the backend's own contract.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	maxFormSize := int64(model.MaxImageSizeBytes) + 1024*1024 // form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	update := model.ProfileUpdate{
		FirstName: strings.TrimSpace(r.FormValue("first_name")),
		LastName:  strings.TrimSpace(r.FormValue("last_name")),
		Phone:     strings.TrimSpace(r.FormValue("phone")),
		Email:     strings.TrimSpace(r.FormValue("email")),
	}

	fields := make(map[string]string)
	switch {
	case !validate.Required(update.Email):
		fields["email"] = "Email is required"
	case !validate.Email(update.Email):
		fields["email"] = "Invalid email format"
	}
	if !validate.Phone(update.Phone) {
		fields["phone"] = "Invalid phone format"
	}
	if len(fields) > 0 {
		httputil.WriteFieldErrors(w, http.StatusBadRequest, model.CodeValidationFailed, "Validation failed", fields)
		return
	}

	avatar, err := readAvatar(r)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, webp")
		default:
			httputil.WriteBadRequest(w, "Invalid avatar upload")
		}
		return
	}

	var updated *model.User
	err = sess.Authorized(r.Context(), func(token string) error {
		user, callErr := h.client.UpdateProfile(r.Context(), token, update, avatar)
		if callErr != nil {
			return callErr
		}
		updated = user
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrSessionExpired) {
			httputil.WriteUnauthorized(w, "Session expired")
			return
		}
		h.logger.Error("profile update failed", zap.Error(err))
		httputil.WriteInternalError(w, "Failed to update profile")
		return
	}

	sess.SetUser(updated)
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// readAvatar pulls the optional avatar part with the same type/size rules
// as listing images. Returns nil when no file was sent.
func readAvatar(r *http.Request) (*backend.FilePart, error) {
	file, header, err := r.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	if header.Size > model.MaxImageSizeBytes {
		return nil, model.ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, model.MaxImageSizeBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > model.MaxImageSizeBytes {
		return nil, model.ErrFileTooLarge
	}

	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	contentType := http.DetectContentType(data[:sniffLen])
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}

	return &backend.FilePart{Name: header.Filename, ContentType: contentType, Data: data}, nil
}
