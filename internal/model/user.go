package model

import (
	"errors"
	"time"
)

// User is the profile of a marketplace account as returned by the backend.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone"`
	AvatarURL   *string   `json:"avatar_url"`
	IsStaff     bool      `json:"is_staff"`
	IsModerator bool      `json:"is_moderator"`
	DateJoined  time.Time `json:"date_joined"`
}

// CanModerate reports whether the profile grants access to the moderation
// surface. Derived on every call so it can never go stale.
func (u *User) CanModerate() bool {
	if u == nil {
		return false
	}
	return u.IsStaff || u.IsModerator
}

// TokenPair is the access/refresh pair issued by the backend.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResponse is the login/register response body.
type AuthResponse struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// LoginRequest represents the data needed to log in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents the data needed to register a new account.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone"`
}

// ProfileUpdate carries the editable profile fields. Avatar travels as a
// separate multipart file part and is not represented here.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

var (
	// ErrInvalidCredentials is returned when login credentials are rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired is returned when both the access token and the
	// refresh token have been exhausted.
	ErrSessionExpired = errors.New("session expired")
)
