package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for responses the client reacts to by kind rather than
// by message.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("access token expired")
	ErrForbidden    = errors.New("forbidden")
)

// APIError is a backend rejection that may carry field-keyed detail. The
// Fields map follows the backend's serializer error shape
// ({"title": ["..."], ...}) and is merged into form error maps as-is; a
// rejection without structured detail has only Message set.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("backend rejected request (status %d): %d field errors", e.StatusCode, len(e.Fields))
	}
	return fmt.Sprintf("backend rejected request (status %d): %s", e.StatusCode, e.Message)
}

// decodeError maps a non-2xx response body to an error value. The body has
// already been read into raw.
func decodeError(statusCode int, raw []byte) error {
	switch statusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusUnauthorized:
		// The backend signals an expired access token with a
		// token_not_valid detail; anything else is a plain 401.
		body := string(raw)
		if strings.Contains(body, "token_not_valid") || strings.Contains(body, "expired") {
			return ErrTokenExpired
		}
		return ErrUnauthorized
	}

	apiErr := &APIError{StatusCode: statusCode}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		apiErr.Message = http.StatusText(statusCode)
		return apiErr
	}

	for key, val := range payload {
		if key == "detail" || key == "error" || key == "message" {
			var msg string
			if json.Unmarshal(val, &msg) == nil {
				apiErr.Message = msg
			}
			continue
		}

		var msgs []string
		if json.Unmarshal(val, &msgs) == nil {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = msgs
			continue
		}
		var msg string
		if json.Unmarshal(val, &msg) == nil {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = []string{msg}
		}
	}

	if apiErr.Message == "" && len(apiErr.Fields) == 0 {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}
