package model

import (
	"errors"
	"time"
)

// Listing status values. "draft" exists in the backend's vocabulary but no
// client flow ever produces or filters on it.
const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Listing represents a single classified ad as served by the backend.
type Listing struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Price        string         `json:"price"` // decimal string on the wire
	Category     int64          `json:"category"`
	CategoryName string         `json:"category_name"`
	Author       int64          `json:"author"`
	AuthorName   string         `json:"author_name"`
	AuthorPhone  string         `json:"author_phone"`
	AuthorEmail  string         `json:"author_email"`
	Status       string         `json:"status"`
	Images       []ListingImage `json:"images"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ListingImage is a persisted image attachment of a listing.
type ListingImage struct {
	ID    int64  `json:"id"`
	URL   string `json:"image"`
	Order int    `json:"order"`
}

// ListingPage is one page of a paginated listing collection.
type ListingPage struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Listing `json:"results"`
}

// Category is a flat reference entity, fetched read-only.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Listing field limits enforced client-side before any network call.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000

	MaxListingImages  = 5
	MaxImageSizeBytes = 5 * 1024 * 1024 // 5MB per file

	PageSize = 12
)

// Supported image content types for listing attachments
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeWebP: {},
}

// IsAllowedImageType reports whether a sniffed content type may be attached
// to a listing.
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// Sort keys accepted by the browse and moderation views. The backend uses
// DRF-style ordering values.
const (
	SortNewestFirst = "-created_at"
	SortPriceAsc    = "price"
	SortPriceDesc   = "-price"
)

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
	CodeTooManyImages    = "TOO_MANY_IMAGES"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeDeleteFailed     = "DELETE_FAILED"
)

// Domain errors for listing operations
var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrNotListingOwner  = errors.New("not the owner of this listing")
	ErrTooManyImages    = errors.New("too many images")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
)
