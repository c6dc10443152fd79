// Package form drives the create and edit workflows for a listing: field
// state, the mixed persisted/pending image set, validation, and assembly of
// the multipart submission payload. The remote backend owns everything that
// happens after submission.
package form

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"doska-client/internal/backend"
	"doska-client/internal/model"
	"doska-client/internal/validate"
)

// Mode distinguishes the create and edit workflows.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Recognized scalar field names, matching the backend's wire names so
// field-keyed backend errors merge into the same map.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCategory    = "category"
	FieldPhone       = "author_phone"
	FieldEmail       = "author_email"
)

// GeneralErrorKey holds failures that are not tied to a single field.
const GeneralErrorKey = "general"

var fieldNames = map[string]struct{}{
	FieldTitle:       {},
	FieldDescription: {},
	FieldPrice:       {},
	FieldCategory:    {},
	FieldPhone:       {},
	FieldEmail:       {},
}

var (
	// ErrValidationFailed means the error map was populated and no
	// network call was made.
	ErrValidationFailed = errors.New("validation failed")

	// ErrSubmitInFlight rejects a second submission while one is pending.
	ErrSubmitInFlight = errors.New("submission already in flight")

	// ErrFormClosed is returned once a controller has been closed or
	// reaped; late callers must treat it as a no-op.
	ErrFormClosed = errors.New("form is closed")

	// ErrUnknownField rejects a field name outside the listing form.
	ErrUnknownField = errors.New("unknown form field")
)

// SubmitFunc performs the actual backend call for an assembled payload. The
// handler layer supplies it with the session's token plumbing attached.
type SubmitFunc func(ctx context.Context, payload backend.ListingPayload) (*model.Listing, error)

// Controller is the working set of one listing being created or edited. All
// methods are safe for concurrent use; the submission network call runs
// outside the lock so field edits stay responsive.
type Controller struct {
	mu sync.Mutex

	id        string
	mode      Mode
	listingID int64

	fields map[string]string
	images imageSet
	errs   map[string]string

	dirty      bool
	submitting bool
	closed     bool
	lastTouch  time.Time
}

// NewCreate opens an empty create form, prefilling the contact fields from
// the session profile when available.
func NewCreate(user *model.User) *Controller {
	c := newController(ModeCreate)
	if user != nil {
		c.fields[FieldPhone] = user.Phone
		c.fields[FieldEmail] = user.Email
	}
	return c
}

// NewEdit opens an edit form over a fetched listing. Edit access is
// restricted to the author: a mismatch refuses to load with
// model.ErrNotListingOwner so the caller can redirect away. The server
// enforces the same rule; this is the client-side guard.
func NewEdit(listing *model.Listing, currentUserID int64) (*Controller, error) {
	if listing.Author != currentUserID {
		return nil, model.ErrNotListingOwner
	}

	c := newController(ModeEdit)
	c.listingID = listing.ID
	c.fields[FieldTitle] = listing.Title
	c.fields[FieldDescription] = listing.Description
	c.fields[FieldPrice] = listing.Price
	c.fields[FieldCategory] = strconv.FormatInt(listing.Category, 10)
	c.fields[FieldPhone] = listing.AuthorPhone
	c.fields[FieldEmail] = listing.AuthorEmail

	images := make([]model.ListingImage, len(listing.Images))
	copy(images, listing.Images)
	sort.SliceStable(images, func(i, j int) bool { return images[i].Order < images[j].Order })
	for _, img := range images {
		c.images.items = append(c.images.items, PersistedImage{ID: img.ID, URL: img.URL})
	}
	return c, nil
}

func newController(mode Mode) *Controller {
	return &Controller{
		id:        uuid.NewString(),
		mode:      mode,
		fields:    make(map[string]string),
		images:    newImageSet(),
		errs:      make(map[string]string),
		lastTouch: time.Now(),
	}
}

// ID is the registry key of this working set.
func (c *Controller) ID() string { return c.id }

// Mode reports create or edit.
func (c *Controller) Mode() Mode { return c.mode }

// ListingID is the target listing in edit mode, 0 in create mode.
func (c *Controller) ListingID() int64 { return c.listingID }

// SetField replaces one scalar value, clears that field's error and marks
// the working set dirty.
func (c *Controller) SetField(name, value string) error {
	if _, ok := fieldNames[name]; !ok {
		return ErrUnknownField
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrFormClosed
	}
	c.fields[name] = value
	delete(c.errs, name)
	c.dirty = true
	c.touch()
	return nil
}

// Fields returns a copy of the scalar values.
func (c *Controller) Fields() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.fields))
	for k, v := range c.fields {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the per-field error map.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

// Dirty reports unsaved changes; the navigation guard reads it to decide
// whether to warn before leaving.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// AddImages validates and appends a batch of files. When the batch would
// exceed the image cap nothing is added and model.ErrTooManyImages comes
// back; otherwise per-file rejection messages are returned and the valid
// files of the batch are in the working set.
func (c *Controller) AddImages(files []IncomingFile) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrFormClosed
	}
	fileErrors, err := c.images.add(files)
	if err != nil {
		return nil, err
	}
	delete(c.errs, "images")
	c.dirty = true
	c.touch()
	return fileErrors, nil
}

// RemoveImage drops the attachment at index. A persisted image lands in the
// deletion set exactly once; a pending one is simply discarded.
func (c *Controller) RemoveImage(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if !c.images.remove(index) {
		return false
	}
	c.dirty = true
	c.touch()
	return true
}

// MoveImage reorders the sequence; the new order is the submission order.
func (c *Controller) MoveImage(from, to int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if !c.images.move(from, to) {
		return false
	}
	c.dirty = true
	c.touch()
	return true
}

// ImageView is a render-ready row of the image sequence.
type ImageView struct {
	Position   int    `json:"position"`
	Persisted  bool   `json:"persisted"`
	ID         int64  `json:"id,omitempty"`
	URL        string `json:"url,omitempty"`
	PreviewRef string `json:"preview_ref,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Images snapshots the ordered sequence for rendering.
func (c *Controller) Images() []ImageView {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ImageView, 0, len(c.images.items))
	for i, item := range c.images.items {
		switch img := item.(type) {
		case PersistedImage:
			out = append(out, ImageView{Position: i, Persisted: true, ID: img.ID, URL: img.URL})
		case *PendingImage:
			out = append(out, ImageView{Position: i, PreviewRef: img.PreviewRef, Name: img.Name})
		}
	}
	return out
}

// DeletedImageIDs snapshots the deletion set, sorted for determinism.
func (c *Controller) DeletedImageIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.images.deletedIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Preview serves a pending image's local thumbnail by ref.
func (c *Controller) Preview(ref string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.images.items {
		if p, ok := item.(*PendingImage); ok && p.PreviewRef == ref && p.preview != nil {
			return p.preview, p.previewType, true
		}
	}
	return nil, "", false
}

// Validate runs every field rule, never short-circuiting, so the user sees
// the complete error set at once. Phone and email are both required here,
// unlike the generic profile flow where phone is optional.
func (c *Controller) Validate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked()
}

func (c *Controller) validateLocked() bool {
	errs := make(map[string]string)

	title := c.fields[FieldTitle]
	switch {
	case !validate.Required(title):
		errs[FieldTitle] = "Title is required"
	case len([]rune(title)) > model.MaxTitleLength:
		errs[FieldTitle] = "Title must be at most 200 characters"
	}

	description := c.fields[FieldDescription]
	switch {
	case !validate.Required(description):
		errs[FieldDescription] = "Description is required"
	case len([]rune(description)) > model.MaxDescriptionLength:
		errs[FieldDescription] = "Description must be at most 5000 characters"
	}

	price := strings.TrimSpace(c.fields[FieldPrice])
	if price == "" {
		errs[FieldPrice] = "Price is required"
	} else if v, err := strconv.ParseFloat(price, 64); err != nil {
		errs[FieldPrice] = "Price must be a number"
	} else if v <= 0 {
		errs[FieldPrice] = "Price must be greater than zero"
	}

	if !validate.Required(c.fields[FieldCategory]) {
		errs[FieldCategory] = "Category is required"
	}

	phone := c.fields[FieldPhone]
	switch {
	case !validate.Required(phone):
		errs[FieldPhone] = "Phone is required"
	case !validate.Phone(phone):
		errs[FieldPhone] = "Invalid phone format"
	}

	email := c.fields[FieldEmail]
	switch {
	case !validate.Required(email):
		errs[FieldEmail] = "Email is required"
	case !validate.Email(email):
		errs[FieldEmail] = "Invalid email format"
	}

	c.errs = errs
	return len(errs) == 0
}

// Submit validates, assembles the multipart payload and runs send. Only one
// submission per controller may be in flight; a validation failure makes no
// network call. On success the dirty flag clears and the returned listing
// is forced to pending, since create and edit always re-enter moderation
// server-side. Field-keyed backend rejections merge into the error map.
func (c *Controller) Submit(ctx context.Context, send SubmitFunc) (*model.Listing, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrFormClosed
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if !c.validateLocked() {
		c.mu.Unlock()
		return nil, ErrValidationFailed
	}
	payload := c.payloadLocked()
	c.submitting = true
	c.touch()
	c.mu.Unlock()

	listing, err := send(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		c.recordSubmitError(err)
		return nil, err
	}

	c.dirty = false
	listing.Status = model.StatusPending
	return listing, nil
}

func (c *Controller) payloadLocked() backend.ListingPayload {
	payload := backend.ListingPayload{
		Title:       strings.TrimSpace(c.fields[FieldTitle]),
		Description: strings.TrimSpace(c.fields[FieldDescription]),
		Price:       strings.TrimSpace(c.fields[FieldPrice]),
		Category:    strings.TrimSpace(c.fields[FieldCategory]),
		AuthorPhone: strings.TrimSpace(c.fields[FieldPhone]),
		AuthorEmail: strings.TrimSpace(c.fields[FieldEmail]),
	}
	for _, p := range c.images.pendingFiles() {
		payload.Images = append(payload.Images, backend.FilePart{
			Name:        p.Name,
			ContentType: p.ContentType,
			Data:        p.Data,
		})
	}
	if c.mode == ModeEdit {
		ids := c.images.deletedIDs()
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		payload.DeleteImageIDs = ids
	}
	return payload
}

func (c *Controller) recordSubmitError(err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		for field, msgs := range apiErr.Fields {
			c.errs[field] = strings.Join(msgs, "; ")
		}
		return
	}
	if c.mode == ModeEdit {
		c.errs[GeneralErrorKey] = "Failed to update listing"
	} else {
		c.errs[GeneralErrorKey] = "Failed to create listing"
	}
}

// Close releases local preview resources and rejects further use. Closing
// twice is harmless.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.images.releaseAll()
	c.closed = true
}

// IdleSince reports the last user interaction, read by the reaper.
func (c *Controller) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTouch
}

func (c *Controller) touch() {
	c.lastTouch = time.Now()
}
