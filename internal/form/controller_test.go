package form

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"doska-client/internal/backend"
	"doska-client/internal/model"
)

// ============================================================================
// Test Helpers
// ============================================================================

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func validCreateForm() *Controller {
	c := NewCreate(nil)
	c.SetField(FieldTitle, "Mountain bike")
	c.SetField(FieldDescription, "Barely used, full suspension")
	c.SetField(FieldPrice, "250.00")
	c.SetField(FieldCategory, "3")
	c.SetField(FieldPhone, "+7 (912) 345-67-89")
	c.SetField(FieldEmail, "seller@example.com")
	return c
}

func editableListing() *model.Listing {
	return &model.Listing{
		ID:          42,
		Title:       "Old sofa",
		Description: "Three seats",
		Price:       "50.00",
		Category:    7,
		Author:      10,
		AuthorPhone: "+79123456789",
		AuthorEmail: "owner@example.com",
		Status:      model.StatusApproved,
		Images: []model.ListingImage{
			{ID: 3, URL: "/media/c.jpg", Order: 2},
			{ID: 1, URL: "/media/a.jpg", Order: 0},
			{ID: 2, URL: "/media/b.jpg", Order: 1},
		},
	}
}

// ============================================================================
// Opening Forms
// ============================================================================

func TestNewCreatePrefillsContactFields(t *testing.T) {
	user := &model.User{Phone: "+79990001122", Email: "me@example.com"}
	c := NewCreate(user)

	fields := c.Fields()
	if fields[FieldPhone] != "+79990001122" {
		t.Errorf("phone = %q, want prefilled", fields[FieldPhone])
	}
	if fields[FieldEmail] != "me@example.com" {
		t.Errorf("email = %q, want prefilled", fields[FieldEmail])
	}
	if c.Dirty() {
		t.Error("fresh create form should not be dirty")
	}
}

func TestNewEditRejectsNonOwner(t *testing.T) {
	_, err := NewEdit(editableListing(), 99)
	if !errors.Is(err, model.ErrNotListingOwner) {
		t.Fatalf("err = %v, want ErrNotListingOwner", err)
	}
}

func TestNewEditLoadsFieldsAndOrderedImages(t *testing.T) {
	c, err := NewEdit(editableListing(), 10)
	if err != nil {
		t.Fatalf("NewEdit: %v", err)
	}

	fields := c.Fields()
	if fields[FieldTitle] != "Old sofa" || fields[FieldCategory] != "7" {
		t.Errorf("fields not loaded: %v", fields)
	}

	images := c.Images()
	if len(images) != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}
	wantIDs := []int64{1, 2, 3}
	for i, img := range images {
		if !img.Persisted || img.ID != wantIDs[i] {
			t.Errorf("position %d: got id %d, want %d", i, img.ID, wantIDs[i])
		}
	}
}

// ============================================================================
// Field Editing
// ============================================================================

func TestSetFieldUnknownName(t *testing.T) {
	c := NewCreate(nil)
	if err := c.SetField("bogus", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestSetFieldClearsOwnError(t *testing.T) {
	c := NewCreate(nil)
	c.Validate()
	if _, ok := c.Errors()[FieldTitle]; !ok {
		t.Fatal("expected title error after validating empty form")
	}

	c.SetField(FieldTitle, "Bicycle")
	if _, ok := c.Errors()[FieldTitle]; ok {
		t.Error("title error should clear when the field changes")
	}
	if _, ok := c.Errors()[FieldPrice]; !ok {
		t.Error("other field errors should survive")
	}
}

// ============================================================================
// Validation
// ============================================================================

func TestValidateReportsEveryFailingField(t *testing.T) {
	c := NewCreate(nil)
	if c.Validate() {
		t.Fatal("empty form should not validate")
	}

	errs := c.Errors()
	for _, field := range []string{FieldTitle, FieldDescription, FieldPrice, FieldCategory, FieldPhone, FieldEmail} {
		if _, ok := errs[field]; !ok {
			t.Errorf("missing error for %s", field)
		}
	}
}

func TestValidateFieldRules(t *testing.T) {
	longTitle := make([]rune, model.MaxTitleLength+1)
	for i := range longTitle {
		longTitle[i] = 'a'
	}

	tests := []struct {
		name  string
		field string
		value string
	}{
		{"title over limit", FieldTitle, string(longTitle)},
		{"price not a number", FieldPrice, "free"},
		{"price zero", FieldPrice, "0"},
		{"price negative", FieldPrice, "-10"},
		{"email malformed", FieldEmail, "not-an-email"},
		{"phone malformed", FieldPhone, "call me"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCreateForm()
			c.SetField(tt.field, tt.value)
			if c.Validate() {
				t.Fatalf("form validated with %s = %q", tt.field, tt.value)
			}
			if _, ok := c.Errors()[tt.field]; !ok {
				t.Errorf("no error recorded for %s", tt.field)
			}
		})
	}
}

func TestValidateAcceptsCompleteForm(t *testing.T) {
	c := validCreateForm()
	if !c.Validate() {
		t.Fatalf("valid form rejected: %v", c.Errors())
	}
}

// ============================================================================
// Submission
// ============================================================================

func TestSubmitInvalidFormMakesNoNetworkCall(t *testing.T) {
	c := NewCreate(nil)
	called := false
	_, err := c.Submit(context.Background(), func(ctx context.Context, p backend.ListingPayload) (*model.Listing, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}
	if called {
		t.Error("send must not run when validation fails")
	}
	if len(c.Errors()) == 0 {
		t.Error("error map should be populated")
	}
}

func TestSubmitForcesPendingStatus(t *testing.T) {
	c := validCreateForm()
	listing, err := c.Submit(context.Background(), func(ctx context.Context, p backend.ListingPayload) (*model.Listing, error) {
		return &model.Listing{ID: 7, Status: model.StatusApproved}, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if listing.Status != model.StatusPending {
		t.Errorf("status = %q, want %q", listing.Status, model.StatusPending)
	}
	if c.Dirty() {
		t.Error("dirty flag should clear on success")
	}
}

func TestSubmitSingleFlight(t *testing.T) {
	c := validCreateForm()
	started := make(chan struct{})
	release := make(chan struct{})

	go c.Submit(context.Background(), func(ctx context.Context, p backend.ListingPayload) (*model.Listing, error) {
		close(started)
		<-release
		return &model.Listing{}, nil
	})
	<-started

	_, err := c.Submit(context.Background(), func(ctx context.Context, p backend.ListingPayload) (*model.Listing, error) {
		return &model.Listing{}, nil
	})
	close(release)
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("err = %v, want ErrSubmitInFlight", err)
	}
}

func TestSubmitMergesBackendFieldErrors(t *testing.T) {
	c := validCreateForm()
	apiErr := &backend.APIError{
		StatusCode: 400,
		Fields:     map[string][]string{FieldTitle: {"Too generic", "Already used"}},
	}
	_, err := c.Submit(context.Background(), func(ctx context.Context, p backend.ListingPayload) (*model.Listing, error) {
		return nil, apiErr
	})
	if err == nil {
		t.Fatal("expected submit error")
	}
	if got := c.Errors()[FieldTitle]; got != "Too generic; Already used" {
		t.Errorf("title error = %q", got)
	}
}

func TestSubmitGeneralErrorPerMode(t *testing.T) {
	boom := errors.New("connection refused")

	create := validCreateForm()
	create.Submit(context.Background(), func(ctx context.Context, p backend.ListingPayload) (*model.Listing, error) {
		return nil, boom
	})
	if got := create.Errors()[GeneralErrorKey]; got != "Failed to create listing" {
		t.Errorf("create general error = %q", got)
	}

	edit, err := NewEdit(editableListing(), 10)
	if err != nil {
		t.Fatalf("NewEdit: %v", err)
	}
	edit.Submit(context.Background(), func(ctx context.Context, p backend.ListingPayload) (*model.Listing, error) {
		return nil, boom
	})
	if got := edit.Errors()[GeneralErrorKey]; got != "Failed to update listing" {
		t.Errorf("edit general error = %q", got)
	}
}

func TestSubmitPayloadAssembly(t *testing.T) {
	c, err := NewEdit(editableListing(), 10)
	if err != nil {
		t.Fatalf("NewEdit: %v", err)
	}
	c.SetField(FieldTitle, "  Old sofa, refreshed  ")

	// Drop persisted images at positions 1 then 1 again (ids 2 and 3),
	// then attach a new file.
	if !c.RemoveImage(1) || !c.RemoveImage(1) {
		t.Fatal("remove failed")
	}
	fileErrs, err := c.AddImages([]IncomingFile{{Name: "new.png", Data: pngBytes(t, 30, 20)}})
	if err != nil || len(fileErrs) != 0 {
		t.Fatalf("AddImages: %v %v", err, fileErrs)
	}

	var got backend.ListingPayload
	_, err = c.Submit(context.Background(), func(ctx context.Context, p backend.ListingPayload) (*model.Listing, error) {
		got = p
		return &model.Listing{ID: 42}, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if got.Title != "Old sofa, refreshed" {
		t.Errorf("title = %q, want trimmed", got.Title)
	}
	if len(got.Images) != 1 || got.Images[0].Name != "new.png" {
		t.Errorf("images = %+v, want the one pending file", got.Images)
	}
	if len(got.DeleteImageIDs) != 2 || got.DeleteImageIDs[0] != 2 || got.DeleteImageIDs[1] != 3 {
		t.Errorf("delete ids = %v, want [2 3]", got.DeleteImageIDs)
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestClosedFormRejectsEverything(t *testing.T) {
	c := validCreateForm()
	c.Close()
	c.Close() // second close is a no-op

	if err := c.SetField(FieldTitle, "x"); !errors.Is(err, ErrFormClosed) {
		t.Errorf("SetField err = %v, want ErrFormClosed", err)
	}
	if _, err := c.AddImages(nil); !errors.Is(err, ErrFormClosed) {
		t.Errorf("AddImages err = %v, want ErrFormClosed", err)
	}
	if _, err := c.Submit(context.Background(), nil); !errors.Is(err, ErrFormClosed) {
		t.Errorf("Submit err = %v, want ErrFormClosed", err)
	}
	if c.RemoveImage(0) || c.MoveImage(0, 1) {
		t.Error("image mutations should be refused after close")
	}
}
