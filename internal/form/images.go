package form

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"doska-client/internal/model"
)

// previewWidth is the thumbnail width served back to the browser while a
// file is still pending upload.
const previewWidth = 160

// ImageAttachment is one image in the form's working set. Exactly two
// implementations exist: PersistedImage (already stored by the backend) and
// PendingImage (selected locally, not yet uploaded). A persisted image can
// be marked for deletion but never becomes pending again.
type ImageAttachment interface {
	isImageAttachment()
}

// PersistedImage has a backend identifier and a server URL.
type PersistedImage struct {
	ID  int64
	URL string
}

func (PersistedImage) isImageAttachment() {}

// PendingImage holds the file content awaiting submission plus a locally
// generated preview addressed by PreviewRef.
type PendingImage struct {
	Name        string
	ContentType string
	Data        []byte

	PreviewRef  string
	preview     []byte
	previewType string
}

func (*PendingImage) isImageAttachment() {}

// release drops the local preview buffer. Data survives until the
// attachment itself is removed; the preview is the only resource the form
// allocates beyond the file bytes it was handed.
func (p *PendingImage) release() {
	p.preview = nil
}

// IncomingFile is a file handed to AddImages, already read into memory.
type IncomingFile struct {
	Name string
	Data []byte
}

// imageSet is the ordered mixed persisted/pending sequence plus the set of
// persisted identifiers marked for deletion.
type imageSet struct {
	items   []ImageAttachment
	deleted map[int64]struct{}
}

func newImageSet() imageSet {
	return imageSet{deleted: make(map[int64]struct{})}
}

// add validates the incoming batch. A batch that would push the total past
// the cap is refused wholesale with model.ErrTooManyImages and the set is
// untouched. Otherwise files are judged one by one: invalid files yield one
// message each, valid files are appended in order.
func (s *imageSet) add(files []IncomingFile) ([]string, error) {
	if len(s.items)+len(files) > model.MaxListingImages {
		return nil, model.ErrTooManyImages
	}

	var fileErrors []string
	for _, f := range files {
		pending, err := newPendingImage(f)
		if err != nil {
			fileErrors = append(fileErrors, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		s.items = append(s.items, pending)
	}
	return fileErrors, nil
}

// remove drops the attachment at index. Persisted images leave their id in
// the deletion set (idempotently); pending images just release their
// preview. Remaining order is preserved, positions renumber implicitly.
func (s *imageSet) remove(index int) bool {
	if index < 0 || index >= len(s.items) {
		return false
	}
	switch img := s.items[index].(type) {
	case PersistedImage:
		s.deleted[img.ID] = struct{}{}
	case *PendingImage:
		img.release()
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	return true
}

// move splices the attachment from one position to another. Presentation
// order only: persisted/pending state and the deletion set are untouched,
// and the resulting order is the submission order.
func (s *imageSet) move(from, to int) bool {
	n := len(s.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	item := s.items[from]
	rest := append(s.items[:from:from], s.items[from+1:]...)
	tail := append([]ImageAttachment{item}, rest[to:]...)
	s.items = append(rest[:to:to], tail...)
	return true
}

// pendingFiles returns the not-yet-uploaded files in working-set order.
func (s *imageSet) pendingFiles() []*PendingImage {
	var out []*PendingImage
	for _, item := range s.items {
		if p, ok := item.(*PendingImage); ok {
			out = append(out, p)
		}
	}
	return out
}

// deletedIDs returns the deletion set. Always a subset of the identifiers
// that were persisted when the form opened.
func (s *imageSet) deletedIDs() []int64 {
	out := make([]int64, 0, len(s.deleted))
	for id := range s.deleted {
		out = append(out, id)
	}
	return out
}

// releaseAll drops every pending preview, used on form close and reap.
func (s *imageSet) releaseAll() {
	for _, item := range s.items {
		if p, ok := item.(*PendingImage); ok {
			p.release()
		}
	}
}

// newPendingImage validates one file (sniffed type, size cap) and prepares
// its local preview.
func newPendingImage(f IncomingFile) (*PendingImage, error) {
	if int64(len(f.Data)) > model.MaxImageSizeBytes {
		return nil, model.ErrFileTooLarge
	}

	sniffLen := len(f.Data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	contentType := http.DetectContentType(f.Data[:sniffLen])
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}

	p := &PendingImage{
		Name:        f.Name,
		ContentType: contentType,
		Data:        f.Data,
		PreviewRef:  uuid.NewString(),
	}
	p.preview, p.previewType = makePreview(f.Data, contentType)
	return p, nil
}

// makePreview renders a small JPEG thumbnail. Formats the decoder cannot
// handle (WEBP has no registered decoder) fall back to the original bytes.
func makePreview(data []byte, contentType string) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data, contentType
	}
	thumb := imaging.Resize(img, previewWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return data, contentType
	}
	return buf.Bytes(), model.ContentTypeJPEG
}
