package view

import (
	"time"

	"doska-client/internal/model"
)

// NoticeTTL is how long a moderation outcome notification stays visible.
const NoticeTTL = 3 * time.Second

// Notice is a transient on-screen notification with its own expiry; the
// renderer drops it once expired instead of tracking a dismiss timer.
type Notice struct {
	Message   string    `json:"message"`
	Kind      string    `json:"kind"` // "success" or "error"
	ExpiresAt time.Time `json:"expires_at"`
}

// Moderation is the state of the moderator's queue view: a server-paginated
// filter plus the latest action outcome.
type Moderation struct {
	Filter model.ModerationFilter
	notice *Notice
}

// NewModeration opens on the pending queue, newest first.
func NewModeration() *Moderation {
	return &Moderation{
		Filter: model.ModerationFilter{
			Status:   model.StatusPending,
			Ordering: model.SortNewestFirst,
			Page:     1,
		},
	}
}

// SetStatus changes the status filter and resets to page 1.
func (m *Moderation) SetStatus(status string) {
	if status == m.Filter.Status {
		return
	}
	m.Filter.Status = status
	m.Filter.Page = 1
}

// SetSearch changes the search term and resets to page 1.
func (m *Moderation) SetSearch(search string) {
	if search == m.Filter.Search {
		return
	}
	m.Filter.Search = search
	m.Filter.Page = 1
}

// SetOrdering changes the ordering and resets to page 1.
func (m *Moderation) SetOrdering(ordering string) {
	if ordering == m.Filter.Ordering {
		return
	}
	m.Filter.Ordering = ordering
	m.Filter.Page = 1
}

// SetPage moves within the current filter state.
func (m *Moderation) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	m.Filter.Page = page
}

// Notify records an action outcome; it auto-dismisses after NoticeTTL.
func (m *Moderation) Notify(message, kind string) {
	m.notice = &Notice{
		Message:   message,
		Kind:      kind,
		ExpiresAt: time.Now().Add(NoticeTTL),
	}
}

// Notice returns the live notification, or nil once it has expired.
func (m *Moderation) Notice() *Notice {
	if m.notice == nil || time.Now().After(m.notice.ExpiresAt) {
		return nil
	}
	return m.notice
}

// Actions lists the moderation actions available for a row. Only pending
// listings can be resolved; once resolved the actions collapse.
func Actions(listing model.Listing) []string {
	if listing.Status == model.StatusPending {
		return []string{"approve", "reject"}
	}
	return nil
}
