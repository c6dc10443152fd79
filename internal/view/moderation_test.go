package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"doska-client/internal/model"
)

func TestNewModerationDefaults(t *testing.T) {
	m := NewModeration()
	assert.Equal(t, model.StatusPending, m.Filter.Status)
	assert.Equal(t, model.SortNewestFirst, m.Filter.Ordering)
	assert.Equal(t, 1, m.Filter.Page)
}

func TestModerationFilterChangesResetPage(t *testing.T) {
	m := NewModeration()
	m.SetPage(7)

	m.SetStatus(model.StatusPending) // unchanged, no reset
	assert.Equal(t, 7, m.Filter.Page)

	m.SetStatus(model.StatusApproved)
	assert.Equal(t, 1, m.Filter.Page)

	m.SetPage(3)
	m.SetSearch("bike")
	assert.Equal(t, 1, m.Filter.Page)

	m.SetPage(2)
	m.SetOrdering(model.SortPriceAsc)
	assert.Equal(t, 1, m.Filter.Page)

	m.SetPage(0)
	assert.Equal(t, 1, m.Filter.Page)
}

func TestModerationNoticeExpires(t *testing.T) {
	m := NewModeration()
	assert.Nil(t, m.Notice())

	m.Notify("Listing approved", "success")
	n := m.Notice()
	if assert.NotNil(t, n) {
		assert.Equal(t, "Listing approved", n.Message)
		assert.Equal(t, "success", n.Kind)
	}

	m.notice.ExpiresAt = time.Now().Add(-time.Millisecond)
	assert.Nil(t, m.Notice())
}

func TestActionsOnlyForPending(t *testing.T) {
	assert.Equal(t, []string{"approve", "reject"}, Actions(model.Listing{Status: model.StatusPending}))
	assert.Nil(t, Actions(model.Listing{Status: model.StatusApproved}))
	assert.Nil(t, Actions(model.Listing{Status: model.StatusRejected}))
	assert.Nil(t, Actions(model.Listing{Status: model.StatusDraft}))
}
