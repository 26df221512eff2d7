package calllist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"htnadmin/internal/types"
)

func TestRenderTemplate(t *testing.T) {
	assert.Equal(t, "Hello Ann Lee, Ann Lee", RenderTemplate("Hello {{patient_name}}, {{patient_name}}", "Ann Lee"))
	assert.Equal(t, "Hello Patient", RenderTemplate("Hello {{patient_name}}", "  "))
	assert.Equal(t, "No placeholder", RenderTemplate("No placeholder", "Ann"))
}

func TestApplyTemplate(t *testing.T) {
	item := openItem(1, 0)
	form := ApplyTemplate(types.EmailTemplate{Subject: "BP check for {{patient_name}}", Body: "Dear {{patient_name}}"}, item)
	assert.Equal(t, "ann@example.org", form.To)
	assert.Equal(t, "BP check for Ann Lee", form.Subject)
	assert.Equal(t, "Dear Ann Lee", form.Body)
	assert.NoError(t, form.Validate())
}

func TestOverdueCount(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	past := openItem(1, 0)
	past.FollowUpDate = types.Timestamp{Time: now.Add(-time.Hour)}
	future := openItem(2, 0)
	future.FollowUpDate = types.Timestamp{Time: now.Add(time.Hour)}
	closedPast := openItem(3, 0)
	closedPast.Status = types.ItemClosed
	closedPast.FollowUpDate = past.FollowUpDate
	none := openItem(4, 0)

	items := []types.CallListItem{past, future, closedPast, none}
	assert.Equal(t, 1, OverdueCount(items, now))
	assert.Equal(t, 3, OpenCount(items))
}

func TestActions(t *testing.T) {
	open := openItem(1, 0)
	assert.Equal(t, []Action{ActionLogCall, ActionSendEmail, ActionSchedule, ActionResolve, ActionViewPatient}, Actions(open))
	assert.True(t, Allows(open, ActionSchedule))

	open.Status = types.ItemClosed
	assert.False(t, Allows(open, ActionLogCall))
	assert.Equal(t, "Schedule Follow-up", ActionSchedule.String())
}

func TestScheduleString(t *testing.T) {
	assert.Equal(t, "in 14 days", InDays(14).String())
	assert.Equal(t, "on Apr 2, 2026 10:00", OnDate(time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)).String())
}
