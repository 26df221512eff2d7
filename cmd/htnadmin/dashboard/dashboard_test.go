package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htnadmin/internal/calllist"
	"htnadmin/internal/session"
)

func TestScreenFor(t *testing.T) {
	tests := []struct {
		state   session.State
		pending bool
		want    Screen
	}{
		{session.Anonymous, false, ScreenLogin},
		{session.MFARequired, false, ScreenMFAVerify},
		{session.MFASetupRequired, false, ScreenMFASetup},
		{session.Authenticated, false, ScreenMain},
		{session.Authenticated, true, ScreenBackupCodes},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, screenFor(tt.state, tt.pending), "state %s pending %v", tt.state, tt.pending)
	}
}

func TestCycle(t *testing.T) {
	list := []string{"a", "b", "c"}
	assert.Equal(t, "b", cycle(list, "a", true))
	assert.Equal(t, "a", cycle(list, "c", true))
	assert.Equal(t, "c", cycle(list, "a", false))
	assert.Equal(t, "a", cycle(list, "zzz", true))
}

func TestLoginReachesDashboard(t *testing.T) {
	srv := newFakeServer()
	h := newHarness(t, srv, "")
	require.Equal(t, ScreenLogin, h.m.screen)
	h.assertView("Sign in")

	h.typeText("admin@example.org")
	h.key("enter")

	require.Equal(t, ScreenMain, h.m.screen)
	assert.Equal(t, "admin@example.org", srv.body("login")["email"])
	assert.Equal(t, "session-token", h.m.cfg.Session.Token())
	h.assertView("1,234", "Dashboard")
}

func TestMFASetupShowsBackupCodesOnce(t *testing.T) {
	srv := newFakeServer()
	srv.login = map[string]interface{}{"mfa_setup_required": true, "tempToken": "temp-token"}
	h := newHarness(t, srv, "")

	h.typeText("admin@example.org")
	h.key("enter")
	require.Equal(t, ScreenMFASetup, h.m.screen)
	h.assertView("JBSWY3DPEHPK3PXP")

	h.typeText("123456")
	h.key("enter")
	require.Equal(t, ScreenBackupCodes, h.m.screen)
	assert.Equal(t, "123456", srv.body("confirm")["code"])
	h.assertView("aaaa-1111", "bbbb-2222")

	h.key("y")
	assert.Equal(t, ScreenMain, h.m.screen)
	assert.Empty(t, h.m.cfg.Session.BackupCodes())
	assert.NotContains(t, h.view(), "aaaa-1111")
}

func TestUsersBulkApprove(t *testing.T) {
	srv := newFakeServer()
	h := newHarness(t, srv, "session-token")
	require.Equal(t, ScreenMain, h.m.screen)

	h.key("2")
	require.Equal(t, PageUsers, h.m.page)
	h.assertView("Ana Diaz", "Ben Osei")

	h.key(" ")
	h.key("A")
	h.assertView("Approve 1 selected users?")
	h.key("y")

	body := srv.body("bulk-approve")
	require.NotNil(t, body)
	assert.Equal(t, []interface{}{float64(11)}, body["user_ids"])
	assert.Contains(t, h.m.status, "Approve:")
	assert.False(t, h.m.statusWarn)
}

func TestUsersSearchDebounces(t *testing.T) {
	h := newHarness(t, newFakeServer(), "session-token")
	h.key("2")

	h.key("/")
	require.True(t, h.m.current().typing())
	h.typeText("ana")
	h.key("enter")
	assert.False(t, h.m.current().typing())

	h.settle(50 * time.Millisecond)
	assert.Equal(t, "ana", h.m.pages[PageUsers].(*usersPage).users.Search())
}

func TestCallListAutoCloseNotice(t *testing.T) {
	srv := newFakeServer()
	srv.autoClose = true
	h := newHarness(t, srv, "session-token")

	h.key("5")
	require.Equal(t, PageCallList, h.m.page)
	h.assertView("Ben Osei")

	h.key("l")
	require.True(t, h.m.current().typing())
	h.key("enter")

	require.NotNil(t, srv.body("attempt"))
	assert.Equal(t, "completed", srv.body("attempt")["outcome"])
	assert.Equal(t, calllist.AutoCloseNotice, h.m.status)
	assert.True(t, h.m.statusWarn)
}

func TestUnauthorizedReturnsToLogin(t *testing.T) {
	srv := newFakeServer()
	h := newHarness(t, srv, "session-token")
	require.Equal(t, ScreenMain, h.m.screen)

	srv.setUnauthorized(true)
	h.key("r")
	h.settle(20 * time.Millisecond)

	assert.Equal(t, ScreenLogin, h.m.screen)
	assert.Equal(t, session.Anonymous, h.m.cfg.Session.State())
	h.assertView("You have been signed out.")
	_, ok, err := h.store.LoadSession()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogoutKey(t *testing.T) {
	h := newHarness(t, newFakeServer(), "session-token")
	h.key("ctrl+x")
	h.settle(20 * time.Millisecond)
	assert.Equal(t, ScreenLogin, h.m.screen)
	assert.Empty(t, h.m.cfg.Session.Token())
}

func TestPatientNote(t *testing.T) {
	srv := newFakeServer()
	h := newHarness(t, srv, "session-token")
	h.key("5")
	h.key("enter")
	require.Equal(t, PagePatient, h.m.page)
	require.NotNil(t, h.m.patient)
	assert.Equal(t, 12, h.m.patient.detail.ID())

	h.key("n")
	h.typeText("called twice")
	h.key("enter")

	assert.Equal(t, "called twice", srv.body("note")["text"])
	assert.Equal(t, "Note added", h.m.status)

	h.key("esc")
	assert.Equal(t, PageCallList, h.m.page)
	assert.Nil(t, h.m.patient)
}

func TestChartsPage(t *testing.T) {
	h := newHarness(t, newFakeServer(), "session-token")
	h.key("4")
	require.Equal(t, PageCharts, h.m.page)

	view := h.view()
	assert.Contains(t, view, "BP category distribution")
	assert.Contains(t, view, "100%  140+/90+")
	assert.Contains(t, view, "0%  <120/80")
	assert.NotContains(t, view, "%!")
	h.assertView("Average BP (Daily)", "User growth (Daily)")

	h.key("t")
	h.assertView("Average BP (Weekly)", "User growth (Daily)")
	h.key("g")
	h.assertView("User growth (Weekly)")
}
