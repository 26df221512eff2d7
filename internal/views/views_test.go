package views

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htnadmin/internal/api"
	"htnadmin/internal/journal"
	"htnadmin/internal/types"
)

func ts(s string) types.Timestamp {
	t, err := types.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeAdmin serves the user, reading, and report endpoints from memory and
// remembers the last query string per route.
type fakeAdmin struct {
	mu       sync.Mutex
	queries  map[string]url.Values
	bodies   map[string]map[string]interface{}
	users    []types.Patient
	readings []types.Reading
	notes    []types.AdminNote
	calls    []types.CallAttempt
	report   types.CallReport
	stats    types.Stats
	flagged  bool
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{queries: map[string]url.Values{}, bodies: map[string]map[string]interface{}{}}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAdmin) seen(name string, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[name] = r.URL.Query()
	if r.Body != nil && r.Method != http.MethodGet {
		var body map[string]interface{}
		if json.NewDecoder(r.Body).Decode(&body) == nil {
			f.bodies[name] = body
		}
	}
}

func (f *fakeAdmin) query(name string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[name]
}

func (f *fakeAdmin) body(name string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[name]
}

func (f *fakeAdmin) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.stats)
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/unions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"unions": []types.Union{{ID: 3, Name: "Local 3"}, {ID: 7, Name: "Local 7"}}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users", func(w http.ResponseWriter, r *http.Request) {
		f.seen("users", r)
		writeJSON(w, http.StatusOK, api.UserList{Users: f.users, TotalCount: len(f.users)})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/tab-counts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"all": 120, "pending_approval": 4})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/tab/{tab}", func(w http.ResponseWriter, r *http.Request) {
		f.seen("tab:"+mux.Vars(r)["tab"], r)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		writeJSON(w, http.StatusOK, api.UserTabPage{Users: f.users, Total: 120, Page: page, PerPage: perPage, Pages: 3})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/bulk-approve", func(w http.ResponseWriter, r *http.Request) {
		f.seen("bulk-approve", r)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "done",
			"results": map[string]interface{}{
				"success": []interface{}{1, map[string]int{"id": 2}},
				"skipped": []types.BulkFailure{{ID: 3, Reason: "already active"}},
				"error":   []types.BulkFailure{},
			},
		})
	}).Methods(http.MethodPost)
	r.HandleFunc("/admin/users/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(mux.Vars(r)["id"])
		writeJSON(w, http.StatusOK, types.Patient{ID: id, Name: "Ana Diaz", Status: types.StatusActive, IsFlagged: f.flagged})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id:[0-9]+}/approve", func(w http.ResponseWriter, r *http.Request) {
		f.seen("approve", r)
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}).Methods(http.MethodPut)
	r.HandleFunc("/admin/users/{id:[0-9]+}/flag", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.flagged = !f.flagged
		flagged := f.flagged
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]bool{"is_flagged": flagged})
	}).Methods(http.MethodPut)
	r.HandleFunc("/admin/users/{id:[0-9]+}/status", func(w http.ResponseWriter, r *http.Request) {
		f.seen("status", r)
		id, _ := strconv.Atoi(mux.Vars(r)["id"])
		status := types.UserStatus(f.body("status")["user_status"].(string))
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "ok", "user": types.Patient{ID: id, Name: "Ana Diaz", Status: status}})
	}).Methods(http.MethodPut)
	r.HandleFunc("/admin/users/{id:[0-9]+}/notes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"notes": f.notes})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id:[0-9]+}/notes", func(w http.ResponseWriter, r *http.Request) {
		f.seen("add-note", r)
		writeJSON(w, http.StatusCreated, types.AdminNote{ID: 99, Text: f.body("add-note")["text"].(string), AdminName: "Nurse Joy"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/admin/users/{id:[0-9]+}/call-history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": f.calls})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/readings", func(w http.ResponseWriter, r *http.Request) {
		f.seen("readings", r)
		writeJSON(w, http.StatusOK, api.ReadingList{Readings: f.readings, TotalCount: 40})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/call-reports", func(w http.ResponseWriter, r *http.Request) {
		f.seen("call-reports", r)
		writeJSON(w, http.StatusOK, f.report)
	}).Methods(http.MethodGet)
	return r
}

func (f *fakeAdmin) client(t *testing.T) *api.Client {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	return api.New(srv.URL)
}

type actionLog struct {
	mu      sync.Mutex
	actions []journal.Action
}

func (l *actionLog) Record(_ context.Context, a journal.Action) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a)
	return nil
}

func (l *actionLog) kinds() []journal.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]journal.Kind, len(l.actions))
	for i, a := range l.actions {
		out[i] = a.Kind
	}
	return out
}

func TestDashboardLoad(t *testing.T) {
	f := newFakeAdmin()
	f.stats = types.Stats{TotalUsers: 12, PendingApprovals: 2, ReadingsToday: 5}
	f.users = []types.Patient{{ID: 1, Name: "Ana Diaz", CreatedAt: ts("2026-03-02T09:00:00")}}
	f.readings = []types.Reading{
		{ID: 1, UserID: 1, UserName: "Ana Diaz", Systolic: 185, Diastolic: 100, ReadingDate: ts("2026-03-03T12:00:00")}, // Tuesday
		{ID: 2, UserID: 2, Systolic: 118, Diastolic: 76, ReadingDate: ts("2026-03-04T12:00:00")},                         // Wednesday
	}

	d := NewDashboard(f.client(t))
	data, err := d.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, data.Stats.TotalUsers)
	assert.Equal(t, "5", f.query("users").Get("limit"))
	assert.Equal(t, "10", f.query("readings").Get("limit"))

	require.Len(t, data.Activity, 3)
	assert.Equal(t, ActivityReading, data.Activity[0].Kind)
	assert.Equal(t, "User #2 · 118/76 mmHg", data.Activity[0].Detail)
	assert.Equal(t, ActivityAlert, data.Activity[1].Kind)
	assert.Equal(t, ActivityNewUser, data.Activity[2].Kind)
	assert.Equal(t, "Ana Diaz registered", data.Activity[2].Detail)

	require.Len(t, data.Weekday, 7)
	assert.Equal(t, time.Monday, data.Weekday[0].Day)
	assert.Equal(t, time.Sunday, data.Weekday[6].Day)
	assert.Equal(t, 1, data.Weekday[1].Count)
	assert.Equal(t, 1, data.Weekday[2].Count)
	assert.Equal(t, data, d.Data())
}

func TestBuildActivityKeepsSevenNewest(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var readings []types.Reading
	for i := 0; i < 10; i++ {
		readings = append(readings, types.Reading{ID: i, UserName: "P", Systolic: 120, Diastolic: 70, ReadingDate: types.NewTimestamp(base.Add(time.Duration(i) * time.Hour))})
	}
	got := BuildActivity(nil, readings)
	require.Len(t, got, 7)
	assert.True(t, got[0].At.Equal(base.Add(9*time.Hour)))
	assert.True(t, got[6].At.Equal(base.Add(3*time.Hour)))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "Just now"},
		{now.Add(-5 * time.Minute), "5 min ago"},
		{now.Add(-3 * time.Hour), "3 hr ago"},
		{now.Add(-50 * time.Hour), "2 days ago"},
		{time.Time{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(tt.at, now))
	}
}

func TestUsersLoadSendsTabQuery(t *testing.T) {
	f := newFakeAdmin()
	f.users = []types.Patient{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Ben"}}
	u := NewUsers(f.client(t), nil, 0)

	u.SetTab(types.TabPendingApproval)
	u.SetSearch("ana")
	htn := true
	u.SetFilters(UserFilters{UnionID: 7, Gender: "female", HasHTN: &htn})
	require.NoError(t, u.Load(context.Background()))

	q := f.query("tab:pending_approval")
	require.NotNil(t, q)
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "50", q.Get("per_page"))
	assert.Equal(t, "created_at", q.Get("sort"))
	assert.Equal(t, "desc", q.Get("dir"))
	assert.Equal(t, "ana", q.Get("search"))
	assert.Equal(t, "7", q.Get("union_id"))
	assert.Equal(t, "female", q.Get("gender"))
	assert.Equal(t, "true", q.Get("has_htn"))

	assert.Len(t, u.Rows(), 2)
	assert.Equal(t, 120, u.Pager().Total)
	assert.Equal(t, 3, u.Pager().TotalPages())
	assert.Equal(t, 4, u.Counts()[types.TabPendingApproval])
}

func TestUsersFilterChangeResetsPageAndSelection(t *testing.T) {
	f := newFakeAdmin()
	f.users = []types.Patient{{ID: 1}, {ID: 2}}
	u := NewUsers(f.client(t), nil, 0)
	require.NoError(t, u.Load(context.Background()))

	u.GoToPage(3)
	require.NoError(t, u.ToggleSelect(1))
	assert.Equal(t, 3, u.Pager().CurrentPage())

	u.SortBy("created_at")
	assert.Equal(t, Asc, u.Filters().Dir)
	assert.Equal(t, 1, u.Pager().CurrentPage())
	assert.Empty(t, u.Selected())

	u.SortBy("union_id")
	assert.Equal(t, "union_id", u.Filters().Sort)
	assert.Equal(t, Desc, u.Filters().Dir)

	// Setting the same search again is not a change.
	u.SetSearch("x")
	u.GoToPage(2)
	u.SetSearch("x")
	assert.Equal(t, 2, u.Pager().CurrentPage())
}

func TestUsersSelectionLimit(t *testing.T) {
	u := NewUsers(nil, nil, 0)
	for id := 1; id <= api.MaxBulkUsers; id++ {
		require.NoError(t, u.ToggleSelect(id))
	}
	err := u.ToggleSelect(api.MaxBulkUsers + 1)
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Maximum 100 users per operation", api.UserMessage(err))

	require.NoError(t, u.ToggleSelect(5))
	assert.False(t, u.IsSelected(5))
	assert.Len(t, u.Selected(), api.MaxBulkUsers-1)
}

func TestUsersBulkApprove(t *testing.T) {
	f := newFakeAdmin()
	f.users = []types.Patient{{ID: 1}, {ID: 2}, {ID: 3}}
	log := &actionLog{}
	u := NewUsers(f.client(t), log, 0)
	require.NoError(t, u.Load(context.Background()))

	require.NoError(t, u.ToggleSelect(3))
	require.NoError(t, u.ToggleSelect(1))
	require.NoError(t, u.ToggleSelect(2))

	res, err := u.BulkApprove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Success)
	assert.Equal(t, "2 succeeded, 1 skipped, 0 failed", res.Summary())

	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, f.body("bulk-approve")["user_ids"])
	assert.Empty(t, u.Selected())
	assert.Equal(t, []journal.Kind{journal.KindBulkApprove}, log.kinds())
}

func TestUsersSingleActionsJournal(t *testing.T) {
	f := newFakeAdmin()
	log := &actionLog{}
	u := NewUsers(f.client(t), log, 0)
	ctx := context.Background()

	require.NoError(t, u.Approve(ctx, 4))
	flagged, err := u.ToggleFlag(ctx, 4)
	require.NoError(t, err)
	assert.True(t, flagged)
	require.NoError(t, u.SetStatus(ctx, 4, types.StatusPendingCuff))
	assert.Equal(t, "pending_cuff", f.body("status")["user_status"])

	err = u.SetStatus(ctx, 4, types.UserStatus("bogus"))
	require.Error(t, err)

	assert.Equal(t, []journal.Kind{journal.KindUserApproved, journal.KindUserFlagged, journal.KindUserStatusChanged}, log.kinds())
	log.mu.Lock()
	assert.Equal(t, 4, log.actions[0].TargetID)
	log.mu.Unlock()
}

func TestCallReportsFilters(t *testing.T) {
	f := newFakeAdmin()
	f.report = types.CallReport{
		Attempts: []types.CallAttempt{
			{ID: 1, PatientName: "Ana Diaz", Outcome: types.OutcomeCompleted},
			{ID: 2, PatientName: "Ben Ortiz", Outcome: types.OutcomeNoAnswer},
		},
		TotalCount: 2,
		Summary:    types.CallReportSummary{TotalAll: 30, TotalWeek: 2, ByOutcome: map[types.Outcome]int{types.OutcomeCompleted: 1}},
	}
	c := NewCallReports(f.client(t))
	c.Outcomes.Toggle(types.OutcomeNoAnswer)
	c.Outcomes.Toggle(types.OutcomeCompleted)
	c.ListTypes.Toggle(types.ListCoach)
	require.NoError(t, c.SetDates(filterRange(t, "2026-03-01", "2026-03-07")))
	require.NoError(t, c.Load(context.Background()))

	q := f.query("call-reports")
	assert.Equal(t, "completed,no_answer", q.Get("outcome"))
	assert.Equal(t, "coach", q.Get("list_type"))
	assert.Equal(t, "2026-03-01", q.Get("date_from"))
	assert.Equal(t, "2026-03-07", q.Get("date_to"))

	assert.Equal(t, 30, c.Summary().TotalAll)
	assert.Len(t, c.Visible(), 2)
	c.SetNameFilter("  ORTIZ ")
	require.Len(t, c.Visible(), 1)
	assert.Equal(t, 2, c.Visible()[0].ID)
	assert.Equal(t, 2, c.Total())
}

func TestPatientDetailLoadAndMutate(t *testing.T) {
	f := newFakeAdmin()
	f.readings = []types.Reading{{ID: 1, UserID: 9, Systolic: 130, Diastolic: 85}}
	f.notes = []types.AdminNote{{ID: 1, Text: "first"}}
	f.calls = []types.CallAttempt{{ID: 5, Outcome: types.OutcomeLeftVoicemail}}
	log := &actionLog{}
	p := NewPatientDetail(f.client(t), log, 9)
	ctx := context.Background()

	require.NoError(t, p.Load(ctx))
	assert.Equal(t, "Ana Diaz", p.Patient().Name)
	assert.Len(t, p.Readings(), 1)
	assert.Len(t, p.Calls(), 1)
	assert.Equal(t, 5, p.Pager().TotalPages())

	q := f.query("readings")
	assert.Equal(t, "9", q.Get("user_id"))
	assert.Equal(t, "8", q.Get("limit"))
	assert.Empty(t, q.Get("offset"))

	require.NoError(t, p.GoToPage(ctx, 3))
	assert.Equal(t, "16", f.query("readings").Get("offset"))
	assert.Equal(t, 3, p.Pager().CurrentPage())

	note, err := p.AddNote(ctx, "  called, no answer  ")
	require.NoError(t, err)
	assert.Equal(t, "called, no answer", note.Text)
	require.Len(t, p.Notes(), 2)
	assert.Equal(t, 99, p.Notes()[0].ID)

	_, err = p.AddNote(ctx, "   ")
	require.Error(t, err)

	flagged, err := p.ToggleFlag(ctx)
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.True(t, p.Patient().IsFlagged)

	require.NoError(t, p.SetStatus(ctx, types.StatusDeactivated))
	assert.Equal(t, types.StatusDeactivated, p.Patient().Status)

	assert.Equal(t, []journal.Kind{journal.KindNoteAdded, journal.KindUserFlagged, journal.KindUserStatusChanged}, log.kinds())
}
