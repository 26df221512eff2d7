package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/mux"

	"htnadmin/internal/api"
	"htnadmin/internal/config"
	"htnadmin/internal/journal"
	"htnadmin/internal/session"
	"htnadmin/internal/types"
)

// =============================================================================
// FAKE ADMIN API
// =============================================================================

// fakeServer serves the auth and admin endpoints the dashboard touches.
type fakeServer struct {
	mu           sync.Mutex
	login        map[string]interface{}
	unauthorized bool
	bodies       map[string]map[string]interface{}
	users        []types.Patient
	items        []types.CallListItem
	autoClose    bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		login:  map[string]interface{}{"token": "session-token"},
		bodies: map[string]map[string]interface{}{},
		users: []types.Patient{
			{ID: 11, Name: "Ana Diaz", Email: "ana@example.org", Status: types.StatusPendingApproval},
			{ID: 12, Name: "Ben Osei", Email: "ben@example.org", Status: types.StatusActive},
		},
		items: []types.CallListItem{{
			ID: 5, UserID: 12, ListType: types.ListNurse, Status: types.ItemOpen,
			Priority: types.PriorityHigh, PriorityTitle: "Stage 2 average",
			User: types.CallListPatient{ID: 12, Name: "Ben Osei", Email: "ben@example.org", Phone: "555-0100"},
		}},
	}
}

func respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeServer) record(name string, r *http.Request) {
	var body map[string]interface{}
	if json.NewDecoder(r.Body).Decode(&body) != nil {
		return
	}
	f.mu.Lock()
	f.bodies[name] = body
	f.mu.Unlock()
}

func (f *fakeServer) body(name string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[name]
}

func (f *fakeServer) setUnauthorized(v bool) {
	f.mu.Lock()
	f.unauthorized = v
	f.mu.Unlock()
}

func (f *fakeServer) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/consumer/login", func(w http.ResponseWriter, r *http.Request) {
		f.record("login", r)
		respond(w, http.StatusOK, f.login)
	}).Methods(http.MethodPost)
	r.HandleFunc("/consumer/setup-mfa", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, types.MFASetup{
			ProvisioningURI: "otpauth://totp/HTN:ana",
			Secret:          "JBSWY3DPEHPK3PXP",
			BackupCodes:     []string{"aaaa-1111", "bbbb-2222"},
		})
	}).Methods(http.MethodPost)
	r.HandleFunc("/consumer/confirm-mfa-setup", func(w http.ResponseWriter, r *http.Request) {
		f.record("confirm", r)
		respond(w, http.StatusOK, map[string]string{"message": "ok"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/consumer/logout", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"message": "ok"})
	}).Methods(http.MethodPost)

	r.HandleFunc("/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		unauthorized := f.unauthorized
		f.mu.Unlock()
		if unauthorized {
			respond(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
			return
		}
		respond(w, http.StatusOK, types.Stats{TotalUsers: 1234, PendingApprovals: 4, TotalReadings: 88})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/unions", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]interface{}{"unions": []types.Union{{ID: 3, Name: "Local 3"}}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, api.UserList{Users: f.users, TotalCount: len(f.users)})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/tab-counts", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]int{"all": 2, "pending_approval": 1})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/tab/{tab}", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, api.UserTabPage{Users: f.users, Total: len(f.users), Page: 1, PerPage: 50, Pages: 1})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/bulk-approve", func(w http.ResponseWriter, r *http.Request) {
		f.record("bulk-approve", r)
		respond(w, http.StatusOK, map[string]interface{}{
			"message": "done",
			"results": map[string]interface{}{"success": []int{11}, "skipped": []interface{}{}, "error": []interface{}{}},
		})
	}).Methods(http.MethodPost)
	r.HandleFunc("/admin/users/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(mux.Vars(r)["id"])
		respond(w, http.StatusOK, types.Patient{ID: id, Name: "Ben Osei", Email: "ben@example.org", Status: types.StatusActive})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id:[0-9]+}/notes", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]interface{}{"notes": []types.AdminNote{}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id:[0-9]+}/notes", func(w http.ResponseWriter, r *http.Request) {
		f.record("note", r)
		respond(w, http.StatusCreated, types.AdminNote{ID: 1, Text: "called twice", AdminName: "Nurse Joy"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/admin/users/{id:[0-9]+}/call-history", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]interface{}{"attempts": []types.CallAttempt{}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/readings", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, api.ReadingList{Readings: []types.Reading{
			{ID: 1, UserID: 12, UserName: "Ben Osei", Systolic: 150, Diastolic: 95, ReadingDate: types.NewTimestamp(time.Now().Add(-time.Hour))},
		}, TotalCount: 1})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/call-list", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, types.CallListPage{Items: f.items, Summary: types.CallListSummary{Nurse: len(f.items)}, TotalCount: len(f.items)})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/call-list/{id:[0-9]+}/attempt", func(w http.ResponseWriter, r *http.Request) {
		f.record("attempt", r)
		item := f.items[0]
		item.AttemptCount++
		if f.autoClose {
			item.Status = types.ItemClosed
			item.CloseReason = types.CloseAutoClosed
		}
		respond(w, http.StatusOK, types.AttemptResponse{AutoClosed: f.autoClose, Item: item})
	}).Methods(http.MethodPost)
	return r
}

// =============================================================================
// HARNESS
// =============================================================================

// harness drives a Model the way the bubbletea runtime would, minus the
// terminal. Background events are pumped from the event channel by hand.
type harness struct {
	t      *testing.T
	m      *Model
	server *fakeServer
	store  *session.MemoryStore
}

// newHarness builds a model against a fake server. A non-empty token
// starts the session already authenticated.
func newHarness(t *testing.T, server *fakeServer, token string) *harness {
	t.Helper()
	srv := httptest.NewServer(server.router())
	t.Cleanup(srv.Close)

	client := api.New(srv.URL)
	store := session.NewMemoryStore()
	if token != "" {
		if err := store.SaveSession(session.Persisted{State: session.Authenticated, Token: token, Email: "admin@example.org"}); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}
	sm := session.New(client, store)
	sm.Bind(client)
	if _, err := sm.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	settings := config.DefaultConfig()
	settings.UI.SearchDebounce = "10ms"
	settings.UI.BadgePollInterval = "1h"
	m := New(Config{Session: sm, Client: client, Recorder: journal.Nop{}, Settings: settings})
	t.Cleanup(m.Shutdown)

	h := &harness{t: t, m: m, server: server, store: store}
	h.send(tea.WindowSizeMsg{Width: 140, Height: 40})
	if m.screen == ScreenMain {
		h.run(m.enterMain())
	} else {
		h.run(m.auth.enter(m.screen))
	}
	return h
}

// exec runs cmd, giving up after d. Commands that block (cursor blinks,
// tickers) are dropped.
func exec(cmd tea.Cmd, d time.Duration) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(d):
		return nil, false
	}
}

// run executes cmd and everything it leads to until the queue is empty.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		if time.Now().After(deadline) {
			h.t.Fatal("command queue did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := exec(c, 250*time.Millisecond)
		if !ok || msg == nil {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case spinner.TickMsg, tea.QuitMsg:
			continue
		}
		_, next := h.m.Update(msg)
		queue = append(queue, next)
		queue = append(queue, h.pump()...)
	}
}

// pump hands queued background events to the model.
func (h *harness) pump() []tea.Cmd {
	var cmds []tea.Cmd
	for {
		select {
		case ev := <-h.m.env.events:
			cmds = append(cmds, h.m.handleEvent(ev))
		default:
			return cmds
		}
	}
}

func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	_, cmd := h.m.Update(msg)
	h.run(tea.Batch(append([]tea.Cmd{cmd}, h.pump()...)...))
}

// key sends one named key: "enter", "esc", "tab", "ctrl+x", or literal runes.
func (h *harness) key(k string) {
	h.t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+x":
		msg = tea.KeyMsg{Type: tea.KeyCtrlX}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	h.send(msg)
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// settle waits for background events such as debounced searches.
func (h *harness) settle(d time.Duration) {
	h.t.Helper()
	time.Sleep(d)
	for _, cmd := range h.pump() {
		h.run(cmd)
	}
}

func (h *harness) view() string { return h.m.View() }

func (h *harness) assertView(contains ...string) {
	h.t.Helper()
	v := h.view()
	for _, want := range contains {
		if !strings.Contains(v, want) {
			h.t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}
