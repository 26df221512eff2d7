package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htnadmin/internal/api"
	"htnadmin/internal/export"
	"htnadmin/internal/types"
)

// adminAPI is a minimal admin backend for driving commands end to end.
type adminAPI struct {
	mu        sync.Mutex
	bulkIDs   []int
	autoClose bool
	attempts  int
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (a *adminAPI) handler() http.Handler {
	item := types.CallListItem{
		ID: 5, UserID: 12, ListType: types.ListNurse, Status: types.ItemOpen, Priority: types.PriorityHigh,
		User: types.CallListPatient{ID: 12, Name: "Ben Osei", Email: "ben@example.org"},
	}
	users := []types.Patient{
		{ID: 11, Name: "Ana Diaz", Status: types.StatusPendingApproval},
		{ID: 12, Name: "Ben Osei", Status: types.StatusPendingApproval},
	}

	r := mux.NewRouter()
	r.HandleFunc("/consumer/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"token": "cli-token"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/consumer/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{})
	}).Methods(http.MethodPost)
	r.HandleFunc("/admin/users/tab-counts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.TabCounts{})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/tab/{tab}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.UserTabPage{Users: users, Total: len(users), Page: 1, PerPage: 50, Pages: 1})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/bulk-approve", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserIDs []int `json:"user_ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		a.mu.Lock()
		a.bulkIDs = body.UserIDs
		a.mu.Unlock()
		writeJSON(w, map[string]interface{}{
			"message": "ok",
			"results": types.BulkResult{Success: body.UserIDs},
		})
	}).Methods(http.MethodPost)
	r.HandleFunc("/admin/call-list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.CallListPage{Items: []types.CallListItem{item}, TotalCount: 1})
	}).Methods(http.MethodGet)
	r.HandleFunc("/admin/call-list/{id:[0-9]+}/attempt", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.attempts++
		closed := a.autoClose
		a.mu.Unlock()
		got := item
		got.AttemptCount = 3
		if closed {
			got.Status = types.ItemClosed
			got.CloseReason = types.CloseAutoClosed
		}
		writeJSON(w, types.AttemptResponse{AutoClosed: closed, Item: got})
	}).Methods(http.MethodPost)
	r.HandleFunc("/admin/export/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="users.csv"`)
		w.Write([]byte("id,name\n11,Ana Diaz\n12,Ben Osei\n"))
	}).Methods(http.MethodGet)
	return r
}

// setupCLI points the CLI at a fresh home directory and a fake API.
func setupCLI(t *testing.T, backend *adminAPI) string {
	t.Helper()
	home := t.TempDir()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	t.Setenv("HTNADMIN_HOME", home)
	t.Setenv("HTNADMIN_API_URL", srv.URL)
	t.Setenv("HTNADMIN_EXPORT_DIR", filepath.Join(home, "exports"))
	return home
}

// resetFlags restores every flag to its default so runs do not leak into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	closeApp()
	return out.String(), err
}

func signIn(t *testing.T) {
	t.Helper()
	out, err := runCLI(t, "auth", "login", "admin@example.org")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as admin@example.org")
}

func TestLoginThenStatus(t *testing.T) {
	home := setupCLI(t, &adminAPI{})
	signIn(t)

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@example.org")
	assert.Contains(t, out, filepath.Join(home, "htnadmin.db"))
	assert.Contains(t, out, "Events:   none")
}

func TestCommandsRequireSession(t *testing.T) {
	setupCLI(t, &adminAPI{})

	_, err := runCLI(t, "calllist", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestCallListAttemptAutoClose(t *testing.T) {
	backend := &adminAPI{autoClose: true}
	setupCLI(t, backend)
	signIn(t)

	out, err := runCLI(t, "calllist", "attempt", "5", "--outcome", "no_answer")
	require.NoError(t, err)
	assert.Contains(t, out, "Eligible again after")
	assert.Equal(t, 1, backend.attempts)
}

func TestCallListAttemptRejectsUnknownOutcome(t *testing.T) {
	backend := &adminAPI{}
	setupCLI(t, backend)
	signIn(t)

	_, err := runCLI(t, "calllist", "attempt", "5", "--outcome", "shrugged")
	require.Error(t, err)
	assert.Zero(t, backend.attempts)
}

func TestUsersApproveSeveralUsesBulk(t *testing.T) {
	backend := &adminAPI{}
	setupCLI(t, backend)
	signIn(t)

	out, err := runCLI(t, "users", "approve", "11", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "2 succeeded, 0 skipped, 0 failed")
	assert.ElementsMatch(t, []int{11, 12}, backend.bulkIDs)
}

func TestExportWritesFile(t *testing.T) {
	home := setupCLI(t, &adminAPI{})
	signIn(t)

	out, err := runCLI(t, "export", "users")
	require.NoError(t, err)

	path := filepath.Join(home, "exports", export.FileName(api.ExportUsers, time.Now()))
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,name\n"))
}

func TestExportRejectsUnknownKind(t *testing.T) {
	setupCLI(t, &adminAPI{})
	signIn(t)

	_, err := runCLI(t, "export", "passwords")
	require.Error(t, err)
}

func TestHistoryListsJournaledActions(t *testing.T) {
	setupCLI(t, &adminAPI{})
	signIn(t)

	_, err := runCLI(t, "users", "approve", "11", "12")
	require.NoError(t, err)
	_, err = runCLI(t, "export", "users")
	require.NoError(t, err)

	out, err := runCLI(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "login")
	assert.Contains(t, out, "bulk_approve")
	assert.Contains(t, out, "export")

	out, err = runCLI(t, "history", "--kind", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "export")
	assert.NotContains(t, out, "bulk_approve")

	out, err = runCLI(t, "history", "--prune", "1ns")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")
}

func TestLogoutClearsSession(t *testing.T) {
	setupCLI(t, &adminAPI{})
	signIn(t)

	out, err := runCLI(t, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	_, err = runCLI(t, "users", "list")
	require.Error(t, err)
}
