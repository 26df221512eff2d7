package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api"), srv
}

func TestClient_SendsBearerAndRequestID(t *testing.T) {
	var gotAuth, gotReqID, gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]int{"total_users": 12, "pending_approvals": 3})
	})
	c.SetTokenSource(staticToken("tok-1"))

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalUsers)
	assert.Equal(t, 3, stats.PendingApprovals)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, "/api/admin/stats", gotPath)
}

func TestClient_NoTokenNoAuthHeader(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("Authorization header should be absent without a token")
		}
		w.Write([]byte(`{"token":"abc"}`))
	})
	resp, err := c.Login(context.Background(), "admin@example.org")
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.SessionToken())
}

func TestClient_UnauthorizedInvokesHandler(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Token expired"}`))
	})
	var calls int32
	c.SetUnauthorizedHandler(func() { atomic.AddInt32(&calls, 1) })

	for i := 0; i < 3; i++ {
		_, err := c.Stats(context.Background())
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_ServerErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", 400, `{"error":"Cannot log attempt on a closed item"}`, "Cannot log attempt on a closed item"},
		{"message field", 409, `{"message":"User is already deactivated"}`, "User is already deactivated"},
		{"html body", 502, `<html>Bad Gateway</html>`, "Request failed (502)"},
		{"empty error", 500, `{"error":""}`, "Request failed (500)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.Stats(context.Background())
			var se *ServerError
			require.True(t, errors.As(err, &se), "got %T", err)
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.wantMsg, se.Message)
			assert.Equal(t, tt.wantMsg, UserMessage(err))
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL)
	srv.Close()

	_, err := c.Stats(context.Background())
	var ne *NetworkError
	require.True(t, errors.As(err, &ne), "got %T: %v", err, err)
	assert.Equal(t, "Network error: could not reach the server", UserMessage(err))
}

func TestClient_TimeoutSurvivesCustomHTTPClient(t *testing.T) {
	custom := &http.Client{}
	for name, opts := range map[string][]Option{
		"timeout first": {WithTimeout(3 * time.Second), WithHTTPClient(custom)},
		"timeout last":  {WithHTTPClient(custom), WithTimeout(3 * time.Second)},
	} {
		t.Run(name, func(t *testing.T) {
			c := New("http://example.invalid", opts...)
			assert.Equal(t, 3*time.Second, c.http.Timeout)
		})
	}
	assert.Zero(t, custom.Timeout, "caller's client must not be mutated")
	assert.Zero(t, New("http://example.invalid").http.Timeout)
}

func TestClient_InvalidJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err := c.Stats(context.Background())
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Message, "Invalid response from server")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Outcome is required", UserMessage(NewValidationError("outcome", "Outcome is required")))
	assert.Equal(t, "Your session has expired. Please sign in again.", UserMessage(&UnauthorizedError{Path: "/x"}))
	assert.Equal(t, "Request cancelled", UserMessage(&NetworkError{Err: context.Canceled}))
	assert.Equal(t, "Something went wrong. Please try again.", UserMessage(errors.New("boom")))
}

func TestClient_Download(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/export/users", r.URL.Path)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="users_export.csv"`)
		w.Write([]byte("id,name\n1,Ann\n"))
	})
	c.SetTokenSource(staticToken("t"))

	var sb strings.Builder
	name, n, err := c.Export(context.Background(), ExportUsers, nil, &sb)
	require.NoError(t, err)
	assert.Equal(t, "users_export.csv", name)
	assert.Equal(t, int64(len("id,name\n1,Ann\n")), n)
	assert.Equal(t, "id,name\n1,Ann\n", sb.String())
}

func TestParseExportKind(t *testing.T) {
	k, err := ParseExportKind("call-reports")
	require.NoError(t, err)
	assert.Equal(t, ExportCallReports, k)
	_, err = ParseExportKind("notes")
	assert.Error(t, err)
}
