package api

import (
	"context"
	"fmt"
	"net/http"

	"htnadmin/internal/types"
)

// MaxBulkUsers is the server's cap on ids per bulk operation.
const MaxBulkUsers = 100

// UserList is one page of GET /admin/users.
type UserList struct {
	Users      []types.Patient `json:"users"`
	TotalCount int             `json:"total_count"`
}

// UserTabPage is one page of a user management tab.
type UserTabPage struct {
	Users   []types.Patient `json:"users"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
	Pages   int             `json:"pages"`
}

// Stats returns the dashboard counters.
func (c *Client) Stats(ctx context.Context) (*types.Stats, error) {
	var out types.Stats
	if err := c.do(ctx, http.MethodGet, "/admin/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unions lists the organizations available as filters.
func (c *Client) Unions(ctx context.Context) ([]types.Union, error) {
	var out struct {
		Unions []types.Union `json:"unions"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/unions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Unions, nil
}

// ListUsers pages through all users.
func (c *Client) ListUsers(ctx context.Context, q UsersQuery) (*UserList, error) {
	var out UserList
	if err := c.do(ctx, http.MethodGet, "/admin/users", q.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TabCounts returns the row count of every user tab.
func (c *Client) TabCounts(ctx context.Context) (types.TabCounts, error) {
	var out types.TabCounts
	if err := c.do(ctx, http.MethodGet, "/admin/users/tab-counts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UsersByTab returns one page of a user tab.
func (c *Client) UsersByTab(ctx context.Context, q UserTabQuery) (*UserTabPage, error) {
	tab := q.Tab
	if tab == "" {
		tab = types.TabAll
	}
	var out UserTabPage
	if err := c.do(ctx, http.MethodGet, "/admin/users/tab/"+string(tab), q.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser returns a patient with reading aggregates.
func (c *Client) GetUser(ctx context.Context, id int) (*types.Patient, error) {
	var out types.Patient
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/admin/users/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveUser approves a pending account.
func (c *Client) ApproveUser(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/approve", id), nil, struct{}{}, nil)
}

// DeactivateUser deactivates an account.
func (c *Client) DeactivateUser(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/deactivate", id), nil, struct{}{}, nil)
}

// ToggleFlag flips the patient's flagged marker and returns the new value.
func (c *Client) ToggleFlag(ctx context.Context, id int) (bool, error) {
	var out struct {
		IsFlagged bool `json:"is_flagged"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/flag", id), nil, struct{}{}, &out); err != nil {
		return false, err
	}
	return out.IsFlagged, nil
}

// SetUserStatus moves an account to status directly.
func (c *Client) SetUserStatus(ctx context.Context, id int, status types.UserStatus) (*types.Patient, error) {
	if !status.Valid() {
		return nil, NewValidationError("user_status", "unknown status %q", status)
	}
	var out struct {
		Message string        `json:"message"`
		User    types.Patient `json:"user"`
	}
	body := map[string]string{"user_status": string(status)}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/status", id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func validateBulk(ids []int) error {
	if len(ids) == 0 {
		return NewValidationError("user_ids", "select at least one user")
	}
	if len(ids) > MaxBulkUsers {
		return NewValidationError("user_ids", "Maximum %d users per operation", MaxBulkUsers)
	}
	return nil
}

// BulkApprove approves up to MaxBulkUsers accounts.
func (c *Client) BulkApprove(ctx context.Context, ids []int) (*types.BulkResult, error) {
	return c.bulk(ctx, "/admin/users/bulk-approve", ids)
}

// BulkDeactivate deactivates up to MaxBulkUsers accounts.
func (c *Client) BulkDeactivate(ctx context.Context, ids []int) (*types.BulkResult, error) {
	return c.bulk(ctx, "/admin/users/bulk-deactivate", ids)
}

func (c *Client) bulk(ctx context.Context, path string, ids []int) (*types.BulkResult, error) {
	if err := validateBulk(ids); err != nil {
		return nil, err
	}
	var out struct {
		Message string           `json:"message"`
		Results types.BulkResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, map[string][]int{"user_ids": ids}, &out); err != nil {
		return nil, err
	}
	return &out.Results, nil
}

// Notes lists admin notes on a patient, newest first.
func (c *Client) Notes(ctx context.Context, userID int) ([]types.AdminNote, error) {
	var out struct {
		Notes []types.AdminNote `json:"notes"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/admin/users/%d/notes", userID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Notes, nil
}

// MaxNoteLength is the server's limit on note text.
const MaxNoteLength = 5000

// AddNote appends a note to a patient.
func (c *Client) AddNote(ctx context.Context, userID int, text string) (*types.AdminNote, error) {
	if text == "" {
		return nil, NewValidationError("text", "Note text is required")
	}
	if len(text) > MaxNoteLength {
		return nil, NewValidationError("text", "Note text must be %d characters or fewer", MaxNoteLength)
	}
	var out types.AdminNote
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/admin/users/%d/notes", userID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CallHistory lists every outreach attempt for a patient.
func (c *Client) CallHistory(ctx context.Context, userID int) ([]types.CallAttempt, error) {
	var out struct {
		Attempts []types.CallAttempt `json:"attempts"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/admin/users/%d/call-history", userID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Attempts, nil
}
