// Package views composes the API client, filter primitives, and journal into
// the dashboard's list and detail screens. Each view owns its filter state
// and last loaded data; rendering is left to the caller.
package views

import (
	"context"
	"errors"

	"htnadmin/internal/api"
	"htnadmin/internal/filter"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
	"htnadmin/internal/types"
)

// API is the slice of the admin API the views read and mutate.
type API interface {
	Stats(ctx context.Context) (*types.Stats, error)
	Unions(ctx context.Context) ([]types.Union, error)
	ListUsers(ctx context.Context, q api.UsersQuery) (*api.UserList, error)
	TabCounts(ctx context.Context) (types.TabCounts, error)
	UsersByTab(ctx context.Context, q api.UserTabQuery) (*api.UserTabPage, error)
	GetUser(ctx context.Context, id int) (*types.Patient, error)
	ApproveUser(ctx context.Context, id int) error
	DeactivateUser(ctx context.Context, id int) error
	ToggleFlag(ctx context.Context, id int) (bool, error)
	SetUserStatus(ctx context.Context, id int, status types.UserStatus) (*types.Patient, error)
	BulkApprove(ctx context.Context, ids []int) (*types.BulkResult, error)
	BulkDeactivate(ctx context.Context, ids []int) (*types.BulkResult, error)
	Notes(ctx context.Context, userID int) ([]types.AdminNote, error)
	AddNote(ctx context.Context, userID int, text string) (*types.AdminNote, error)
	CallHistory(ctx context.Context, userID int) ([]types.CallAttempt, error)
	ListReadings(ctx context.Context, q api.ReadingsQuery) (*api.ReadingList, error)
	CallReports(ctx context.Context, q api.CallReportsQuery) (*types.CallReport, error)
}

// IsSuperseded reports whether err only means a newer load replaced this one.
func IsSuperseded(err error) bool {
	return errors.Is(err, filter.ErrSuperseded)
}

func recorderOrNop(r journal.Recorder) journal.Recorder {
	if r == nil {
		return journal.Nop{}
	}
	return r
}

func record(ctx context.Context, r journal.Recorder, a journal.Action) {
	if err := r.Record(ctx, a); err != nil {
		logging.Get(logging.CategoryViews).Warn("Failed to journal %s: %v", a.Kind, err)
	}
}
