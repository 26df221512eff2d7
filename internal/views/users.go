package views

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"htnadmin/internal/api"
	"htnadmin/internal/filter"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
	"htnadmin/internal/types"
)

// DefaultUsersPerPage is the users tab page size.
const DefaultUsersPerPage = 50

// SortDir is a sort direction.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// Toggle flips the direction.
func (d SortDir) Toggle() SortDir {
	if d == Asc {
		return Desc
	}
	return Asc
}

// UserSorts are the columns the users tabs can be sorted by.
var UserSorts = []string{"created_at", "updated_at", "union_id"}

// GenderOptions are the values the gender filter offers.
var GenderOptions = []string{"Male", "Female", "Prefer not to say"}

// UserFilters are the users tab filters other than search.
type UserFilters struct {
	Sort    string
	Dir     SortDir
	UnionID int
	Gender  string
	HasHTN  *bool
}

// Users is the user management screen.
type Users struct {
	api      API
	recorder journal.Recorder
	gen      filter.Generation

	mu        sync.RWMutex
	tab       types.UserTab
	search    string
	filters   UserFilters
	pager     filter.Pager
	rows      []types.Patient
	counts    types.TabCounts
	selection map[int]bool
}

// NewUsers opens on the All tab, newest first.
func NewUsers(client API, recorder journal.Recorder, perPage int) *Users {
	if perPage <= 0 {
		perPage = DefaultUsersPerPage
	}
	return &Users{
		api:       client,
		recorder:  recorderOrNop(recorder),
		tab:       types.TabAll,
		filters:   UserFilters{Sort: "created_at", Dir: Desc},
		pager:     filter.NewPager(perPage),
		selection: make(map[int]bool),
	}
}

// Tab is the active tab.
func (u *Users) Tab() types.UserTab {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.tab
}

// Rows are the users on the current page.
func (u *Users) Rows() []types.Patient {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.rows
}

// Counts are the per-tab badges from the last load.
func (u *Users) Counts() types.TabCounts {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.counts
}

// Pager is the current position.
func (u *Users) Pager() filter.Pager {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.pager
}

// Filters returns the non-search filters.
func (u *Users) Filters() UserFilters {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.filters
}

// Search is the committed search term.
func (u *Users) Search() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.search
}

// SetTab switches tabs. The page and selection reset.
func (u *Users) SetTab(tab types.UserTab) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if tab == u.tab {
		return
	}
	u.tab = tab
	u.resetLocked()
}

// SetSearch applies a committed search term.
func (u *Users) SetSearch(term string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if term == u.search {
		return
	}
	u.search = term
	u.resetLocked()
}

// SetFilters replaces the non-search filters.
func (u *Users) SetFilters(f UserFilters) {
	if f.Sort == "" {
		f.Sort = "created_at"
	}
	if f.Dir == "" {
		f.Dir = Desc
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.filters = f
	u.resetLocked()
}

// SortBy sorts by column. Choosing the current column flips the direction.
func (u *Users) SortBy(column string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.filters.Sort == column {
		u.filters.Dir = u.filters.Dir.Toggle()
	} else {
		u.filters.Sort = column
		u.filters.Dir = Desc
	}
	u.resetLocked()
}

// GoToPage moves to the 1-based page n.
func (u *Users) GoToPage(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pager = u.pager.FromPage(n)
}

func (u *Users) resetLocked() {
	u.pager = u.pager.Reset()
	u.selection = make(map[int]bool)
}

// Query is the request for the current state.
func (u *Users) Query() api.UserTabQuery {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return api.UserTabQuery{
		Tab:     u.tab,
		Page:    u.pager.CurrentPage(),
		PerPage: u.pager.Limit,
		Sort:    u.filters.Sort,
		Dir:     string(u.filters.Dir),
		Search:  u.search,
		UnionID: u.filters.UnionID,
		Gender:  u.filters.Gender,
		HasHTN:  u.filters.HasHTN,
	}
}

// Load fetches the current page and the tab counts.
func (u *Users) Load(ctx context.Context) error {
	ticket := u.gen.Next()
	q := u.Query()

	page, err := u.api.UsersByTab(ctx, q)
	if err != nil {
		if !u.gen.Current(ticket) {
			return filter.ErrSuperseded
		}
		return err
	}
	counts, err := u.api.TabCounts(ctx)
	if !u.gen.Current(ticket) {
		return filter.ErrSuperseded
	}
	if err != nil {
		logging.ViewsDebug("Tab counts unavailable: %v", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.rows = page.Users
	u.pager = filter.PageBased(page.Page, page.PerPage, page.Total).WithTotal(page.Total)
	if counts != nil {
		u.counts = counts
	}
	return nil
}

// ToggleSelect adds or removes id from the bulk selection. It refuses to
// grow the selection past api.MaxBulkUsers.
func (u *Users) ToggleSelect(id int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.selection[id] {
		delete(u.selection, id)
		return nil
	}
	if len(u.selection) >= api.MaxBulkUsers {
		return api.NewValidationError("user_ids", "Maximum %d users per operation", api.MaxBulkUsers)
	}
	u.selection[id] = true
	return nil
}

// SelectPage selects every row on the current page, up to the bulk limit.
func (u *Users) SelectPage() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, p := range u.rows {
		if len(u.selection) >= api.MaxBulkUsers {
			return
		}
		u.selection[p.ID] = true
	}
}

// ClearSelection empties the bulk selection.
func (u *Users) ClearSelection() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.selection = make(map[int]bool)
}

// IsSelected reports whether id is in the bulk selection.
func (u *Users) IsSelected(id int) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.selection[id]
}

// Selected returns the selected ids in ascending order.
func (u *Users) Selected() []int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]int, 0, len(u.selection))
	for id := range u.selection {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// BulkApprove approves the selection.
func (u *Users) BulkApprove(ctx context.Context) (*types.BulkResult, error) {
	return u.bulk(ctx, journal.KindBulkApprove, u.api.BulkApprove)
}

// BulkDeactivate deactivates the selection.
func (u *Users) BulkDeactivate(ctx context.Context) (*types.BulkResult, error) {
	return u.bulk(ctx, journal.KindBulkDeactivate, u.api.BulkDeactivate)
}

func (u *Users) bulk(ctx context.Context, kind journal.Kind, call func(context.Context, []int) (*types.BulkResult, error)) (*types.BulkResult, error) {
	ids := u.Selected()
	res, err := call(ctx, ids)
	if err != nil {
		return nil, err
	}
	logging.Views("%s: %s", kind, res.Summary())
	record(ctx, u.recorder, journal.New(kind, journal.TargetUser, 0, res.Summary()).
		With("user_ids", ids).
		With("success", res.Success))
	u.ClearSelection()
	u.reloadAfter(ctx)
	return res, nil
}

// Approve approves one pending user.
func (u *Users) Approve(ctx context.Context, id int) error {
	if err := u.api.ApproveUser(ctx, id); err != nil {
		return err
	}
	u.recordUser(ctx, journal.KindUserApproved, id, "approved")
	u.reloadAfter(ctx)
	return nil
}

// Deactivate deactivates one user.
func (u *Users) Deactivate(ctx context.Context, id int) error {
	if err := u.api.DeactivateUser(ctx, id); err != nil {
		return err
	}
	u.recordUser(ctx, journal.KindUserDeactivated, id, "deactivated")
	u.reloadAfter(ctx)
	return nil
}

// ToggleFlag flips the flag on one user and returns the new value.
func (u *Users) ToggleFlag(ctx context.Context, id int) (bool, error) {
	flagged, err := u.api.ToggleFlag(ctx, id)
	if err != nil {
		return false, err
	}
	u.recordUser(ctx, journal.KindUserFlagged, id, fmt.Sprintf("flagged=%t", flagged))
	u.reloadAfter(ctx)
	return flagged, nil
}

// SetStatus sets one user's status.
func (u *Users) SetStatus(ctx context.Context, id int, status types.UserStatus) error {
	if _, err := u.api.SetUserStatus(ctx, id, status); err != nil {
		return err
	}
	u.recordUser(ctx, journal.KindUserStatusChanged, id, "status "+status.Label())
	u.reloadAfter(ctx)
	return nil
}

func (u *Users) recordUser(ctx context.Context, kind journal.Kind, id int, summary string) {
	record(ctx, u.recorder, journal.New(kind, journal.TargetUser, id, summary))
}

func (u *Users) reloadAfter(ctx context.Context) {
	if err := u.Load(ctx); err != nil && !IsSuperseded(err) {
		logging.Get(logging.CategoryViews).Warn("Reload after user change failed: %v", err)
	}
}
