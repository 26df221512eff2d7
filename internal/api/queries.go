package api

import (
	"net/url"
	"strconv"
	"strings"

	"htnadmin/internal/types"
)

// Multi-select filters are always sent as the full comma-joined set.

func setInt(v url.Values, key string, n int) {
	if n > 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

func setIntPtr(v url.Values, key string, n *int) {
	if n != nil {
		v.Set(key, strconv.Itoa(*n))
	}
}

func setStr(v url.Values, key, s string) {
	if s = strings.TrimSpace(s); s != "" {
		v.Set(key, s)
	}
}

func setList(v url.Values, key string, items []string) {
	if len(items) > 0 {
		v.Set(key, strings.Join(items, ","))
	}
}

func intsToStrings(ns []int) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = strconv.Itoa(n)
	}
	return out
}

// UsersQuery pages through GET /admin/users.
type UsersQuery struct {
	Limit  int
	Offset int
	Search string
	Status types.UserStatus
	SortBy string
}

// Values encodes the query string.
func (q UsersQuery) Values() url.Values {
	v := url.Values{}
	setInt(v, "limit", q.Limit)
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	setStr(v, "search", q.Search)
	setStr(v, "status", string(q.Status))
	setStr(v, "sort_by", q.SortBy)
	return v
}

// UserTabQuery pages through GET /admin/users/tab/{tab}.
type UserTabQuery struct {
	Tab     types.UserTab
	Page    int
	PerPage int
	Sort    string // created_at, updated_at, union_id
	Dir     string // asc, desc
	Search  string
	UnionID int
	Gender  string
	HasHTN  *bool
}

// Values encodes the query string. Tab is part of the path.
func (q UserTabQuery) Values() url.Values {
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "per_page", q.PerPage)
	setStr(v, "sort", q.Sort)
	setStr(v, "dir", q.Dir)
	setStr(v, "search", q.Search)
	setInt(v, "union_id", q.UnionID)
	setStr(v, "gender", q.Gender)
	if q.HasHTN != nil {
		v.Set("has_htn", strconv.FormatBool(*q.HasHTN))
	}
	return v
}

// ReadingsQuery filters GET /admin/readings.
type ReadingsQuery struct {
	Limit        int
	Offset       int
	UserID       int
	UserSearch   string
	SortBy       string // reading_date, systolic, diastolic, heart_rate
	SortOrder    string // asc, desc
	FromDate     string // YYYY-MM-DD
	ToDate       string // YYYY-MM-DD
	Categories   []string
	UnionIDs     []int
	Genders      []string
	SystolicMin  *int
	SystolicMax  *int
	DiastolicMin *int
	DiastolicMax *int
}

// Values encodes the query string.
func (q ReadingsQuery) Values() url.Values {
	v := url.Values{}
	setInt(v, "limit", q.Limit)
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	setInt(v, "user_id", q.UserID)
	setStr(v, "user_search", q.UserSearch)
	setStr(v, "sort_by", q.SortBy)
	setStr(v, "sort_order", q.SortOrder)
	setStr(v, "from_date", q.FromDate)
	setStr(v, "to_date", q.ToDate)
	setList(v, "bp_category", q.Categories)
	setList(v, "union_id", intsToStrings(q.UnionIDs))
	setList(v, "gender", q.Genders)
	setIntPtr(v, "systolic_min", q.SystolicMin)
	setIntPtr(v, "systolic_max", q.SystolicMax)
	setIntPtr(v, "diastolic_min", q.DiastolicMin)
	setIntPtr(v, "diastolic_max", q.DiastolicMax)
	return v
}

// CallReportsQuery filters GET /admin/call-reports.
type CallReportsQuery struct {
	DateFrom  string // YYYY-MM-DD
	DateTo    string // YYYY-MM-DD
	ListTypes []types.ListType
	Outcomes  []types.Outcome
}

// Values encodes the query string.
func (q CallReportsQuery) Values() url.Values {
	v := url.Values{}
	setStr(v, "date_from", q.DateFrom)
	setStr(v, "date_to", q.DateTo)
	lts := make([]string, len(q.ListTypes))
	for i, lt := range q.ListTypes {
		lts[i] = string(lt)
	}
	setList(v, "list_type", lts)
	outs := make([]string, len(q.Outcomes))
	for i, o := range q.Outcomes {
		outs[i] = string(o)
	}
	setList(v, "outcome", outs)
	return v
}
