package views

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"htnadmin/internal/api"
	"htnadmin/internal/bp"
	"htnadmin/internal/filter"
	"htnadmin/internal/types"
)

// DefaultReadingsPerPage is the readings table page size.
const DefaultReadingsPerPage = 15

// ReadingSorts are the columns the readings table can be sorted by.
var ReadingSorts = []string{"reading_date", "systolic", "diastolic", "heart_rate"}

// Readings is the readings table with its filter bar.
type Readings struct {
	api API
	gen filter.Generation

	Categories *filter.MultiSelect[bp.Category]
	Unions     *filter.MultiSelect[int]

	mu         sync.RWMutex
	userSearch string
	sortBy     string
	sortDir    SortDir
	dates      filter.DateRange
	systolic   filter.NumericRange
	diastolic  filter.NumericRange
	pager      filter.Pager
	rows       []types.Reading
}

// NewReadings opens sorted by reading date, newest first.
func NewReadings(client API, perPage int) *Readings {
	if perPage <= 0 {
		perPage = DefaultReadingsPerPage
	}
	cats := make([]filter.Option[bp.Category], len(bp.All))
	for i, c := range bp.All {
		cats[i] = filter.Option[bp.Category]{Value: c, Label: c.Label()}
	}
	return &Readings{
		api:        client,
		Categories: filter.NewMultiSelect(cats...),
		Unions:     filter.NewMultiSelect[int](),
		sortBy:     "reading_date",
		sortDir:    Desc,
		pager:      filter.NewPager(perPage),
	}
}

// LoadUnions fills the union filter's options.
func (r *Readings) LoadUnions(ctx context.Context) error {
	unions, err := r.api.Unions(ctx)
	if err != nil {
		return err
	}
	r.Unions.SetOptions(UnionOptions(unions))
	return nil
}

// UnionOptions maps unions to filter options.
func UnionOptions(unions []types.Union) []filter.Option[int] {
	out := make([]filter.Option[int], 0, len(unions))
	for _, u := range unions {
		out = append(out, filter.Option[int]{Value: u.ID, Label: u.Name})
	}
	return out
}

// Rows are the readings on the current page.
func (r *Readings) Rows() []types.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rows
}

// Pager is the current position.
func (r *Readings) Pager() filter.Pager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pager
}

// Sort returns the sort column and direction.
func (r *Readings) Sort() (string, SortDir) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortBy, r.sortDir
}

// Dates is the date filter.
func (r *Readings) Dates() filter.DateRange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dates
}

// SetUserSearch applies a committed patient search term.
func (r *Readings) SetUserSearch(term string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userSearch = term
	r.pager = r.pager.Reset()
}

// SortBy sorts by column. Choosing the current column flips the direction.
func (r *Readings) SortBy(column string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sortBy == column {
		r.sortDir = r.sortDir.Toggle()
	} else {
		r.sortBy = column
		r.sortDir = Desc
	}
	r.pager = r.pager.Reset()
}

// SetDates sets the date filter.
func (r *Readings) SetDates(d filter.DateRange) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = d
	r.pager = r.pager.Reset()
	return nil
}

// SetSystolic sets the systolic range filter.
func (r *Readings) SetSystolic(n filter.NumericRange) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("systolic: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systolic = n
	r.pager = r.pager.Reset()
	return nil
}

// SetDiastolic sets the diastolic range filter.
func (r *Readings) SetDiastolic(n filter.NumericRange) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("diastolic: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diastolic = n
	r.pager = r.pager.Reset()
	return nil
}

// FiltersChanged resets the page after a multi-select was edited in place.
func (r *Readings) FiltersChanged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pager = r.pager.Reset()
}

// ClearFilters drops every filter but keeps the sort.
func (r *Readings) ClearFilters() {
	r.Categories.Clear()
	r.Unions.Clear()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userSearch = ""
	r.dates = filter.DateRange{}
	r.systolic = filter.NumericRange{}
	r.diastolic = filter.NumericRange{}
	r.pager = r.pager.Reset()
}

// GoToPage moves to the 1-based page n.
func (r *Readings) GoToPage(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pager = r.pager.FromPage(n)
}

// ActiveFilters describes each applied filter for the filter chips.
func (r *Readings) ActiveFilters() []string {
	var out []string
	if r.Categories.Len() > 0 {
		out = append(out, "Category: "+r.Categories.Summary(""))
	}
	if r.Unions.Len() > 0 {
		out = append(out, "Union: "+r.Unions.Summary(""))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.userSearch != "" {
		out = append(out, fmt.Sprintf("Patient: %q", r.userSearch))
	}
	if !r.dates.IsZero() {
		out = append(out, "Date: "+r.dates.String())
	}
	if !r.systolic.IsZero() {
		out = append(out, "Systolic: "+r.systolic.String())
	}
	if !r.diastolic.IsZero() {
		out = append(out, "Diastolic: "+r.diastolic.String())
	}
	return out
}

// Query is the request for the current state. Multi-selects send their
// full selection every time.
func (r *Readings) Query() api.ReadingsQuery {
	cats := r.Categories.Selected()
	catValues := make([]string, len(cats))
	for i, c := range cats {
		catValues[i] = c.QueryValue()
	}
	unions := r.Unions.Selected()

	r.mu.RLock()
	defer r.mu.RUnlock()
	q := api.ReadingsQuery{
		Limit:        r.pager.Limit,
		Offset:       r.pager.Offset,
		UserSearch:   strings.TrimSpace(r.userSearch),
		SortBy:       r.sortBy,
		SortOrder:    string(r.sortDir),
		Categories:   catValues,
		UnionIDs:     unions,
		SystolicMin:  r.systolic.Min,
		SystolicMax:  r.systolic.Max,
		DiastolicMin: r.diastolic.Min,
		DiastolicMax: r.diastolic.Max,
	}
	if !r.dates.From.IsZero() {
		q.FromDate = r.dates.From.Format(filter.DateLayout)
	}
	if !r.dates.To.IsZero() {
		q.ToDate = r.dates.To.Format(filter.DateLayout)
	}
	return q
}

// Load fetches the current page.
func (r *Readings) Load(ctx context.Context) error {
	ticket := r.gen.Next()
	list, err := r.api.ListReadings(ctx, r.Query())
	if !r.gen.Current(ticket) {
		return filter.ErrSuperseded
	}
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = list.Readings
	r.pager = r.pager.WithTotal(list.TotalCount)
	return nil
}
