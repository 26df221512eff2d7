package views

import (
	"context"
	"strings"
	"sync"

	"htnadmin/internal/api"
	"htnadmin/internal/filter"
	"htnadmin/internal/types"
)

// CallReports is the outreach history report.
type CallReports struct {
	api API
	gen filter.Generation

	ListTypes *filter.MultiSelect[types.ListType]
	Outcomes  *filter.MultiSelect[types.Outcome]

	mu     sync.RWMutex
	dates  filter.DateRange
	name   string
	report types.CallReport
}

// NewCallReports creates the view with no filters applied.
func NewCallReports(client API) *CallReports {
	lts := make([]filter.Option[types.ListType], len(types.AllListTypes))
	for i, lt := range types.AllListTypes {
		lts[i] = filter.Option[types.ListType]{Value: lt, Label: lt.Label()}
	}
	outs := make([]filter.Option[types.Outcome], len(types.AllOutcomes))
	for i, o := range types.AllOutcomes {
		outs[i] = filter.Option[types.Outcome]{Value: o, Label: o.Label()}
	}
	return &CallReports{
		api:       client,
		ListTypes: filter.NewMultiSelect(lts...),
		Outcomes:  filter.NewMultiSelect(outs...),
	}
}

// SetDates sets the date filter.
func (c *CallReports) SetDates(d filter.DateRange) error {
	if err := d.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dates = d
	return nil
}

// Dates is the date filter.
func (c *CallReports) Dates() filter.DateRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dates
}

// SetNameFilter narrows the loaded attempts by patient name without a request.
func (c *CallReports) SetNameFilter(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = strings.ToLower(strings.TrimSpace(term))
}

// Query is the request for the current filters.
func (c *CallReports) Query() api.CallReportsQuery {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q := api.CallReportsQuery{
		ListTypes: c.ListTypes.Selected(),
		Outcomes:  c.Outcomes.Selected(),
	}
	if !c.dates.From.IsZero() {
		q.DateFrom = c.dates.From.Format(filter.DateLayout)
	}
	if !c.dates.To.IsZero() {
		q.DateTo = c.dates.To.Format(filter.DateLayout)
	}
	return q
}

// Load fetches the report.
func (c *CallReports) Load(ctx context.Context) error {
	ticket := c.gen.Next()
	report, err := c.api.CallReports(ctx, c.Query())
	if !c.gen.Current(ticket) {
		return filter.ErrSuperseded
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = *report
	return nil
}

// Summary is the report's totals.
func (c *CallReports) Summary() types.CallReportSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report.Summary
}

// Total is the server's attempt count for the filters.
func (c *CallReports) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report.TotalCount
}

// Visible returns the loaded attempts whose patient name contains the name
// filter.
func (c *CallReports) Visible() []types.CallAttempt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.name == "" {
		return c.report.Attempts
	}
	var out []types.CallAttempt
	for _, a := range c.report.Attempts {
		if strings.Contains(strings.ToLower(a.PatientName), c.name) {
			out = append(out, a)
		}
	}
	return out
}
