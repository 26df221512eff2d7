// Package calllist drives the outreach triage workflow: loading the
// prioritized call lists, logging attempts, emailing, scheduling follow-ups,
// and closing items. State lives on the server; the controller holds only
// the last loaded snapshot and reloads after every change.
package calllist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"htnadmin/internal/api"
	"htnadmin/internal/filter"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
	"htnadmin/internal/types"
)

// CooldownDays is how long an auto-closed patient stays off the lists.
const CooldownDays = 14

// MaxAttempts is the unsuccessful-attempt count that auto-closes an item.
const MaxAttempts = 3

// ErrItemClosed rejects work on an item that has reached its terminal state.
var ErrItemClosed = errors.New("call list item is closed")

// API is the slice of the API client the controller drives.
type API interface {
	CallList(ctx context.Context, listType types.ListType, status types.StatusFilter) (*types.CallListPage, error)
	RefreshCallList(ctx context.Context) (int, error)
	LogAttempt(ctx context.Context, itemID int, req api.AttemptRequest) (*types.AttemptResponse, error)
	SendEmail(ctx context.Context, itemID int, req api.EmailRequest) (*types.EmailResponse, error)
	ScheduleFollowUp(ctx context.Context, itemID int, req api.ScheduleRequest) (*types.CallListItem, error)
	CloseItem(ctx context.Context, itemID int, req api.CloseRequest) (*types.CallListItem, error)
	EmailTemplates(ctx context.Context, listType types.ListType) ([]types.EmailTemplate, error)
}

// EmailError reports a send-email call that the server accepted and logged
// as an attempt but could not deliver.
type EmailError struct {
	Message string
}

func (e *EmailError) Error() string {
	if e.Message == "" {
		return "Email could not be delivered"
	}
	return "Email could not be delivered: " + e.Message
}

// Snapshot is one successfully loaded list.
type Snapshot struct {
	ListType types.ListType
	Status   types.StatusFilter
	Items    []types.CallListItem
	Summary  types.CallListSummary
	LoadedAt time.Time
}

// Controller is the call list workflow. Safe for concurrent use.
type Controller struct {
	api      API
	recorder journal.Recorder
	now      func() time.Time
	gen      filter.Generation

	mu       sync.RWMutex
	snap     Snapshot
	listType types.ListType
	status   types.StatusFilter
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder journals every successful mutation.
func WithRecorder(r journal.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock overrides the clock used for cooldowns and overdue checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a controller viewing the open nurse list.
func New(client API, opts ...Option) *Controller {
	c := &Controller{
		api:      client,
		recorder: journal.Nop{},
		now:      time.Now,
		listType: types.ListNurse,
		status:   types.FilterOpen,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the last successfully loaded list.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// View returns the list type and status filter currently selected.
func (c *Controller) View() (types.ListType, types.StatusFilter) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listType, c.status
}

// Item finds id in the current snapshot.
func (c *Controller) Item(id int) (types.CallListItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.snap.Items {
		if it.ID == id {
			return it, true
		}
	}
	return types.CallListItem{}, false
}

// OverdueCount counts overdue items in the current snapshot.
func (c *Controller) OverdueCount() int {
	return OverdueCount(c.Snapshot().Items, c.now())
}

// LoadList selects and fetches a list. If a newer load starts before this
// one returns, its result is dropped and ErrSuperseded returned. On failure
// the previous snapshot stays in place.
func (c *Controller) LoadList(ctx context.Context, listType types.ListType, status types.StatusFilter) (Snapshot, error) {
	if _, err := types.ParseListType(string(listType)); err != nil {
		return c.Snapshot(), api.NewValidationError("list_type", "%v", err)
	}
	if status == "" {
		status = types.FilterOpen
	}

	ticket := c.gen.Next()
	c.mu.Lock()
	c.listType, c.status = listType, status
	c.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryCallList, "LoadList")
	defer timer.Stop()

	page, err := c.api.CallList(ctx, listType, status)
	if !c.gen.Current(ticket) {
		logging.Get(logging.CategoryCallList).Debug("Discarding superseded %s/%s load", listType, status)
		return Snapshot{}, filter.ErrSuperseded
	}
	if err != nil {
		logging.CallListWarn("Load %s/%s failed, keeping previous list: %v", listType, status, err)
		return c.Snapshot(), err
	}

	snap := Snapshot{
		ListType: listType,
		Status:   status,
		Items:    page.Items,
		Summary:  page.Summary,
		LoadedAt: c.now(),
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	logging.CallList("Loaded %d %s items (%s)", len(snap.Items), listType, status)
	return snap, nil
}

// Reload re-fetches the current view.
func (c *Controller) Reload(ctx context.Context) (Snapshot, error) {
	lt, st := c.View()
	return c.LoadList(ctx, lt, st)
}

// Refresh asks the server to re-evaluate list membership for every patient,
// then loads listType. Running it repeatedly is harmless.
func (c *Controller) Refresh(ctx context.Context, listType types.ListType) (int, error) {
	count, err := c.api.RefreshCallList(ctx)
	if err != nil {
		return 0, err
	}
	logging.CallList("Refresh added %d items", count)
	c.record(ctx, journal.New(journal.KindCallListRefreshed, journal.TargetCallList, 0,
		fmt.Sprintf("Refreshed call lists (%d added)", count)).With("count", count))

	_, st := c.View()
	if _, err := c.LoadList(ctx, listType, st); err != nil && !errors.Is(err, filter.ErrSuperseded) {
		return count, err
	}
	return count, nil
}

// LogAttempt records an outreach attempt on itemID.
func (c *Controller) LogAttempt(ctx context.Context, itemID int, form AttemptForm) (AttemptResult, error) {
	if err := c.ensureOpen(itemID); err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.api.LogAttempt(ctx, itemID, form.request())
	if err != nil {
		logging.CallListWarn("Log attempt on item %d failed: %v", itemID, err)
		return nil, err
	}

	var result AttemptResult = Saved{Attempt: resp.Attempt, Item: resp.Item}
	autoClosed := resp.AutoClosed || resp.Item.CloseReason == types.CloseAutoClosed
	if autoClosed {
		until := resp.Item.CooldownUntil.Time
		if until.IsZero() {
			until = c.now().AddDate(0, 0, CooldownDays)
		}
		result = AutoClosed{Attempt: resp.Attempt, Item: resp.Item, CooldownUntil: until}
		logging.CallList("Item %d auto-closed after %d attempts; cooldown until %s",
			itemID, resp.Item.AttemptCount, until.Format("2006-01-02"))
	}

	a := journal.New(journal.KindCallAttempt, journal.TargetCallListItem, itemID,
		fmt.Sprintf("Logged %s for %s", form.Outcome.Label(), resp.Item.User.DisplayName())).
		With("outcome", string(form.Outcome)).
		With("auto_closed", autoClosed)
	c.record(ctx, a)
	c.reloadAfter(ctx, "attempt")
	return result, nil
}

// SendEmail emails the patient on itemID. The server logs an email_sent
// attempt whether or not delivery succeeds, so the list is reloaded either way.
func (c *Controller) SendEmail(ctx context.Context, itemID int, form EmailForm) (*types.EmailResponse, error) {
	if err := c.ensureOpen(itemID); err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.api.SendEmail(ctx, itemID, api.EmailRequest{To: form.To, Subject: form.Subject, Body: form.Body})
	if err != nil {
		return nil, err
	}
	c.reloadAfter(ctx, "email")

	if !resp.EmailSent {
		logging.CallListWarn("Email for item %d logged but not delivered: %s", itemID, resp.EmailError)
		return resp, &EmailError{Message: resp.EmailError}
	}
	c.record(ctx, journal.New(journal.KindEmailSent, journal.TargetCallListItem, itemID,
		"Emailed "+form.To).With("subject", form.Subject))
	return resp, nil
}

// ScheduleFollowUp sets the follow-up date on itemID.
func (c *Controller) ScheduleFollowUp(ctx context.Context, itemID int, s Schedule) (*types.CallListItem, error) {
	if err := c.ensureOpen(itemID); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	item, err := c.api.ScheduleFollowUp(ctx, itemID, s.request())
	if err != nil {
		return nil, err
	}
	c.record(ctx, journal.New(journal.KindFollowUpScheduled, journal.TargetCallListItem, itemID,
		"Follow-up "+s.String()))
	c.reloadAfter(ctx, "schedule")
	return item, nil
}

// Close resolves itemID. Closing is terminal.
func (c *Controller) Close(ctx context.Context, itemID int, form CloseForm) (*types.CallListItem, error) {
	if err := c.ensureOpen(itemID); err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	item, err := c.api.CloseItem(ctx, itemID, api.CloseRequest{Reason: form.Reason, Note: form.Note})
	if err != nil {
		return nil, err
	}
	c.record(ctx, journal.New(journal.KindItemClosed, journal.TargetCallListItem, itemID,
		"Closed as "+form.Reason.Label()).With("reason", string(form.Reason)))
	c.reloadAfter(ctx, "close")
	return item, nil
}

// EmailTemplates lists templates for listType.
func (c *Controller) EmailTemplates(ctx context.Context, listType types.ListType) ([]types.EmailTemplate, error) {
	return c.api.EmailTemplates(ctx, listType)
}

// ensureOpen rejects items the snapshot shows as closed. Items missing from
// the snapshot are left for the server to judge.
func (c *Controller) ensureOpen(itemID int) error {
	if it, ok := c.Item(itemID); ok && it.IsClosed() {
		return fmt.Errorf("item %d: %w", itemID, ErrItemClosed)
	}
	return nil
}

// reloadAfter refreshes the view following a successful mutation. A failed
// reload leaves the old snapshot but does not undo the mutation.
func (c *Controller) reloadAfter(ctx context.Context, op string) {
	if _, err := c.Reload(ctx); err != nil && !errors.Is(err, filter.ErrSuperseded) {
		logging.CallListWarn("Reload after %s failed: %v", op, err)
	}
}

func (c *Controller) record(ctx context.Context, a journal.Action) {
	if err := c.recorder.Record(ctx, a); err != nil {
		logging.CallListWarn("Failed to journal %s: %v", a.Kind, err)
	}
}
