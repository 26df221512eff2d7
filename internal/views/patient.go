package views

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"htnadmin/internal/api"
	"htnadmin/internal/filter"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
	"htnadmin/internal/types"
)

// PatientReadingsPerPage is the page size of the readings table on the
// patient screen.
const PatientReadingsPerPage = 8

// PatientDetail is the single-patient screen.
type PatientDetail struct {
	api      API
	recorder journal.Recorder
	id       int
	gen      filter.Generation

	mu       sync.RWMutex
	patient  *types.Patient
	readings []types.Reading
	pager    filter.Pager
	notes    []types.AdminNote
	calls    []types.CallAttempt
}

// NewPatientDetail creates the view for patient id.
func NewPatientDetail(client API, recorder journal.Recorder, id int) *PatientDetail {
	return &PatientDetail{
		api:      client,
		recorder: recorderOrNop(recorder),
		id:       id,
		pager:    filter.NewPager(PatientReadingsPerPage),
	}
}

// ID is the patient id.
func (p *PatientDetail) ID() int { return p.id }

// Patient is the loaded profile, nil before the first load.
func (p *PatientDetail) Patient() *types.Patient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.patient
}

// Readings are the readings on the current page.
func (p *PatientDetail) Readings() []types.Reading {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.readings
}

// Pager is the readings position.
func (p *PatientDetail) Pager() filter.Pager {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pager
}

// Notes are the admin notes, newest first as the server returns them.
func (p *PatientDetail) Notes() []types.AdminNote {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.notes
}

// Calls is the outreach history.
func (p *PatientDetail) Calls() []types.CallAttempt {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}

// Load fetches the profile, the current readings page, notes, and call
// history in parallel.
func (p *PatientDetail) Load(ctx context.Context) error {
	ticket := p.gen.Next()
	pager := p.Pager()

	var (
		patient  *types.Patient
		readings *api.ReadingList
		notes    []types.AdminNote
		calls    []types.CallAttempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		patient, err = p.api.GetUser(gctx, p.id)
		return err
	})
	g.Go(func() (err error) {
		readings, err = p.api.ListReadings(gctx, p.readingsQuery(pager))
		return err
	})
	g.Go(func() (err error) {
		notes, err = p.api.Notes(gctx, p.id)
		return err
	})
	g.Go(func() (err error) {
		calls, err = p.api.CallHistory(gctx, p.id)
		return err
	})
	err := g.Wait()
	if !p.gen.Current(ticket) {
		return filter.ErrSuperseded
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.patient = patient
	p.readings = readings.Readings
	p.pager = p.pager.WithTotal(readings.TotalCount)
	p.notes = notes
	p.calls = calls
	return nil
}

// GoToPage loads the 1-based readings page n.
func (p *PatientDetail) GoToPage(ctx context.Context, n int) error {
	ticket := p.gen.Next()
	pager := p.Pager().FromPage(n)
	list, err := p.api.ListReadings(ctx, p.readingsQuery(pager))
	if !p.gen.Current(ticket) {
		return filter.ErrSuperseded
	}
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readings = list.Readings
	p.pager = pager.WithTotal(list.TotalCount)
	return nil
}

func (p *PatientDetail) readingsQuery(pager filter.Pager) api.ReadingsQuery {
	return api.ReadingsQuery{
		UserID:    p.id,
		Limit:     pager.Limit,
		Offset:    pager.Offset,
		SortBy:    "reading_date",
		SortOrder: string(Desc),
	}
}

// AddNote appends a note and prepends it to the loaded list.
func (p *PatientDetail) AddNote(ctx context.Context, text string) (*types.AdminNote, error) {
	text = strings.TrimSpace(text)
	note, err := p.api.AddNote(ctx, p.id, text)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.notes = append([]types.AdminNote{*note}, p.notes...)
	p.mu.Unlock()
	record(ctx, p.recorder, journal.New(journal.KindNoteAdded, journal.TargetUser, p.id, "note added").
		With("length", len(text)))
	return note, nil
}

// ToggleFlag flips the patient's flag.
func (p *PatientDetail) ToggleFlag(ctx context.Context) (bool, error) {
	flagged, err := p.api.ToggleFlag(ctx, p.id)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	if p.patient != nil {
		p.patient.IsFlagged = flagged
	}
	p.mu.Unlock()
	record(ctx, p.recorder, journal.New(journal.KindUserFlagged, journal.TargetUser, p.id, fmt.Sprintf("flagged=%t", flagged)))
	return flagged, nil
}

// Deactivate deactivates the patient and reloads the profile.
func (p *PatientDetail) Deactivate(ctx context.Context) error {
	if err := p.api.DeactivateUser(ctx, p.id); err != nil {
		return err
	}
	record(ctx, p.recorder, journal.New(journal.KindUserDeactivated, journal.TargetUser, p.id, "deactivated"))
	p.reloadAfter(ctx)
	return nil
}

// Approve approves a pending patient and reloads the profile.
func (p *PatientDetail) Approve(ctx context.Context) error {
	if err := p.api.ApproveUser(ctx, p.id); err != nil {
		return err
	}
	record(ctx, p.recorder, journal.New(journal.KindUserApproved, journal.TargetUser, p.id, "approved"))
	p.reloadAfter(ctx)
	return nil
}

// SetStatus sets the patient's status. The returned profile replaces the
// loaded one.
func (p *PatientDetail) SetStatus(ctx context.Context, status types.UserStatus) error {
	updated, err := p.api.SetUserStatus(ctx, p.id, status)
	if err != nil {
		return err
	}
	record(ctx, p.recorder, journal.New(journal.KindUserStatusChanged, journal.TargetUser, p.id, "status "+status.Label()))
	if updated != nil && updated.ID == p.id {
		p.mu.Lock()
		p.patient = updated
		p.mu.Unlock()
		return nil
	}
	p.reloadAfter(ctx)
	return nil
}

func (p *PatientDetail) reloadAfter(ctx context.Context) {
	if err := p.Load(ctx); err != nil && !IsSuperseded(err) {
		logging.Get(logging.CategoryViews).Warn("Reload of patient %d failed: %v", p.id, err)
	}
}
