package calllist

import (
	"fmt"
	"strings"
	"time"

	"htnadmin/internal/api"
	"htnadmin/internal/types"
)

// FormTimeLayout is the minute-precision local time the server accepts for
// follow-up dates.
const FormTimeLayout = "2006-01-02T15:04"

// QuickFollowUpDays are the relative follow-up offsets offered as shortcuts.
var QuickFollowUpDays = []int{1, 3, 7, 14}

// AttemptForm is the "Log Call" form.
type AttemptForm struct {
	Outcome        types.Outcome
	Notes          string
	FollowUpNeeded bool
	FollowUpDate   time.Time
	MaterialsSent  bool
	MaterialsDesc  string
	ReferralMade   bool
	ReferralTo     string
}

// Validate checks the form before anything is sent.
func (f AttemptForm) Validate() error {
	if f.Outcome == "" {
		return api.NewValidationError("outcome", "Outcome is required")
	}
	if !f.Outcome.Valid() {
		return api.NewValidationError("outcome", "Unknown outcome %q", f.Outcome)
	}
	return nil
}

// request builds the wire body. Follow-up, materials, and referral details
// only mean something after a completed call and are dropped otherwise.
func (f AttemptForm) request() api.AttemptRequest {
	req := api.AttemptRequest{
		Outcome: f.Outcome,
		Notes:   strings.TrimSpace(f.Notes),
	}
	if f.Outcome != types.OutcomeCompleted {
		return req
	}
	req.FollowUpNeeded = f.FollowUpNeeded
	if f.FollowUpNeeded && !f.FollowUpDate.IsZero() {
		req.FollowUpDate = f.FollowUpDate.Format(FormTimeLayout)
	}
	req.MaterialsSent = f.MaterialsSent
	if f.MaterialsSent {
		req.MaterialsDesc = strings.TrimSpace(f.MaterialsDesc)
	}
	req.ReferralMade = f.ReferralMade
	if f.ReferralMade {
		req.ReferralTo = strings.TrimSpace(f.ReferralTo)
	}
	return req
}

// EmailForm is the "Send Email" form.
type EmailForm struct {
	To      string
	Subject string
	Body    string
}

// Validate requires all three fields.
func (f EmailForm) Validate() error {
	switch {
	case strings.TrimSpace(f.To) == "":
		return api.NewValidationError("to", "Recipient is required")
	case !strings.Contains(f.To, "@"):
		return api.NewValidationError("to", "Recipient %q is not an email address", f.To)
	case strings.TrimSpace(f.Subject) == "":
		return api.NewValidationError("subject", "Subject is required")
	case strings.TrimSpace(f.Body) == "":
		return api.NewValidationError("body", "Body is required")
	}
	return nil
}

// Schedule chooses a follow-up either relative to now or on a fixed date.
// Exactly one of Days and Date must be set.
type Schedule struct {
	Days int
	Date time.Time
}

// InDays schedules n days out. n must be one of QuickFollowUpDays.
func InDays(n int) Schedule { return Schedule{Days: n} }

// OnDate schedules for t.
func OnDate(t time.Time) Schedule { return Schedule{Date: t} }

// Validate enforces exactly-one and the quick-option set.
func (s Schedule) Validate() error {
	hasDays, hasDate := s.Days != 0, !s.Date.IsZero()
	switch {
	case !hasDays && !hasDate:
		return api.NewValidationError("follow_up", "Choose a quick option or a date")
	case hasDays && hasDate:
		return api.NewValidationError("follow_up", "Choose either a quick option or a date, not both")
	case hasDays:
		for _, d := range QuickFollowUpDays {
			if s.Days == d {
				return nil
			}
		}
		return api.NewValidationError("follow_up_days", "Follow-up must be 1, 3, 7, or 14 days out")
	}
	return nil
}

func (s Schedule) request() api.ScheduleRequest {
	if s.Days != 0 {
		return api.ScheduleRequest{FollowUpDays: s.Days}
	}
	return api.ScheduleRequest{FollowUpDate: s.Date.Format(FormTimeLayout)}
}

func (s Schedule) String() string {
	if s.Days != 0 {
		return fmt.Sprintf("in %d days", s.Days)
	}
	return "on " + s.Date.Format("Jan 2, 2006 15:04")
}

// CloseForm is the "Resolve" form.
type CloseForm struct {
	Reason types.CloseReason
	Note   string
}

// Validate accepts only the manual close reasons.
func (f CloseForm) Validate() error {
	if _, err := types.ParseCloseReason(string(f.Reason)); err != nil {
		return api.NewValidationError("reason", "Reason must be resolved, not_needed, or other")
	}
	return nil
}
