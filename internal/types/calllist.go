package types

import (
	"fmt"
	"time"
)

// =============================================================================
// CALL LIST ENUMERATIONS
// =============================================================================

// ListType partitions the call list by outreach reason.
type ListType string

const (
	ListNurse     ListType = "nurse"
	ListCoach     ListType = "coach"
	ListNoReading ListType = "no_reading"
)

// AllListTypes is the tab order of the call list page.
var AllListTypes = []ListType{ListNurse, ListCoach, ListNoReading}

// ParseListType validates s.
func ParseListType(s string) (ListType, error) {
	switch lt := ListType(s); lt {
	case ListNurse, ListCoach, ListNoReading:
		return lt, nil
	}
	return "", fmt.Errorf("unknown list type %q (valid: nurse, coach, no_reading)", s)
}

// Label returns the tab caption.
func (l ListType) Label() string {
	switch l {
	case ListNurse:
		return "Nurse"
	case ListCoach:
		return "Coach"
	case ListNoReading:
		return "No Reading"
	}
	return string(l)
}

// ItemStatus is the lifecycle state of a call list item. Closed is terminal.
type ItemStatus string

const (
	ItemOpen   ItemStatus = "open"
	ItemClosed ItemStatus = "closed"
)

// Label returns the display name.
func (s ItemStatus) Label() string {
	switch s {
	case ItemOpen:
		return "Open"
	case ItemClosed:
		return "Closed"
	}
	return string(s)
}

// StatusFilter restricts which items a call list load returns.
type StatusFilter string

const (
	FilterOpen   StatusFilter = "open"
	FilterClosed StatusFilter = "closed"
	FilterAll    StatusFilter = "all"
)

// ParseStatusFilter validates s.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(s); f {
	case FilterOpen, FilterClosed, FilterAll:
		return f, nil
	}
	return "", fmt.Errorf("unknown status filter %q (valid: open, closed, all)", s)
}

// Outcome is the result of a single outreach attempt.
type Outcome string

const (
	OutcomeCompleted         Outcome = "completed"
	OutcomeLeftVoicemail     Outcome = "left_vm"
	OutcomeNoAnswer          Outcome = "no_answer"
	OutcomeEmailSent         Outcome = "email_sent"
	OutcomeRequestedCallback Outcome = "requested_callback"
	OutcomeRefused           Outcome = "refused"
	OutcomeSentMaterials     Outcome = "sent_materials"
)

// AllOutcomes lists every outcome in form order.
var AllOutcomes = []Outcome{
	OutcomeCompleted,
	OutcomeLeftVoicemail,
	OutcomeNoAnswer,
	OutcomeEmailSent,
	OutcomeRequestedCallback,
	OutcomeRefused,
	OutcomeSentMaterials,
}

// ParseOutcome validates s.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.Valid() {
		return "", fmt.Errorf("unknown outcome %q", s)
	}
	return o, nil
}

// Valid reports whether o is one of the seven outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeLeftVoicemail, OutcomeNoAnswer, OutcomeEmailSent,
		OutcomeRequestedCallback, OutcomeRefused, OutcomeSentMaterials:
		return true
	}
	return false
}

// Label returns the display name.
func (o Outcome) Label() string {
	switch o {
	case OutcomeCompleted:
		return "Completed"
	case OutcomeLeftVoicemail:
		return "Left Voicemail"
	case OutcomeNoAnswer:
		return "No Answer"
	case OutcomeEmailSent:
		return "Email Sent"
	case OutcomeRequestedCallback:
		return "Requested Callback"
	case OutcomeRefused:
		return "Refused"
	case OutcomeSentMaterials:
		return "Sent Materials"
	}
	return string(o)
}

// CountsTowardAutoClose reports whether the server counts o toward the
// unsuccessful-attempt threshold.
func (o Outcome) CountsTowardAutoClose() bool {
	switch o {
	case OutcomeLeftVoicemail, OutcomeNoAnswer, OutcomeRefused:
		return true
	case OutcomeCompleted, OutcomeEmailSent, OutcomeRequestedCallback, OutcomeSentMaterials:
		return false
	}
	return false
}

// CloseReason records why an item was closed.
type CloseReason string

const (
	CloseResolved   CloseReason = "resolved"
	CloseNotNeeded  CloseReason = "not_needed"
	CloseOther      CloseReason = "other"
	CloseAutoClosed CloseReason = "auto_closed_3_attempts"
)

// ManualCloseReasons are the reasons an admin may pick.
var ManualCloseReasons = []CloseReason{CloseResolved, CloseNotNeeded, CloseOther}

// ParseCloseReason validates s as a manual close reason.
func ParseCloseReason(s string) (CloseReason, error) {
	switch r := CloseReason(s); r {
	case CloseResolved, CloseNotNeeded, CloseOther:
		return r, nil
	}
	return "", fmt.Errorf("unknown close reason %q (valid: resolved, not_needed, other)", s)
}

// Label returns the display name.
func (r CloseReason) Label() string {
	switch r {
	case CloseResolved:
		return "Resolved"
	case CloseNotNeeded:
		return "Not Needed"
	case CloseOther:
		return "Other"
	case CloseAutoClosed:
		return "Auto-closed (3 attempts)"
	}
	return string(r)
}

// Priority is the server-assigned triage rank. Treated as opaque display data.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for display, high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Label returns the display name. Unknown priorities pass through.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	}
	return string(p)
}

// =============================================================================
// CALL LIST RECORDS
// =============================================================================

// CallListPatient is the trimmed patient block embedded in call list items.
type CallListPatient struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	UnionName string    `json:"union_name"`
	Gender    string    `json:"gender"`
	Rank      string    `json:"rank"`
	CreatedAt Timestamp `json:"created_at"`
}

// DisplayName returns the patient name, or a stable placeholder.
func (p CallListPatient) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("User #%d", p.ID)
}

// LastNote is the most recent attempt note preview.
type LastNote struct {
	Text      string    `json:"text"`
	AdminName string    `json:"admin_name"`
	Date      Timestamp `json:"date"`
}

// CallAttempt is one immutable outreach event.
type CallAttempt struct {
	ID             int       `json:"id"`
	CallListItemID int       `json:"call_list_item_id"`
	UserID         int       `json:"user_id"`
	AdminName      string    `json:"admin_name"`
	Outcome        Outcome   `json:"outcome"`
	Notes          string    `json:"notes"`
	FollowUpNeeded bool      `json:"follow_up_needed"`
	FollowUpDate   Timestamp `json:"follow_up_date"`
	MaterialsSent  bool      `json:"materials_sent"`
	MaterialsDesc  string    `json:"materials_desc"`
	ReferralMade   bool      `json:"referral_made"`
	ReferralTo     string    `json:"referral_to"`
	CreatedAt      Timestamp `json:"created_at"`

	// Populated by the call reports endpoint only.
	PatientName string   `json:"patient_name,omitempty"`
	ListType    ListType `json:"list_type,omitempty"`
}

// CallListItem is a patient queued for outreach.
type CallListItem struct {
	ID             int             `json:"id"`
	UserID         int             `json:"user_id"`
	ListType       ListType        `json:"list_type"`
	Status         ItemStatus      `json:"status"`
	Priority       Priority        `json:"priority"`
	PriorityTitle  string          `json:"priority_title"`
	PriorityDetail string          `json:"priority_detail"`
	CloseReason    CloseReason     `json:"close_reason"`
	CloseNote      string          `json:"close_note"`
	CooldownUntil  Timestamp       `json:"cooldown_until"`
	FollowUpDate   Timestamp       `json:"follow_up_date"`
	CreatedAt      Timestamp       `json:"created_at"`
	ClosedAt       Timestamp       `json:"closed_at"`
	User           CallListPatient `json:"user"`
	LatestReading  *Reading        `json:"latest_reading"`
	Avg7Day        *BPAverage      `json:"avg_7_day"`
	Avg30Day       *BPAverage      `json:"avg_30_day"`
	ReadingCount   int             `json:"reading_count"`
	AttemptCount   int             `json:"attempt_count"`
	LastAttempt    *CallAttempt    `json:"last_attempt"`
	LastNote       *LastNote       `json:"last_note"`
}

// IsClosed reports whether the item reached its terminal state.
func (i CallListItem) IsClosed() bool {
	return i.Status == ItemClosed
}

// IsOverdue reports whether an open item's follow-up date has passed.
func (i CallListItem) IsOverdue(now time.Time) bool {
	return !i.IsClosed() && !i.FollowUpDate.IsZero() && i.FollowUpDate.Before(now)
}

// CallListSummary counts open items per list type.
type CallListSummary struct {
	Nurse     int `json:"nurse"`
	Coach     int `json:"coach"`
	NoReading int `json:"no_reading"`
}

// Count returns the open count for l.
func (s CallListSummary) Count(l ListType) int {
	switch l {
	case ListNurse:
		return s.Nurse
	case ListCoach:
		return s.Coach
	case ListNoReading:
		return s.NoReading
	}
	return 0
}

// CallListPage is one load of the call list.
type CallListPage struct {
	Items      []CallListItem  `json:"items"`
	Summary    CallListSummary `json:"summary"`
	TotalCount int             `json:"total_count"`
}

// AttemptResponse is the server reply to a logged attempt.
type AttemptResponse struct {
	Attempt    CallAttempt  `json:"attempt"`
	AutoClosed bool         `json:"auto_closed"`
	Item       CallListItem `json:"item"`
}

// EmailResponse is the server reply to a send-email request. The attempt is
// logged even when delivery fails.
type EmailResponse struct {
	Attempt    CallAttempt `json:"attempt"`
	EmailSent  bool        `json:"email_sent"`
	EmailError string      `json:"email_error"`
	Message    string      `json:"message"`
}

// EmailTemplate is a canned outreach message.
type EmailTemplate struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	ListType ListType `json:"list_type"`
	IsActive bool     `json:"is_active"`
}

// CallReportSummary aggregates attempts across all time and the last week.
type CallReportSummary struct {
	TotalAll  int             `json:"total_all"`
	TotalWeek int             `json:"total_week"`
	ByOutcome map[Outcome]int `json:"by_outcome"`
}

// CallReport is the call reports page payload.
type CallReport struct {
	Attempts   []CallAttempt     `json:"attempts"`
	TotalCount int               `json:"total_count"`
	Summary    CallReportSummary `json:"summary"`
}
