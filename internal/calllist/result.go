package calllist

import (
	"time"

	"htnadmin/internal/types"
)

// AttemptResult is the outcome of LogAttempt: either Saved or AutoClosed.
type AttemptResult interface {
	attemptResult()
}

// Saved is an attempt that left the item open.
type Saved struct {
	Attempt types.CallAttempt
	Item    types.CallListItem
}

// AutoClosed is an attempt that hit the unsuccessful-attempt limit. The
// patient is not re-listed until CooldownUntil.
type AutoClosed struct {
	Attempt       types.CallAttempt
	Item          types.CallListItem
	CooldownUntil time.Time
}

func (Saved) attemptResult()      {}
func (AutoClosed) attemptResult() {}

// AutoCloseNotice is the message shown in place of a normal save.
const AutoCloseNotice = "This item has been auto-closed after 3 unsuccessful attempts. " +
	"The patient will be excluded from the call list for 2 weeks."

// Action is an operation the UI may offer for an item.
type Action int

const (
	ActionLogCall Action = iota
	ActionSendEmail
	ActionSchedule
	ActionResolve
	ActionViewPatient
)

func (a Action) String() string {
	switch a {
	case ActionLogCall:
		return "Log Call"
	case ActionSendEmail:
		return "Send Email"
	case ActionSchedule:
		return "Schedule Follow-up"
	case ActionResolve:
		return "Resolve"
	case ActionViewPatient:
		return "View Patient"
	}
	return "Unknown"
}

// Actions lists what may be done with item. Closed items can only be viewed.
func Actions(item types.CallListItem) []Action {
	if item.IsClosed() {
		return []Action{ActionViewPatient}
	}
	return []Action{ActionLogCall, ActionSendEmail, ActionSchedule, ActionResolve, ActionViewPatient}
}

// Allows reports whether a is offered for item.
func Allows(item types.CallListItem, a Action) bool {
	for _, x := range Actions(item) {
		if x == a {
			return true
		}
	}
	return false
}
