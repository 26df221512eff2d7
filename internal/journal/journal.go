// Package journal records the admin's mutating actions so they can be
// reviewed later and forwarded to downstream consumers.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind names a recorded action.
type Kind string

const (
	KindLogin             Kind = "login"
	KindLogout            Kind = "logout"
	KindCallAttempt       Kind = "call_attempt"
	KindEmailSent         Kind = "email_sent"
	KindFollowUpScheduled Kind = "follow_up_scheduled"
	KindItemClosed        Kind = "call_list_item_closed"
	KindCallListRefreshed Kind = "call_list_refreshed"
	KindUserApproved      Kind = "user_approved"
	KindUserDeactivated   Kind = "user_deactivated"
	KindUserFlagged       Kind = "user_flag_toggled"
	KindUserStatusChanged Kind = "user_status_changed"
	KindNoteAdded         Kind = "note_added"
	KindBulkApprove       Kind = "bulk_approve"
	KindBulkDeactivate    Kind = "bulk_deactivate"
	KindExport            Kind = "export"
)

// Target types.
const (
	TargetUser         = "user"
	TargetCallListItem = "call_list_item"
	TargetCallList     = "call_list"
)

// Action is one journal entry.
type Action struct {
	ID         string                 `json:"id"`
	Kind       Kind                   `json:"kind"`
	Actor      string                 `json:"actor,omitempty"`
	TargetType string                 `json:"target_type,omitempty"`
	TargetID   int                    `json:"target_id,omitempty"`
	Summary    string                 `json:"summary"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	At         time.Time              `json:"at"`
}

// New builds an action stamped with a fresh ID and the current time.
func New(kind Kind, targetType string, targetID int, summary string) Action {
	return Action{
		ID:         uuid.NewString(),
		Kind:       kind,
		TargetType: targetType,
		TargetID:   targetID,
		Summary:    summary,
		At:         time.Now().UTC(),
	}
}

// With returns a copy of a carrying key=value in its detail map.
func (a Action) With(key string, value interface{}) Action {
	d := make(map[string]interface{}, len(a.Detail)+1)
	for k, v := range a.Detail {
		d[k] = v
	}
	d[key] = value
	a.Detail = d
	return a
}

// Recorder accepts journal entries.
type Recorder interface {
	Record(ctx context.Context, a Action) error
}

// Multi fans an action out to every recorder. All recorders are attempted;
// their errors are joined.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, a Action) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards everything.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Action) error { return nil }

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, a Action) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, a Action) error { return f(ctx, a) }

// WithActor stamps every recorded action with the actor returned by fn.
func WithActor(r Recorder, fn func() string) Recorder {
	return RecorderFunc(func(ctx context.Context, a Action) error {
		if a.Actor == "" {
			a.Actor = fn()
		}
		return r.Record(ctx, a)
	})
}
