package types

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// USER STATUS
// =============================================================================

// UserStatus is the enrollment lifecycle state of a patient account.
type UserStatus string

const (
	StatusPendingApproval     UserStatus = "pending_approval"
	StatusPendingRegistration UserStatus = "pending_registration"
	StatusPendingCuff         UserStatus = "pending_cuff"
	StatusPendingFirstReading UserStatus = "pending_first_reading"
	StatusActive              UserStatus = "active"
	StatusDeactivated         UserStatus = "deactivated"
	StatusEnrollmentOnly      UserStatus = "enrollment_only"
)

// AllUserStatuses lists every status in display order.
var AllUserStatuses = []UserStatus{
	StatusPendingApproval,
	StatusPendingRegistration,
	StatusPendingCuff,
	StatusPendingFirstReading,
	StatusActive,
	StatusDeactivated,
	StatusEnrollmentOnly,
}

// StatusTone is the color family a status badge is drawn with.
type StatusTone int

const (
	ToneGray StatusTone = iota
	ToneOrange
	ToneBlue
	ToneGreen
	ToneRed
)

// ParseUserStatus validates s.
func ParseUserStatus(s string) (UserStatus, error) {
	st := UserStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown user status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusPendingRegistration, StatusPendingCuff,
		StatusPendingFirstReading, StatusActive, StatusDeactivated, StatusEnrollmentOnly:
		return true
	}
	return false
}

// Label returns the human readable status name.
func (s UserStatus) Label() string {
	switch s {
	case StatusPendingApproval:
		return "Pending Approval"
	case StatusPendingRegistration:
		return "Pending Registration"
	case StatusPendingCuff:
		return "Pending Cuff"
	case StatusPendingFirstReading:
		return "Pending First Reading"
	case StatusActive:
		return "Active"
	case StatusDeactivated:
		return "Deactivated"
	case StatusEnrollmentOnly:
		return "Enrollment Only"
	}
	return string(s)
}

// Tone returns the badge color family.
func (s UserStatus) Tone() StatusTone {
	switch s {
	case StatusPendingApproval, StatusPendingRegistration, StatusPendingCuff:
		return ToneOrange
	case StatusPendingFirstReading:
		return ToneBlue
	case StatusActive:
		return ToneGreen
	case StatusDeactivated:
		return ToneRed
	case StatusEnrollmentOnly:
		return ToneGray
	}
	return ToneGray
}

// UserAction is an admin operation on a single patient account.
type UserAction int

const (
	ActionApprove UserAction = iota
	ActionDeactivate
	ActionFlag
	ActionSetStatus
)

// AvailableActions returns the account actions that apply in status s.
func (s UserStatus) AvailableActions() []UserAction {
	switch s {
	case StatusPendingApproval:
		return []UserAction{ActionApprove, ActionDeactivate, ActionFlag, ActionSetStatus}
	case StatusDeactivated:
		return []UserAction{ActionFlag, ActionSetStatus}
	case StatusPendingRegistration, StatusPendingCuff, StatusPendingFirstReading,
		StatusActive, StatusEnrollmentOnly:
		return []UserAction{ActionDeactivate, ActionFlag, ActionSetStatus}
	}
	return []UserAction{ActionSetStatus}
}

// Allows reports whether action a applies in status s.
func (s UserStatus) Allows(a UserAction) bool {
	for _, x := range s.AvailableActions() {
		if x == a {
			return true
		}
	}
	return false
}

// UserTab selects one of the user management tabs.
type UserTab string

const (
	TabAll                 UserTab = "all"
	TabActive              UserTab = "active"
	TabPendingApproval     UserTab = "pending_approval"
	TabPendingRegistration UserTab = "pending_registration"
	TabPendingCuff         UserTab = "pending_cuff"
	TabPendingFirstReading UserTab = "pending_first_reading"
	TabEnrollmentOnly      UserTab = "enrollment_only"
	TabDeactivated         UserTab = "deactivated"
)

// AllUserTabs is the tab bar order.
var AllUserTabs = []UserTab{
	TabAll, TabActive, TabPendingApproval, TabPendingRegistration,
	TabPendingCuff, TabPendingFirstReading, TabEnrollmentOnly, TabDeactivated,
}

// Label returns the tab caption.
func (t UserTab) Label() string {
	if t == TabAll {
		return "All"
	}
	return UserStatus(t).Label()
}

// TabCounts maps each tab to its row count.
type TabCounts map[UserTab]int

// UnmarshalJSON decodes the tab-counts object, ignoring unknown keys.
func (c *TabCounts) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(TabCounts, len(raw))
	for _, tab := range AllUserTabs {
		if n, ok := raw[string(tab)]; ok {
			out[tab] = n
		}
	}
	*c = out
	return nil
}
