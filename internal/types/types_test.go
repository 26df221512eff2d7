package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestUserStatusActions(t *testing.T) {
	cases := []struct {
		status UserStatus
		action UserAction
		want   bool
	}{
		{StatusPendingApproval, ActionApprove, true},
		{StatusActive, ActionApprove, false},
		{StatusActive, ActionDeactivate, true},
		{StatusDeactivated, ActionDeactivate, false},
		{StatusDeactivated, ActionFlag, true},
		{StatusEnrollmentOnly, ActionSetStatus, true},
		{UserStatus("mystery"), ActionSetStatus, true},
		{UserStatus("mystery"), ActionFlag, false},
	}
	for _, tc := range cases {
		if got := tc.status.Allows(tc.action); got != tc.want {
			t.Errorf("%s.Allows(%d) = %v, want %v", tc.status, tc.action, got, tc.want)
		}
	}
}

func TestParseUserStatus(t *testing.T) {
	for _, s := range AllUserStatuses {
		got, err := ParseUserStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseUserStatus(%q) = %q, %v", s, got, err)
		}
		if s.Label() == string(s) {
			t.Errorf("status %q has no label", s)
		}
	}
	if _, err := ParseUserStatus("approved"); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestPatientLegacyIsActive(t *testing.T) {
	var p Patient
	if err := json.Unmarshal([]byte(`{"id":3,"is_active":false}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Status != StatusDeactivated {
		t.Fatalf("expected deactivated, got %q", p.Status)
	}

	p = Patient{}
	if err := json.Unmarshal([]byte(`{"id":3,"is_active":true,"user_status":"pending_cuff"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Status != StatusPendingCuff {
		t.Fatalf("user_status should win over is_active, got %q", p.Status)
	}
	if p.DisplayName() != "User #3" {
		t.Fatalf("unexpected placeholder name %q", p.DisplayName())
	}
}

func TestTabCountsIgnoresUnknownKeys(t *testing.T) {
	var c TabCounts
	if err := json.Unmarshal([]byte(`{"all":9,"active":4,"bogus":1}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c) != 2 || c[TabAll] != 9 || c[TabActive] != 4 {
		t.Fatalf("unexpected counts: %v", c)
	}
}

func TestBulkResultDecodesBothShapes(t *testing.T) {
	var b BulkResult
	data := `{"success":[1,{"id":2}],"skipped":[{"id":3,"reason":"already active"}],"error":[]}`
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(b.Success) != 2 || b.Success[0] != 1 || b.Success[1] != 2 {
		t.Fatalf("unexpected success ids: %v", b.Success)
	}
	if got := b.Summary(); got != "2 succeeded, 1 skipped, 0 failed" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-03-01T09:15:00",
		"2024-03-01T09:15:00Z",
		"2024-03-01 09:15:00",
		"2024-03-01T09:15:00.000000",
	} {
		ts, err := ParseTimestamp(s)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", s, err)
		}
		if !ts.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", s, ts.Time, want)
		}
	}

	ts, err := ParseTimestamp("2024-03-01")
	if err != nil || ts.Date() != "2024-03-01" {
		t.Fatalf("bare date: %v %v", ts, err)
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected garbage to be rejected")
	}
}

func TestTimestampJSON(t *testing.T) {
	var r Reading
	if err := json.Unmarshal([]byte(`{"reading_date":null,"created_at":"2024-03-01T09:15:00"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.ReadingDate.IsZero() {
		t.Fatalf("null should decode to the zero timestamp")
	}
	if r.ReadingDate.Display() != "-" {
		t.Fatalf("zero timestamp should display as -")
	}
	out, err := json.Marshal(r.CreatedAt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2024-03-01T09:15:00Z"` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestCallListEnums(t *testing.T) {
	if _, err := ParseListType("nurse"); err != nil {
		t.Fatalf("nurse: %v", err)
	}
	if _, err := ParseListType("doctor"); err == nil {
		t.Fatalf("expected unknown list type to be rejected")
	}
	if _, err := ParseStatusFilter("all"); err != nil {
		t.Fatalf("all: %v", err)
	}
	if _, err := ParseCloseReason(string(CloseAutoClosed)); err == nil {
		t.Fatalf("auto-close is not a manual reason")
	}
	for _, o := range AllOutcomes {
		if _, err := ParseOutcome(string(o)); err != nil {
			t.Fatalf("outcome %q: %v", o, err)
		}
	}
	if !OutcomeNoAnswer.CountsTowardAutoClose() || OutcomeCompleted.CountsTowardAutoClose() {
		t.Fatalf("unexpected auto-close accounting")
	}
	if Priority("urgent").Label() != "urgent" || PriorityHigh.Rank() >= PriorityLow.Rank() {
		t.Fatalf("unexpected priority handling")
	}
}

func TestCallListItemOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	item := CallListItem{Status: ItemOpen, FollowUpDate: NewTimestamp(now.Add(-time.Hour))}
	if !item.IsOverdue(now) {
		t.Fatalf("expected open item past its follow-up to be overdue")
	}
	item.Status = ItemClosed
	if item.IsOverdue(now) {
		t.Fatalf("closed items are never overdue")
	}
	item = CallListItem{Status: ItemOpen}
	if item.IsOverdue(now) {
		t.Fatalf("items without a follow-up are never overdue")
	}
}
