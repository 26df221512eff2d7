package calllist

import (
	"strings"
	"time"

	"htnadmin/internal/types"
)

const patientPlaceholder = "{{patient_name}}"

// RenderTemplate substitutes the patient's name into a template string.
func RenderTemplate(tpl, patientName string) string {
	if strings.TrimSpace(patientName) == "" {
		patientName = "Patient"
	}
	return strings.ReplaceAll(tpl, patientPlaceholder, patientName)
}

// ApplyTemplate fills an email form for item from tpl.
func ApplyTemplate(tpl types.EmailTemplate, item types.CallListItem) EmailForm {
	return EmailForm{
		To:      item.User.Email,
		Subject: RenderTemplate(tpl.Subject, item.User.Name),
		Body:    RenderTemplate(tpl.Body, item.User.Name),
	}
}

// OverdueCount counts open items whose follow-up date has passed.
func OverdueCount(items []types.CallListItem, now time.Time) int {
	n := 0
	for _, it := range items {
		if it.IsOverdue(now) {
			n++
		}
	}
	return n
}

// OpenCount counts items still open.
func OpenCount(items []types.CallListItem) int {
	n := 0
	for _, it := range items {
		if !it.IsClosed() {
			n++
		}
	}
	return n
}
