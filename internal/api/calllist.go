package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"htnadmin/internal/types"
)

// AttemptRequest is the body of POST /admin/call-list/{id}/attempt.
type AttemptRequest struct {
	Outcome        types.Outcome `json:"outcome"`
	Notes          string        `json:"notes,omitempty"`
	FollowUpNeeded bool          `json:"follow_up_needed"`
	FollowUpDate   string        `json:"follow_up_date,omitempty"`
	MaterialsSent  bool          `json:"materials_sent"`
	MaterialsDesc  string        `json:"materials_desc,omitempty"`
	ReferralMade   bool          `json:"referral_made"`
	ReferralTo     string        `json:"referral_to,omitempty"`
}

// EmailRequest is the body of POST /admin/call-list/{id}/send-email.
type EmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ScheduleRequest is the body of PUT /admin/call-list/{id}/schedule.
// Exactly one field is set.
type ScheduleRequest struct {
	FollowUpDays int    `json:"follow_up_days,omitempty"`
	FollowUpDate string `json:"follow_up_date,omitempty"`
}

// CloseRequest is the body of PUT /admin/call-list/{id}/close.
type CloseRequest struct {
	Reason types.CloseReason `json:"reason"`
	Note   string            `json:"note,omitempty"`
}

// CallList loads items for one list type and status filter.
func (c *Client) CallList(ctx context.Context, listType types.ListType, status types.StatusFilter) (*types.CallListPage, error) {
	q := url.Values{}
	q.Set("list_type", string(listType))
	if status != "" {
		q.Set("status", string(status))
	}
	var out types.CallListPage
	if err := c.do(ctx, http.MethodGet, "/admin/call-list", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshCallList re-evaluates every patient for list membership and
// returns the number of items created.
func (c *Client) RefreshCallList(ctx context.Context) (int, error) {
	var out struct {
		Message string `json:"message"`
		Count   int    `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/call-list/refresh", nil, struct{}{}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// LogAttempt records an outreach attempt.
func (c *Client) LogAttempt(ctx context.Context, itemID int, req AttemptRequest) (*types.AttemptResponse, error) {
	var out types.AttemptResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/admin/call-list/%d/attempt", itemID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendEmail emails the patient and logs an email_sent attempt.
func (c *Client) SendEmail(ctx context.Context, itemID int, req EmailRequest) (*types.EmailResponse, error) {
	var out types.EmailResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/admin/call-list/%d/send-email", itemID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScheduleFollowUp sets the item's follow-up date.
func (c *Client) ScheduleFollowUp(ctx context.Context, itemID int, req ScheduleRequest) (*types.CallListItem, error) {
	var out types.CallListItem
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/call-list/%d/schedule", itemID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseItem closes an item.
func (c *Client) CloseItem(ctx context.Context, itemID int, req CloseRequest) (*types.CallListItem, error) {
	var out types.CallListItem
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/call-list/%d/close", itemID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EmailTemplates lists the active templates for listType.
func (c *Client) EmailTemplates(ctx context.Context, listType types.ListType) ([]types.EmailTemplate, error) {
	q := url.Values{}
	if listType != "" {
		q.Set("list_type", string(listType))
	}
	var out struct {
		Templates []types.EmailTemplate `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/email-templates", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// CallReports lists attempts matching q with summary counts.
func (c *Client) CallReports(ctx context.Context, q CallReportsQuery) (*types.CallReport, error) {
	var out types.CallReport
	if err := c.do(ctx, http.MethodGet, "/admin/call-reports", q.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
