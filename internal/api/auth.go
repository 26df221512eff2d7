package api

import (
	"context"
	"net/http"

	"htnadmin/internal/types"
)

// LoginResponse is the union of the three login reply shapes. Exactly one
// branch is populated by a well-behaved server.
type LoginResponse struct {
	Token            string `json:"token"`
	SingleUseToken   string `json:"singleUseToken"`
	MFARequired      bool   `json:"mfa_required"`
	MFASessionToken  string `json:"mfa_session_token"`
	MFAType          string `json:"mfa_type"`
	MFASetupRequired bool   `json:"mfa_setup_required"`
	TempToken        string `json:"tempToken"`
}

// SessionToken returns the full session token, preferring singleUseToken.
func (r LoginResponse) SessionToken() string {
	if r.SingleUseToken != "" {
		return r.SingleUseToken
	}
	return r.Token
}

// Login starts a session for email.
func (c *Client) Login(ctx context.Context, email string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/consumer/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA exchanges a pending MFA session token and code for a session token.
func (c *Client) VerifyMFA(ctx context.Context, mfaSessionToken, code string) (string, error) {
	var out LoginResponse
	body := map[string]string{"mfa_session_token": mfaSessionToken, "code": code}
	if err := c.do(ctx, http.MethodPost, "/consumer/verify-mfa", nil, body, &out); err != nil {
		return "", err
	}
	return out.SessionToken(), nil
}

// SetupMFA requests authenticator provisioning material.
func (c *Client) SetupMFA(ctx context.Context) (*types.MFASetup, error) {
	var out types.MFASetup
	if err := c.do(ctx, http.MethodPost, "/consumer/setup-mfa", nil, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmMFASetup activates the authenticator with its first code.
func (c *Client) ConfirmMFASetup(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/consumer/confirm-mfa-setup", nil, map[string]string{"code": code}, nil)
}

// Logout revokes the current token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/consumer/logout", nil, struct{}{}, nil)
}
