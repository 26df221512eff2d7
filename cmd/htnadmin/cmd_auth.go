package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"htnadmin/internal/config"
	"htnadmin/internal/session"
)

// authCmd manages the admin session
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign out, and manage two-factor authentication",
	Long: `Manage the admin session stored in the local database.

Available subcommands:
  login  - Sign in with your admin email (prompts for MFA when required)
  setup  - Finish a pending two-factor setup
  logout - Sign out and revoke the token
  status - Show the current session`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in with your admin email",
	Long: `Sign in with your admin email.

If the server requires a verification code it is read from --code, or
prompted for on stdin. If two-factor setup is required the provisioning
details are printed and the first code is prompted for.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthLogin,
}

var authSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Finish a pending two-factor setup",
	RunE:  runAuthSetup,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and revoke the token",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE:  runStatus,
}

// statusCmd is a shortcut for auth status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and configuration status",
	RunE:  runStatus,
}

var mfaCode string

func init() {
	authLoginCmd.Flags().StringVar(&mfaCode, "code", "", "Verification code (prompted when omitted)")
	authSetupCmd.Flags().StringVar(&mfaCode, "code", "", "First authenticator code (prompted when omitted)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authSetupCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	logger.Info("Signing in", zap.String("email", args[0]))
	st, err := current.session.Login(ctx, args[0])
	if err != nil {
		return err
	}

	switch st {
	case session.MFARequired:
		method := current.session.MFAType()
		if method == "" {
			method = "authenticator app"
		}
		code, err := readCode(out, in, fmt.Sprintf("Enter the 6-digit code from your %s: ", method))
		if err != nil {
			return err
		}
		if err := current.session.VerifyMFA(ctx, code); err != nil {
			return err
		}
	case session.MFASetupRequired:
		if err := completeSetup(ctx, out, in); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Signed in as %s\n", current.session.Email())
	return nil
}

func runAuthSetup(cmd *cobra.Command, args []string) error {
	if current.session.State() != session.MFASetupRequired {
		return fmt.Errorf("no two-factor setup pending (session is %s)", current.session.State())
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	out := cmd.OutOrStdout()
	if err := completeSetup(ctx, out, bufio.NewReader(cmd.InOrStdin())); err != nil {
		return err
	}
	fmt.Fprintf(out, "Signed in as %s\n", current.session.Email())
	return nil
}

// completeSetup provisions an authenticator, confirms its first code, and
// prints the backup codes once.
func completeSetup(ctx context.Context, out io.Writer, in *bufio.Reader) error {
	setup, err := current.session.SetupMFA(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Two-factor authentication must be set up before you can continue.")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Provisioning URI: %s\n", setup.ProvisioningURI)
	fmt.Fprintf(out, "  Secret:           %s\n", setup.Secret)
	fmt.Fprintln(out)

	code, err := readCode(out, in, "Enter the 6-digit code from your authenticator: ")
	if err != nil {
		return err
	}
	codes, err := current.session.ConfirmMFASetup(ctx, code)
	if err != nil {
		return err
	}
	if len(codes) > 0 {
		fmt.Fprintln(out, "\nBackup codes (each works once; they will not be shown again):")
		for _, c := range codes {
			fmt.Fprintf(out, "  %s\n", c)
		}
		fmt.Fprintln(out)
	}
	current.session.AcknowledgeBackupCodes()
	return nil
}

// readCode returns --code when set, otherwise prompts on in.
func readCode(out io.Writer, in *bufio.Reader, prompt string) (string, error) {
	if mfaCode != "" {
		return mfaCode, nil
	}
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("no verification code entered: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	if current.session.State() == session.Anonymous {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
		return nil
	}
	current.session.Logout(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	sm, cfg := current.session, current.cfg

	fmt.Fprintln(out, "htnadmin status")
	fmt.Fprintln(out, "===============")
	fmt.Fprintf(out, "API:      %s\n", cfg.API.BaseURL)
	fmt.Fprintf(out, "Database: %s\n", current.store.Path())
	fmt.Fprintf(out, "Events:   %s\n", eventsBackend(cfg.Events.Backend))
	if cfg.Export.S3.Enabled {
		fmt.Fprintf(out, "Archive:  s3://%s/%s\n", cfg.Export.S3.Bucket, cfg.Export.S3.Prefix)
	}
	fmt.Fprintln(out)

	switch sm.State() {
	case session.Authenticated:
		fmt.Fprintf(out, "✓ Signed in as %s\n", sm.Email())
		if exp, ok := sm.Expiry(); ok {
			fmt.Fprintf(out, "  Token expires %s (%s)\n", humanize.Time(exp), exp.Local().Format("2006-01-02 15:04"))
		}
	case session.MFASetupRequired:
		fmt.Fprintf(out, "… Two-factor setup pending for %s (run 'htnadmin auth setup')\n", sm.Email())
	default:
		fmt.Fprintln(out, "✗ Not signed in")
	}
	return nil
}

func eventsBackend(b config.EventsBackend) string {
	if b == "" {
		return "none"
	}
	return string(b)
}
