package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/bp"
	"htnadmin/internal/calllist"
	"htnadmin/internal/types"
)

// callListCmd works the nurse, coach, and no-reading call lists
var callListCmd = &cobra.Command{
	Use:     "calllist",
	Aliases: []string{"cl"},
	Short:   "Work the patient outreach call lists",
	Long: `Review and act on the outreach call lists.

List types: nurse, coach, no_reading.

Three unsuccessful attempts (left voicemail, no answer, refused) close an
item automatically and keep the patient off the lists for two weeks.`,
}

var callListListCmd = &cobra.Command{
	Use:   "list [nurse|coach|no_reading]",
	Short: "Show a call list",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCallListList,
}

var callListRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Regenerate every call list from current readings",
	RunE:  runCallListRefresh,
}

var callListAttemptCmd = &cobra.Command{
	Use:   "attempt <item-id>",
	Short: "Log a contact attempt",
	Long: `Log a contact attempt on a call list item.

Outcomes: completed, left_vm, no_answer, email_sent, requested_callback,
refused, sent_materials.

Follow-up, materials, and referral details are kept only for completed calls.`,
	Args: cobra.ExactArgs(1),
	RunE: runCallListAttempt,
}

var callListEmailCmd = &cobra.Command{
	Use:   "email <item-id>",
	Short: "Email the patient on an item",
	Long: `Email the patient on a call list item, from a template or a custom
subject and body. The attempt is logged even when delivery fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runCallListEmail,
}

var callListTemplatesCmd = &cobra.Command{
	Use:   "templates [nurse|coach|no_reading]",
	Short: "List email templates",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCallListTemplates,
}

var callListScheduleCmd = &cobra.Command{
	Use:   "schedule <item-id>",
	Short: "Schedule a follow-up",
	Long: `Schedule a follow-up either --in a number of days (1, 3, 7, or 14) or
--on a date (YYYY-MM-DD or YYYY-MM-DDTHH:MM).`,
	Args: cobra.ExactArgs(1),
	RunE: runCallListSchedule,
}

var callListCloseCmd = &cobra.Command{
	Use:   "close <item-id>",
	Short: "Resolve an item",
	Long:  `Close a call list item as resolved, not_needed, or other. Closing is final.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCallListClose,
}

var (
	clStatus string

	attemptOutcome       string
	attemptNotes         string
	attemptFollowUp      bool
	attemptFollowUpDate  string
	attemptMaterials     string
	attemptReferral      string

	emailTemplate string
	emailSubject  string
	emailBody     string

	scheduleDays int
	scheduleOn   string

	closeReason string
	closeNote   string
)

func init() {
	callListListCmd.Flags().StringVar(&clStatus, "status", "open", "Item status: open, closed, all")

	callListAttemptCmd.Flags().StringVar(&attemptOutcome, "outcome", "", "Call outcome (required)")
	callListAttemptCmd.Flags().StringVar(&attemptNotes, "notes", "", "Call notes")
	callListAttemptCmd.Flags().BoolVar(&attemptFollowUp, "follow-up", false, "Follow-up needed")
	callListAttemptCmd.Flags().StringVar(&attemptFollowUpDate, "follow-up-date", "", "Follow-up date (YYYY-MM-DDTHH:MM)")
	callListAttemptCmd.Flags().StringVar(&attemptMaterials, "materials", "", "Materials sent (description)")
	callListAttemptCmd.Flags().StringVar(&attemptReferral, "referral", "", "Referral made (to whom)")
	callListAttemptCmd.MarkFlagRequired("outcome")

	callListEmailCmd.Flags().StringVar(&emailTemplate, "template", "", "Template name")
	callListEmailCmd.Flags().StringVar(&emailSubject, "subject", "", "Subject (overrides the template)")
	callListEmailCmd.Flags().StringVar(&emailBody, "body", "", "Body (overrides the template)")

	callListScheduleCmd.Flags().IntVar(&scheduleDays, "in", 0, "Days from now: 1, 3, 7 or 14")
	callListScheduleCmd.Flags().StringVar(&scheduleOn, "on", "", "Date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	callListScheduleCmd.MarkFlagsMutuallyExclusive("in", "on")

	callListCloseCmd.Flags().StringVar(&closeReason, "reason", "", "resolved, not_needed or other (required)")
	callListCloseCmd.Flags().StringVar(&closeNote, "note", "", "Closing note")
	callListCloseCmd.MarkFlagRequired("reason")

	callListCmd.AddCommand(callListListCmd)
	callListCmd.AddCommand(callListRefreshCmd)
	callListCmd.AddCommand(callListAttemptCmd)
	callListCmd.AddCommand(callListEmailCmd)
	callListCmd.AddCommand(callListTemplatesCmd)
	callListCmd.AddCommand(callListScheduleCmd)
	callListCmd.AddCommand(callListCloseCmd)
}

func listTypeArg(args []string) (types.ListType, error) {
	if len(args) == 0 {
		return types.ListNurse, nil
	}
	return types.ParseListType(args[0])
}

func itemIDArg(args []string) (int, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", args[0])
	}
	return id, nil
}

func runCallListList(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	listType, err := listTypeArg(args)
	if err != nil {
		return err
	}
	status, err := types.ParseStatusFilter(clStatus)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	ctrl := current.callList()
	snap, err := ctrl.LoadList(ctx, listType, status)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Nurse %d • Coach %d • No reading %d\n\n",
		snap.Summary.Nurse, snap.Summary.Coach, snap.Summary.NoReading)

	now := time.Now()
	s := ui.DefaultStyles()
	t := ui.NewSimpleTable(fmt.Sprintf("%s (%s)", listType.Label(), status), []string{"ID", "Priority", "Patient", "Phone", "Latest BP", "Attempts", "Follow-up", "Status"})
	for _, it := range snap.Items {
		latest := "—"
		if r := it.LatestReading; r != nil {
			latest = fmt.Sprintf("%d/%d %s", r.Systolic, r.Diastolic, bp.Classify(r.Systolic, r.Diastolic).Label())
		}
		follow := ""
		if !it.FollowUpDate.IsZero() {
			follow = it.FollowUpDate.Local().Format("2006-01-02")
			if it.IsOverdue(now) {
				follow += " (overdue)"
			}
		}
		status := it.Status.Label()
		if it.IsClosed() && it.CloseReason != "" {
			status += ": " + it.CloseReason.Label()
		}
		t.AddRow(strconv.Itoa(it.ID), it.Priority.Label(), it.User.DisplayName(), it.User.Phone,
			latest, strconv.Itoa(it.AttemptCount), follow, status)
	}
	fmt.Fprintln(out, t.View(s, "No patients on this list."))
	if n := ctrl.OverdueCount(); n > 0 {
		fmt.Fprintf(out, "%d follow-up(s) overdue\n", n)
	}
	return nil
}

func runCallListRefresh(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	n, err := current.callList().Refresh(ctx, types.ListNurse)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Call lists refreshed: %d item(s) added\n", n)
	return nil
}

func runCallListAttempt(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	id, err := itemIDArg(args)
	if err != nil {
		return err
	}
	outcome, err := types.ParseOutcome(attemptOutcome)
	if err != nil {
		return err
	}
	form := calllist.AttemptForm{
		Outcome:        outcome,
		Notes:          attemptNotes,
		FollowUpNeeded: attemptFollowUp,
		MaterialsSent:  attemptMaterials != "",
		MaterialsDesc:  attemptMaterials,
		ReferralMade:   attemptReferral != "",
		ReferralTo:     attemptReferral,
	}
	if attemptFollowUpDate != "" {
		t, err := parseWhen(attemptFollowUpDate)
		if err != nil {
			return err
		}
		form.FollowUpNeeded = true
		form.FollowUpDate = t
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	logger.Info("Logging attempt", zap.Int("item", id), zap.String("outcome", string(outcome)))
	res, err := current.callList().LogAttempt(ctx, id, form)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch r := res.(type) {
	case calllist.AutoClosed:
		fmt.Fprintln(out, calllist.AutoCloseNotice)
		fmt.Fprintf(out, "Eligible again after %s\n", r.CooldownUntil.Local().Format("2006-01-02"))
	case calllist.Saved:
		fmt.Fprintf(out, "Logged %s for %s (%d attempt(s))\n",
			outcome.Label(), r.Item.User.DisplayName(), r.Item.AttemptCount)
	}
	return nil
}

// findItem looks for itemID on the open lists.
func findItem(ctx context.Context, ctrl *calllist.Controller, itemID int) (types.CallListItem, error) {
	for _, lt := range types.AllListTypes {
		if _, err := ctrl.LoadList(ctx, lt, types.FilterAll); err != nil {
			return types.CallListItem{}, err
		}
		if it, ok := ctrl.Item(itemID); ok {
			return it, nil
		}
	}
	return types.CallListItem{}, fmt.Errorf("call list item %d not found", itemID)
}

func runCallListEmail(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	id, err := itemIDArg(args)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	ctrl := current.callList()
	item, err := findItem(ctx, ctrl, id)
	if err != nil {
		return err
	}
	form := calllist.EmailForm{To: item.User.Email}
	if emailTemplate != "" {
		templates, err := ctrl.EmailTemplates(ctx, item.ListType)
		if err != nil {
			return err
		}
		tpl, ok := templateNamed(templates, emailTemplate)
		if !ok {
			return fmt.Errorf("no %s template named %q", item.ListType.Label(), emailTemplate)
		}
		form = calllist.ApplyTemplate(tpl, item)
	}
	if emailSubject != "" {
		form.Subject = calllist.RenderTemplate(emailSubject, item.User.Name)
	}
	if emailBody != "" {
		form.Body = calllist.RenderTemplate(emailBody, item.User.Name)
	}

	_, err = ctrl.SendEmail(ctx, id, form)
	var emailErr *calllist.EmailError
	if errors.As(err, &emailErr) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s. The attempt was logged.\n", emailErr.Error())
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Email sent to %s\n", form.To)
	return nil
}

func templateNamed(templates []types.EmailTemplate, name string) (types.EmailTemplate, bool) {
	for _, t := range templates {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return types.EmailTemplate{}, false
}

func runCallListTemplates(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	listType, err := listTypeArg(args)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	templates, err := current.callList().EmailTemplates(ctx, listType)
	if err != nil {
		return err
	}
	t := ui.NewSimpleTable(listType.Label()+" templates", []string{"Name", "Subject"})
	for _, tpl := range templates {
		t.AddRow(tpl.Name, tpl.Subject)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.View(ui.DefaultStyles(), "No templates."))
	return nil
}

// parseWhen accepts the form layout or a bare date at 09:00 local.
func parseWhen(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(calllist.FormTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or YYYY-MM-DDTHH:MM", s)
	}
	return t.Add(9 * time.Hour), nil
}

func runCallListSchedule(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	id, err := itemIDArg(args)
	if err != nil {
		return err
	}
	var s calllist.Schedule
	switch {
	case scheduleOn != "":
		t, err := parseWhen(scheduleOn)
		if err != nil {
			return err
		}
		s = calllist.OnDate(t)
	default:
		s = calllist.InDays(scheduleDays)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	item, err := current.callList().ScheduleFollowUp(ctx, id, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Follow-up for %s set to %s\n",
		item.User.DisplayName(), item.FollowUpDate.Local().Format("2006-01-02 15:04"))
	return nil
}

func runCallListClose(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	id, err := itemIDArg(args)
	if err != nil {
		return err
	}
	reason, err := types.ParseCloseReason(closeReason)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	item, err := current.callList().Close(ctx, id, calllist.CloseForm{Reason: reason, Note: closeNote})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Closed item %d for %s as %s\n", id, item.User.DisplayName(), reason.Label())
	return nil
}
