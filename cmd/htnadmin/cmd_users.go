package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/bp"
	"htnadmin/internal/types"
	"htnadmin/internal/views"
)

// usersCmd manages enrolled patients
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage enrolled patients",
	Long: `Browse and manage enrolled patient accounts.

Tabs: all, active, pending_approval, pending_registration, pending_cuff,
pending_first_reading, enrollment_only, deactivated.`,
}

var usersListCmd = &cobra.Command{
	Use:   "list [tab]",
	Short: "List users on a tab",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUsersList,
}

var usersShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a patient's profile, readings, notes, and call history",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersShow,
}

var usersApproveCmd = &cobra.Command{
	Use:   "approve <user-id>...",
	Short: "Approve pending accounts (more than one id runs a bulk approve)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUsersApprove,
}

var usersDeactivateCmd = &cobra.Command{
	Use:   "deactivate <user-id>...",
	Short: "Deactivate accounts (more than one id runs a bulk deactivate)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUsersDeactivate,
}

var usersFlagCmd = &cobra.Command{
	Use:   "flag <user-id>",
	Short: "Toggle the flagged marker",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersFlag,
}

var usersStatusCmd = &cobra.Command{
	Use:   "status <user-id> <status>",
	Short: "Set a user's status directly",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersStatus,
}

var usersNoteCmd = &cobra.Command{
	Use:   "note <user-id> <text>...",
	Short: "Add an admin note to a patient",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runUsersNote,
}

var (
	usersSearch string
	usersPage   int
	usersSort   string
	usersAsc    bool
	usersGender string
	usersUnion  int
)

func init() {
	usersListCmd.Flags().StringVarP(&usersSearch, "search", "s", "", "Search name, email or phone")
	usersListCmd.Flags().IntVarP(&usersPage, "page", "p", 1, "Page number")
	usersListCmd.Flags().StringVar(&usersSort, "sort", "created_at", "Sort: created_at, updated_at, union_id")
	usersListCmd.Flags().BoolVar(&usersAsc, "asc", false, "Sort ascending")
	usersListCmd.Flags().StringVar(&usersGender, "gender", "", "Filter by gender")
	usersListCmd.Flags().IntVar(&usersUnion, "union", 0, "Filter by union id")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersShowCmd)
	usersCmd.AddCommand(usersApproveCmd)
	usersCmd.AddCommand(usersDeactivateCmd)
	usersCmd.AddCommand(usersFlagCmd)
	usersCmd.AddCommand(usersStatusCmd)
	usersCmd.AddCommand(usersNoteCmd)
}

func userIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseTab(s string) (types.UserTab, error) {
	for _, t := range types.AllUserTabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

func newUsersView() *views.Users {
	return views.NewUsers(current.client, current.recorder, current.cfg.UI.UsersPerPage)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	v := newUsersView()
	if len(args) > 0 {
		tab, err := parseTab(args[0])
		if err != nil {
			return err
		}
		v.SetTab(tab)
	}
	f := v.Filters()
	f.Sort, f.Gender, f.UnionID = usersSort, usersGender, usersUnion
	if usersAsc {
		f.Dir = views.Asc
	}
	v.SetFilters(f)
	v.SetSearch(usersSearch)

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := v.Load(ctx); err != nil {
		return err
	}
	// The pager clamps to known totals, so later pages need the first load.
	if usersPage > 1 {
		v.GoToPage(usersPage)
		if err := v.Load(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	s := ui.DefaultStyles()
	counts := v.Counts()
	tabs := make([]string, 0, len(types.AllUserTabs))
	for _, t := range types.AllUserTabs {
		tabs = append(tabs, fmt.Sprintf("%s %s", t.Label(), humanize.Comma(int64(counts[t]))))
	}
	fmt.Fprintln(out, strings.Join(tabs, " • "))
	fmt.Fprintln(out)

	t := ui.NewSimpleTable(v.Tab().Label(), []string{"ID", "Name", "Email", "Union", "Joined", "Status"})
	for _, u := range v.Rows() {
		name := u.DisplayName()
		if u.IsFlagged {
			name = "⚑ " + name
		}
		t.AddRow(strconv.Itoa(u.ID), name, u.Email, u.UnionName,
			u.CreatedAt.Local().Format("2006-01-02"), u.Status.Label())
	}
	fmt.Fprintln(out, t.View(s, "No users match."))
	fmt.Fprintln(out, v.Pager().Info())
	return nil
}

func runUsersShow(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	ids, err := userIDs(args)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	d := views.NewPatientDetail(current.client, current.recorder, ids[0])
	if err := d.Load(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s := ui.DefaultStyles()
	p := d.Patient()
	fmt.Fprintf(out, "%s (#%d)  %s\n", p.DisplayName(), p.ID, p.Status.Label())
	fmt.Fprintf(out, "  Email: %s   Phone: %s\n", p.Email, p.Phone)
	if p.UnionName != "" {
		fmt.Fprintf(out, "  Union: %s\n", p.UnionName)
	}
	for _, avg := range []struct {
		label string
		v     *types.BPAverage
	}{{"7-day average", p.Avg7Day}, {"30-day average", p.Avg30Day}} {
		if avg.v != nil {
			fmt.Fprintf(out, "  %s: %d/%d %s\n", avg.label, avg.v.Systolic, avg.v.Diastolic,
				bp.Classify(avg.v.Systolic, avg.v.Diastolic).Label())
		}
	}
	fmt.Fprintln(out)

	rt := ui.NewSimpleTable("Readings", []string{"Date", "BP", "HR", "Category"})
	for _, r := range d.Readings() {
		hr := ""
		if r.HeartRate != nil {
			hr = strconv.Itoa(*r.HeartRate)
		}
		rt.AddRow(r.ReadingDate.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", r.Systolic, r.Diastolic), hr,
			bp.Classify(r.Systolic, r.Diastolic).Label())
	}
	fmt.Fprintln(out, rt.View(s, "No readings."))
	fmt.Fprintln(out, d.Pager().Info())
	fmt.Fprintln(out)

	nt := ui.NewSimpleTable("Notes", []string{"Date", "By", "Note"})
	for _, n := range d.Notes() {
		nt.AddRow(n.CreatedAt.Local().Format("2006-01-02"), n.AdminName, ui.Truncate(n.Text, 60))
	}
	fmt.Fprintln(out, nt.View(s, "No notes."))

	ct := ui.NewSimpleTable("Call history", []string{"Date", "Outcome", "By", "Notes"})
	for _, c := range d.Calls() {
		ct.AddRow(c.CreatedAt.Local().Format("2006-01-02"), c.Outcome.Label(), c.AdminName, ui.Truncate(c.Notes, 50))
	}
	fmt.Fprintln(out, ct.View(s, "No calls logged."))
	return nil
}

func runUsersApprove(cmd *cobra.Command, args []string) error {
	return userAction(cmd, args, "Approved", (*views.Users).Approve, (*views.Users).BulkApprove)
}

func runUsersDeactivate(cmd *cobra.Command, args []string) error {
	return userAction(cmd, args, "Deactivated", (*views.Users).Deactivate, (*views.Users).BulkDeactivate)
}

// userAction runs single for one id and bulk for several.
func userAction(cmd *cobra.Command, args []string, verb string,
	single func(*views.Users, context.Context, int) error,
	bulk func(*views.Users, context.Context) (*types.BulkResult, error),
) error {
	if err := requireSession(); err != nil {
		return err
	}
	ids, err := userIDs(args)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	v := newUsersView()
	out := cmd.OutOrStdout()

	if len(ids) == 1 {
		if err := single(v, ctx, ids[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s user %d\n", verb, ids[0])
		return nil
	}

	for _, id := range ids {
		if err := v.ToggleSelect(id); err != nil {
			return err
		}
	}
	logger.Info("Bulk action", zap.String("verb", verb), zap.Ints("ids", ids))
	res, err := bulk(v, ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Summary())
	for _, f := range res.Skipped {
		fmt.Fprintf(out, "  skipped %d: %s\n", f.ID, f.Reason)
	}
	for _, f := range res.Error {
		fmt.Fprintf(out, "  failed %d: %s\n", f.ID, f.Reason)
	}
	return nil
}

func runUsersFlag(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	ids, err := userIDs(args)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	flagged, err := newUsersView().ToggleFlag(ctx, ids[0])
	if err != nil {
		return err
	}
	if flagged {
		fmt.Fprintf(cmd.OutOrStdout(), "Flagged user %d\n", ids[0])
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Unflagged user %d\n", ids[0])
	}
	return nil
}

func runUsersStatus(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	ids, err := userIDs(args[:1])
	if err != nil {
		return err
	}
	status, err := types.ParseUserStatus(args[1])
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := newUsersView().SetStatus(ctx, ids[0], status); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %d is now %s\n", ids[0], status.Label())
	return nil
}

func runUsersNote(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	ids, err := userIDs(args[:1])
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	d := views.NewPatientDetail(current.client, current.recorder, ids[0])
	if _, err := d.AddNote(ctx, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Note added to user %d\n", ids[0])
	return nil
}
