package main

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/api"
	"htnadmin/internal/bp"
	"htnadmin/internal/export"
	"htnadmin/internal/filter"
	"htnadmin/internal/journal"
	"htnadmin/internal/store"
	"htnadmin/internal/types"
	"htnadmin/internal/views"
)

// readingsCmd lists blood pressure readings
var readingsCmd = &cobra.Command{
	Use:   "readings",
	Short: "Browse blood pressure readings",
	Long: `Browse blood pressure readings across all patients.

Categories: normal, elevated, stage1, stage2, crisis.

Examples:
  htnadmin readings --category stage2 --category crisis --from 2025-01-01
  htnadmin readings --search smith --sys-min 140 --sort systolic`,
	RunE: runReadings,
}

// reportsCmd shows outreach history
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show call reports",
	RunE:  runReports,
}

// statsCmd shows the dashboard counters
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard counters and reading distribution",
	RunE:  runStats,
}

// exportCmd downloads a CSV export
var exportCmd = &cobra.Command{
	Use:   "export <users|readings|call-reports>",
	Short: "Download a CSV export",
	Long: `Download a CSV export into the export directory as
<kind>_export_YYYY-MM-DD.csv. When export.s3 is enabled the file is also
archived to the configured bucket.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

// historyCmd lists the local action journal
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show admin actions recorded on this machine",
	RunE:  runHistory,
}

var (
	readingsSearch     string
	readingsUser       int
	readingsFrom       string
	readingsTo         string
	readingsPreset     string
	readingsCategories []string
	readingsUnions     []int
	readingsSysMin     int
	readingsSysMax     int
	readingsDiaMin     int
	readingsDiaMax     int
	readingsSort       string
	readingsAsc        bool
	readingsPage       int

	reportsFrom     string
	reportsTo       string
	reportsLists    []string
	reportsOutcomes []string
	reportsName     string

	exportDir string

	historyKinds  []string
	historyUser   int
	historySince  time.Duration
	historyLimit  int
	historyPrune  time.Duration
)

func init() {
	f := readingsCmd.Flags()
	f.StringVarP(&readingsSearch, "search", "s", "", "Patient name or email")
	f.IntVar(&readingsUser, "user", 0, "Only this user id")
	f.StringVar(&readingsFrom, "from", "", "From date (YYYY-MM-DD)")
	f.StringVar(&readingsTo, "to", "", "To date (YYYY-MM-DD)")
	f.StringVar(&readingsPreset, "last", "", "Date preset: today, 7d, 30d, 90d, year")
	f.StringSliceVar(&readingsCategories, "category", nil, "BP category (repeatable)")
	f.IntSliceVar(&readingsUnions, "union", nil, "Union id (repeatable)")
	f.IntVar(&readingsSysMin, "sys-min", 0, "Minimum systolic")
	f.IntVar(&readingsSysMax, "sys-max", 0, "Maximum systolic")
	f.IntVar(&readingsDiaMin, "dia-min", 0, "Minimum diastolic")
	f.IntVar(&readingsDiaMax, "dia-max", 0, "Maximum diastolic")
	f.StringVar(&readingsSort, "sort", "reading_date", "Sort: reading_date, systolic, diastolic, heart_rate")
	f.BoolVar(&readingsAsc, "asc", false, "Sort ascending")
	f.IntVarP(&readingsPage, "page", "p", 1, "Page number")

	f = reportsCmd.Flags()
	f.StringVar(&reportsFrom, "from", "", "From date (YYYY-MM-DD)")
	f.StringVar(&reportsTo, "to", "", "To date (YYYY-MM-DD)")
	f.StringSliceVar(&reportsLists, "list", nil, "List type (repeatable)")
	f.StringSliceVar(&reportsOutcomes, "outcome", nil, "Outcome (repeatable)")
	f.StringVar(&reportsName, "name", "", "Patient name contains")

	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (default: storage.export_dir)")
	exportCmd.Flags().StringVar(&readingsFrom, "from", "", "From date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&readingsTo, "to", "", "To date (YYYY-MM-DD)")
	exportCmd.Flags().StringSliceVar(&readingsCategories, "category", nil, "BP category, readings only (repeatable)")

	f = historyCmd.Flags()
	f.StringSliceVar(&historyKinds, "kind", nil, "Action kind (repeatable)")
	f.IntVar(&historyUser, "user", 0, "Only actions on this user id")
	f.DurationVar(&historySince, "since", 0, "Only actions newer than this (e.g. 72h)")
	f.IntVar(&historyLimit, "limit", 50, "Maximum rows")
	f.DurationVar(&historyPrune, "prune", 0, "Delete actions older than this instead of listing")
}

var presetFlags = map[string]filter.Preset{
	"today": filter.PresetToday,
	"7d":    filter.PresetLast7Days,
	"30d":   filter.PresetLast30Days,
	"90d":   filter.PresetLast90Days,
	"year":  filter.PresetThisYear,
}

// optionalRange treats zero bounds as unset.
func optionalRange(lo, hi int) filter.NumericRange {
	var r filter.NumericRange
	if lo > 0 {
		r.Min = &lo
	}
	if hi > 0 {
		r.Max = &hi
	}
	return r
}

func parseCategories(names []string) ([]bp.Category, error) {
	out := make([]bp.Category, 0, len(names))
	for _, n := range names {
		c, err := bp.Parse(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func readingDates() (filter.DateRange, error) {
	if readingsPreset != "" {
		p, ok := presetFlags[readingsPreset]
		if !ok {
			return filter.DateRange{}, fmt.Errorf("unknown preset %q (valid: today, 7d, 30d, 90d, year)", readingsPreset)
		}
		return p.Range(time.Now()), nil
	}
	return filter.ParseDateRange(readingsFrom, readingsTo)
}

func runReadings(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	v := views.NewReadings(current.client, current.cfg.UI.ReadingsPerPage)
	v.SetUserSearch(readingsSearch)
	dates, err := readingDates()
	if err != nil {
		return err
	}
	if err := v.SetDates(dates); err != nil {
		return err
	}
	if err := v.SetSystolic(optionalRange(readingsSysMin, readingsSysMax)); err != nil {
		return err
	}
	if err := v.SetDiastolic(optionalRange(readingsDiaMin, readingsDiaMax)); err != nil {
		return err
	}
	cats, err := parseCategories(readingsCategories)
	if err != nil {
		return err
	}
	for _, c := range cats {
		v.Categories.Select(c)
	}
	for _, id := range readingsUnions {
		v.Unions.Select(id)
	}
	v.SortBy(readingsSort)
	if _, dir := v.Sort(); (dir == views.Asc) != readingsAsc {
		v.SortBy(readingsSort)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if readingsUser > 0 {
		list, err := current.client.ListReadings(ctx, withUser(v.Query(), readingsUser))
		if err != nil {
			return err
		}
		printReadings(cmd, v.ActiveFilters(), list.Readings, filter.Pager{Limit: len(list.Readings), Total: list.TotalCount})
		return nil
	}
	if err := v.Load(ctx); err != nil {
		return err
	}
	if readingsPage > 1 {
		v.GoToPage(readingsPage)
		if err := v.Load(ctx); err != nil {
			return err
		}
	}
	printReadings(cmd, v.ActiveFilters(), v.Rows(), v.Pager())
	return nil
}

func withUser(q api.ReadingsQuery, id int) api.ReadingsQuery {
	q.UserID = id
	return q
}

func printReadings(cmd *cobra.Command, chips []string, rows []types.Reading, pager filter.Pager) {
	out := cmd.OutOrStdout()
	if len(chips) > 0 {
		fmt.Fprintln(out, strings.Join(chips, " • "))
		fmt.Fprintln(out)
	}
	t := ui.NewSimpleTable("Readings", []string{"Date", "Patient", "BP", "HR", "Category"})
	for _, r := range rows {
		hr := ""
		if r.HeartRate != nil {
			hr = strconv.Itoa(*r.HeartRate)
		}
		cat := bp.Classify(r.Systolic, r.Diastolic).Label()
		if !bp.Plausible(r.Systolic, r.Diastolic) {
			cat += " (check)"
		}
		t.AddRow(r.ReadingDate.Local().Format("2006-01-02 15:04"), r.UserName,
			fmt.Sprintf("%d/%d", r.Systolic, r.Diastolic), hr, cat)
	}
	fmt.Fprintln(out, t.View(ui.DefaultStyles(), "No readings match."))
	fmt.Fprintln(out, pager.Info())
}

func runReports(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	v := views.NewCallReports(current.client)
	dates, err := filter.ParseDateRange(reportsFrom, reportsTo)
	if err != nil {
		return err
	}
	if err := v.SetDates(dates); err != nil {
		return err
	}
	for _, s := range reportsLists {
		lt, err := types.ParseListType(s)
		if err != nil {
			return err
		}
		v.ListTypes.Select(lt)
	}
	for _, s := range reportsOutcomes {
		o, err := types.ParseOutcome(s)
		if err != nil {
			return err
		}
		v.Outcomes.Select(o)
	}
	v.SetNameFilter(reportsName)

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := v.Load(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	sum := v.Summary()
	fmt.Fprintf(out, "Attempts: %s total, %s this week\n", humanize.Comma(int64(sum.TotalAll)), humanize.Comma(int64(sum.TotalWeek)))
	outcomes := make([]string, 0, len(sum.ByOutcome))
	for o := range sum.ByOutcome {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(out, "  %-20s %d\n", types.Outcome(o).Label(), sum.ByOutcome[types.Outcome(o)])
	}
	fmt.Fprintln(out)

	t := ui.NewSimpleTable("Call reports", []string{"Date", "Patient", "List", "Outcome", "By", "Notes"})
	for _, a := range v.Visible() {
		t.AddRow(a.CreatedAt.Local().Format("2006-01-02 15:04"), a.PatientName, a.ListType.Label(),
			a.Outcome.Label(), a.AdminName, ui.Truncate(a.Notes, 40))
	}
	fmt.Fprintln(out, t.View(ui.DefaultStyles(), "No attempts match."))
	fmt.Fprintf(out, "%d shown of %d\n", len(v.Visible()), v.Total())
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	d := views.NewDashboard(current.client)
	data, err := d.Load(ctx)
	if err != nil {
		return err
	}
	charts := views.NewCharts(current.client)
	if err := charts.Load(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	st := data.Stats
	for _, row := range []struct {
		label string
		n     int
	}{
		{"Total users", st.TotalUsers},
		{"Pending approvals", st.PendingApprovals},
		{"Approved", st.ApprovedUsers},
		{"Deactivated", st.DeactivatedUsers},
		{"Flagged", st.FlaggedUsers},
		{"Total readings", st.TotalReadings},
		{"Readings today", st.ReadingsToday},
	} {
		fmt.Fprintf(out, "%-18s %s\n", row.label, humanize.Comma(int64(row.n)))
	}
	fmt.Fprintln(out)

	s := ui.DefaultStyles()
	rows := make([]ui.BarRow, 0, len(bp.All))
	for _, sl := range charts.Distribution() {
		rows = append(rows, ui.BarRow{
			Label: fmt.Sprintf("%s %d%%", sl.Category.Label(), sl.Percent),
			Value: sl.Count,
			Color: lipgloss.Color(sl.Category.Color()),
		})
	}
	fmt.Fprintln(out, ui.BarChart(s, "Reading distribution", rows, 30))
	return nil
}

func exportQuery(kind api.ExportKind) (url.Values, error) {
	dates, err := filter.ParseDateRange(readingsFrom, readingsTo)
	if err != nil {
		return nil, err
	}
	switch kind {
	case api.ExportReadings:
		cats, err := parseCategories(readingsCategories)
		if err != nil {
			return nil, err
		}
		q := api.ReadingsQuery{}
		for _, c := range cats {
			q.Categories = append(q.Categories, c.QueryValue())
		}
		v := q.Values()
		dates.Apply(v, "from_date", "to_date")
		return v, nil
	case api.ExportCallReports:
		v := api.CallReportsQuery{}.Values()
		dates.Apply(v, "date_from", "date_to")
		return v, nil
	}
	return nil, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	kind, err := api.ParseExportKind(args[0])
	if err != nil {
		return err
	}
	query, err := exportQuery(kind)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	dir := exportDir
	if dir == "" {
		dir = current.cfg.Storage.ExportDir
	}
	opts := []export.Option{export.WithRecorder(current.recorder)}
	if current.cfg.Export.S3.Enabled {
		archiver, err := export.NewS3Archiver(ctx, current.cfg.Export.S3)
		if err != nil {
			return err
		}
		opts = append(opts, export.WithArchiver(archiver))
	}

	logger.Info("Exporting", zap.String("kind", string(kind)), zap.String("dir", dir))
	res, err := export.New(current.client, dir, opts...).Export(ctx, kind, query)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Exported %s rows (%s) to %s\n", humanize.Comma(int64(res.Rows)), humanize.Bytes(uint64(res.Bytes)), res.Path)
	switch {
	case res.ArchivedTo != "":
		fmt.Fprintf(out, "Archived to %s\n", res.ArchivedTo)
	case res.ArchiveError != nil:
		fmt.Fprintf(out, "Archive failed: %v\n", res.ArchiveError)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	out := cmd.OutOrStdout()

	if historyPrune > 0 {
		n, err := current.store.PruneHistory(ctx, time.Now().Add(-historyPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d action(s)\n", n)
		return nil
	}

	f := store.HistoryFilter{Limit: historyLimit}
	for _, k := range historyKinds {
		f.Kinds = append(f.Kinds, journal.Kind(k))
	}
	if historyUser > 0 {
		f.TargetType, f.TargetID = journal.TargetUser, historyUser
	}
	if historySince > 0 {
		f.Since = time.Now().Add(-historySince)
	}
	actions, err := current.store.History(ctx, f)
	if err != nil {
		return err
	}

	t := ui.NewSimpleTable("Action history", []string{"When", "Who", "Action", "Target", "Summary"})
	for _, a := range actions {
		target := ""
		if a.TargetType != "" {
			target = fmt.Sprintf("%s %d", a.TargetType, a.TargetID)
		}
		t.AddRow(humanize.Time(a.At), a.Actor, string(a.Kind), target, ui.Truncate(a.Summary, 50))
	}
	fmt.Fprintln(out, t.View(ui.DefaultStyles(), "No actions recorded."))
	return nil
}
