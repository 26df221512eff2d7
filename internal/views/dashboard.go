package views

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"htnadmin/internal/api"
	"htnadmin/internal/bp"
	"htnadmin/internal/filter"
	"htnadmin/internal/logging"
	"htnadmin/internal/types"
)

const (
	dashboardRecentUsers    = 5
	dashboardRecentReadings = 10
	activityFeedSize        = 7
)

// ActivityKind classifies a recent-activity entry.
type ActivityKind int

const (
	ActivityNewUser ActivityKind = iota
	ActivityReading
	ActivityAlert
)

func (k ActivityKind) String() string {
	switch k {
	case ActivityNewUser:
		return "New User"
	case ActivityReading:
		return "Reading"
	case ActivityAlert:
		return "Alert"
	}
	return "Unknown"
}

// Activity is one line of the recent-activity feed.
type Activity struct {
	Kind   ActivityKind
	Detail string
	At     time.Time
}

// DayCount is one bar of the weekday chart.
type DayCount struct {
	Day   time.Weekday
	Count int
}

// DashboardData is everything the dashboard screen shows.
type DashboardData struct {
	Stats    types.Stats
	Activity []Activity
	Weekday  []DayCount
}

// Dashboard is the landing screen.
type Dashboard struct {
	api API
	gen filter.Generation

	mu   sync.RWMutex
	data DashboardData
}

// NewDashboard creates the view.
func NewDashboard(client API) *Dashboard {
	return &Dashboard{api: client}
}

// Data returns the last loaded data.
func (d *Dashboard) Data() DashboardData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data
}

// Load fetches stats, recent users, and recent readings in parallel.
func (d *Dashboard) Load(ctx context.Context) (DashboardData, error) {
	ticket := d.gen.Next()
	timer := logging.StartTimer(logging.CategoryViews, "Dashboard.Load")
	defer timer.Stop()

	var (
		stats    *types.Stats
		users    *api.UserList
		readings *api.ReadingList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = d.api.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = d.api.ListUsers(gctx, api.UsersQuery{Limit: dashboardRecentUsers})
		return err
	})
	g.Go(func() (err error) {
		readings, err = d.api.ListReadings(gctx, api.ReadingsQuery{Limit: dashboardRecentReadings})
		return err
	})
	err := g.Wait()
	if !d.gen.Current(ticket) {
		return DashboardData{}, filter.ErrSuperseded
	}
	if err != nil {
		return d.Data(), err
	}

	data := DashboardData{
		Stats:    *stats,
		Activity: BuildActivity(users.Users, readings.Readings),
		Weekday:  WeekdayCounts(readings.Readings),
	}
	d.mu.Lock()
	d.data = data
	d.mu.Unlock()
	return data, nil
}

// BuildActivity merges registrations and readings, newest first, keeping
// the most recent few. Readings in the crisis band are alerts.
func BuildActivity(users []types.Patient, readings []types.Reading) []Activity {
	out := make([]Activity, 0, len(users)+len(readings))
	for _, u := range users {
		out = append(out, Activity{
			Kind:   ActivityNewUser,
			Detail: u.DisplayName() + " registered",
			At:     u.CreatedAt.Time,
		})
	}
	for _, r := range readings {
		kind := ActivityReading
		if bp.Classify(r.Systolic, r.Diastolic) == bp.Crisis {
			kind = ActivityAlert
		}
		name := r.UserName
		if name == "" {
			name = fmt.Sprintf("User #%d", r.UserID)
		}
		at := r.ReadingDate.Time
		if at.IsZero() {
			at = r.CreatedAt.Time
		}
		out = append(out, Activity{
			Kind:   kind,
			Detail: fmt.Sprintf("%s · %d/%d mmHg", name, r.Systolic, r.Diastolic),
			At:     at,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if len(out) > activityFeedSize {
		out = out[:activityFeedSize]
	}
	return out
}

// WeekdayCounts buckets readings by weekday, Monday first.
func WeekdayCounts(readings []types.Reading) []DayCount {
	counts := make(map[time.Weekday]int, 7)
	for _, r := range readings {
		at := r.ReadingDate.Time
		if at.IsZero() {
			at = r.CreatedAt.Time
		}
		if at.IsZero() {
			continue
		}
		counts[at.Local().Weekday()]++
	}
	order := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	out := make([]DayCount, len(order))
	for i, d := range order {
		out[i] = DayCount{Day: d, Count: counts[d]}
	}
	return out
}

// TimeAgo renders t relative to now the way the activity feed shows it.
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	mins := int(now.Sub(t).Minutes())
	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%d min ago", mins)
	case mins < 24*60:
		return fmt.Sprintf("%d hr ago", mins/60)
	}
	return fmt.Sprintf("%d days ago", mins/(24*60))
}
