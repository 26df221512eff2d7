package views

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"htnadmin/internal/api"
	"htnadmin/internal/bp"
	"htnadmin/internal/filter"
	"htnadmin/internal/types"
)

// chartSampleSize bounds how many readings and users the charts aggregate.
const chartSampleSize = 200

// Period is a trend bucket width.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
)

// AllPeriods in toggle order.
var AllPeriods = []Period{Daily, Weekly, Monthly}

func (p Period) String() string {
	switch p {
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// Buckets is how many of the most recent buckets are kept.
func (p Period) Buckets() int {
	switch p {
	case Weekly, Monthly:
		return 12
	}
	return 30
}

// key returns a sortable bucket key and the display label for t.
func (p Period) key(t time.Time) (string, string) {
	switch p {
	case Weekly:
		offset := (int(t.Weekday()) + 6) % 7
		monday := t.AddDate(0, 0, -offset)
		return monday.Format("2006-01-02"), monday.Format("Jan 2")
	case Monthly:
		return t.Format("2006-01"), t.Format("Jan 06")
	}
	return t.Format("2006-01-02"), t.Format("Jan 2")
}

// Slice is one category of the distribution chart.
type Slice struct {
	Category bp.Category
	Count    int
	Percent  int
}

// TrendPoint is the average reading in one bucket.
type TrendPoint struct {
	Label     string
	Systolic  int
	Diastolic int
	Count     int
}

// GrowthPoint is the cumulative registrations at the end of one bucket.
type GrowthPoint struct {
	Label string
	Users int
}

// Distribution counts readings per category. Every category is present.
func Distribution(readings []types.Reading) []Slice {
	counts := make(map[bp.Category]int, len(bp.All))
	for _, r := range readings {
		counts[bp.Classify(r.Systolic, r.Diastolic)]++
	}
	out := make([]Slice, len(bp.All))
	for i, c := range bp.All {
		out[i] = Slice{Category: c, Count: counts[c]}
		if n := len(readings); n > 0 {
			out[i].Percent = int(math.Round(float64(counts[c]) * 100 / float64(n)))
		}
	}
	return out
}

// Trend averages systolic and diastolic per bucket, oldest first.
func Trend(readings []types.Reading, p Period) []TrendPoint {
	type acc struct {
		label    string
		sys, dia int
		n        int
	}
	buckets := make(map[string]*acc)
	for _, r := range readings {
		at := readingTime(r)
		if at.IsZero() {
			continue
		}
		k, label := p.key(at.Local())
		a, ok := buckets[k]
		if !ok {
			a = &acc{label: label}
			buckets[k] = a
		}
		a.sys += r.Systolic
		a.dia += r.Diastolic
		a.n++
	}

	keys := lastKeys(buckets, p.Buckets())
	out := make([]TrendPoint, len(keys))
	for i, k := range keys {
		a := buckets[k]
		out[i] = TrendPoint{
			Label:     a.label,
			Systolic:  int(math.Round(float64(a.sys) / float64(a.n))),
			Diastolic: int(math.Round(float64(a.dia) / float64(a.n))),
			Count:     a.n,
		}
	}
	return out
}

// Growth is the running total of registrations per bucket, oldest first.
func Growth(users []types.Patient, p Period) []GrowthPoint {
	created := make([]time.Time, 0, len(users))
	for _, u := range users {
		if !u.CreatedAt.IsZero() {
			created = append(created, u.CreatedAt.Local())
		}
	}
	sort.Slice(created, func(i, j int) bool { return created[i].Before(created[j]) })

	type acc struct {
		label string
		total int
	}
	buckets := make(map[string]*acc)
	for i, t := range created {
		k, label := p.key(t)
		buckets[k] = &acc{label: label, total: i + 1}
	}

	keys := lastKeys(buckets, p.Buckets())
	out := make([]GrowthPoint, len(keys))
	for i, k := range keys {
		out[i] = GrowthPoint{Label: buckets[k].label, Users: buckets[k].total}
	}
	return out
}

func lastKeys[V any](m map[string]V, n int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > n {
		keys = keys[len(keys)-n:]
	}
	return keys
}

func readingTime(r types.Reading) time.Time {
	if !r.ReadingDate.IsZero() {
		return r.ReadingDate.Time
	}
	return r.CreatedAt.Time
}

// Charts holds the sample the charts screen aggregates.
type Charts struct {
	api API
	gen filter.Generation

	mu           sync.RWMutex
	readings     []types.Reading
	users        []types.Patient
	trendPeriod  Period
	growthPeriod Period
}

// NewCharts creates the view with daily periods.
func NewCharts(client API) *Charts {
	return &Charts{api: client}
}

// Load fetches recent readings and users in parallel.
func (c *Charts) Load(ctx context.Context) error {
	ticket := c.gen.Next()
	var (
		readings *api.ReadingList
		users    *api.UserList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		readings, err = c.api.ListReadings(gctx, api.ReadingsQuery{Limit: chartSampleSize})
		return err
	})
	g.Go(func() (err error) {
		users, err = c.api.ListUsers(gctx, api.UsersQuery{Limit: chartSampleSize})
		return err
	})
	err := g.Wait()
	if !c.gen.Current(ticket) {
		return filter.ErrSuperseded
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readings = readings.Readings
	c.users = users.Users
	return nil
}

// SetTrendPeriod changes the trend chart's bucket width.
func (c *Charts) SetTrendPeriod(p Period) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trendPeriod = p
}

// SetGrowthPeriod changes the growth chart's bucket width.
func (c *Charts) SetGrowthPeriod(p Period) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.growthPeriod = p
}

// Periods returns the trend and growth periods.
func (c *Charts) Periods() (trend, growth Period) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trendPeriod, c.growthPeriod
}

// Distribution of the loaded readings.
func (c *Charts) Distribution() []Slice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Distribution(c.readings)
}

// Trend of the loaded readings at the selected period.
func (c *Charts) Trend() []TrendPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Trend(c.readings, c.trendPeriod)
}

// Growth of the loaded users at the selected period.
func (c *Charts) Growth() []GrowthPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Growth(c.users, c.growthPeriod)
}
