package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htnadmin/internal/bp"
	"htnadmin/internal/filter"
	"htnadmin/internal/types"
)

func filterRange(t *testing.T, from, to string) filter.DateRange {
	t.Helper()
	r, err := filter.ParseDateRange(from, to)
	require.NoError(t, err)
	return r
}

func TestReadingsQuerySendsFullSelection(t *testing.T) {
	f := newFakeAdmin()
	r := NewReadings(f.client(t), 0)
	require.NoError(t, r.LoadUnions(context.Background()))

	r.Categories.Toggle(bp.Crisis)
	r.Categories.Toggle(bp.Stage1)
	r.Unions.Toggle(7)
	r.Unions.Toggle(3)
	r.FiltersChanged()
	require.NoError(t, r.SetSystolic(filter.Between(130, 139)))
	require.NoError(t, r.SetDates(filterRange(t, "2026-01-01", "2026-01-31")))
	r.SetUserSearch(" ana ")
	require.NoError(t, r.Load(context.Background()))

	q := f.query("readings")
	assert.Equal(t, "stage 1,crisis", q.Get("bp_category"))
	assert.Equal(t, "3,7", q.Get("union_id"))
	assert.Equal(t, "130", q.Get("systolic_min"))
	assert.Equal(t, "139", q.Get("systolic_max"))
	assert.Empty(t, q.Get("diastolic_min"))
	assert.Equal(t, "2026-01-01", q.Get("from_date"))
	assert.Equal(t, "2026-01-31", q.Get("to_date"))
	assert.Equal(t, "ana", q.Get("user_search"))
	assert.Equal(t, "15", q.Get("limit"))
	assert.Equal(t, "reading_date", q.Get("sort_by"))
	assert.Equal(t, "desc", q.Get("sort_order"))

	assert.Equal(t, 40, r.Pager().Total)
	assert.Equal(t, []string{
		"Category: 2 selected",
		"Union: 2 selected",
		`Patient: " ana "`,
		"Date: 2026-01-01 – 2026-01-31",
		"Systolic: 130-139",
	}, r.ActiveFilters())
}

func TestReadingsFilterChangesResetPage(t *testing.T) {
	f := newFakeAdmin()
	r := NewReadings(f.client(t), 0)
	require.NoError(t, r.Load(context.Background()))

	r.GoToPage(3)
	assert.Equal(t, 30, r.Query().Offset)

	r.SortBy("systolic")
	col, dir := r.Sort()
	assert.Equal(t, "systolic", col)
	assert.Equal(t, Desc, dir)
	assert.Equal(t, 0, r.Query().Offset)

	r.SortBy("systolic")
	_, dir = r.Sort()
	assert.Equal(t, Asc, dir)

	lo, hi := 95, 90
	err := r.SetDiastolic(filter.NumericRange{Min: &lo, Max: &hi})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diastolic")

	r.Categories.Toggle(bp.Normal)
	r.ClearFilters()
	assert.Empty(t, r.ActiveFilters())
	assert.Empty(t, r.Query().Categories)
}

func TestDistribution(t *testing.T) {
	readings := []types.Reading{
		{Systolic: 110, Diastolic: 70},
		{Systolic: 125, Diastolic: 75},
		{Systolic: 135, Diastolic: 70},
		{Systolic: 190, Diastolic: 100},
		{Systolic: 115, Diastolic: 75},
		{Systolic: 112, Diastolic: 72},
	}
	got := Distribution(readings)
	require.Len(t, got, 5)
	assert.Equal(t, Slice{Category: bp.Normal, Count: 3, Percent: 50}, got[0])
	assert.Equal(t, Slice{Category: bp.Elevated, Count: 1, Percent: 17}, got[1])
	assert.Equal(t, Slice{Category: bp.Stage2, Count: 0, Percent: 0}, got[3])
	assert.Equal(t, Slice{Category: bp.Crisis, Count: 1, Percent: 17}, got[4])

	for _, s := range Distribution(nil) {
		assert.Zero(t, s.Percent)
	}
}

func reading(sys, dia int, at time.Time) types.Reading {
	return types.Reading{Systolic: sys, Diastolic: dia, ReadingDate: types.NewTimestamp(at)}
}

func TestTrendBuckets(t *testing.T) {
	loc := time.Local
	readings := []types.Reading{
		reading(120, 80, time.Date(2026, 3, 2, 9, 0, 0, 0, loc)),  // Monday
		reading(131, 85, time.Date(2026, 3, 8, 20, 0, 0, 0, loc)), // Sunday, same week
		reading(140, 90, time.Date(2026, 3, 9, 9, 0, 0, 0, loc)),  // next Monday
		reading(150, 95, time.Date(2026, 4, 1, 9, 0, 0, 0, loc)),
	}

	weekly := Trend(readings, Weekly)
	require.Len(t, weekly, 3)
	assert.Equal(t, TrendPoint{Label: "Mar 2", Systolic: 126, Diastolic: 83, Count: 2}, weekly[0])
	assert.Equal(t, "Mar 9", weekly[1].Label)

	monthly := Trend(readings, Monthly)
	require.Len(t, monthly, 2)
	assert.Equal(t, "Mar 26", monthly[0].Label)
	assert.Equal(t, 130, monthly[0].Systolic)
	assert.Equal(t, 3, monthly[0].Count)

	daily := Trend(readings, Daily)
	assert.Len(t, daily, 4)
}

func TestTrendKeepsLatestBuckets(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)
	var readings []types.Reading
	for i := 0; i < 40; i++ {
		readings = append(readings, reading(120, 80, start.AddDate(0, 0, i)))
	}
	daily := Trend(readings, Daily)
	require.Len(t, daily, 30)
	assert.Equal(t, start.AddDate(0, 0, 39).Format("Jan 2"), daily[29].Label)
}

func TestGrowthIsCumulative(t *testing.T) {
	loc := time.Local
	users := []types.Patient{
		{ID: 3, CreatedAt: types.NewTimestamp(time.Date(2026, 2, 10, 0, 0, 0, 0, loc))},
		{ID: 1, CreatedAt: types.NewTimestamp(time.Date(2026, 1, 5, 0, 0, 0, 0, loc))},
		{ID: 2, CreatedAt: types.NewTimestamp(time.Date(2026, 1, 20, 0, 0, 0, 0, loc))},
		{ID: 4},
	}
	got := Growth(users, Monthly)
	assert.Equal(t, []GrowthPoint{{Label: "Jan 26", Users: 2}, {Label: "Feb 26", Users: 3}}, got)
}

func TestChartsLoad(t *testing.T) {
	f := newFakeAdmin()
	f.readings = []types.Reading{{Systolic: 110, Diastolic: 70}}
	f.users = []types.Patient{{ID: 1}}
	c := NewCharts(f.client(t))
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, "200", f.query("readings").Get("limit"))
	assert.Equal(t, "200", f.query("users").Get("limit"))
	assert.Equal(t, 100, c.Distribution()[0].Percent)

	c.SetTrendPeriod(Monthly)
	trend, growth := c.Periods()
	assert.Equal(t, Monthly, trend)
	assert.Equal(t, Daily, growth)
	assert.Equal(t, "Weekly", Weekly.String())
}
