package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/chattrace/chattrace/internal/model"
)

// HourlyActivity buckets messages by local hour of day. All 24 buckets
// are emitted, zero counts included.
func (e *Engine) HourlyActivity(ctx context.Context, sessionID string, f *model.TimeFilter) HourlyActivityResult {
	var res HourlyActivityResult
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}
	for _, r := range ds.rows {
		res.Hours[time.Unix(r.TS, 0).Hour()]++
	}
	return res
}

// WeekdayActivity buckets messages by local weekday (Sunday = 0).
func (e *Engine) WeekdayActivity(ctx context.Context, sessionID string, f *model.TimeFilter) WeekdayActivityResult {
	var res WeekdayActivityResult
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}
	for _, r := range ds.rows {
		res.Weekdays[int(time.Unix(r.TS, 0).Weekday())]++
	}
	return res
}

// MonthlyActivity buckets messages by local month, index 0 = January.
func (e *Engine) MonthlyActivity(ctx context.Context, sessionID string, f *model.TimeFilter) MonthlyActivityResult {
	var res MonthlyActivityResult
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}
	for _, r := range ds.rows {
		res.Months[int(time.Unix(r.TS, 0).Month())-1]++
	}
	return res
}

// DailyActivity counts messages per local calendar day, ascending by
// date. Only active days are listed.
func (e *Engine) DailyActivity(ctx context.Context, sessionID string, f *model.TimeFilter) DailyActivityResult {
	res := DailyActivityResult{Days: []DayCount{}}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	counts := make(map[string]int64)
	for _, r := range ds.rows {
		counts[calendarDay(r.TS)]++
	}
	for d, n := range counts {
		res.Days = append(res.Days, DayCount{Date: d, Count: n})
	}
	sort.Slice(res.Days, func(i, j int) bool { return res.Days[i].Date < res.Days[j].Date })
	return res
}
