package analytics

import (
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// sortedDays returns the set's dates in ascending order.
func sortedDays(days map[string]struct{}) []string {
	out := make([]string, 0, len(days))
	for d := range days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// nextDay returns the calendar date following d. Date arithmetic goes
// through AddDate so DST transitions cannot skew the result.
func nextDay(d string) string {
	t, err := time.ParseInLocation(dayLayout, d, time.Local)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(dayLayout)
}

// longestRun returns the longest contiguous calendar-day run in the
// sorted date list.
func longestRun(dates []string) int {
	longest, run := 0, 0
	prev := ""
	for _, d := range dates {
		if run > 0 && d == nextDay(prev) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d
	}
	return longest
}

// currentRun returns the consecutive-day run ending at the last active
// day, but only when that day is today or yesterday relative to now;
// otherwise the streak is broken and zero.
func currentRun(dates []string, now time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	last := dates[len(dates)-1]
	today := now.In(time.Local).Format(dayLayout)
	yesterday := now.In(time.Local).AddDate(0, 0, -1).Format(dayLayout)
	if last != today && last != yesterday {
		return 0
	}

	run := 1
	for i := len(dates) - 2; i >= 0; i-- {
		if nextDay(dates[i]) != dates[i+1] {
			break
		}
		run++
	}
	return run
}
