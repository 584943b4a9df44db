package analytics

import (
	"context"

	"github.com/chattrace/chattrace/internal/model"
)

// DragonKings crowns, for every active calendar day, the member(s) who
// sent the most messages. Ties share the crown. Percent is wins over
// days counted.
func (e *Engine) DragonKings(ctx context.Context, sessionID string, f *model.TimeFilter) DragonKingsResult {
	res := DragonKingsResult{Wins: []MemberCount{}}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	perDay := make(map[string]map[int64]int64)
	for _, r := range ds.rows {
		day := calendarDay(r.TS)
		counts, ok := perDay[day]
		if !ok {
			counts = make(map[int64]int64)
			perDay[day] = counts
		}
		counts[r.MemberID]++
	}

	wins := make(map[int64]int64)
	for _, counts := range perDay {
		var max int64
		for _, n := range counts {
			if n > max {
				max = n
			}
		}
		for id, n := range counts {
			if n == max {
				wins[id]++
			}
		}
	}

	res.DaysCounted = len(perDay)
	res.Wins = rankedCounts(ds, wins, int64(res.DaysCounted))
	return res
}
