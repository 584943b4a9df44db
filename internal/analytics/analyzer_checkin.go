package analytics

import (
	"context"
	"sort"

	"github.com/chattrace/chattrace/internal/model"
)

// CheckInStreaks treats each active calendar day as a check-in and
// reports, per member, total active days, the longest consecutive run,
// the run still alive today, and loyalty: active days normalized
// against the most-active member.
func (e *Engine) CheckInStreaks(ctx context.Context, sessionID string, f *model.TimeFilter) CheckInResult {
	res := CheckInResult{Ranking: []CheckInEntry{}}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	perMember := make(map[int64]map[string]struct{})
	for _, r := range ds.rows {
		days, ok := perMember[r.MemberID]
		if !ok {
			days = make(map[string]struct{})
			perMember[r.MemberID] = days
		}
		days[calendarDay(r.TS)] = struct{}{}
	}

	maxDays := 0
	for _, days := range perMember {
		if len(days) > maxDays {
			maxDays = len(days)
		}
	}

	now := e.now()
	for id, days := range perMember {
		sorted := sortedDays(days)
		res.Ranking = append(res.Ranking, CheckInEntry{
			MemberID:      id,
			Name:          ds.name(id),
			ActiveDays:    len(sorted),
			LongestStreak: longestRun(sorted),
			CurrentStreak: currentRun(sorted, now),
			Loyalty:       percent(int64(len(sorted)), int64(maxDays)),
		})
	}
	sort.Slice(res.Ranking, func(i, j int) bool {
		if res.Ranking[i].ActiveDays != res.Ranking[j].ActiveDays {
			return res.Ranking[i].ActiveDays > res.Ranking[j].ActiveDays
		}
		return res.Ranking[i].MemberID < res.Ranking[j].MemberID
	})
	return res
}
