package analytics

import (
	"context"
	"sort"

	"github.com/chattrace/chattrace/internal/model"
)

// DivingRanking orders members by how long they have been silent:
// whole days between their last message and now, longest divers first.
// Members with no messages in the working set are absent.
func (e *Engine) DivingRanking(ctx context.Context, sessionID string, f *model.TimeFilter) DivingResult {
	res := DivingResult{Ranking: []DivingEntry{}}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	lastTS := make(map[int64]int64)
	for _, r := range ds.rows {
		// rows are time-ordered, the last write wins
		lastTS[r.MemberID] = r.TS
	}

	now := e.now().Unix()
	for id, ts := range lastTS {
		days := int((now - ts) / 86400)
		if days < 0 {
			days = 0
		}
		res.Ranking = append(res.Ranking, DivingEntry{
			MemberID:  id,
			Name:      ds.name(id),
			LastTS:    ts,
			DaysSince: days,
		})
	}
	sort.Slice(res.Ranking, func(i, j int) bool {
		if res.Ranking[i].DaysSince != res.Ranking[j].DaysSince {
			return res.Ranking[i].DaysSince > res.Ranking[j].DaysSince
		}
		return res.Ranking[i].MemberID < res.Ranking[j].MemberID
	})
	return res
}
