package analytics

import (
	"context"
	"sort"

	"github.com/chattrace/chattrace/internal/model"
)

// NightOwls measures late-night behavior on logical days: a message
// before the rollover hour still belongs to the previous evening. Four
// views come out of one pass: night message counts, who closed each
// day, who opened each day, and the longest run of consecutive nights
// with activity.
func (e *Engine) NightOwls(ctx context.Context, sessionID string, f *model.TimeFilter) NightOwlsResult {
	res := NightOwlsResult{
		NightCounts:   []MemberCount{},
		LastSpeakers:  []MemberCount{},
		FirstSpeakers: []MemberCount{},
		NightStreaks:  []StreakEntry{},
	}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	var (
		nightCounts = make(map[int64]int64)
		nightDays   = make(map[int64]map[string]struct{})

		curDay  string
		firstID int64
		lastID  int64

		firstCounts = make(map[int64]int64)
		lastCounts  = make(map[int64]int64)
	)

	closeDay := func() {
		if curDay == "" {
			return
		}
		firstCounts[firstID]++
		lastCounts[lastID]++
	}

	for _, r := range ds.rows {
		day := e.logicalDay(r.TS)
		if day != curDay {
			closeDay()
			curDay = day
			firstID = r.MemberID
		}
		lastID = r.MemberID

		if e.isNightHour(r.TS) {
			nightCounts[r.MemberID]++
			days, ok := nightDays[r.MemberID]
			if !ok {
				days = make(map[string]struct{})
				nightDays[r.MemberID] = days
			}
			days[day] = struct{}{}
		}
	}
	closeDay()

	res.NightCounts = rankedCounts(ds, nightCounts, sumCounts(nightCounts))
	res.LastSpeakers = rankedCounts(ds, lastCounts, sumCounts(lastCounts))
	res.FirstSpeakers = rankedCounts(ds, firstCounts, sumCounts(firstCounts))

	for id, days := range nightDays {
		res.NightStreaks = append(res.NightStreaks, StreakEntry{
			MemberID: id,
			Name:     ds.name(id),
			Days:     longestRun(sortedDays(days)),
		})
	}
	sort.Slice(res.NightStreaks, func(i, j int) bool {
		if res.NightStreaks[i].Days != res.NightStreaks[j].Days {
			return res.NightStreaks[i].Days > res.NightStreaks[j].Days
		}
		return res.NightStreaks[i].MemberID < res.NightStreaks[j].MemberID
	})
	return res
}
