package analytics

import (
	"context"
	"sort"

	"github.com/chattrace/chattrace/internal/model"
)

// minMonologueLen is the smallest run counted as a monologue.
const minMonologueLen = 3

// MonologueStreaks finds runs where one member keeps talking with
// nobody answering: same sender, each gap under the configured bound.
// Runs shorter than three messages are noise and dropped. Streaks are
// bucketed into 3-4, 5-9 and 10+ tiers; the single longest streak is
// reported with its time span.
func (e *Engine) MonologueStreaks(ctx context.Context, sessionID string, f *model.TimeFilter) MonologueResult {
	res := MonologueResult{Ranking: []MonologueEntry{}}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	entries := make(map[int64]*MonologueEntry)

	var (
		curID   int64
		curLen  int
		startTS int64
		lastTS  int64
	)

	closeRun := func() {
		if curLen < minMonologueLen {
			return
		}
		en, ok := entries[curID]
		if !ok {
			en = &MonologueEntry{MemberID: curID, Name: ds.name(curID)}
			entries[curID] = en
		}
		en.Streaks++
		if curLen > en.MaxLen {
			en.MaxLen = curLen
		}
		switch {
		case curLen < 5:
			en.Tier3to4++
		case curLen < 10:
			en.Tier5to9++
		default:
			en.Tier10plus++
		}
		if curLen > res.MaxStreak.Length {
			res.MaxStreak = GlobalStreak{
				MemberID: curID,
				Name:     ds.name(curID),
				Length:   curLen,
				StartTS:  startTS,
				EndTS:    lastTS,
			}
		}
	}

	for _, r := range ds.rows {
		if curLen > 0 && r.MemberID == curID && r.TS-lastTS < e.opts.MonologueGapSeconds {
			curLen++
			lastTS = r.TS
			continue
		}
		closeRun()
		curID = r.MemberID
		curLen = 1
		startTS = r.TS
		lastTS = r.TS
	}
	closeRun()

	for _, en := range entries {
		res.Ranking = append(res.Ranking, *en)
	}
	sort.Slice(res.Ranking, func(i, j int) bool {
		if res.Ranking[i].Streaks != res.Ranking[j].Streaks {
			return res.Ranking[i].Streaks > res.Ranking[j].Streaks
		}
		return res.Ranking[i].MemberID < res.Ranking[j].MemberID
	})
	return res
}
