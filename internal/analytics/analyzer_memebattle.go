package analytics

import (
	"context"
	"sort"

	"github.com/chattrace/chattrace/internal/model"
)

const (
	// minBattleLen is the smallest visual run counted as a battle.
	minBattleLen = 3
	// minBattleSenders keeps one member spamming stickers from
	// counting as a battle.
	minBattleSenders = 2
	// maxTopBattles bounds the reported list.
	maxTopBattles = 10
)

// MemeBattles detects uninterrupted runs of image/emoji messages with
// at least two participants. Any non-visual message ends the run. The
// largest battles are reported with per-participant counts.
func (e *Engine) MemeBattles(ctx context.Context, sessionID string, f *model.TimeFilter) MemeBattlesResult {
	res := MemeBattlesResult{TopBattles: []MemeBattle{}}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	var (
		battles []MemeBattle

		startTS int64
		endTS   int64
		counts  map[int64]int64
		total   int64
	)

	closeRun := func() {
		defer func() {
			counts = nil
			total = 0
		}()
		if total < minBattleLen || len(counts) < minBattleSenders {
			return
		}
		b := MemeBattle{StartTS: startTS, EndTS: endTS, Total: total}
		for id, n := range counts {
			b.Participants = append(b.Participants, BattleParticipant{
				MemberID: id,
				Name:     ds.name(id),
				Images:   n,
			})
		}
		sort.Slice(b.Participants, func(i, j int) bool {
			if b.Participants[i].Images != b.Participants[j].Images {
				return b.Participants[i].Images > b.Participants[j].Images
			}
			return b.Participants[i].MemberID < b.Participants[j].MemberID
		})
		battles = append(battles, b)
	}

	for _, r := range ds.rows {
		if !r.Type.IsVisual() {
			closeRun()
			continue
		}
		if counts == nil {
			counts = make(map[int64]int64)
			startTS = r.TS
		}
		counts[r.MemberID]++
		total++
		endTS = r.TS
	}
	closeRun()

	res.BattleCount = len(battles)
	sort.Slice(battles, func(i, j int) bool {
		if battles[i].Total != battles[j].Total {
			return battles[i].Total > battles[j].Total
		}
		return battles[i].StartTS < battles[j].StartTS
	})
	if len(battles) > maxTopBattles {
		battles = battles[:maxTopBattles]
	}
	res.TopBattles = battles
	return res
}
