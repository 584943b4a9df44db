package analytics

import (
	"context"
	"sort"
	"strings"

	"github.com/chattrace/chattrace/internal/model"
)

// minChainLen is the smallest run that counts as a repeat chain.
const minChainLen = 3

// minFollowerSamples is the floor before a member appears in the
// fastest-follower ranking.
const minFollowerSamples = 3

type chainEntry struct {
	memberID int64
	ts       int64
}

// RepeatChains scans the time-ordered messages once, tracking the
// current repeated content and its chain. A message extends the chain
// only when its content equals the current one and its sender differs
// from the chain's last entry; anything else closes the chain and the
// closing sender is the breaker.
func (e *Engine) RepeatChains(ctx context.Context, sessionID string, f *model.TimeFilter) RepeatChainsResult {
	res := RepeatChainsResult{
		HotContents:      []RepeatContent{},
		Originators:      []MemberCount{},
		Initiators:       []MemberCount{},
		Breakers:         []MemberCount{},
		FastestFollowers: []FollowerScore{},
	}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	var (
		current string
		chain   []chainEntry

		contents    = make(map[string]*RepeatContent)
		originators = make(map[int64]int64)
		initiators  = make(map[int64]int64)
		breakers    = make(map[int64]int64)
		gapSums     = make(map[int64]int64)
		gapCounts   = make(map[int64]int64)
	)

	closeChain := func(breakerID int64, hasBreaker bool) {
		if len(chain) >= minChainLen {
			res.ChainCount++
			if len(chain) > res.LongestChain {
				res.LongestChain = len(chain)
			}
			originators[chain[0].memberID]++
			initiators[chain[1].memberID]++
			if hasBreaker {
				breakers[breakerID]++
			}
			c, ok := contents[current]
			if !ok {
				c = &RepeatContent{Content: current}
				contents[current] = c
			}
			c.Count += int64(len(chain))
			if len(chain) > c.MaxChainLen {
				c.MaxChainLen = len(chain)
			}
			// follower speed: gaps between consecutive chain entries,
			// capped to exclude accidental echoes
			for i := 1; i < len(chain); i++ {
				gap := chain[i].ts - chain[i-1].ts
				if gap <= e.opts.RepeatFollowCapSeconds {
					gapSums[chain[i].memberID] += gap
					gapCounts[chain[i].memberID]++
				}
			}
		}
		chain = chain[:0]
	}

	for _, r := range ds.rows {
		if r.Type != model.TypeText {
			continue
		}
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}

		if len(chain) > 0 && content == current && r.MemberID != chain[len(chain)-1].memberID {
			chain = append(chain, chainEntry{memberID: r.MemberID, ts: r.TS})
			continue
		}

		closeChain(r.MemberID, true)
		current = content
		chain = append(chain, chainEntry{memberID: r.MemberID, ts: r.TS})
	}
	closeChain(0, false)

	for _, c := range contents {
		res.HotContents = append(res.HotContents, *c)
	}
	sort.Slice(res.HotContents, func(i, j int) bool {
		if res.HotContents[i].Count != res.HotContents[j].Count {
			return res.HotContents[i].Count > res.HotContents[j].Count
		}
		return res.HotContents[i].Content < res.HotContents[j].Content
	})

	res.Originators = rankedCounts(ds, originators, sumCounts(originators))
	res.Initiators = rankedCounts(ds, initiators, sumCounts(initiators))
	res.Breakers = rankedCounts(ds, breakers, sumCounts(breakers))

	for id, n := range gapCounts {
		if n < minFollowerSamples {
			continue
		}
		res.FastestFollowers = append(res.FastestFollowers, FollowerScore{
			MemberID:      id,
			Name:          ds.name(id),
			AvgGapSeconds: round2(float64(gapSums[id]) / float64(n)),
			Samples:       n,
		})
	}
	sort.Slice(res.FastestFollowers, func(i, j int) bool {
		if res.FastestFollowers[i].AvgGapSeconds != res.FastestFollowers[j].AvgGapSeconds {
			return res.FastestFollowers[i].AvgGapSeconds < res.FastestFollowers[j].AvgGapSeconds
		}
		return res.FastestFollowers[i].MemberID < res.FastestFollowers[j].MemberID
	})
	return res
}

func sumCounts(m map[int64]int64) int64 {
	var total int64
	for _, n := range m {
		total += n
	}
	return total
}
