package analytics

import (
	"context"

	"github.com/chattrace/chattrace/internal/model"
)

// ActivityRanking groups messages by sender and ranks by volume with
// percentage of total. A single aggregate query does the counting;
// system senders are dropped from the tally.
func (e *Engine) ActivityRanking(ctx context.Context, sessionID string, f *model.TimeFilter) ActivityRankingResult {
	res := ActivityRankingResult{Ranking: []MemberCount{}}

	st, err := e.mgr.Acquire(sessionID)
	if err != nil {
		return res
	}
	members, err := st.Members(ctx)
	if err != nil {
		return res
	}
	counts, err := st.CountByMember(ctx, f)
	if err != nil {
		return res
	}

	for id := range counts {
		m, ok := members[id]
		if !ok || m.DisplayName == model.SystemSenderName {
			delete(counts, id)
		}
	}
	for _, n := range counts {
		res.Total += n
	}

	ds := &dataset{members: members}
	res.Ranking = rankedCounts(ds, counts, res.Total)
	return res
}

// MessageTypeDistribution counts messages per type across the whole
// enum; types with zero messages are still present.
func (e *Engine) MessageTypeDistribution(ctx context.Context, sessionID string, f *model.TimeFilter) TypeDistributionResult {
	res := TypeDistributionResult{Types: []TypeCount{}}
	for t := model.TypeText; t <= model.TypeOther; t++ {
		res.Types = append(res.Types, TypeCount{Type: t})
	}

	st, err := e.mgr.Acquire(sessionID)
	if err != nil {
		return res
	}
	counts, err := st.CountByType(ctx, f)
	if err != nil {
		return res
	}
	for i := range res.Types {
		res.Types[i].Count = counts[res.Types[i].Type]
	}
	return res
}

// SessionOverview reports session scale: totals, time span and
// distinct active days.
func (e *Engine) SessionOverview(ctx context.Context, sessionID string, f *model.TimeFilter) OverviewResult {
	var res OverviewResult

	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	res.TotalMessages = int64(len(ds.rows))
	res.TotalMembers = len(ds.members)
	if len(ds.rows) == 0 {
		return res
	}

	res.FirstTS = ds.rows[0].TS
	res.LastTS = ds.rows[len(ds.rows)-1].TS

	days := make(map[string]struct{})
	for _, r := range ds.rows {
		days[calendarDay(r.TS)] = struct{}{}
	}
	res.ActiveDays = len(days)
	res.DurationDays = int((res.LastTS-res.FirstTS)/86400) + 1
	return res
}
