// Package analytics computes ranked, aggregated and pattern-based
// statistics over imported session stores. Every function is a pure
// read: identical arguments against an unmodified store yield
// identical results.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chattrace/chattrace/internal/config"
	"github.com/chattrace/chattrace/internal/logger"
	"github.com/chattrace/chattrace/internal/model"
	"github.com/chattrace/chattrace/internal/store"
)

// Options carries the policy knobs analytics depend on. They are
// fixed per Engine so results stay deterministic.
type Options struct {
	// NightRolloverHour shifts the logical-day boundary to an
	// early-morning hour; hours before it count as night activity of
	// the previous day.
	NightRolloverHour int
	// MonologueGapSeconds bounds the gap inside a monologue streak.
	MonologueGapSeconds int64
	// RepeatFollowCapSeconds caps gaps counted toward the
	// fastest-follower score.
	RepeatFollowCapSeconds int64
	// LaughKeywords are compiled to case-insensitive regexps.
	LaughKeywords []string
}

// OptionsFromConfig maps the config section onto engine options.
func OptionsFromConfig(cfg config.AnalyticsConfig) Options {
	return Options{
		NightRolloverHour:      cfg.NightRolloverHour,
		MonologueGapSeconds:    cfg.MonologueGapSeconds,
		RepeatFollowCapSeconds: cfg.RepeatFollowCapSeconds,
		LaughKeywords:          cfg.LaughKeywords,
	}
}

// Engine answers analytics queries against the manager's session
// stores. Queries against a missing or unopenable store return the
// query's zero-valued result rather than an error; these reads are
// best-effort by nature.
type Engine struct {
	mgr  *store.Manager
	opts Options
	now  func() time.Time
}

// NewEngine wires an engine.
func NewEngine(mgr *store.Manager, opts Options) *Engine {
	return &Engine{mgr: mgr, opts: opts, now: time.Now}
}

// dataset is the per-call working set: the filtered, time-ordered rows
// and the member table with system/placeholder senders removed. It is
// scoped to a single analytics call, never shared.
type dataset struct {
	rows    []store.MessageRow
	members map[int64]model.Member
	history map[int64][]model.NicknameHistoryEntry
}

func (e *Engine) load(ctx context.Context, sessionID string, f *model.TimeFilter, withHistory bool) (*dataset, bool) {
	st, err := e.mgr.Acquire(sessionID)
	if err != nil {
		logger.Warn("analytics query against unavailable store", "session_id", sessionID, "error", err)
		return nil, false
	}

	members, err := st.Members(ctx)
	if err != nil {
		logger.Warn("loading members failed", "session_id", sessionID, "error", err)
		return nil, false
	}
	for id, m := range members {
		if m.DisplayName == model.SystemSenderName {
			delete(members, id)
		}
	}

	rows, err := st.FetchMessages(ctx, f)
	if err != nil {
		logger.Warn("loading messages failed", "session_id", sessionID, "error", err)
		return nil, false
	}
	// drop system senders from the working set
	filtered := rows[:0]
	for _, r := range rows {
		if _, ok := members[r.MemberID]; ok {
			filtered = append(filtered, r)
		}
	}

	ds := &dataset{rows: filtered, members: members}
	if withHistory {
		hist, err := st.NicknameHistory(ctx)
		if err != nil {
			logger.Warn("loading nickname history failed", "session_id", sessionID, "error", err)
			return nil, false
		}
		ds.history = hist
	}
	return ds, true
}

func (ds *dataset) name(memberID int64) string {
	return ds.members[memberID].DisplayName
}

// round2 is the one rounding rule every percentage and rate goes
// through: two decimal places, half up.
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// percent returns part/total as a percentage rounded to two decimals.
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

// logicalDay returns the calendar date (local zone) a timestamp
// belongs to socially: the boundary sits at the rollover hour, not at
// midnight.
func (e *Engine) logicalDay(ts int64) string {
	t := time.Unix(ts, 0).Add(-time.Duration(e.opts.NightRolloverHour) * time.Hour)
	return t.Format("2006-01-02")
}

// calendarDay returns the plain local calendar date.
func calendarDay(ts int64) string {
	return time.Unix(ts, 0).Format("2006-01-02")
}

// isNightHour reports whether the local hour falls into the night
// window [0, rollover).
func (e *Engine) isNightHour(ts int64) bool {
	return time.Unix(ts, 0).Hour() < e.opts.NightRolloverHour
}

// sortCounts orders ranked lists deterministically: count descending,
// member id ascending as tie-break.
func sortCounts(list []MemberCount) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].MemberID < list[j].MemberID
	})
}

// rankedCounts converts a per-member tally into a sorted MemberCount
// list with percentages of the given total.
func rankedCounts(ds *dataset, counts map[int64]int64, total int64) []MemberCount {
	out := make([]MemberCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, MemberCount{
			MemberID: id,
			Name:     ds.name(id),
			Count:    n,
			Percent:  percent(n, total),
		})
	}
	sortCounts(out)
	return out
}
