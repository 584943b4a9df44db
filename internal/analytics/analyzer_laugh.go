package analytics

import (
	"context"
	"regexp"
	"sort"

	"github.com/chattrace/chattrace/internal/logger"
	"github.com/chattrace/chattrace/internal/model"
)

// LaughStats counts occurrences of the configured keywords in text
// messages. A message can match several keywords and each occurrence
// counts. Rate is matches per own text message; Contribution is the
// member's share of all matches.
func (e *Engine) LaughStats(ctx context.Context, sessionID string, f *model.TimeFilter) LaughResult {
	res := LaughResult{Ranking: []LaughEntry{}, Keywords: []KeywordCount{}}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	type compiled struct {
		keyword string
		re      *regexp.Regexp
	}
	// keywords are regex patterns, not literals (哈哈+, h{3,}, ...)
	patterns := make([]compiled, 0, len(e.opts.LaughKeywords))
	for _, kw := range e.opts.LaughKeywords {
		re, err := regexp.Compile("(?i)" + kw)
		if err != nil {
			logger.Warn("skipping keyword", "keyword", kw, "error", err)
			continue
		}
		patterns = append(patterns, compiled{keyword: kw, re: re})
	}
	if len(patterns) == 0 {
		return res
	}

	matches := make(map[int64]int64)
	ownTexts := make(map[int64]int64)
	perKeyword := make(map[string]int64)

	for _, r := range ds.rows {
		if r.Type != model.TypeText {
			continue
		}
		ownTexts[r.MemberID]++
		for _, p := range patterns {
			n := int64(len(p.re.FindAllStringIndex(r.Content, -1)))
			if n == 0 {
				continue
			}
			matches[r.MemberID] += n
			perKeyword[p.keyword] += n
			res.TotalMatches += n
		}
	}

	for id, n := range matches {
		res.Ranking = append(res.Ranking, LaughEntry{
			MemberID:     id,
			Name:         ds.name(id),
			Matches:      n,
			OwnMessages:  ownTexts[id],
			Rate:         round2(float64(n) / float64(ownTexts[id])),
			Contribution: percent(n, res.TotalMatches),
		})
	}
	sort.Slice(res.Ranking, func(i, j int) bool {
		if res.Ranking[i].Matches != res.Ranking[j].Matches {
			return res.Ranking[i].Matches > res.Ranking[j].Matches
		}
		return res.Ranking[i].MemberID < res.Ranking[j].MemberID
	})

	// keywords keep their configured order
	for _, kw := range e.opts.LaughKeywords {
		if n, ok := perKeyword[kw]; ok {
			res.Keywords = append(res.Keywords, KeywordCount{Keyword: kw, Count: n})
		}
	}
	return res
}
