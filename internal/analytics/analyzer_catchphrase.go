package analytics

import (
	"context"
	"sort"
	"strings"

	"github.com/chattrace/chattrace/internal/model"
)

// catchphraseTopK is how many phrases per member enter the score.
const catchphraseTopK = 3

// Catchphrases groups identical trimmed text contents per sender,
// keeps each sender's top-K most frequent, and ranks senders by their
// top-K volume.
func (e *Engine) Catchphrases(ctx context.Context, sessionID string, f *model.TimeFilter) CatchphrasesResult {
	res := CatchphrasesResult{Members: []MemberCatchphrases{}}
	ds, ok := e.load(ctx, sessionID, f, false)
	if !ok {
		return res
	}

	perMember := make(map[int64]map[string]int64)
	for _, r := range ds.rows {
		if r.Type != model.TypeText {
			continue
		}
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		phrases, ok := perMember[r.MemberID]
		if !ok {
			phrases = make(map[string]int64)
			perMember[r.MemberID] = phrases
		}
		phrases[content]++
	}

	for id, phrases := range perMember {
		entries := make([]CatchphraseEntry, 0, len(phrases))
		for content, n := range phrases {
			if n < 2 {
				// a phrase said once is not a catchphrase
				continue
			}
			entries = append(entries, CatchphraseEntry{Content: content, Count: n})
		}
		if len(entries) == 0 {
			continue
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Count != entries[j].Count {
				return entries[i].Count > entries[j].Count
			}
			return entries[i].Content < entries[j].Content
		})
		if len(entries) > catchphraseTopK {
			entries = entries[:catchphraseTopK]
		}
		mc := MemberCatchphrases{MemberID: id, Name: ds.name(id), Phrases: entries}
		for _, e := range entries {
			mc.Total += e.Count
		}
		res.Members = append(res.Members, mc)
	}

	sort.Slice(res.Members, func(i, j int) bool {
		if res.Members[i].Total != res.Members[j].Total {
			return res.Members[i].Total > res.Members[j].Total
		}
		return res.Members[i].MemberID < res.Members[j].MemberID
	})
	return res
}
