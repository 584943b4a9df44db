package analytics

import (
	"context"
	"sort"
	"strings"

	"github.com/chattrace/chattrace/internal/model"
)

// mention pair thresholds; pairs below them are not interesting.
const (
	oneWayMinRatio  = 0.8
	oneWayMinTotal  = 5
	twoWayMinShare  = 0.3
	twoWayMinTotal  = 5
	mentionTopEdges = 5
)

// MentionGraph extracts @-mentions from text messages and reports the
// directed who-mentions-whom structure: volume rankings, strongly
// one-sided pairs, genuinely mutual pairs, and per-member top targets
// and sources.
//
// Names are matched against every name a member has ever carried:
// display name, platform nick, and the nickname history, so a mention
// typed while an old nickname was current still resolves.
func (e *Engine) MentionGraph(ctx context.Context, sessionID string, f *model.TimeFilter) MentionGraphResult {
	res := MentionGraphResult{
		TopMentioners: []MemberCount{},
		TopMentioned:  []MemberCount{},
		OneWayPairs:   []MentionPair{},
		TwoWayPairs:   []MentionPair{},
		Members:       []MemberMentions{},
	}
	ds, ok := e.load(ctx, sessionID, f, true)
	if !ok {
		return res
	}

	names := mentionNames(ds)
	if len(names) == 0 {
		return res
	}

	type edgeKey struct{ from, to int64 }
	edges := make(map[edgeKey]int64)

	for _, r := range ds.rows {
		if r.Type != model.TypeText || !strings.ContainsRune(r.Content, '@') {
			continue
		}
		for target := range mentionTargets(r.Content, names) {
			if target == r.MemberID {
				continue
			}
			edges[edgeKey{from: r.MemberID, to: target}]++
		}
	}

	sent := make(map[int64]int64)
	received := make(map[int64]int64)
	outEdges := make(map[int64][]MentionEdge)
	inEdges := make(map[int64][]MentionEdge)
	type pairKey struct{ a, b int64 }
	pairs := make(map[pairKey]*MentionPair)

	for k, n := range edges {
		res.TotalMentions += n
		sent[k.from] += n
		received[k.to] += n
		edge := MentionEdge{
			FromID:   k.from,
			FromName: ds.name(k.from),
			ToID:     k.to,
			ToName:   ds.name(k.to),
			Count:    n,
		}
		outEdges[k.from] = append(outEdges[k.from], edge)
		inEdges[k.to] = append(inEdges[k.to], edge)

		pk := pairKey{a: k.from, b: k.to}
		if pk.a > pk.b {
			pk.a, pk.b = pk.b, pk.a
		}
		p, ok := pairs[pk]
		if !ok {
			p = &MentionPair{
				AID:   pk.a,
				AName: ds.name(pk.a),
				BID:   pk.b,
				BName: ds.name(pk.b),
			}
			pairs[pk] = p
		}
		if k.from == pk.a {
			p.AToB += n
		} else {
			p.BToA += n
		}
	}

	res.TopMentioners = rankedCounts(ds, sent, res.TotalMentions)
	res.TopMentioned = rankedCounts(ds, received, res.TotalMentions)

	for _, p := range pairs {
		p.Total = p.AToB + p.BToA
		dominant := p.AToB
		if p.BToA > dominant {
			dominant = p.BToA
		}
		p.Ratio = round2(float64(dominant) / float64(p.Total))
		minority := float64(p.Total-dominant) / float64(p.Total)
		switch {
		case p.Total >= oneWayMinTotal && float64(dominant)/float64(p.Total) >= oneWayMinRatio:
			res.OneWayPairs = append(res.OneWayPairs, *p)
		case p.Total >= twoWayMinTotal && minority >= twoWayMinShare:
			res.TwoWayPairs = append(res.TwoWayPairs, *p)
		}
	}
	sortPairs(res.OneWayPairs)
	sortPairs(res.TwoWayPairs)

	for id := range ds.members {
		if sent[id] == 0 && received[id] == 0 {
			continue
		}
		res.Members = append(res.Members, MemberMentions{
			MemberID:   id,
			Name:       ds.name(id),
			Sent:       sent[id],
			Received:   received[id],
			TopTargets: topEdges(outEdges[id], func(e MentionEdge) int64 { return e.ToID }),
			TopSources: topEdges(inEdges[id], func(e MentionEdge) int64 { return e.FromID }),
		})
	}
	sort.Slice(res.Members, func(i, j int) bool {
		si, sj := res.Members[i].Sent+res.Members[i].Received, res.Members[j].Sent+res.Members[j].Received
		if si != sj {
			return si > sj
		}
		return res.Members[i].MemberID < res.Members[j].MemberID
	})
	return res
}

// mentionNames builds the lookup of every name that can appear after an
// '@', longest first so "Alice Wang" wins over "Alice".
type mentionName struct {
	name string
	id   int64
}

func mentionNames(ds *dataset) []mentionName {
	seen := make(map[string]int64)
	add := func(name string, id int64) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; !ok {
			seen[name] = id
		}
	}
	for id, m := range ds.members {
		add(m.DisplayName, id)
		add(m.PlatformNick, id)
	}
	for id, entries := range ds.history {
		for _, en := range entries {
			add(en.Name, id)
		}
	}

	out := make([]mentionName, 0, len(seen))
	for name, id := range seen {
		out = append(out, mentionName{name: name, id: id})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].name) != len(out[j].name) {
			return len(out[i].name) > len(out[j].name)
		}
		return out[i].name < out[j].name
	})
	return out
}

// mentionTargets resolves each '@' in the content to at most one
// member, preferring the longest matching name. A member mentioned
// twice in one message counts once.
func mentionTargets(content string, names []mentionName) map[int64]struct{} {
	targets := make(map[int64]struct{})
	for i := 0; i < len(content); i++ {
		if content[i] != '@' {
			continue
		}
		rest := content[i+1:]
		for _, n := range names {
			if strings.HasPrefix(rest, n.name) {
				targets[n.id] = struct{}{}
				i += len(n.name)
				break
			}
		}
	}
	return targets
}

func sortPairs(pairs []MentionPair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Total != pairs[j].Total {
			return pairs[i].Total > pairs[j].Total
		}
		if pairs[i].AID != pairs[j].AID {
			return pairs[i].AID < pairs[j].AID
		}
		return pairs[i].BID < pairs[j].BID
	})
}

func topEdges(edges []MentionEdge, tieID func(MentionEdge) int64) []MentionEdge {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Count != edges[j].Count {
			return edges[i].Count > edges[j].Count
		}
		return tieID(edges[i]) < tieID(edges[j])
	})
	if len(edges) > mentionTopEdges {
		edges = edges[:mentionTopEdges]
	}
	return edges
}
