package analytics

import (
	"context"
	"testing"

	"github.com/chattrace/chattrace/internal/model"
)

func TestLaughStats(t *testing.T) {
	ctx := context.Background()
	e, mgr := newTestEngine(t)
	e.opts.LaughKeywords = []string{"lol", "哈哈"}

	base := at(1, 14, 0)
	seedSession(t, mgr, "s1",
		map[string]string{"a": "Alice", "b": "Bob"},
		[]tmsg{
			text("a", base, "LOL that was lol funny"), // 2 matches, case-insensitive
			text("a", base+10, "哈哈哈哈"),               // overlapping-free count: 2
			text("a", base+20, "nothing here"),
			text("b", base+30, "lol"),
			{member: "b", ts: base + 40, typ: model.TypeImage, content: "lol.png"}, // non-text ignored
		})

	res := e.LaughStats(ctx, "s1", nil)
	if res.TotalMatches != 5 {
		t.Errorf("TotalMatches = %d, want 5", res.TotalMatches)
	}

	if len(res.Ranking) != 2 {
		t.Fatalf("ranking = %+v", res.Ranking)
	}
	alice := res.Ranking[0]
	if alice.Name != "Alice" || alice.Matches != 4 || alice.OwnMessages != 3 {
		t.Errorf("alice = %+v, want 4 matches over 3 texts", alice)
	}
	if alice.Rate != 1.33 {
		t.Errorf("alice rate = %v, want 1.33", alice.Rate)
	}
	if alice.Contribution != 80.0 {
		t.Errorf("alice contribution = %v, want 80", alice.Contribution)
	}

	kw := make(map[string]int64)
	for _, k := range res.Keywords {
		kw[k.Keyword] = k.Count
	}
	if kw["lol"] != 3 || kw["哈哈"] != 2 {
		t.Errorf("keywords = %v, want lol:3 哈哈:2", kw)
	}
}

func TestLaughStatsRegexKeywords(t *testing.T) {
	ctx := context.Background()
	e, mgr := newTestEngine(t)
	// keywords are patterns; a broken one is skipped, not fatal
	e.opts.LaughKeywords = []string{"哈哈+", "h{3,}", "233+", "("}

	base := at(1, 14, 0)
	seedSession(t, mgr, "s1",
		map[string]string{"a": "Alice"},
		[]tmsg{
			text("a", base, "哈哈哈哈"),   // one greedy run
			text("a", base+10, "HHHH"), // case-insensitive
			text("a", base+20, "2333333"),
			text("a", base+30, "hh"), // below the {3,} floor
		})

	res := e.LaughStats(ctx, "s1", nil)
	if res.TotalMatches != 3 {
		t.Errorf("TotalMatches = %d, want 3", res.TotalMatches)
	}

	kw := make(map[string]int64)
	for _, k := range res.Keywords {
		kw[k.Keyword] = k.Count
	}
	if kw["哈哈+"] != 1 || kw["h{3,}"] != 1 || kw["233+"] != 1 {
		t.Errorf("keywords = %v, want one run each", kw)
	}
	if _, ok := kw["("]; ok {
		t.Error("broken pattern produced matches")
	}
}

func TestLaughStatsNoKeywords(t *testing.T) {
	ctx := context.Background()
	e, mgr := newTestEngine(t)
	e.opts.LaughKeywords = nil

	seedSession(t, mgr, "s1",
		map[string]string{"a": "Alice"},
		[]tmsg{text("a", at(1, 10, 0), "lol")})

	res := e.LaughStats(ctx, "s1", nil)
	if res.TotalMatches != 0 || len(res.Ranking) != 0 {
		t.Errorf("result without keywords = %+v, want empty", res)
	}
}

func TestCatchphrases(t *testing.T) {
	ctx := context.Background()
	e, mgr := newTestEngine(t)

	base := at(1, 14, 0)
	msgs := []tmsg{
		// Alice: "gg" x4, "nice" x2, "brb" x2, "wow" x2 -> top-3 keeps
		// gg, brb, nice (count desc, content asc tie-break drops wow)
		text("a", base, "gg"),
		text("a", base+1, "gg"),
		text("a", base+2, "gg"),
		text("a", base+3, "gg"),
		text("a", base+4, "nice"),
		text("a", base+5, "nice"),
		text("a", base+6, "brb"),
		text("a", base+7, "brb"),
		text("a", base+8, "wow"),
		text("a", base+9, "wow"),
		// Bob: everything said once, no catchphrases
		text("b", base+10, "hello"),
		text("b", base+11, "world"),
	}
	seedSession(t, mgr, "s1", map[string]string{"a": "Alice", "b": "Bob"}, msgs)

	res := e.Catchphrases(ctx, "s1", nil)
	if len(res.Members) != 1 {
		t.Fatalf("members = %+v, want only Alice", res.Members)
	}
	alice := res.Members[0]
	if len(alice.Phrases) != 3 {
		t.Fatalf("phrases = %+v, want top 3", alice.Phrases)
	}
	if alice.Phrases[0].Content != "gg" || alice.Phrases[0].Count != 4 {
		t.Errorf("top phrase = %+v, want gg x4", alice.Phrases[0])
	}
	if alice.Phrases[1].Content != "brb" || alice.Phrases[2].Content != "nice" {
		t.Errorf("tie-break order = %q, %q; want brb, nice", alice.Phrases[1].Content, alice.Phrases[2].Content)
	}
	if alice.Total != 8 {
		t.Errorf("Total = %d, want 8", alice.Total)
	}
}
