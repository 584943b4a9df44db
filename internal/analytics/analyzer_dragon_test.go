package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/chattrace/chattrace/internal/model"
)

func TestDragonKings(t *testing.T) {
	ctx := context.Background()
	e, mgr := newTestEngine(t)

	seedSession(t, mgr, "s1",
		map[string]string{"a": "Alice", "b": "Bob"},
		[]tmsg{
			// day 1: Alice 2, Bob 1 -> Alice wins
			text("a", at(1, 10, 0), "x"),
			text("a", at(1, 10, 1), "x"),
			text("b", at(1, 10, 2), "y"),
			// day 2: 1 each -> tie, both win
			text("a", at(2, 10, 0), "x"),
			text("b", at(2, 10, 1), "y"),
		})

	res := e.DragonKings(ctx, "s1", nil)
	if res.DaysCounted != 2 {
		t.Errorf("DaysCounted = %d, want 2", res.DaysCounted)
	}

	wins := make(map[string]int64)
	for _, w := range res.Wins {
		wins[w.Name] = w.Count
	}
	if wins["Alice"] != 2 || wins["Bob"] != 1 {
		t.Errorf("wins = %v, want Alice 2, Bob 1", wins)
	}
	if res.Wins[0].Name != "Alice" || res.Wins[0].Percent != 100.0 {
		t.Errorf("Wins[0] = %+v, want Alice at 100%%", res.Wins[0])
	}
}

func TestDivingRanking(t *testing.T) {
	ctx := context.Background()
	e, mgr := newTestEngine(t)
	e.now = func() time.Time { return time.Unix(at(10, 10, 0), 0) }

	seedSession(t, mgr, "s1",
		map[string]string{"a": "Alice", "b": "Bob"},
		[]tmsg{
			text("a", at(1, 10, 0), "long ago"),
			text("b", at(9, 10, 0), "recent"),
		})

	res := e.DivingRanking(ctx, "s1", nil)
	if len(res.Ranking) != 2 {
		t.Fatalf("ranking = %+v", res.Ranking)
	}
	if res.Ranking[0].Name != "Alice" || res.Ranking[0].DaysSince != 9 {
		t.Errorf("deepest diver = %+v, want Alice 9 days", res.Ranking[0])
	}
	if res.Ranking[1].Name != "Bob" || res.Ranking[1].DaysSince != 1 {
		t.Errorf("second = %+v, want Bob 1 day", res.Ranking[1])
	}
}

func TestMemeBattles(t *testing.T) {
	ctx := context.Background()
	e, mgr := newTestEngine(t)

	img := func(member string, ts int64) tmsg {
		return tmsg{member: member, ts: ts, typ: model.TypeImage}
	}
	emoji := func(member string, ts int64) tmsg {
		return tmsg{member: member, ts: ts, typ: model.TypeEmoji}
	}

	base := at(1, 15, 0)
	seedSession(t, mgr, "s1",
		map[string]string{"a": "Alice", "b": "Bob", "c": "Carol"},
		[]tmsg{
			// battle: 4 visuals, 2 senders, ended by a text message
			img("a", base),
			emoji("b", base+10),
			img("a", base+20),
			img("b", base+30),
			text("c", base+40, "stop it"),
			// not a battle: one member spamming alone
			img("c", base+100),
			img("c", base+110),
			img("c", base+120),
			text("a", base+130, "nice"),
			// not a battle: run of two
			img("a", base+200),
			img("b", base+210),
		})

	res := e.MemeBattles(ctx, "s1", nil)
	if res.BattleCount != 1 {
		t.Fatalf("BattleCount = %d, want 1", res.BattleCount)
	}
	b := res.TopBattles[0]
	if b.Total != 4 || b.StartTS != base || b.EndTS != base+30 {
		t.Errorf("battle = %+v", b)
	}
	if len(b.Participants) != 2 {
		t.Fatalf("participants = %+v", b.Participants)
	}
	if b.Participants[0].Images+b.Participants[1].Images != 4 {
		t.Errorf("participant counts = %+v", b.Participants)
	}
}
