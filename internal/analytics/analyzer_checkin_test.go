package analytics

import (
	"context"
	"testing"
	"time"
)

func TestCheckInStreaks(t *testing.T) {
	ctx := context.Background()
	e, mgr := newTestEngine(t)
	// "today" is March 10th for current-streak purposes
	e.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local) }

	seedSession(t, mgr, "s1",
		map[string]string{"a": "Alice", "b": "Bob"},
		[]tmsg{
			// Alice: days 1,2,3 then 9,10 -> longest 3, current 2 (alive today)
			text("a", at(1, 10, 0), "x"),
			text("a", at(2, 10, 0), "x"),
			text("a", at(3, 10, 0), "x"),
			text("a", at(9, 10, 0), "x"),
			text("a", at(10, 10, 0), "x"),
			// Bob: days 1,2 only -> streak long gone
			text("b", at(1, 11, 0), "y"),
			text("b", at(2, 11, 0), "y"),
		})

	res := e.CheckInStreaks(ctx, "s1", nil)
	if len(res.Ranking) != 2 {
		t.Fatalf("ranking = %+v", res.Ranking)
	}

	alice := res.Ranking[0]
	if alice.Name != "Alice" {
		t.Fatalf("top = %+v, want Alice", alice)
	}
	if alice.ActiveDays != 5 || alice.LongestStreak != 3 || alice.CurrentStreak != 2 {
		t.Errorf("alice = %+v, want 5 days, longest 3, current 2", alice)
	}
	if alice.Loyalty != 100.0 {
		t.Errorf("alice loyalty = %v, want 100 (most active member)", alice.Loyalty)
	}

	bob := res.Ranking[1]
	if bob.ActiveDays != 2 || bob.LongestStreak != 2 || bob.CurrentStreak != 0 {
		t.Errorf("bob = %+v, want 2 days, longest 2, current 0", bob)
	}
	if bob.Loyalty != 40.0 {
		t.Errorf("bob loyalty = %v, want 40 (2 of 5 days)", bob.Loyalty)
	}
}

func TestCurrentRun(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.Local)
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{"alive today", []string{"2024-03-08", "2024-03-09", "2024-03-10"}, 3},
		{"alive yesterday", []string{"2024-03-08", "2024-03-09"}, 2},
		{"broken", []string{"2024-03-05", "2024-03-06"}, 0},
		{"gap inside", []string{"2024-03-06", "2024-03-09", "2024-03-10"}, 2},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := currentRun(tt.dates, now); got != tt.want {
				t.Errorf("currentRun(%v) = %d, want %d", tt.dates, got, tt.want)
			}
		})
	}
}

func TestLongestRun(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{"empty", nil, 0},
		{"single", []string{"2024-03-01"}, 1},
		{"contiguous", []string{"2024-03-01", "2024-03-02", "2024-03-03"}, 3},
		{"with gap", []string{"2024-03-01", "2024-03-02", "2024-03-05", "2024-03-06", "2024-03-07"}, 3},
		{"month boundary", []string{"2024-02-28", "2024-02-29", "2024-03-01"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := longestRun(tt.dates); got != tt.want {
				t.Errorf("longestRun(%v) = %d, want %d", tt.dates, got, tt.want)
			}
		})
	}
}
