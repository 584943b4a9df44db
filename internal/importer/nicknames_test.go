package importer

import "testing"

func TestNickTrackerFiltersFallbacks(t *testing.T) {
	tr := newNickTracker()
	tr.register("wxid_a", 1, "xiaoming")

	tr.observe("wxid_a", "wxid_a", 100)    // raw platform id, not a name
	tr.observe("wxid_a", "xiaoming", 110)  // platform-native nick, not a change
	tr.observe("wxid_a", "", 120)          // empty
	tr.observe("wxid_a", "Ming", 130)      // first real name
	tr.observe("wxid_a", "Ming", 140)      // same again, no new entry
	tr.observe("wxid_a", "Ming Jr", 150)   // real change
	tr.observe("wxid_a", "Ming", 160)      // back to an earlier name, still a change

	entries, distinct := tr.byPlatform["wxid_a"].history()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if distinct != 2 {
		t.Errorf("distinct = %d, want 2 (Ming, Ming Jr)", distinct)
	}

	wantNames := []string{"Ming", "Ming Jr", "Ming"}
	wantStarts := []int64{130, 150, 160}
	for i, e := range entries {
		if e.name != wantNames[i] || e.startTS != wantStarts[i] {
			t.Errorf("entry[%d] = %s@%d, want %s@%d", i, e.name, e.startTS, wantNames[i], wantStarts[i])
		}
	}
}

func TestNickTrackerUnknownSender(t *testing.T) {
	tr := newNickTracker()
	// observing before register must be a silent no-op
	tr.observe("ghost", "Boo", 100)
	if len(tr.byPlatform) != 0 {
		t.Errorf("tracker grew from unregistered observe: %v", tr.byPlatform)
	}
}
