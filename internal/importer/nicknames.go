package importer

// nickTracker reconstructs nickname history in memory during import.
// Nothing is written until materialization; the importer calls observe
// for every message sender and for every roster member.
type nickTracker struct {
	byPlatform map[string]*memberNames
}

type memberNames struct {
	memberID     int64
	platformID   string
	originalNick string // platform-native nickname, if the format knew it
	current      string
	entries      []nickEntry // ordered by start timestamp
}

type nickEntry struct {
	name    string
	startTS int64
}

func newNickTracker() *nickTracker {
	return &nickTracker{byPlatform: make(map[string]*memberNames)}
}

// register ties a platform id to its member row and (optionally) its
// platform-native nickname. Safe to call more than once.
func (t *nickTracker) register(platformID string, memberID int64, originalNick string) {
	m, ok := t.byPlatform[platformID]
	if !ok {
		m = &memberNames{platformID: platformID}
		t.byPlatform[platformID] = m
	}
	m.memberID = memberID
	if originalNick != "" {
		m.originalNick = originalNick
	}
}

// observe considers a candidate display name seen at ts. A candidate
// counts as a real nickname change only if it differs from the raw
// platform id and from the member's original platform-native nickname;
// this filters the spurious entries missing-name fallbacks would
// otherwise create. The first accepted name seeds the history, later
// ones append only when they actually differ from the current name.
func (t *nickTracker) observe(platformID, name string, ts int64) {
	m, ok := t.byPlatform[platformID]
	if !ok {
		return
	}
	if name == "" || name == m.platformID || (m.originalNick != "" && name == m.originalNick) {
		return
	}
	if name == m.current {
		return
	}
	m.current = name
	m.entries = append(m.entries, nickEntry{name: name, startTS: ts})
}

// history returns the per-member name timeline as observe recorded it
// (observe already collapses consecutive duplicates and drops raw-id
// fallbacks), plus the count of distinct names. Members with at most
// one distinct name get no history rows.
func (m *memberNames) history() (entries []nickEntry, distinct int) {
	seen := make(map[string]struct{}, len(m.entries))
	for _, e := range m.entries {
		seen[e.name] = struct{}{}
	}
	return m.entries, len(seen)
}
