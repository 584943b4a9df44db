package analytics

import "github.com/chattrace/chattrace/internal/model"

// MemberCount is the shared ranked-list element: a member, a tally and
// its share of the relevant total.
type MemberCount struct {
	MemberID int64
	Name     string
	Count    int64
	Percent  float64
}

// ActivityRankingResult ranks members by message volume.
type ActivityRankingResult struct {
	Total   int64
	Ranking []MemberCount
}

// HourlyActivityResult is a dense 24-entry distribution; buckets with
// zero messages are still present.
type HourlyActivityResult struct {
	Hours [24]int64
}

// WeekdayActivityResult is dense over the 7 weekdays, indexed by
// time.Weekday (Sunday = 0).
type WeekdayActivityResult struct {
	Weekdays [7]int64
}

// MonthlyActivityResult is dense over the 12 months, index 0 = January.
type MonthlyActivityResult struct {
	Months [12]int64
}

// DayCount pairs a local calendar date with a message count.
type DayCount struct {
	Date  string
	Count int64
}

// DailyActivityResult lists active days in ascending date order.
type DailyActivityResult struct {
	Days []DayCount
}

// TypeCount pairs a message type with its count.
type TypeCount struct {
	Type  model.MessageType
	Count int64
}

// TypeDistributionResult is dense over the whole type enum.
type TypeDistributionResult struct {
	Types []TypeCount
}

// OverviewResult summarizes session scale.
type OverviewResult struct {
	TotalMessages int64
	TotalMembers  int
	FirstTS       int64
	LastTS        int64
	ActiveDays    int
	DurationDays  int
}

// RepeatContent aggregates one repeated content string.
type RepeatContent struct {
	Content     string
	Count       int64 // total chain entries across all chains
	MaxChainLen int
}

// FollowerScore is the fastest-follower metric: the average gap to the
// previous chain entry, capped samples only.
type FollowerScore struct {
	MemberID      int64
	Name          string
	AvgGapSeconds float64
	Samples       int64
}

// RepeatChainsResult is the repeat-chain ("everyone repeats the same
// message") analysis output.
type RepeatChainsResult struct {
	ChainCount       int
	LongestChain     int
	HotContents      []RepeatContent
	Originators      []MemberCount
	Initiators       []MemberCount
	Breakers         []MemberCount
	FastestFollowers []FollowerScore
}

// CatchphraseEntry is one of a member's most repeated contents.
type CatchphraseEntry struct {
	Content string
	Count   int64
}

// MemberCatchphrases holds a member's top-K phrases and their volume.
type MemberCatchphrases struct {
	MemberID int64
	Name     string
	Phrases  []CatchphraseEntry
	Total    int64
}

// CatchphrasesResult ranks members by their top-K phrase volume.
type CatchphrasesResult struct {
	Members []MemberCatchphrases
}

// StreakEntry is a consecutive-day run length for one member.
type StreakEntry struct {
	MemberID int64
	Name     string
	Days     int
}

// NightOwlsResult covers the logical-day night analyses.
type NightOwlsResult struct {
	NightCounts   []MemberCount
	LastSpeakers  []MemberCount
	FirstSpeakers []MemberCount
	NightStreaks  []StreakEntry
}

// DragonKingsResult counts, per member, the days they were the (or a
// tied) top talker.
type DragonKingsResult struct {
	DaysCounted int
	Wins        []MemberCount
}

// DivingEntry is one member's inactivity measure.
type DivingEntry struct {
	MemberID  int64
	Name      string
	LastTS    int64
	DaysSince int
}

// DivingResult ranks members by days since their last message.
type DivingResult struct {
	Ranking []DivingEntry
}

// CheckInEntry holds one member's attendance metrics. Loyalty is the
// member's distinct active days normalized against the most-active
// member, as a two-decimal percentage.
type CheckInEntry struct {
	MemberID      int64
	Name          string
	ActiveDays    int
	LongestStreak int
	CurrentStreak int
	Loyalty       float64
}

// CheckInResult ranks members by active days.
type CheckInResult struct {
	Ranking []CheckInEntry
}

// MonologueEntry tallies one member's monologue streaks by tier.
type MonologueEntry struct {
	MemberID   int64
	Name       string
	Streaks    int64
	MaxLen     int
	Tier3to4   int64
	Tier5to9   int64
	Tier10plus int64
}

// GlobalStreak is the single longest monologue observed.
type GlobalStreak struct {
	MemberID int64
	Name     string
	Length   int
	StartTS  int64
	EndTS    int64
}

// MonologueResult is the monologue streak analysis output.
type MonologueResult struct {
	Ranking   []MonologueEntry
	MaxStreak GlobalStreak
}

// MentionEdge is a directed mention count between two members.
type MentionEdge struct {
	FromID   int64
	FromName string
	ToID     int64
	ToName   string
	Count    int64
}

// MentionPair is an undirected pair with both directional counts.
// Ratio is the dominant direction's share of the pair total.
type MentionPair struct {
	AID    int64
	AName  string
	BID    int64
	BName  string
	AToB   int64
	BToA   int64
	Ratio  float64
	Total  int64
}

// MemberMentions is the per-member breakdown: top-5 in both directions.
type MemberMentions struct {
	MemberID   int64
	Name       string
	Sent       int64
	Received   int64
	TopTargets []MentionEdge
	TopSources []MentionEdge
}

// MentionGraphResult is the mention-graph analysis output.
type MentionGraphResult struct {
	TotalMentions int64
	TopMentioners []MemberCount
	TopMentioned  []MemberCount
	OneWayPairs   []MentionPair
	TwoWayPairs   []MentionPair
	Members       []MemberMentions
}

// LaughEntry holds one member's keyword-match metrics. Rate is
// matches per own message; Contribution is the member's share of all
// matches. Both two-decimal.
type LaughEntry struct {
	MemberID     int64
	Name         string
	Matches      int64
	OwnMessages  int64
	Rate         float64
	Contribution float64
}

// KeywordCount tallies matches per configured keyword.
type KeywordCount struct {
	Keyword string
	Count   int64
}

// LaughResult is the keyword-density analysis output.
type LaughResult struct {
	TotalMatches int64
	Ranking      []LaughEntry
	Keywords     []KeywordCount
}

// BattleParticipant is one member's image count within a battle.
type BattleParticipant struct {
	MemberID int64
	Name     string
	Images   int64
}

// MemeBattle is one detected visual exchange.
type MemeBattle struct {
	StartTS      int64
	EndTS        int64
	Total        int64
	Participants []BattleParticipant
}

// MemeBattlesResult reports detected battles, largest first, bounded.
type MemeBattlesResult struct {
	BattleCount int
	TopBattles  []MemeBattle
}
