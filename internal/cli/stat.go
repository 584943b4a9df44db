package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chattrace/chattrace/internal/analytics"
	"github.com/chattrace/chattrace/internal/model"
	"github.com/chattrace/chattrace/internal/worker"
)

var (
	statSince string
	statUntil string
)

var statCmd = &cobra.Command{
	Use:   "stat <session-id> [analysis]",
	Short: "Run an analysis against a session",
	Long: `Runs one behavioral analysis against an imported session. Without an
analysis name, prints the session overview.

Analyses: overview, ranking, hourly, weekday, monthly, daily, types,
repeats, catchphrases, night, dragon, diving, checkin, monologue,
mentions, laugh, battles`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		analysis := "overview"
		if len(args) == 2 {
			analysis = args[1]
		}

		filter, err := parseTimeFilter(statSince, statUntil)
		if err != nil {
			return err
		}

		return withWorker(func(ctx context.Context, w *worker.Worker) error {
			return w.Query(ctx, func(qctx context.Context, eng *analytics.Engine) {
				runAnalysis(qctx, eng, sessionID, analysis, filter)
			})
		})
	},
}

func parseTimeFilter(since, until string) (*model.TimeFilter, error) {
	if since == "" && until == "" {
		return nil, nil
	}
	f := &model.TimeFilter{Start: 0, End: time.Now().Unix()}
	if since != "" {
		t, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --since date %q: %w", since, err)
		}
		f.Start = t.Unix()
	}
	if until != "" {
		t, err := time.ParseInLocation("2006-01-02", until, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --until date %q: %w", until, err)
		}
		// inclusive through the end of the day
		f.End = t.AddDate(0, 0, 1).Unix() - 1
	}
	return f, nil
}

func runAnalysis(ctx context.Context, eng *analytics.Engine, sessionID, analysis string, f *model.TimeFilter) {
	switch analysis {
	case "overview":
		printOverview(eng.SessionOverview(ctx, sessionID, f))
	case "ranking":
		printRanking(eng.ActivityRanking(ctx, sessionID, f))
	case "hourly":
		res := eng.HourlyActivity(ctx, sessionID, f)
		for h, n := range res.Hours {
			fmt.Printf("%02d:00  %d\n", h, n)
		}
	case "weekday":
		res := eng.WeekdayActivity(ctx, sessionID, f)
		for d, n := range res.Weekdays {
			fmt.Printf("%-9s  %d\n", time.Weekday(d), n)
		}
	case "monthly":
		res := eng.MonthlyActivity(ctx, sessionID, f)
		for m, n := range res.Months {
			fmt.Printf("%-9s  %d\n", time.Month(m+1), n)
		}
	case "daily":
		res := eng.DailyActivity(ctx, sessionID, f)
		for _, d := range res.Days {
			fmt.Printf("%s  %d\n", d.Date, d.Count)
		}
	case "types":
		res := eng.MessageTypeDistribution(ctx, sessionID, f)
		for _, t := range res.Types {
			fmt.Printf("%-7s  %d\n", t.Type, t.Count)
		}
	case "repeats":
		printRepeats(eng.RepeatChains(ctx, sessionID, f))
	case "catchphrases":
		printCatchphrases(eng.Catchphrases(ctx, sessionID, f))
	case "night":
		printNight(eng.NightOwls(ctx, sessionID, f))
	case "dragon":
		res := eng.DragonKings(ctx, sessionID, f)
		fmt.Printf("days counted: %d\n", res.DaysCounted)
		printCounts(res.Wins, "wins")
	case "diving":
		res := eng.DivingRanking(ctx, sessionID, f)
		for _, d := range res.Ranking {
			fmt.Printf("%-20s  %d days silent (last %s)\n",
				d.Name, d.DaysSince, time.Unix(d.LastTS, 0).Format("2006-01-02"))
		}
	case "checkin":
		res := eng.CheckInStreaks(ctx, sessionID, f)
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDAYS\tLONGEST\tCURRENT\tLOYALTY")
		for _, en := range res.Ranking {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f%%\n",
				en.Name, en.ActiveDays, en.LongestStreak, en.CurrentStreak, en.Loyalty)
		}
		tw.Flush()
	case "monologue":
		printMonologue(eng.MonologueStreaks(ctx, sessionID, f))
	case "mentions":
		printMentions(eng.MentionGraph(ctx, sessionID, f))
	case "laugh":
		printLaugh(eng.LaughStats(ctx, sessionID, f))
	case "battles":
		printBattles(eng.MemeBattles(ctx, sessionID, f))
	default:
		fmt.Fprintf(os.Stderr, "unknown analysis %q; see 'chattrace stat --help'\n", analysis)
	}
}

func printOverview(res analytics.OverviewResult) {
	fmt.Printf("messages:     %s\n", humanize.Comma(res.TotalMessages))
	fmt.Printf("members:      %d\n", res.TotalMembers)
	if res.TotalMessages == 0 {
		return
	}
	fmt.Printf("first:        %s\n", time.Unix(res.FirstTS, 0).Format("2006-01-02 15:04"))
	fmt.Printf("last:         %s\n", time.Unix(res.LastTS, 0).Format("2006-01-02 15:04"))
	fmt.Printf("active days:  %d of %d\n", res.ActiveDays, res.DurationDays)
}

func printRanking(res analytics.ActivityRankingResult) {
	fmt.Printf("total: %s messages\n", humanize.Comma(res.Total))
	printCounts(res.Ranking, "messages")
}

func printCounts(list []analytics.MemberCount, unit string) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, c := range list {
		fmt.Fprintf(tw, "%d.\t%s\t%s %s\t%.2f%%\n", i+1, c.Name, humanize.Comma(c.Count), unit, c.Percent)
	}
	tw.Flush()
}

func printRepeats(res analytics.RepeatChainsResult) {
	fmt.Printf("chains: %d, longest: %d\n", res.ChainCount, res.LongestChain)
	if len(res.HotContents) > 0 {
		fmt.Println("\nhottest contents:")
		for _, c := range res.HotContents {
			fmt.Printf("  %q x%d (longest chain %d)\n", c.Content, c.Count, c.MaxChainLen)
		}
	}
	if len(res.Originators) > 0 {
		fmt.Println("\noriginators:")
		printCounts(res.Originators, "chains")
	}
	if len(res.Breakers) > 0 {
		fmt.Println("\nbreakers:")
		printCounts(res.Breakers, "chains")
	}
	if len(res.FastestFollowers) > 0 {
		fmt.Println("\nfastest followers:")
		for _, s := range res.FastestFollowers {
			fmt.Printf("  %s  %.2fs avg over %d follows\n", s.Name, s.AvgGapSeconds, s.Samples)
		}
	}
}

func printCatchphrases(res analytics.CatchphrasesResult) {
	for _, m := range res.Members {
		phrases := make([]string, 0, len(m.Phrases))
		for _, p := range m.Phrases {
			phrases = append(phrases, fmt.Sprintf("%q x%d", p.Content, p.Count))
		}
		fmt.Printf("%s: %s\n", m.Name, strings.Join(phrases, ", "))
	}
}

func printNight(res analytics.NightOwlsResult) {
	fmt.Println("night messages:")
	printCounts(res.NightCounts, "messages")
	if len(res.LastSpeakers) > 0 {
		fmt.Println("\nclosed the day:")
		printCounts(res.LastSpeakers, "days")
	}
	if len(res.FirstSpeakers) > 0 {
		fmt.Println("\nopened the day:")
		printCounts(res.FirstSpeakers, "days")
	}
	if len(res.NightStreaks) > 0 {
		fmt.Println("\nnight streaks:")
		for _, s := range res.NightStreaks {
			fmt.Printf("  %s  %d consecutive nights\n", s.Name, s.Days)
		}
	}
}

func printMonologue(res analytics.MonologueResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTREAKS\tMAX\t3-4\t5-9\t10+")
	for _, en := range res.Ranking {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			en.Name, en.Streaks, en.MaxLen, en.Tier3to4, en.Tier5to9, en.Tier10plus)
	}
	tw.Flush()
	if res.MaxStreak.Length > 0 {
		fmt.Printf("\nlongest: %s, %d messages (%s to %s)\n",
			res.MaxStreak.Name, res.MaxStreak.Length,
			time.Unix(res.MaxStreak.StartTS, 0).Format("2006-01-02 15:04"),
			time.Unix(res.MaxStreak.EndTS, 0).Format("15:04"))
	}
}

func printMentions(res analytics.MentionGraphResult) {
	fmt.Printf("total mentions: %d\n", res.TotalMentions)
	if len(res.TopMentioners) > 0 {
		fmt.Println("\ntop mentioners:")
		printCounts(res.TopMentioners, "mentions")
	}
	if len(res.TopMentioned) > 0 {
		fmt.Println("\nmost mentioned:")
		printCounts(res.TopMentioned, "mentions")
	}
	if len(res.OneWayPairs) > 0 {
		fmt.Println("\none-way pairs:")
		for _, p := range res.OneWayPairs {
			fmt.Printf("  %s -> %s  %d:%d (%.0f%%)\n", p.AName, p.BName, p.AToB, p.BToA, p.Ratio*100)
		}
	}
	if len(res.TwoWayPairs) > 0 {
		fmt.Println("\nmutual pairs:")
		for _, p := range res.TwoWayPairs {
			fmt.Printf("  %s <-> %s  %d:%d\n", p.AName, p.BName, p.AToB, p.BToA)
		}
	}
}

func printLaugh(res analytics.LaughResult) {
	fmt.Printf("total matches: %d\n", res.TotalMatches)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMATCHES\tRATE\tSHARE")
	for _, en := range res.Ranking {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f%%\n", en.Name, en.Matches, en.Rate, en.Contribution)
	}
	tw.Flush()
	if len(res.Keywords) > 0 {
		fmt.Println("\nby keyword:")
		for _, k := range res.Keywords {
			fmt.Printf("  %s  %d\n", k.Keyword, k.Count)
		}
	}
}

func printBattles(res analytics.MemeBattlesResult) {
	fmt.Printf("battles detected: %d\n", res.BattleCount)
	for i, b := range res.TopBattles {
		names := make([]string, 0, len(b.Participants))
		for _, p := range b.Participants {
			names = append(names, fmt.Sprintf("%s x%d", p.Name, p.Images))
		}
		fmt.Printf("%d. %s, %d images over %s: %s\n",
			i+1,
			time.Unix(b.StartTS, 0).Format("2006-01-02 15:04"),
			b.Total,
			time.Duration(b.EndTS-b.StartTS)*time.Second,
			strings.Join(names, ", "))
	}
}

func init() {
	statCmd.Flags().StringVar(&statSince, "since", "", "only count messages on or after this date (YYYY-MM-DD)")
	statCmd.Flags().StringVar(&statUntil, "until", "", "only count messages on or before this date (YYYY-MM-DD)")
	rootCmd.AddCommand(statCmd)
}
