package report

import (
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dwes123/nflsync/internal/schedule"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary is what one run did, for the console.
type Summary struct {
	RunID    string
	DryRun   bool
	Bytes    int64
	Rows     int
	Staged   int64
	Upserted int64
	Seasons  []schedule.SeasonCount
	Elapsed  time.Duration
}

// Seasons writes the games-per-season table. An empty table still prints its
// header plus a note, so the operator can tell the query ran.
func Seasons(w io.Writer, title string, counts []schedule.SeasonCount) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "%s\n", title)
	p.Fprintf(w, "  %-8s %10s\n", "season", "games")
	if len(counts) == 0 {
		p.Fprintf(w, "  (no games)\n")
		return
	}
	var total int64
	for _, c := range counts {
		// season printed as a string so it is not grouped as "2,024"
		p.Fprintf(w, "  %-8s %10d\n", strconv.Itoa(c.Season), c.Games)
		total += c.Games
	}
	p.Fprintf(w, "  %-8s %10d\n", "total", total)
}

// Run writes the end-of-run banner followed by the season table.
func Run(w io.Writer, s Summary) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "------------------------------------------------\n")
	if s.DryRun {
		p.Fprintf(w, "✅ DRY RUN %s: downloaded %s (%d rows), nothing written\n",
			s.RunID, humanize.Bytes(uint64(s.Bytes)), s.Rows)
		Seasons(w, "Games that would be upserted by season:", s.Seasons)
	} else {
		p.Fprintf(w, "✅ RUN %s: downloaded %s | staged %d | upserted %d\n",
			s.RunID, humanize.Bytes(uint64(s.Bytes)), s.Staged, s.Upserted)
		Seasons(w, "Games in nfl_games by season:", s.Seasons)
	}
	p.Fprintf(w, "Finished in %s\n", s.Elapsed.Round(time.Millisecond))
}

// Game writes one nfl_games row.
func Game(w io.Writer, g *schedule.Game) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "%s  %s week %s  %s\n", g.GameID, strconv.Itoa(g.Season), strconv.Itoa(g.Week), g.GameDate)
	p.Fprintf(w, "  %s %s @ %s %s  (%s)\n",
		g.AwayTeam, strconv.Itoa(g.AwayScore), g.HomeTeam, strconv.Itoa(g.HomeScore), g.Status)
}
