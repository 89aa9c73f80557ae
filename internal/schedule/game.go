package schedule

import "sort"

// Seasons admitted to nfl_games, inclusive.
const (
	MinSeason = 2021
	MaxSeason = 2025
)

// Game type codes used by nflverse.
const (
	GameTypeRegular    = "REG"
	GameTypeWildCard   = "WC"
	GameTypeDivisional = "DIV"
	GameTypeConference = "CON"
	GameTypeSuperBowl  = "SB"
)

// GameTypes is the allow-list of game types admitted to nfl_games. Codes not
// listed here (PRE, or anything new upstream) are dropped.
var GameTypes = []string{
	GameTypeRegular,
	GameTypeWildCard,
	GameTypeDivisional,
	GameTypeConference,
	GameTypeSuperBowl,
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusFinal     Status = "final"
)

// DeriveStatus looks at the raw scores, before any zero substitution.
func DeriveStatus(homeScore, awayScore *int) Status {
	if homeScore != nil && awayScore != nil {
		return StatusFinal
	}
	return StatusScheduled
}

// Admitted reports whether a staged row belongs in nfl_games.
func Admitted(season int, gameType string) bool {
	if season < MinSeason || season > MaxSeason {
		return false
	}
	for _, t := range GameTypes {
		if t == gameType {
			return true
		}
	}
	return false
}

// Row is the subset of a games.csv record the destination cares about.
// Scores stay nil when the source has NA.
type Row struct {
	GameID    string
	Season    int
	GameType  string
	Week      int
	GameDay   string
	HomeTeam  string
	AwayTeam  string
	HomeScore *int
	AwayScore *int
}

// Game is one nfl_games row.
type Game struct {
	GameID    string `json:"game_id"`
	Season    int    `json:"season"`
	Week      int    `json:"week"`
	GameDate  string `json:"game_date"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Status    Status `json:"status"`
}

// Game projects the row the same way the upsert statement does: status from
// the raw scores, then NA scores stored as 0.
func (r Row) Game() Game {
	g := Game{
		GameID:   r.GameID,
		Season:   r.Season,
		Week:     r.Week,
		GameDate: r.GameDay,
		HomeTeam: r.HomeTeam,
		AwayTeam: r.AwayTeam,
		Status:   DeriveStatus(r.HomeScore, r.AwayScore),
	}
	if r.HomeScore != nil {
		g.HomeScore = *r.HomeScore
	}
	if r.AwayScore != nil {
		g.AwayScore = *r.AwayScore
	}
	return g
}

type SeasonCount struct {
	Season int   `json:"season"`
	Games  int64 `json:"games"`
}

// Tally counts games per season, ascending by season.
func Tally(games []Game) []SeasonCount {
	bySeason := make(map[int]int64)
	for _, g := range games {
		bySeason[g.Season]++
	}
	counts := make([]SeasonCount, 0, len(bySeason))
	for season, n := range bySeason {
		counts = append(counts, SeasonCount{Season: season, Games: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Season < counts[j].Season })
	return counts
}
