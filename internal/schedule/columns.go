package schedule

// Column is one field of the nflverse games.csv layout and the Postgres type
// it is staged as.
type Column struct {
	Name string
	Type string
}

// Columns are the games.csv columns a file must carry, in nflverse order.
var Columns = []Column{
	{"game_id", "TEXT"},
	{"season", "INTEGER"},
	{"game_type", "TEXT"},
	{"week", "INTEGER"},
	{"gameday", "DATE"},
	{"weekday", "TEXT"},
	{"gametime", "TIME"},
	{"away_team", "TEXT"},
	{"away_score", "INTEGER"},
	{"home_team", "TEXT"},
	{"home_score", "INTEGER"},
	{"location", "TEXT"},
	{"result", "INTEGER"},
	{"total", "INTEGER"},
	{"overtime", "INTEGER"},
	{"old_game_id", "TEXT"},
	{"gsis", "INTEGER"},
	{"nfl_detail_id", "TEXT"},
	{"pfr", "TEXT"},
	{"pff", "INTEGER"},
	{"espn", "TEXT"},
	{"away_rest", "INTEGER"},
	{"home_rest", "INTEGER"},
	{"away_moneyline", "INTEGER"},
	{"home_moneyline", "INTEGER"},
	{"spread_line", "NUMERIC"},
	{"away_spread_odds", "INTEGER"},
	{"home_spread_odds", "INTEGER"},
	{"total_line", "NUMERIC"},
	{"under_odds", "INTEGER"},
	{"over_odds", "INTEGER"},
	{"div_game", "INTEGER"},
	{"roof", "TEXT"},
	{"surface", "TEXT"},
	{"temp", "INTEGER"},
	{"wind", "INTEGER"},
	{"away_qb_id", "TEXT"},
	{"home_qb_id", "TEXT"},
	{"away_qb_name", "TEXT"},
	{"home_qb_name", "TEXT"},
	{"away_coach", "TEXT"},
	{"home_coach", "TEXT"},
	{"referee", "TEXT"},
	{"stadium_id", "TEXT"},
	{"stadium", "TEXT"},
}

// NullToken marks a missing value in games.csv.
const NullToken = "NA"

// Header returns the column names in file order.
func Header() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}
