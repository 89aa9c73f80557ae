package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Team struct {
	Name       string `json:"team_name"`
	Abbr       string `json:"team_abbr"`
	Conference string `json:"conference"`
	Division   string `json:"division"`
}

// Teams is the current 32-franchise league, keyed by nflverse abbreviations.
var Teams = []Team{
	{"Arizona Cardinals", "ARI", "NFC", "West"},
	{"Atlanta Falcons", "ATL", "NFC", "South"},
	{"Baltimore Ravens", "BAL", "AFC", "North"},
	{"Buffalo Bills", "BUF", "AFC", "East"},
	{"Carolina Panthers", "CAR", "NFC", "South"},
	{"Chicago Bears", "CHI", "NFC", "North"},
	{"Cincinnati Bengals", "CIN", "AFC", "North"},
	{"Cleveland Browns", "CLE", "AFC", "North"},
	{"Dallas Cowboys", "DAL", "NFC", "East"},
	{"Denver Broncos", "DEN", "AFC", "West"},
	{"Detroit Lions", "DET", "NFC", "North"},
	{"Green Bay Packers", "GB", "NFC", "North"},
	{"Houston Texans", "HOU", "AFC", "South"},
	{"Indianapolis Colts", "IND", "AFC", "South"},
	{"Jacksonville Jaguars", "JAX", "AFC", "South"},
	{"Kansas City Chiefs", "KC", "AFC", "West"},
	{"Las Vegas Raiders", "LV", "AFC", "West"},
	{"Los Angeles Chargers", "LAC", "AFC", "West"},
	{"Los Angeles Rams", "LA", "NFC", "West"},
	{"Miami Dolphins", "MIA", "AFC", "East"},
	{"Minnesota Vikings", "MIN", "NFC", "North"},
	{"New England Patriots", "NE", "AFC", "East"},
	{"New Orleans Saints", "NO", "NFC", "South"},
	{"New York Giants", "NYG", "NFC", "East"},
	{"New York Jets", "NYJ", "AFC", "East"},
	{"Philadelphia Eagles", "PHI", "NFC", "East"},
	{"Pittsburgh Steelers", "PIT", "AFC", "North"},
	{"San Francisco 49ers", "SF", "NFC", "West"},
	{"Seattle Seahawks", "SEA", "NFC", "West"},
	{"Tampa Bay Buccaneers", "TB", "NFC", "South"},
	{"Tennessee Titans", "TEN", "AFC", "South"},
	{"Washington Commanders", "WAS", "NFC", "East"},
}

// SeedTeams inserts any team not already present and returns how many were
// new. Existing rows are left alone.
func SeedTeams(ctx context.Context, db *pgxpool.Pool) (int64, error) {
	batch := &pgx.Batch{}
	for _, t := range Teams {
		batch.Queue(`
			INSERT INTO nfl_teams (team_name, team_abbr, conference, division)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (team_abbr) DO NOTHING
		`, t.Name, t.Abbr, t.Conference, t.Division)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for _, t := range Teams {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("seeding %s: %w", t.Abbr, err)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}
