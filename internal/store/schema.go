package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nfl_teams (
		id SERIAL PRIMARY KEY,
		team_name VARCHAR(100) NOT NULL,
		team_abbr VARCHAR(10) NOT NULL UNIQUE,
		conference VARCHAR(10),
		division VARCHAR(20),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS nfl_games (
		id SERIAL PRIMARY KEY,
		game_id VARCHAR(50) UNIQUE,
		season INTEGER,
		week INTEGER,
		game_date DATE,
		home_team VARCHAR(10),
		away_team VARCHAR(10),
		home_score INTEGER,
		away_score INTEGER,
		status VARCHAR(20),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS nfl_games_season_idx ON nfl_games (season)`,
	`CREATE TABLE IF NOT EXISTS nfl_players (
		id SERIAL PRIMARY KEY,
		player_id VARCHAR(50) UNIQUE,
		player_name VARCHAR(100) NOT NULL,
		team VARCHAR(10),
		position VARCHAR(10),
		jersey_number INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS nfl_player_stats (
		id SERIAL PRIMARY KEY,
		player_id VARCHAR(50) REFERENCES nfl_players (player_id),
		game_id VARCHAR(50) REFERENCES nfl_games (game_id),
		season INTEGER,
		week INTEGER,
		passing_yards INTEGER DEFAULT 0,
		passing_tds INTEGER DEFAULT 0,
		interceptions INTEGER DEFAULT 0,
		rushing_yards INTEGER DEFAULT 0,
		rushing_tds INTEGER DEFAULT 0,
		receptions INTEGER DEFAULT 0,
		receiving_yards INTEGER DEFAULT 0,
		receiving_tds INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// EnsureSchema creates nfl_teams, nfl_games and the player tables if they
// are missing. Nothing here populates nfl_players or nfl_player_stats. The sync
// itself never calls this; the destination is provisioned separately.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}
