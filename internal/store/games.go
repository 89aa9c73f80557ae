package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dwes123/nflsync/internal/schedule"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrLoad wraps failures creating or bulk-loading the staging table.
	ErrLoad = errors.New("staging load failed")
	// ErrWrite wraps failures of the upsert into nfl_games or its commit.
	ErrWrite = errors.New("games upsert failed")
)

// StagingTable names the per-run temp table.
func StagingTable(runID string) string {
	return "nfl_games_staging_" + runID
}

// Statements is the full SQL for one ingest, built once per staging table so
// it can be read top to bottom.
type Statements struct {
	Drop   string
	Create string
	Copy   string
	Upsert string
}

// NewStatements builds the statements for the temp table named staging, with
// one column per entry of layout in file order so COPY can map by position.
// The upsert takes $1 min season, $2 max season, $3 allowed game types.
func NewStatements(staging string, layout []schedule.Column) Statements {
	ident := pgx.Identifier{"pg_temp", staging}.Sanitize()

	cols := make([]string, len(layout))
	for i, c := range layout {
		cols[i] = fmt.Sprintf("\t%s %s", pgx.Identifier{c.Name}.Sanitize(), c.Type)
	}

	return Statements{
		Drop:   "DROP TABLE IF EXISTS " + ident,
		Create: "CREATE TEMP TABLE " + ident + " (\n" + strings.Join(cols, ",\n") + "\n) ON COMMIT DROP",
		Copy: fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT csv, HEADER true, DELIMITER ',', NULL '%s')",
			ident, schedule.NullToken),
		Upsert: `
			INSERT INTO nfl_games (game_id, season, week, game_date, home_team, away_team, home_score, away_score, status)
			SELECT
				game_id,
				season,
				week,
				gameday,
				home_team,
				away_team,
				COALESCE(home_score, 0),
				COALESCE(away_score, 0),
				CASE WHEN home_score IS NOT NULL AND away_score IS NOT NULL
					THEN '` + string(schedule.StatusFinal) + `'
					ELSE '` + string(schedule.StatusScheduled) + `'
				END
			FROM ` + ident + `
			WHERE season BETWEEN $1 AND $2
			  AND game_type = ANY($3)
			ON CONFLICT (game_id) DO UPDATE SET
				home_score = EXCLUDED.home_score,
				away_score = EXCLUDED.away_score,
				status = EXCLUDED.status,
				updated_at = CURRENT_TIMESTAMP
		`,
	}
}

type GameStore struct {
	db *pgxpool.Pool
}

func NewGameStore(db *pgxpool.Pool) *GameStore {
	return &GameStore{db: db}
}

// Ingest is one transaction: staging, bulk load and upsert either all land
// or none do. The temp table is dropped at commit.
type Ingest struct {
	tx    pgx.Tx
	stmts Statements
}

// Begin opens the ingest transaction and creates a fresh staging table shaped
// like layout, as returned by schedule.CheckHeader.
func (s *GameStore) Begin(ctx context.Context, staging string, layout []schedule.Column) (*Ingest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %w", ErrLoad, err)
	}
	in := &Ingest{tx: tx, stmts: NewStatements(staging, layout)}

	if _, err := tx.Exec(ctx, in.stmts.Drop); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("%w: dropping leftover staging table: %w", ErrLoad, err)
	}
	if _, err := tx.Exec(ctx, in.stmts.Create); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("%w: creating staging table: %w", ErrLoad, err)
	}
	return in, nil
}

// Stage copies the raw CSV into the staging table and returns the row count.
// One bad row fails the whole copy.
func (in *Ingest) Stage(ctx context.Context, src io.Reader) (int64, error) {
	tag, err := in.tx.Conn().PgConn().CopyFrom(ctx, src, in.stmts.Copy)
	if err != nil {
		return 0, fmt.Errorf("%w: copy: %w", ErrLoad, err)
	}
	return tag.RowsAffected(), nil
}

// Upsert moves the admitted rows into nfl_games and returns how many rows
// were inserted or updated.
func (in *Ingest) Upsert(ctx context.Context) (int64, error) {
	tag, err := in.tx.Exec(ctx, in.stmts.Upsert, schedule.MinSeason, schedule.MaxSeason, schedule.GameTypes)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return tag.RowsAffected(), nil
}

func (in *Ingest) Commit(ctx context.Context) error {
	if err := in.tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrWrite, err)
	}
	return nil
}

// Rollback is a no-op once the transaction has been committed.
func (in *Ingest) Rollback(ctx context.Context) error {
	err := in.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// SeasonCounts returns the number of nfl_games rows per season, ascending.
func (s *GameStore) SeasonCounts(ctx context.Context) ([]schedule.SeasonCount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT season, COUNT(*)
		FROM nfl_games
		GROUP BY season
		ORDER BY season
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []schedule.SeasonCount
	for rows.Next() {
		var c schedule.SeasonCount
		if err := rows.Scan(&c.Season, &c.Games); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// GetGame loads one nfl_games row.
func (s *GameStore) GetGame(ctx context.Context, gameID string) (*schedule.Game, error) {
	var g schedule.Game
	var status string
	err := s.db.QueryRow(ctx, `
		SELECT game_id, season, week, COALESCE(to_char(game_date, 'YYYY-MM-DD'), ''),
		       home_team, away_team, home_score, away_score, status
		FROM nfl_games
		WHERE game_id = $1
	`, gameID).Scan(&g.GameID, &g.Season, &g.Week, &g.GameDate,
		&g.HomeTeam, &g.AwayTeam, &g.HomeScore, &g.AwayScore, &status)
	if err != nil {
		return nil, err
	}
	g.Status = schedule.Status(status)
	return &g, nil
}
