package worker

import (
	"context"

	"github.com/dwes123/nflsync/internal/db"
	"github.com/dwes123/nflsync/internal/schedule"
	"github.com/dwes123/nflsync/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPostgres is the OpenFunc used outside of tests.
func OpenPostgres(ctx context.Context, dsn string) (Store, error) {
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &pgStore{pool: pool, games: store.NewGameStore(pool)}, nil
}

type pgStore struct {
	pool  *pgxpool.Pool
	games *store.GameStore
}

func (p *pgStore) Begin(ctx context.Context, staging string, layout []schedule.Column) (Session, error) {
	in, err := p.games.Begin(ctx, staging, layout)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (p *pgStore) SeasonCounts(ctx context.Context) ([]schedule.SeasonCount, error) {
	return p.games.SeasonCounts(ctx)
}

func (p *pgStore) Close() {
	p.pool.Close()
}
