package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dwes123/nflsync/internal/config"
	"github.com/dwes123/nflsync/internal/fetch"
	"github.com/dwes123/nflsync/internal/report"
	"github.com/dwes123/nflsync/internal/schedule"
	"github.com/dwes123/nflsync/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type Fetcher interface {
	Fetch(ctx context.Context, url, dst string) (fetch.Result, error)
}

// Session is one staging transaction. See store.Ingest.
type Session interface {
	Stage(ctx context.Context, src io.Reader) (int64, error)
	Upsert(ctx context.Context) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Store interface {
	Begin(ctx context.Context, staging string, layout []schedule.Column) (Session, error)
	SeasonCounts(ctx context.Context) ([]schedule.SeasonCount, error)
	Close()
}

// OpenFunc connects to the destination database.
type OpenFunc func(ctx context.Context, dsn string) (Store, error)

type Options struct {
	DryRun   bool // parse and tally locally, never touch the database
	KeepFile bool // leave the downloaded CSV on disk
}

// Run is the handle threaded through every step. Its temp file and staging
// table are unique, so concurrent runs never share either.
type Run struct {
	ID      string
	Path    string
	Staging string
}

func newRun(tempDir string) (*Run, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	f, err := os.CreateTemp(tempDir, "nflsync-"+id+"-*.csv")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &Run{ID: id, Path: f.Name(), Staging: store.StagingTable(id)}, nil
}

// GameSync runs the schedule download and upsert.
type GameSync struct {
	cfg     *config.Config
	logger  *logrus.Logger
	fetcher Fetcher
	open    OpenFunc
	out     io.Writer
}

func NewGameSync(cfg *config.Config, logger *logrus.Logger, fetcher Fetcher, open OpenFunc, out io.Writer) *GameSync {
	return &GameSync{cfg: cfg, logger: logger, fetcher: fetcher, open: open, out: out}
}

// Run executes fetch, stage, upsert, report and cleanup in order and stops at
// the first failure. The temp file is removed on every path unless
// opts.KeepFile is set.
func (s *GameSync) Run(ctx context.Context, opts Options) (*report.Summary, error) {
	started := time.Now()

	if err := s.cfg.Validate(); err != nil {
		return nil, fail(StepConfig, ErrPrecondition, err)
	}

	run, err := newRun(s.cfg.TempDir)
	if err != nil {
		return nil, fail(StepFetch, ErrFetch, err)
	}
	log := s.logger.WithField("run_id", run.ID)
	defer s.cleanup(log, run, opts.KeepFile)

	log.WithField("url", s.cfg.SourceURL).Info("Step 1/5: Downloading schedule")
	res, err := s.fetcher.Fetch(ctx, s.cfg.SourceURL, run.Path)
	if err != nil {
		return nil, fail(StepFetch, ErrFetch, err)
	}
	summary := &report.Summary{RunID: run.ID, DryRun: opts.DryRun, Bytes: res.Bytes, Rows: res.Rows}

	if opts.DryRun {
		log.Info("Step 2/5: Parsing schedule locally (dry run)")
		summary.Seasons, err = s.tallyLocal(log, run)
		if err != nil {
			return nil, fail(StepStage, ErrLoad, err)
		}
		log.Info("Steps 3-4/5: Skipped (dry run)")
		summary.Elapsed = time.Since(started)
		report.Run(s.out, *summary)
		return summary, nil
	}

	layout, err := s.checkHeader(log, run)
	if err != nil {
		return nil, fail(StepStage, ErrLoad, err)
	}

	st, err := s.open(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return nil, fail(StepStage, ErrLoad, err)
	}
	defer st.Close()

	summary.Staged, summary.Upserted, err = s.ingest(ctx, log, st, run, layout)
	if err != nil {
		return nil, err
	}

	log.Info("Step 4/5: Counting games by season")
	summary.Seasons, err = st.SeasonCounts(ctx)
	if err != nil {
		return nil, fail(StepReport, ErrReport, err)
	}
	summary.Elapsed = time.Since(started)
	report.Run(s.out, *summary)
	return summary, nil
}

func (s *GameSync) ingest(ctx context.Context, log *logrus.Entry, st Store, run *Run, layout []schedule.Column) (staged, upserted int64, err error) {
	log.WithField("table", run.Staging).Info("Step 2/5: Staging CSV")
	sess, err := st.Begin(ctx, run.Staging, layout)
	if err != nil {
		return 0, 0, fail(StepStage, ErrLoad, err)
	}
	defer func() {
		if err != nil {
			// a cancelled run still has to release the transaction
			if rbErr := sess.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				err = multierr.Append(err, rbErr)
			}
		}
	}()

	f, err := os.Open(run.Path)
	if err != nil {
		return 0, 0, fail(StepStage, ErrLoad, err)
	}
	defer f.Close()

	staged, err = sess.Stage(ctx, f)
	if err != nil {
		return 0, 0, fail(StepStage, ErrLoad, err)
	}
	log.WithField("rows", staged).Info("Staged rows")

	log.WithFields(logrus.Fields{
		"seasons":    fmt.Sprintf("%d-%d", schedule.MinSeason, schedule.MaxSeason),
		"game_types": strings.Join(schedule.GameTypes, ","),
	}).Info("Step 3/5: Upserting games")
	upserted, err = sess.Upsert(ctx)
	if err != nil {
		return 0, 0, fail(StepUpsert, ErrWrite, err)
	}
	if err = sess.Commit(ctx); err != nil {
		return 0, 0, fail(StepUpsert, ErrWrite, err)
	}
	log.WithField("rows", upserted).Info("Upserted games")
	return staged, upserted, nil
}

func (s *GameSync) checkHeader(log *logrus.Entry, run *Run) ([]schedule.Column, error) {
	f, err := os.Open(run.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layout, err := schedule.CheckHeader(f)
	if err != nil {
		return nil, err
	}
	if extra := len(layout) - len(schedule.Columns); extra > 0 {
		log.WithField("extra_columns", extra).Info("Source has columns beyond the known layout; staging them as text")
	}
	return layout, nil
}

// tallyLocal applies the same filter and status rules as the upsert, in
// memory, and counts the admitted games per season.
func (s *GameSync) tallyLocal(log *logrus.Entry, run *Run) ([]schedule.SeasonCount, error) {
	f, err := os.Open(run.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := schedule.NewReader(f)
	if err != nil {
		return nil, err
	}

	var games []schedule.Game
	parsed, final := 0, 0
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		parsed++
		if !schedule.Admitted(row.Season, row.GameType) {
			continue
		}
		g := row.Game()
		if g.Status == schedule.StatusFinal {
			final++
		}
		games = append(games, g)
	}

	log.WithFields(logrus.Fields{
		"parsed":    parsed,
		"admitted":  len(games),
		"final":     final,
		"scheduled": len(games) - final,
	}).Info("Parsed schedule")
	return schedule.Tally(games), nil
}

// cleanup never fails the run; a leftover temp file is only worth a warning.
func (s *GameSync) cleanup(log *logrus.Entry, run *Run, keep bool) {
	if keep {
		log.WithField("path", run.Path).Info("Step 5/5: Keeping downloaded file")
		return
	}
	if err := os.Remove(run.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).WithField("path", run.Path).Warn("Step 5/5: Could not remove temp file")
		return
	}
	log.Info("Step 5/5: Removed temp file")
}
