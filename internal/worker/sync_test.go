package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dwes123/nflsync/internal/config"
	"github.com/dwes123/nflsync/internal/fetch"
	"github.com/dwes123/nflsync/internal/schedule"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func gamesCSV(rows ...map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(schedule.Header(), ",") + "\n")
	for _, vals := range rows {
		fields := make([]string, len(schedule.Columns))
		for i, c := range schedule.Columns {
			if v, ok := vals[c.Name]; ok {
				fields[i] = v
			} else {
				fields[i] = schedule.NullToken
			}
		}
		b.WriteString(strings.Join(fields, ",") + "\n")
	}
	return b.String()
}

// fakeFetcher writes body to dst, or returns err.
type fakeFetcher struct {
	body  string
	err   error
	calls int
	dst   string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, dst string) (fetch.Result, error) {
	f.calls++
	f.dst = dst
	if f.err != nil {
		return fetch.Result{}, f.err
	}
	if err := os.WriteFile(dst, []byte(f.body), 0o600); err != nil {
		return fetch.Result{}, err
	}
	return fetch.Result{Bytes: int64(len(f.body)), Rows: strings.Count(f.body, "\n") - 1}, nil
}

type fakeSession struct {
	stageErr, upsertErr, commitErr error
	staged                         string
	committed, rolledBack          bool
	onStage                        func()
}

func (s *fakeSession) Stage(ctx context.Context, src io.Reader) (int64, error) {
	if s.onStage != nil {
		s.onStage()
	}
	if s.stageErr != nil {
		return 0, s.stageErr
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return 0, err
	}
	s.staged = string(b)
	return int64(strings.Count(s.staged, "\n") - 1), nil
}

func (s *fakeSession) Upsert(ctx context.Context) (int64, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	return 1, nil
}

func (s *fakeSession) Commit(ctx context.Context) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed = true
	return nil
}

func (s *fakeSession) Rollback(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.committed {
		s.rolledBack = true
	}
	return nil
}

type fakeStore struct {
	session  *fakeSession
	counts   []schedule.SeasonCount
	countErr error
	staging  string
	layout   []schedule.Column
	closed   bool
}

func (s *fakeStore) Begin(ctx context.Context, staging string, layout []schedule.Column) (Session, error) {
	s.staging = staging
	s.layout = layout
	return s.session, nil
}

func (s *fakeStore) SeasonCounts(ctx context.Context) ([]schedule.SeasonCount, error) {
	return s.counts, s.countErr
}

func (s *fakeStore) Close() { s.closed = true }

type harness struct {
	cfg     *config.Config
	fetcher *fakeFetcher
	store   *fakeStore
	opens   int
	out     bytes.Buffer
}

func newHarness(t *testing.T, body string) *harness {
	t.Helper()
	return &harness{
		cfg: &config.Config{
			DatabaseURL: "postgres://nfl@localhost/nfl",
			SourceURL:   "https://example.com/games.csv",
			TempDir:     t.TempDir(),
		},
		fetcher: &fakeFetcher{body: body},
		store:   &fakeStore{session: &fakeSession{}, counts: []schedule.SeasonCount{{Season: 2024, Games: 1}}},
	}
}

func (h *harness) run(opts Options) error {
	return h.runContext(context.Background(), opts)
}

func (h *harness) runContext(ctx context.Context, opts Options) error {
	open := func(ctx context.Context, dsn string) (Store, error) {
		h.opens++
		return h.store, nil
	}
	_, err := NewGameSync(h.cfg, quietLogger(), h.fetcher, open, &h.out).Run(ctx, opts)
	return err
}

func (h *harness) tempFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(h.cfg.TempDir, "nflsync-*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

var sampleCSV = gamesCSV(
	map[string]string{"game_id": "2024_01_BAL_KC", "season": "2024", "game_type": "REG", "week": "1",
		"home_team": "KC", "away_team": "BAL", "home_score": "27", "away_score": "20"},
	map[string]string{"game_id": "2020_01_HOU_KC", "season": "2020", "game_type": "REG", "week": "1",
		"home_team": "KC", "away_team": "HOU"},
	map[string]string{"game_id": "2025_00_PRE", "season": "2025", "game_type": "PRE", "week": "0",
		"home_team": "CLE", "away_team": "NYJ"},
	map[string]string{"game_id": "2025_10_DET_WAS", "season": "2025", "game_type": "REG", "week": "10",
		"home_team": "WAS", "away_team": "DET", "away_score": "24"},
)

func TestRunSuccess(t *testing.T) {
	h := newHarness(t, sampleCSV)
	if err := h.run(Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	sess := h.store.session
	if !sess.committed || sess.rolledBack {
		t.Fatalf("expected commit without rollback, got %+v", sess)
	}
	if sess.staged != sampleCSV {
		t.Fatal("staging must receive the downloaded file verbatim")
	}
	if len(h.store.layout) != len(schedule.Columns) {
		t.Fatalf("unexpected staging layout of %d columns", len(h.store.layout))
	}
	if !strings.HasPrefix(h.store.staging, "nfl_games_staging_") {
		t.Fatalf("unexpected staging table %q", h.store.staging)
	}
	if !h.store.closed {
		t.Fatal("store was not closed")
	}
	if !strings.Contains(h.out.String(), "2024") {
		t.Fatalf("report missing season counts:\n%s", h.out.String())
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("temp file left behind: %v", files)
	}
}

func TestRunMissingDatabaseURL(t *testing.T) {
	h := newHarness(t, sampleCSV)
	h.cfg.DatabaseURL = ""

	err := h.run(Options{})
	if !errors.Is(err, ErrPrecondition) || !errors.Is(err, config.ErrMissingDatabaseURL) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if h.fetcher.calls != 0 || h.opens != 0 {
		t.Fatalf("no work may happen before the precondition check: fetches=%d opens=%d", h.fetcher.calls, h.opens)
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("no temp file should be created: %v", files)
	}
}

func TestRunFetchFailureNeverTouchesDatabase(t *testing.T) {
	for _, fetchErr := range []error{fetch.ErrEmpty, fetch.ErrNoRows, errors.New("download returned 404 Not Found")} {
		h := newHarness(t, "")
		h.fetcher.err = fetchErr

		err := h.run(Options{})
		if !errors.Is(err, ErrFetch) || !errors.Is(err, fetchErr) {
			t.Fatalf("expected fetch error wrapping %v, got %v", fetchErr, err)
		}
		var se *StepError
		if !errors.As(err, &se) || se.Step != StepFetch {
			t.Fatalf("expected StepFetch, got %v", err)
		}
		if h.opens != 0 {
			t.Fatalf("database opened after failed fetch")
		}
		if files := h.tempFiles(t); len(files) != 0 {
			t.Fatalf("temp file left behind after failed fetch: %v", files)
		}
	}
}

func TestRunHeaderMismatchIsLoadError(t *testing.T) {
	h := newHarness(t, "game_id,season\n2024_01_BAL_KC,2024\n")
	err := h.run(Options{})
	if !errors.Is(err, ErrLoad) || !errors.Is(err, schedule.ErrHeaderMismatch) {
		t.Fatalf("expected header mismatch load error, got %v", err)
	}
	if h.opens != 0 {
		t.Fatal("database opened for a file with the wrong layout")
	}
}

func TestRunStageFailureRollsBack(t *testing.T) {
	h := newHarness(t, sampleCSV)
	h.store.session.stageErr = errors.New("invalid input syntax for type integer")

	err := h.run(Options{})
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
	if !h.store.session.rolledBack || h.store.session.committed {
		t.Fatal("failed stage must roll back")
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("temp file left behind: %v", files)
	}
}

func TestRunCancelledDuringStageStillRollsBack(t *testing.T) {
	h := newHarness(t, sampleCSV)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.store.session.onStage = cancel
	h.store.session.stageErr = context.Canceled

	err := h.runContext(ctx, Options{})
	if !errors.Is(err, ErrLoad) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled load error, got %v", err)
	}
	if !h.store.session.rolledBack {
		t.Fatal("rollback must not inherit the run's cancellation")
	}
	if strings.Count(err.Error(), "context canceled") != 1 {
		t.Fatalf("cancellation reported more than once: %v", err)
	}
}

func TestRunAcceptsFTNColumn(t *testing.T) {
	body := strings.Replace(sampleCSV, "espn,", "espn,ftn,", 1)
	var b strings.Builder
	for i, line := range strings.SplitAfter(body, "\n") {
		if i == 0 || line == "" {
			b.WriteString(line)
			continue
		}
		// ftn follows espn, the 21st field
		fields := strings.Split(line, ",")
		fields = append(fields[:21], append([]string{schedule.NullToken}, fields[21:]...)...)
		b.WriteString(strings.Join(fields, ","))
	}
	h := newHarness(t, b.String())

	if err := h.run(Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(h.store.layout) != len(schedule.Columns)+1 || h.store.layout[21].Name != "ftn" {
		t.Fatalf("staging layout should follow the file header, got %d columns", len(h.store.layout))
	}
	if !h.store.session.committed {
		t.Fatal("expected commit")
	}

	h = newHarness(t, b.String())
	if err := h.run(Options{DryRun: true}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
}

func TestRunUpsertFailureIsWriteError(t *testing.T) {
	h := newHarness(t, sampleCSV)
	h.store.session.upsertErr = errors.New(`column "status" does not exist`)

	err := h.run(Options{})
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("expected write error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "upsert:") {
		t.Fatalf("error should name the failing step: %v", err)
	}
	if !h.store.session.rolledBack {
		t.Fatal("failed upsert must roll back")
	}
}

func TestRunCommitFailureIsWriteError(t *testing.T) {
	h := newHarness(t, sampleCSV)
	h.store.session.commitErr = errors.New("connection reset")
	if err := h.run(Options{}); !errors.Is(err, ErrWrite) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestRunReportFailure(t *testing.T) {
	h := newHarness(t, sampleCSV)
	h.store.countErr = errors.New("relation does not exist")
	if err := h.run(Options{}); !errors.Is(err, ErrReport) {
		t.Fatalf("expected report error, got %v", err)
	}
	if !h.store.session.committed {
		t.Fatal("report failure happens after the commit")
	}
}

func TestRunKeepFile(t *testing.T) {
	h := newHarness(t, sampleCSV)
	if err := h.run(Options{KeepFile: true}); err != nil {
		t.Fatalf("run: %v", err)
	}
	files := h.tempFiles(t)
	if len(files) != 1 || files[0] != h.fetcher.dst {
		t.Fatalf("expected the download to be kept, got %v", files)
	}
}

func TestRunDryRunNeverOpensDatabase(t *testing.T) {
	h := newHarness(t, sampleCSV)
	if err := h.run(Options{DryRun: true}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if h.opens != 0 {
		t.Fatal("dry run must not open the database")
	}
	out := h.out.String()
	if !strings.Contains(out, "DRY RUN") || !strings.Contains(out, "2024") || !strings.Contains(out, "2025") {
		t.Fatalf("unexpected dry run output:\n%s", out)
	}
	if strings.Contains(out, "  2020 ") {
		t.Fatalf("filtered season leaked into dry run output:\n%s", out)
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("temp file left behind: %v", files)
	}
}

func TestConcurrentRunsUseDistinctHandles(t *testing.T) {
	dir := t.TempDir()
	a, err := newRun(dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newRun(dir)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID || a.Path == b.Path || a.Staging == b.Staging {
		t.Fatalf("runs share state: %+v %+v", a, b)
	}
	if strings.Contains(a.Staging, "-") {
		t.Fatalf("staging name must be a plain identifier: %s", a.Staging)
	}
}
