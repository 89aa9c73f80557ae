package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var ErrHeaderMismatch = errors.New("unexpected games.csv header")

// CheckHeader reads the first record of r and resolves it with Layout.
func CheckHeader(r io.Reader) ([]Column, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	return Layout(header)
}

// Layout maps a games.csv header to staging columns in file order. Every
// name in Columns must appear exactly once. Columns nflverse has added since
// (ftn) are staged as TEXT and never read.
func Layout(header []string) ([]Column, error) {
	known := make(map[string]string, len(Columns))
	for _, c := range Columns {
		known[c.Name] = c.Type
	}

	seen := make(map[string]bool, len(header))
	layout := make([]Column, len(header))
	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrHeaderMismatch, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: column %q repeated", ErrHeaderMismatch, name)
		}
		seen[name] = true

		typ, ok := known[name]
		if !ok {
			typ = "TEXT"
		}
		layout[i] = Column{Name: name, Type: typ}
	}

	for _, c := range Columns {
		if !seen[c.Name] {
			return nil, fmt.Errorf("%w: missing column %q", ErrHeaderMismatch, c.Name)
		}
	}
	return layout, nil
}

// Reader decodes games.csv records into Rows.
type Reader struct {
	cr   *csv.Reader
	line int
	pos  map[string]int
}

// NewReader consumes and validates the header.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if _, err := Layout(header); err != nil {
		return nil, err
	}
	cr.FieldsPerRecord = len(header)

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	return &Reader{cr: cr, line: 1, pos: pos}, nil
}

// Next returns io.EOF after the last record.
func (r *Reader) Next() (Row, error) {
	rec, err := r.cr.Read()
	if err != nil {
		return Row{}, err
	}
	r.line++

	field := func(name string) string { return rec[r.pos[name]] }

	var row Row
	row.GameID = field("game_id")
	row.GameType = field("game_type")
	row.GameDay = field("gameday")
	row.HomeTeam = field("home_team")
	row.AwayTeam = field("away_team")

	if row.Season, err = strconv.Atoi(field("season")); err != nil {
		return Row{}, fmt.Errorf("line %d: season %q: %w", r.line, field("season"), err)
	}
	if row.Week, err = strconv.Atoi(field("week")); err != nil {
		return Row{}, fmt.Errorf("line %d: week %q: %w", r.line, field("week"), err)
	}
	if row.HomeScore, err = nullableInt(field("home_score")); err != nil {
		return Row{}, fmt.Errorf("line %d: home_score: %w", r.line, err)
	}
	if row.AwayScore, err = nullableInt(field("away_score")); err != nil {
		return Row{}, fmt.Errorf("line %d: away_score: %w", r.line, err)
	}
	return row, nil
}

// nullableInt follows COPY's NULL 'NA' rule: only NullToken is null, an
// empty field is an error like any other non-integer.
func nullableInt(s string) (*int, error) {
	if s == NullToken {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
