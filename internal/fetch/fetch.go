package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const userAgent = "nflsync/1.0"

var (
	ErrEmpty  = errors.New("downloaded file is empty")
	ErrNoRows = errors.New("downloaded file has no data rows")
)

// Result describes a completed download.
type Result struct {
	Bytes int64
	Rows  int // records after the header line
}

type Client struct {
	http   *http.Client
	logger *logrus.Logger
}

// NewClient returns a Client. A zero timeout waits forever.
func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSHandshakeTimeout: 10 * time.Second,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: logger,
	}
}

// Fetch downloads url into dst, replacing whatever dst held, and verifies the
// file holds at least one record after the header. There is no retry.
func (c *Client) Fetch(ctx context.Context, url, dst string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("download returned %s", resp.Status)
	}

	f, err := os.Create(dst)
	if err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", dst, err)
	}

	lines := &lineCounter{}
	n, err := io.Copy(io.MultiWriter(f, lines), resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", dst, err)
	}

	if err := Verify(dst); err != nil {
		return Result{}, err
	}

	res := Result{Bytes: n, Rows: lines.count() - 1}
	if res.Rows < 1 {
		return Result{}, ErrNoRows
	}

	c.logger.WithFields(logrus.Fields{
		"url":  url,
		"size": humanize.Bytes(uint64(n)),
		"rows": res.Rows,
	}).Info("Download complete")
	return res, nil
}

// Verify fails if path is missing or zero bytes.
func Verify(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking download: %w", err)
	}
	if info.Size() == 0 {
		return ErrEmpty
	}
	return nil
}

// lineCounter counts lines as they stream past, including a final line with
// no trailing newline.
type lineCounter struct {
	newlines int
	last     byte
	seen     bool
}

func (l *lineCounter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		l.newlines += bytes.Count(p, []byte{'\n'})
		l.last = p[len(p)-1]
		l.seen = true
	}
	return len(p), nil
}

func (l *lineCounter) count() int {
	if !l.seen {
		return 0
	}
	if l.last != '\n' {
		return l.newlines + 1
	}
	return l.newlines
}
