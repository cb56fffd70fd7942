// Package fetch implements an HTTP range-aware object fetcher:
// byte-range GETs against an import source, with retry/backoff and a
// lazy fixed-size chunk iterator for the ingest pipeline to drive.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/cuemby/graphd/pkg/graphdberr"
)

// Range is the result of one fetchRange call.
type Range struct {
	Data      []byte
	Start     uint64
	End       uint64 // inclusive
	TotalSize *uint64
	IsLast    bool
}

// Config tunes retry behavior and chunk sizing.
type Config struct {
	BaseDelay  time.Duration
	MaxRetries int
	ChunkSize  uint64
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 4 * 1024 * 1024
	}
	return c
}

// Fetcher issues range requests against a single source URL.
type Fetcher struct {
	client *http.Client
	url    string
	cfg    Config
	log    zerolog.Logger
}

// New constructs a Fetcher. client may be nil to use http.DefaultClient.
func New(client *http.Client, url string, cfg Config, log zerolog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, url: url, cfg: cfg.withDefaults(), log: log.With().Str("component", "fetch").Logger()}
}

// FetchRange issues GET with Range: bytes=start-end (end omitted means
// "to EOF") and retries transient failures with exponential backoff.
func (f *Fetcher) FetchRange(ctx context.Context, start uint64, end *uint64) (Range, error) {
	var result Range
	attempt := 0
	op := func() error {
		r, err := f.fetchRangeOnce(ctx, start, end)
		attempt++
		if err != nil {
			f.log.Warn().Err(err).Int("attempt", attempt).Msg("range fetch failed, retrying")
			return err
		}
		result = r
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.cfg.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	bo := backoff.WithMaxRetries(exp, uint64(f.cfg.MaxRetries))
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return Range{}, graphdberr.Wrap(graphdberr.CodeRetryExhausted,
			fmt.Sprintf("range fetch exhausted after %d attempts", attempt), err)
	}
	return result, nil
}

func (f *Fetcher) fetchRangeOnce(ctx context.Context, start uint64, end *uint64) (Range, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return Range{}, graphdberr.Wrap(graphdberr.CodeR2FetchFailed, "build range request", err)
	}
	if end != nil {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, *end))
	} else {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Range{}, graphdberr.Wrap(graphdberr.CodeNetworkTimeout, "range request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return parsePartialContent(resp)
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return Range{}, graphdberr.Wrap(graphdberr.CodeR2FetchFailed, "read full body", err)
		}
		total := uint64(len(data))
		return Range{Data: data, Start: 0, End: total - 1, TotalSize: &total, IsLast: true}, nil
	case http.StatusRequestedRangeNotSatisfiable:
		return Range{Data: nil, Start: start, End: start, IsLast: true}, nil
	default:
		return Range{}, graphdberr.New(graphdberr.CodeR2FetchFailed,
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
}

func parsePartialContent(resp *http.Response) (Range, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Range{}, graphdberr.Wrap(graphdberr.CodeR2FetchFailed, "read partial body", err)
	}
	start, end, total, hasTotal := parseContentRange(resp.Header.Get("Content-Range"))
	r := Range{Data: data, Start: start, End: end}
	if hasTotal {
		r.TotalSize = &total
		r.IsLast = end+1 >= total
	} else {
		r.IsLast = len(data) == 0
	}
	return r, nil
}

// parseContentRange parses "bytes start-end/total" (total may be "*").
func parseContentRange(h string) (start, end, total uint64, hasTotal bool) {
	h = strings.TrimPrefix(h, "bytes ")
	parts := strings.SplitN(h, "/", 2)
	if len(parts) != 2 {
		return 0, 0, 0, false
	}
	rangePart := parts[0]
	se := strings.SplitN(rangePart, "-", 2)
	if len(se) != 2 {
		return 0, 0, 0, false
	}
	start, _ = strconv.ParseUint(se[0], 10, 64)
	end, _ = strconv.ParseUint(se[1], 10, 64)
	if parts[1] == "*" {
		return start, end, 0, false
	}
	total, err := strconv.ParseUint(parts[1], 10, 64)
	return start, end, total, err == nil
}

// Chunks returns successive fixed-size ranges starting at startOffset
// until IsLast or an empty body is observed. The returned function is
// a pull-style iterator: call it repeatedly until ok is false.
func (f *Fetcher) Chunks(ctx context.Context, startOffset uint64) func() (Range, bool, error) {
	offset := startOffset
	done := false
	return func() (Range, bool, error) {
		if done {
			return Range{}, false, nil
		}
		end := offset + f.cfg.ChunkSize - 1
		r, err := f.FetchRange(ctx, offset, &end)
		if err != nil {
			done = true
			return Range{}, false, err
		}
		if len(r.Data) == 0 || r.IsLast {
			done = true
		}
		offset = r.End + 1
		return r, true, nil
	}
}

// GetTotalSize issues a HEAD request first, falling back to a 1-byte
// range GET if HEAD doesn't report Content-Length (some origins
// disable HEAD).
func (f *Fetcher) GetTotalSize(ctx context.Context) (*uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.url, nil)
	if err == nil {
		if resp, err := f.client.Do(req); err == nil {
			defer resp.Body.Close()
			if resp.ContentLength > 0 {
				total := uint64(resp.ContentLength)
				return &total, nil
			}
		}
	}

	end := uint64(0)
	r, err := f.FetchRange(ctx, 0, &end)
	if err != nil {
		return nil, err
	}
	return r.TotalSize, nil
}
