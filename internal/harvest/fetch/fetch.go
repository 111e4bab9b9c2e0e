// Package fetch issues polite, bounded page requests against the listing
// source and classifies each response. The source signals pagination
// exhaustion with a 404, so "not found" is an expected terminal outcome here,
// not an error.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

type Kind int

const (
	Success Kind = iota
	EndOfData
	Transient
)

// Outcome is the result of one page request. Body is set only for Success.
type Outcome struct {
	Kind   Kind
	Status int
	Body   string
	Err    error
}

type Options struct {
	Concurrency int           // in-flight request cap, default 5
	Politeness  time.Duration // pause enforced between requests, default 500ms
	Timeout     time.Duration // per-request timeout, default 30s
	UserAgent   string
	Referer     string
}

type Fetcher struct {
	hc        *http.Client
	slots     *semaphore.Weighted
	pace      *rate.Limiter
	userAgent string
	referer   string
}

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultReferer = "https://www.google.com/"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
)

func New(opts Options) *Fetcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.Politeness <= 0 {
		opts.Politeness = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Referer == "" {
		opts.Referer = defaultReferer
	}
	return &Fetcher{
		hc:        &http.Client{Timeout: opts.Timeout},
		slots:     semaphore.NewWeighted(int64(opts.Concurrency)),
		pace:      rate.NewLimiter(rate.Every(opts.Politeness), 1),
		userAgent: opts.UserAgent,
		referer:   opts.Referer,
	}
}

// Fetch performs one GET with browser-like headers. The semaphore slot is
// held for the whole request, so no more than Concurrency requests are ever
// in flight, and the pacer keeps requests spaced out even when slots are
// free. Cancelling ctx abandons the request promptly.
func (f *Fetcher) Fetch(ctx context.Context, url string) Outcome {
	if err := f.slots.Acquire(ctx, 1); err != nil {
		return Outcome{Kind: Transient, Err: err}
	}
	defer f.slots.Release(1)

	if err := f.pace.Wait(ctx); err != nil {
		return Outcome{Kind: Transient, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Kind: Transient, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Referer", f.referer)

	res, err := f.hc.Do(req)
	if err != nil {
		return Outcome{Kind: Transient, Err: err}
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		b, err := io.ReadAll(res.Body)
		if err != nil {
			return Outcome{Kind: Transient, Status: res.StatusCode, Err: err}
		}
		return Outcome{Kind: Success, Status: res.StatusCode, Body: string(b)}
	case http.StatusNotFound:
		return Outcome{Kind: EndOfData, Status: res.StatusCode}
	default:
		return Outcome{Kind: Transient, Status: res.StatusCode, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
}
