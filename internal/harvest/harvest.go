// Package harvest coordinates one end-to-end harvest of a paginated listing
// search: resolve the exchange rate once, probe page 1 as a gate, then fan
// out the remaining pages under the fetcher's concurrency cap and merge
// whatever survived.
package harvest

import (
	"context"
	"log/slog"
	"sync"

	"carharvest-engine/internal/domain"
	"carharvest-engine/internal/harvest/extract"
	"carharvest-engine/internal/harvest/fetch"
	"carharvest-engine/internal/harvest/pageurl"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives (completed, total) exactly once per resolved page,
// with non-decreasing completed values.
type ProgressFunc func(completed, total int)

// PageFetcher is the slice of fetch.Fetcher the orchestrator needs; tests
// substitute it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) fetch.Outcome
}

// RateSource yields the USD conversion rate, falling back internally; a
// non-nil error means the returned value is the fallback.
type RateSource interface {
	Rate(ctx context.Context) (float64, error)
}

// Result is the harvester's sole artifact: records in page-1-first order and
// the full run log. Callers own it outright once returned.
type Result struct {
	Records []domain.ListingRecord `json:"records"`
	Log     []Entry                `json:"log"`
}

type Harvester struct {
	fetcher PageFetcher
	rates   RateSource
	origin  string // absolute-URL base for relative listing links
	logger  *slog.Logger
}

func New(f PageFetcher, r RateSource, origin string, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{fetcher: f, rates: r, origin: origin, logger: logger}
}

// Run executes one harvest. It never returns an error: whatever records were
// collected plus the run log always come back, even when ctx is cancelled
// mid-flight or page 1 is dead. Failed pages simply contribute nothing.
func (h *Harvester) Run(ctx context.Context, baseURL string, maxPages int, onProgress ProgressFunc) Result {
	if maxPages < 1 {
		maxPages = 1
	}
	if onProgress == nil {
		onProgress = func(int, int) {}
	}

	hlog := &Log{}
	mark, model := TargetFromURL(baseURL)
	hlog.Infof(StageSystem, "target url: %s", baseURL)

	rate, err := h.rates.Rate(ctx)
	if err != nil {
		hlog.Warnf(StageFinance, "quote api unavailable, using fallback %.1f: %v", rate, err)
		h.logger.Warn("exchange rate fallback", "rate", rate, "err", err)
	} else {
		hlog.Infof(StageFinance, "rate fetched: 1 USD = %.2f JPY", rate)
	}

	page1, err := pageurl.CleanBaseURL(baseURL)
	if err != nil {
		hlog.Criticalf(StageSystem, "bad base url %q: %v", baseURL, err)
		return Result{Log: hlog.Entries()}
	}
	hlog.Infof(StageSystem, "fetching page 1: %s", page1)

	// Page 1 is a deliberate gate: its outcome decides whether paying for
	// N-1 more requests makes any sense.
	probe := h.fetcher.Fetch(ctx, page1)
	if probe.Kind != fetch.Success {
		if probe.Kind == fetch.EndOfData {
			hlog.Criticalf(StageNetwork, "page 1 returned 404; check the url")
		} else {
			hlog.Criticalf(StageNetwork, "page 1 failed: %v", probe.Err)
		}
		h.logger.Error("harvest aborted, page 1 unreachable", "url", page1)
		return Result{Log: hlog.Entries()}
	}

	records := extract.Extract(probe.Body, rate, mark, model, h.origin)

	var mu sync.Mutex
	completed := 1
	onProgress(1, maxPages)

	if len(records) == 0 {
		hlog.Warnf(StageParse, "page 1 loaded but no listings matched; layout may have changed")
		hlog.Infof(StageSystem, "harvest finished. pages: 1, listings: 0")
		return Result{Log: hlog.Entries()}
	}

	pagesOK := 1
	if maxPages > 1 {
		byPage := make([][]domain.ListingRecord, maxPages+1)

		var g errgroup.Group
		for n := 2; n <= maxPages; n++ {
			g.Go(func() error {
				defer func() {
					mu.Lock()
					completed++
					onProgress(completed, maxPages)
					mu.Unlock()
				}()

				u, err := pageurl.PageURL(page1, n)
				if err != nil {
					hlog.Errorf(StageSystem, "page %d url: %v", n, err)
					return nil
				}
				out := h.fetcher.Fetch(ctx, u)
				switch out.Kind {
				case fetch.Success:
					recs := extract.Extract(out.Body, rate, mark, model, h.origin)
					mu.Lock()
					byPage[n] = recs
					pagesOK++
					mu.Unlock()
				case fetch.EndOfData:
					// pagination exhausted; expected, nothing to log
				default:
					hlog.Errorf(StageNetwork, "page %d: %v", n, out.Err)
				}
				return nil
			})
		}
		_ = g.Wait()

		for n := 2; n <= maxPages; n++ {
			records = append(records, byPage[n]...)
		}
	}

	hlog.Infof(StageSystem, "harvest finished. pages: %d, listings: %d", pagesOK, len(records))
	h.logger.Info("harvest finished",
		"mark", mark, "model", model, "pages_ok", pagesOK, "listings", len(records))
	return Result{Records: records, Log: hlog.Entries()}
}
