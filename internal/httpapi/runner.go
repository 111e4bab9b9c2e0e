package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	"carharvest-engine/internal/config"
	"carharvest-engine/internal/events"
	"carharvest-engine/internal/harvest"
	"carharvest-engine/internal/store"
)

// Runner is the single entry point for starting a harvest: the POST handler
// and the scheduler both go through Trigger, so every run gets the same
// bookkeeping (status, events, run history) and the one-at-a-time guard.
type Runner struct {
	DB         *sql.DB
	Hub        *events.Hub
	Status     *atomic.Value // httpapi.HarvestStatus
	LastResult *atomic.Value // harvest.Result, in memory only
	RunHarvest func(ctx context.Context, cfg config.Config, baseURL string, maxPages int, onProgress harvest.ProgressFunc) harvest.Result

	running atomic.Bool
}

// Trigger starts one harvest in the background and reports whether it was
// accepted. Only one harvest runs at a time so the same source never gets
// hit twice over; the swap makes that hold even for simultaneous callers.
func (ru *Runner) Trigger(cfg config.Config, baseURL string, maxPages int) bool {
	if !ru.running.CompareAndSwap(false, true) {
		return false
	}

	st := ru.Status.Load().(HarvestStatus)
	ru.Status.Store(HarvestStatus{
		LastRunAt:  time.Now().Format(time.RFC3339),
		Running:    true,
		LastOkAt:   st.LastOkAt,
		TotalPages: maxPages,
	})

	go ru.runOne(cfg, baseURL, maxPages)
	return true
}

func (ru *Runner) runOne(cfg config.Config, baseURL string, maxPages int) {
	defer ru.running.Store(false)
	started := time.Now()

	onProgress := func(completed, total int) {
		next := ru.Status.Load().(HarvestStatus)
		next.Completed = completed
		next.TotalPages = total
		ru.Status.Store(next)
		ru.Hub.Publish(events.HarvestProgress(completed, total))
	}

	res := ru.RunHarvest(context.Background(), cfg, baseURL, maxPages, onProgress)
	ru.LastResult.Store(res)

	ok := len(res.Records) > 0
	ru.Hub.Publish(events.HarvestDone(len(res.Records), ok))

	mark, model := harvest.TargetFromURL(baseURL)
	run := store.Run{
		BaseURL:    baseURL,
		Mark:       mark,
		Model:      model,
		MaxPages:   maxPages,
		Records:    len(res.Records),
		Status:     runStatus(res),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Log:        res.Log,
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := store.SaveRun(saveCtx, ru.DB, run); err != nil {
		slog.Error("save run failed", "err", err)
	}

	now := time.Now().Format(time.RFC3339)
	next := ru.Status.Load().(HarvestStatus)
	next.Running = false
	next.LastRunAt = now
	next.LastCount = len(res.Records)
	next.LastError = lastCritical(res.Log)
	if ok {
		next.LastOkAt = now
	}
	ru.Status.Store(next)
}

func runStatus(res harvest.Result) string {
	for _, e := range res.Log {
		if e.Level == harvest.LevelCritical {
			return store.RunStatusAborted
		}
	}
	if len(res.Records) == 0 {
		return store.RunStatusEmpty
	}
	return store.RunStatusOK
}

func lastCritical(log []harvest.Entry) string {
	msg := ""
	for _, e := range log {
		if e.Level == harvest.LevelCritical {
			msg = e.Message
		}
	}
	return msg
}
