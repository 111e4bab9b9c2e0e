package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"carharvest-engine/internal/config"
	"carharvest-engine/internal/harvest"
)

type HarvestHandler struct {
	CfgVal        *atomic.Value // config.Config
	HarvestStatus *atomic.Value // httpapi.HarvestStatus
	LastResult    *atomic.Value // harvest.Result, in memory only
	Runner        *Runner
}

type runRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
}

func (h HarvestHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.HarvestStatus.Load().(HarvestStatus)
	writeJSON(w, st)
}

// Records serves the most recent harvest result straight from memory. The
// dataset is deliberately not persisted; downstream cleaning owns that.
func (h HarvestHandler) Records(w http.ResponseWriter, r *http.Request) {
	res, _ := h.LastResult.Load().(harvest.Result)
	writeJSON(w, res)
}

// Run kicks off one harvest in the background; the caller polls
// /harvest/status or subscribes to /events for progress. The runner rejects
// the request if a harvest (manual or scheduled) is already in flight.
func (h HarvestHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_url", "url is required")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if req.MaxPages <= 0 {
		req.MaxPages = cfg.Harvest.MaxPages
	}

	if !h.Runner.Trigger(cfg, req.URL, req.MaxPages) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	writeJSON(w, map[string]any{"ok": true})
}
