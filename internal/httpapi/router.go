package httpapi

import "net/http"

// NewMux wires every handler; main() wraps it with the middleware chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	// Harvest
	hh := HarvestHandler{
		CfgVal:        d.CfgVal,
		HarvestStatus: d.HarvestStatus,
		LastResult:    d.LastResult,
		Runner:        d.Runner,
	}
	mux.HandleFunc("/harvest/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: hh.Run,
	}))
	mux.HandleFunc("/harvest/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Status,
	}))
	mux.HandleFunc("/harvest/records", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Records,
	}))

	// Run history
	rh := RunsHandler{DB: d.DB}
	mux.HandleFunc("/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.List,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
