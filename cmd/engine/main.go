package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"carharvest-engine/internal/config"
	"carharvest-engine/internal/events"
	"carharvest-engine/internal/harvest"
	"carharvest-engine/internal/harvest/fetch"
	"carharvest-engine/internal/harvest/rates"
	"carharvest-engine/internal/httpapi"
	"carharvest-engine/internal/scheduler"
	"carharvest-engine/internal/store"

	"github.com/gofrs/flock"
	"github.com/lmittmann/tint"
)

func main() {
	setupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Engine data dir: env if provided (the dashboard shell can pass one),
	// else local folder.
	dataDir := os.Getenv("CARHARVEST_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fatal("create data dir", err)
	}

	// One engine per data dir; two harvesters hammering the same source is
	// exactly what the politeness delay exists to prevent.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		fatal("acquire lock", err)
	}
	if !locked {
		slog.Error("another engine instance is already running", "data_dir", dataDir)
		os.Exit(1)
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		fatal("config bootstrap", err)
	}

	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		cfg, _ = config.NormalizeAndValidate(cfg)
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		fatal("config load", err)
	}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "carharvest.db"))
	if err != nil {
		fatal("open db", err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		fatal("migrate", err)
	}
	if n, err := store.CleanupOldRuns(db.Pool); err == nil && n > 0 {
		slog.Info("trimmed old runs", "deleted", n)
	}

	hub := events.NewHub()

	var harvestStatus atomic.Value
	harvestStatus.Store(httpapi.HarvestStatus{})
	var lastResult atomic.Value
	lastResult.Store(harvest.Result{})

	runner := &httpapi.Runner{
		DB:         db.Pool,
		Hub:        hub,
		Status:     &harvestStatus,
		LastResult: &lastResult,
		RunHarvest: runHarvest,
	}

	deps := httpapi.Deps{
		DB:            db.Pool,
		Hub:           hub,
		CfgVal:        &cfgVal,
		HarvestStatus: &harvestStatus,
		LastResult:    &lastResult,
		UserCfgPath:   userCfgPath,
		LoadCfg:       loadCfg,
		Runner:        runner,
	}
	mux := httpapi.NewMux(deps)
	handler := httpapi.Chain(mux,
		httpapi.Recover,
		httpapi.RequestID,
		httpapi.AccessLog,
		httpapi.Cors,
	)

	if cfg.Harvest.ScheduleSeconds > 0 && cfg.Harvest.ScheduleURL != "" {
		interval := time.Duration(cfg.Harvest.ScheduleSeconds) * time.Second
		// Scheduled runs go through the same trigger as POST /harvest/run:
		// same status, same run history, same one-at-a-time guard.
		go scheduler.Every(ctx, interval, "harvest", func(ctx context.Context) error {
			c := cfgVal.Load().(config.Config)
			if !runner.Trigger(c, c.Harvest.ScheduleURL, c.Harvest.MaxPages) {
				slog.Warn("scheduled harvest skipped, one already in flight")
			}
			return nil
		})
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fatal("listen", err)
	}
	slog.Info("engine listening", "addr", "http://"+addr, "data_dir", dataDir)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		slog.Info("stopping engine...")
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		fatal("serve", err)
	}
}

// runHarvest builds a fresh harvester from the current config; nothing is
// shared between runs.
func runHarvest(ctx context.Context, cfg config.Config, baseURL string, maxPages int, onProgress harvest.ProgressFunc) harvest.Result {
	f := fetch.New(fetch.Options{
		Concurrency: cfg.Harvest.Concurrency,
		Politeness:  cfg.Politeness(),
		Timeout:     cfg.FetchTimeout(),
		UserAgent:   cfg.Harvest.UserAgent,
		Referer:     cfg.Harvest.Referer,
	})
	r := rates.New(rates.Options{
		Endpoint: cfg.Rates.Endpoint,
		Currency: cfg.Rates.Currency,
		Fallback: cfg.Rates.Fallback,
		Timeout:  cfg.RatesTimeout(),
	})
	h := harvest.New(f, r, cfg.Harvest.SourceOrigin, slog.Default())
	return h.Run(ctx, baseURL, maxPages, onProgress)
}

func setupLogger() {
	level := slog.LevelInfo
	if os.Getenv("CARHARVEST_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
