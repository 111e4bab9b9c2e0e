package httpapi

import (
	"database/sql"
	"sync/atomic"

	"carharvest-engine/internal/config"
	"carharvest-engine/internal/events"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic stores
	CfgVal        *atomic.Value // stores config.Config
	HarvestStatus *atomic.Value // stores httpapi.HarvestStatus
	LastResult    *atomic.Value // stores harvest.Result

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Harvest trigger, shared with the scheduler
	Runner *Runner
}
