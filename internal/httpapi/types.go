package httpapi

// HarvestStatus is the /harvest/status payload, swapped whole through an
// atomic.Value so handlers never hold a lock.
type HarvestStatus struct {
	LastRunAt  string `json:"last_run_at"`
	LastOkAt   string `json:"last_ok_at"`
	LastError  string `json:"last_error"`
	LastCount  int    `json:"last_count"`
	Running    bool   `json:"running"`
	Completed  int    `json:"completed"`
	TotalPages int    `json:"total_pages"`
}
