package events

import (
	"encoding/json"
	"time"
)

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:    typ,
		Version: v,
		At:      time.Now().UTC(),
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// HarvestProgress announces one resolved page of a running harvest.
func HarvestProgress(completed, total int) string {
	return MakeEvent("harvest_progress", 1, map[string]int{
		"completed": completed,
		"total":     total,
	})
}

// HarvestDone announces a finished harvest and how much it yielded.
func HarvestDone(records int, ok bool) string {
	return MakeEvent("harvest_done", 1, map[string]any{
		"records": records,
		"ok":      ok,
	})
}
