package harvest

import (
	"fmt"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo     Level = "info"
	LevelWarn     Level = "warn"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Stage tags group log entries by pipeline concern, mirroring how the
// harvest actually fails: the source, the quote service, or the markup.
const (
	StageSystem  = "system"
	StageFinance = "finance"
	StageNetwork = "network"
	StageParse   = "parse"
)

// Entry is one line of the harvest log handed back to the caller.
type Entry struct {
	Level   Level     `json:"level"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Log is the append-only accumulator shared by every concurrent fetch within
// a single run. Appends are serialized; the log is never mutated after Run
// returns its snapshot.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *Log) append(lv Level, stage, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		Level:   lv,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		At:      time.Now().UTC(),
	})
}

func (l *Log) Infof(stage, format string, args ...any) { l.append(LevelInfo, stage, format, args...) }
func (l *Log) Warnf(stage, format string, args ...any) { l.append(LevelWarn, stage, format, args...) }
func (l *Log) Errorf(stage, format string, args ...any) {
	l.append(LevelError, stage, format, args...)
}
func (l *Log) Criticalf(stage, format string, args ...any) {
	l.append(LevelCritical, stage, format, args...)
}

// Entries returns a copy safe to hand across the API boundary.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
