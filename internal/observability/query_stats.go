// Package observability provides in-memory execution statistics for the
// query path: outcome counters and latency aggregates, suitable for a
// read-only stats endpoint.
package observability

import (
	"sync"
	"time"
)

// QueryStats tracks executed-query outcomes. All methods are thread-safe
// and O(1).
type QueryStats struct {
	mu sync.RWMutex

	total     int64
	succeeded int64
	failed    int64
	timeouts  int64
	denied    int64

	totalTimeMs int64
	maxTimeMs   int64
	lastQueryAt time.Time
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Total       int64     `json:"total"`
	Succeeded   int64     `json:"succeeded"`
	Failed      int64     `json:"failed"`
	Timeouts    int64     `json:"timeouts"`
	Denied      int64     `json:"denied"`
	AvgTimeMs   int64     `json:"avg_time_ms"`
	MaxTimeMs   int64     `json:"max_time_ms"`
	LastQueryAt time.Time `json:"last_query_at"`
}

// NewQueryStats creates an empty tracker.
func NewQueryStats() *QueryStats {
	return &QueryStats{}
}

// Outcome classifies one recorded execution.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeTimeout
	OutcomeDenied
)

// Record adds one execution to the counters.
func (q *QueryStats) Record(outcome Outcome, elapsedMs int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.total++
	switch outcome {
	case OutcomeSuccess:
		q.succeeded++
	case OutcomeTimeout:
		q.timeouts++
	case OutcomeDenied:
		q.denied++
	default:
		q.failed++
	}

	q.totalTimeMs += elapsedMs
	if elapsedMs > q.maxTimeMs {
		q.maxTimeMs = elapsedMs
	}
	q.lastQueryAt = time.Now()
}

// Get returns a copy of the current counters.
func (q *QueryStats) Get() Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()

	s := Snapshot{
		Total:       q.total,
		Succeeded:   q.succeeded,
		Failed:      q.failed,
		Timeouts:    q.timeouts,
		Denied:      q.denied,
		MaxTimeMs:   q.maxTimeMs,
		LastQueryAt: q.lastQueryAt,
	}
	if q.total > 0 {
		s.AvgTimeMs = q.totalTimeMs / q.total
	}
	return s
}
