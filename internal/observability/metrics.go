package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	events       map[string]int64
}

// Counter names recorded by the workspace.
const (
	EventReconcilePatched   = "reconcile_patched"
	EventReconcileReloaded  = "reconcile_reloaded"
	EventReloadFailed       = "reload_failed"
	EventCommitSaved        = "commit_saved"
	EventCommitFailed       = "commit_failed"
	EventWorkspaceEvicted   = "workspace_evicted"
	EventNotificationSent   = "notification_sent"
	EventNotificationFailed = "notification_failed"
)

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		events:       make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Inc increments a named event counter.
func (m *Metrics) Inc(event string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event]++
}

// Count returns the value of a named event counter.
func (m *Metrics) Count(event string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[event]
}

// RequestStat summarizes one path|method|status key.
type RequestStat struct {
	Key       string `json:"key"`
	Count     int64  `json:"count"`
	AvgMillis int64  `json:"avg_ms"`
}

// Snapshot is a copy of every counter, suitable for JSON output.
type Snapshot struct {
	Requests []RequestStat    `json:"requests"`
	Errors   map[string]int64 `json:"errors"`
	Events   map[string]int64 `json:"events"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	out := Snapshot{Errors: map[string]int64{}, Events: map[string]int64{}}
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, n := range m.requestCount {
		stat := RequestStat{Key: k, Count: n}
		if n > 0 {
			stat.AvgMillis = (m.latencyTotal[k] / time.Duration(n)).Milliseconds()
		}
		out.Requests = append(out.Requests, stat)
	}
	sort.Slice(out.Requests, func(i, j int) bool { return out.Requests[i].Key < out.Requests[j].Key })
	for k, n := range m.errorCount {
		out.Errors[k] = n
	}
	for k, n := range m.events {
		out.Events[k] = n
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
