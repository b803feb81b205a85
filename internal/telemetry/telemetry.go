// Package telemetry keeps local sync counters for the status surfaces.
// Nothing is transmitted off the device.
//
// All Recorder methods are safe on a nil receiver, so callers can record
// unconditionally.
package telemetry

import (
	"sync"
	"time"
)

// DrainCounts is the per-drain tally reported by the engine.
type DrainCounts struct {
	Attempted int
	Succeeded int
	Conflicts int
	Retried   int
	Failed    int
	Discarded int
}

// Snapshot is a copy of the counters.
type Snapshot struct {
	Enqueued        uint64            `json:"enqueued"`
	EnqueuedByType  map[string]uint64 `json:"enqueuedByType"`
	Drains          uint64            `json:"drains"`
	Attempted       uint64            `json:"attempted"`
	Succeeded       uint64            `json:"succeeded"`
	Retried         uint64            `json:"retried"`
	Failed          uint64            `json:"failed"`
	Discarded       uint64            `json:"discarded"`
	Conflicts       uint64            `json:"conflicts"`
	ConflictsBy     map[string]uint64 `json:"conflictsByStrategy"`
	PersistFailures uint64            `json:"persistFailures"`
	LastDrainMillis int64             `json:"lastDrainMillis"`
	Since           time.Time         `json:"since"`
}

// Recorder accumulates counters.
type Recorder struct {
	mu sync.Mutex
	s  Snapshot
}

// NewRecorder creates a zeroed recorder.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.Reset()
	return r
}

// RecordEnqueue counts one enqueued item of actionType.
func (r *Recorder) RecordEnqueue(actionType string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.s.Enqueued++
	r.s.EnqueuedByType[actionType]++
	r.mu.Unlock()
}

// RecordDrain adds one drain's tally.
func (r *Recorder) RecordDrain(c DrainCounts, took time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.s.Drains++
	r.s.Attempted += uint64(c.Attempted)
	r.s.Succeeded += uint64(c.Succeeded)
	r.s.Retried += uint64(c.Retried)
	r.s.Failed += uint64(c.Failed)
	r.s.Discarded += uint64(c.Discarded)
	r.s.LastDrainMillis = took.Milliseconds()
	r.mu.Unlock()
}

// RecordConflict counts one resolved conflict.
func (r *Recorder) RecordConflict(strategy string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.s.Conflicts++
	r.s.ConflictsBy[strategy]++
	r.mu.Unlock()
}

// RecordPersistFailure counts one failed queue save.
func (r *Recorder) RecordPersistFailure() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.s.PersistFailures++
	r.mu.Unlock()
}

// Snapshot returns a copy of the counters. A nil recorder returns zeros.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{EnqueuedByType: map[string]uint64{}, ConflictsBy: map[string]uint64{}}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.s
	out.EnqueuedByType = copyCounts(r.s.EnqueuedByType)
	out.ConflictsBy = copyCounts(r.s.ConflictsBy)
	return out
}

// Reset zeroes the counters.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.s = Snapshot{
		EnqueuedByType: map[string]uint64{},
		ConflictsBy:    map[string]uint64{},
		Since:          time.Now().UTC(),
	}
	r.mu.Unlock()
}

func copyCounts(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
