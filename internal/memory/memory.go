// Package memory provides the append-only conversation log shared by all
// generation steps of a run.
//
// Only the exchange that ultimately validated for a step is persisted;
// rejected attempts never enter memory, so later instructions are not
// polluted with known-bad examples. Readers see a bounded suffix of the
// log (the most recent N entries), which keeps request sizes deterministic.
//
// Key types:
//   - [Memory]: the mutex-guarded append-only log
//   - [Entry]: one persisted instruction/response pair
package memory

import (
	"sync"
	"time"

	"landgen/internal/backend"
)

// Entry is one accepted instruction/response pair.
type Entry struct {
	// StepID identifies the plan step whose accepted attempt produced this
	// entry.
	StepID string

	// Instruction is the exact instruction text of the accepted attempt.
	Instruction string

	// Response is the raw response text of the accepted attempt.
	Response string

	// At is the time the entry was appended.
	At time.Time
}

// Memory is the append-only ordered log of accepted exchanges.
//
// Appends are serialized; prior entries are never rewritten or removed.
// The zero value is ready to use.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// Append records an accepted exchange at the end of the log.
func (m *Memory) Append(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

// Len returns the number of persisted entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns a copy of the full log, oldest first.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Window returns the most recent n entries as backend exchanges, oldest
// first, ready for inclusion in a generation request. n <= 0 returns nil.
func (m *Memory) Window(n int) []backend.Exchange {
	if n <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	start := len(m.entries) - n
	if start < 0 {
		start = 0
	}
	window := m.entries[start:]
	out := make([]backend.Exchange, len(window))
	for i, e := range window {
		out[i] = backend.Exchange{Instruction: e.Instruction, Response: e.Response}
	}
	return out
}
