package state

import "sync"

// Journal records undo operations for every mutation applied to engine state
// so that a failed operation can be rolled back in full. Components append an
// undo closure before they mutate; the host takes a snapshot before invoking
// an operation and reverts to it when the operation fails.
//
// A nil *Journal is valid and records nothing, which lets components run
// standalone in tests that do not exercise rollback.
type Journal struct {
	mu      sync.Mutex
	entries []func()
}

// NewJournal constructs an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an undo operation.
func (j *Journal) Record(undo func()) {
	if j == nil || undo == nil {
		return
	}
	j.mu.Lock()
	j.entries = append(j.entries, undo)
	j.mu.Unlock()
}

// Snapshot returns an identifier for the current journal position.
func (j *Journal) Snapshot() int {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// RevertToSnapshot undoes every mutation recorded after the supplied
// snapshot, newest first.
func (j *Journal) RevertToSnapshot(id int) {
	if j == nil {
		return
	}
	j.mu.Lock()
	if id < 0 {
		id = 0
	}
	if id > len(j.entries) {
		j.mu.Unlock()
		return
	}
	pending := j.entries[id:]
	j.entries = j.entries[:id]
	j.mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i]()
	}
}

// Reset discards all recorded entries. Hosts call it once an operation has
// been committed.
func (j *Journal) Reset() {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.entries = nil
	j.mu.Unlock()
}

// Len reports the number of recorded entries.
func (j *Journal) Len() int {
	return j.Snapshot()
}
