// Package registry holds the authoritative in-memory table of share records.
// It is the single shared mutable resource of the supervisor: RPC-driven
// operations and child-process lifecycle events both mutate it, so every
// read and write goes through the table's lock.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/farmkeep/farmkeep/internal/shareconf"
)

// State is the lifecycle status of a share's worker process.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateErrored State = "errored"
)

// ProcessHandle is the registry's view of a launched worker process. The
// record is the sole owner of its handle; it stays set after the process
// exits (for diagnostics) and is cleared only by destroy.
type ProcessHandle interface {
	PID() int
	Signal() error
}

// Record is one supervised share. FarmerState carries the last-reported
// status values from the worker's IPC channel, merged key by key.
type Record struct {
	ID          string
	ConfigPath  string
	Config      shareconf.Config
	Proc        ProcessHandle
	State       State
	FarmerState map[string]any
	LogSinkPath string
}

// DuplicateError reports a start attempt for an id that is already active.
type DuplicateError struct{ ID string }

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("share %s is already running", e.ID)
}

// NotRunningError reports stop/destroy against an absent or dead share.
type NotRunningError struct{ ID string }

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("share %s is not running", e.ID)
}

// Registry is a mutex-guarded table of records keyed by share id.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*Record
	reserved map[string]struct{}
}

func New() *Registry {
	return &Registry{
		records:  make(map[string]*Record),
		reserved: make(map[string]struct{}),
	}
}

// Reserve claims an id for an in-flight start. The duplicate check and the
// eventual insert must be atomic: two concurrent starts for the same key
// material would otherwise both pass the check and both launch a worker.
// A reservation is released by Commit or Release.
func (r *Registry) Reserve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reserved[id]; ok {
		return &DuplicateError{ID: id}
	}
	if rec, ok := r.records[id]; ok && rec.State != StateStopped {
		return &DuplicateError{ID: id}
	}
	r.reserved[id] = struct{}{}
	return nil
}

// Commit installs the record for a previously reserved id, replacing any
// stopped leftover under the same id.
func (r *Registry) Commit(rec *Record) {
	r.mu.Lock()
	delete(r.reserved, rec.ID)
	r.records[rec.ID] = rec
	r.mu.Unlock()
}

// Release drops a reservation after a failed launch.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	delete(r.reserved, id)
	r.mu.Unlock()
}

// CheckAvailable fails with a DuplicateError when id has a record whose
// state is not stopped, or an in-flight reservation. Used by the config
// loader's duplicate check.
func (r *Registry) CheckAvailable(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.reserved[id]; ok {
		return &DuplicateError{ID: id}
	}
	if rec, ok := r.records[id]; ok && rec.State != StateStopped {
		return &DuplicateError{ID: id}
	}
	return nil
}

// Get returns a copy of the record for id, or a NotRunningError. The copy
// shares the process handle but not the farmer-state map.
func (r *Registry) Get(id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, &NotRunningError{ID: id}
	}
	return copyRecord(rec), nil
}

// Remove deletes the record for id. It fails with NotRunningError when the
// record is absent or the process handle has already been released.
func (r *Registry) Remove(id string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Proc == nil {
		return nil, &NotRunningError{ID: id}
	}
	delete(r.records, id)
	return rec, nil
}

// SetState applies a lifecycle transition driven by a child-process event.
// External callers never set states directly.
func (r *Registry) SetState(id string, s State) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return "", false
	}
	prev := rec.State
	rec.State = s
	return prev, true
}

// MergeFarmerState folds one IPC status message into the record. Last
// writer wins per key; keys absent from the message are left untouched.
func (r *Registry) MergeFarmerState(id string, msg map[string]any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return false
	}
	if rec.FarmerState == nil {
		rec.FarmerState = make(map[string]any, len(msg))
	}
	for k, v := range msg {
		rec.FarmerState[k] = v
	}
	return true
}

// IDs returns the current share ids sorted for stable iteration.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Snapshot returns copies of all records at call time. The FarmerState maps
// are copied so callers can read them without holding the table lock.
func (r *Registry) Snapshot() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyRecord(rec *Record) Record {
	cp := *rec
	if rec.FarmerState != nil {
		cp.FarmerState = make(map[string]any, len(rec.FarmerState))
		for k, v := range rec.FarmerState {
			cp.FarmerState[k] = v
		}
	}
	return cp
}
