package domain

import (
	"strings"
	"sync"
)

// Registry is the authoritative in-memory map of in-flight transfers, keyed
// by originating room name. It has no expiry, no capacity bound, and no
// persistence; entries survive only as long as the process.
//
// All accesses are short critical sections so concurrent initiate/complete
// calls never observe a transfer mid-mutation. Put on an existing key
// silently overwrites the previous record, matching the last-write-wins
// behavior of the upstream flow; the overwritten hold room leaks.
type Registry struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewRegistry returns an empty transfer registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// Put stores record under its originating room name.
func (r *Registry) Put(record Record) {
	key := strings.TrimSpace(record.OriginRoom)
	if key == "" {
		return
	}
	r.mu.Lock()
	r.records[key] = record
	r.mu.Unlock()
}

// Get returns the record for originRoom, if one is pending.
func (r *Registry) Get(originRoom string) (Record, bool) {
	r.mu.Lock()
	record, ok := r.records[strings.TrimSpace(originRoom)]
	r.mu.Unlock()
	return record, ok
}

// Remove deletes the record for originRoom. Removing an absent key is a no-op.
func (r *Registry) Remove(originRoom string) {
	r.mu.Lock()
	delete(r.records, strings.TrimSpace(originRoom))
	r.mu.Unlock()
}

// Len reports the number of pending transfers.
func (r *Registry) Len() int {
	r.mu.Lock()
	n := len(r.records)
	r.mu.Unlock()
	return n
}

// Snapshot returns a copy of all pending records. It exists for inspection
// and as the seam where an expiry sweep would attach.
func (r *Registry) Snapshot() []Record {
	r.mu.Lock()
	records := make([]Record, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	r.mu.Unlock()
	return records
}
