package ingest

import (
	"sort"
	"sync"
)

// registry is the in-memory catalog of ingested documents. The vector
// store owns the chunks; the registry owns the per-document metadata
// that listing and health checks report.
type registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

func newRegistry() *registry {
	return &registry{records: make(map[string]Record)}
}

func (r *registry) put(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
}

func (r *registry) get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	return record, ok
}

// remove deletes the record and returns it so callers can report what
// was removed.
func (r *registry) remove(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if ok {
		delete(r.records, id)
	}
	return record, ok
}

// list returns every record ordered by upload time, oldest first.
func (r *registry) list() []Record {
	r.mu.RLock()
	records := make([]Record, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].UploadTime.Equal(records[j].UploadTime) {
			return records[i].ID < records[j].ID
		}
		return records[i].UploadTime.Before(records[j].UploadTime)
	})
	return records
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
