package kv

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Memory is an in-memory Engine with the same semantics as Dynamo:
// ordered scans, monotonic version tokens, all-or-nothing commits. It
// backs unit tests and local runs.
type Memory struct {
	mu      sync.Mutex
	records map[Key]memRecord
	clock   int64
}

type memRecord struct {
	doc     []byte
	version int64
}

func NewMemory() *Memory {
	return &Memory{records: make(map[Key]memRecord)}
}

func (m *Memory) Get(_ context.Context, key Key) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	doc := make([]byte, len(rec.doc))
	copy(doc, rec.doc)
	return &Entry{
		Key:     key,
		Version: Version(strconv.FormatInt(rec.version, 10)),
		Doc:     doc,
	}, nil
}

func (m *Memory) List(_ context.Context, rng Range) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []Key
	for k := range m.records {
		if k.PK != rng.PK {
			continue
		}
		switch {
		case rng.Prefix != "":
			if !strings.HasPrefix(k.SK, rng.Prefix) {
				continue
			}
		case rng.Lo != "" || rng.Hi != "":
			if k.SK < rng.Lo || k.SK >= rng.Hi {
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].SK < keys[j].SK })

	var entries []Entry
	for _, k := range keys {
		rec := m.records[k]
		doc := make([]byte, len(rec.doc))
		copy(doc, rec.doc)
		entries = append(entries, Entry{
			Key:     k,
			Version: Version(strconv.FormatInt(rec.version, 10)),
			Doc:     doc,
		})
		if rng.Limit > 0 && len(entries) >= rng.Limit {
			break
		}
	}
	return entries, nil
}

func (m *Memory) Commit(_ context.Context, b *Batch) error {
	if b.err != nil {
		return b.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Verify every precondition before touching anything.
	for i, c := range b.checks {
		rec, ok := m.records[c.key]
		if c.absent {
			if ok {
				return &CheckError{Index: i}
			}
			continue
		}
		if !ok || Version(strconv.FormatInt(rec.version, 10)) != c.version {
			return &CheckError{Index: i}
		}
	}

	for _, op := range b.ops {
		if op.delete {
			delete(m.records, op.key)
			continue
		}
		m.clock++
		doc := make([]byte, len(op.doc))
		copy(doc, op.doc)
		m.records[op.key] = memRecord{doc: doc, version: m.clock}
	}
	return nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
