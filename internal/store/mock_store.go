package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu      sync.Mutex
	records map[string]*ModelRecord
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{records: make(map[string]*ModelRecord)}
}

// SeedRecord adds a record to the mock store without upsert bookkeeping.
func (m *MockStore) SeedRecord(rec *ModelRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ModelID] = rec
}

func (m *MockStore) GetModel(_ context.Context, modelID string) (*ModelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[modelID], nil
}

func (m *MockStore) UpsertModel(_ context.Context, rec *ModelRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	now := time.Now()
	cp.UpdatedAt = now
	if old, ok := m.records[cp.ModelID]; ok {
		cp.QueryCount = old.QueryCount
		cp.LastAccessedAt = old.LastAccessedAt
		cp.CreatedAt = old.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	m.records[cp.ModelID] = &cp
	return nil
}

func (m *MockStore) TouchModel(_ context.Context, modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[modelID]; ok {
		rec.QueryCount++
		now := time.Now()
		rec.LastAccessedAt = &now
	}
	return nil
}

func (m *MockStore) ListModels(_ context.Context, limit, offset int) ([]ModelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sortedRecords()
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	return clampRecords(out, limit), nil
}

func (m *MockStore) SearchModels(_ context.Context, query string, limit int) ([]ModelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	var out []ModelRecord
	for _, rec := range m.sortedRecords() {
		if strings.Contains(strings.ToLower(rec.ModelID), q) {
			out = append(out, rec)
		}
	}
	return clampRecords(out, limit), nil
}

func (m *MockStore) DeleteModel(_ context.Context, modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[modelID]; !ok {
		return ErrNotFound
	}
	delete(m.records, modelID)
	return nil
}

// sortedRecords copies the map values ordered by model ID. Callers hold mu.
func (m *MockStore) sortedRecords() []ModelRecord {
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]ModelRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.records[id])
	}
	return out
}

func clampRecords(records []ModelRecord, limit int) []ModelRecord {
	lim := 100
	if limit > 0 && limit <= 500 {
		lim = limit
	}
	if len(records) > lim {
		records = records[:lim]
	}
	return records
}
