package availability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

// mockStore implements the consumer store interface over a plain map.
type mockStore struct {
	hashes    map[string]map[string]string
	hsetErr   error
	scanErr   error
	hsetCalls int
	scanCalls int
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	m.hsetCalls++
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	m.hashes[key] = cp
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.hashes, key)
	return nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	m.scanCalls++
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func testRecord(t *testing.T, beds int, age time.Duration) domain.AvailabilityRecord {
	t.Helper()
	return domain.AvailabilityRecord{
		BedsTotal:     40,
		BedsAvailable: beds,
		LastUpdated:   time.Now().UTC().Add(-age),
		TTLMinutes:    120,
		Source:        "manual",
	}
}
