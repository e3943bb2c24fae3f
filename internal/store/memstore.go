package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/defigods/futures-indexer/internal/entity"
)

// MemStore is a map-backed Store. Tests construct a fresh one per case so
// no state leaks between cases. Entities round-trip through JSON on every
// access so a caller mutating a loaded entity cannot alias the stored copy,
// matching the persistence semantics of the Postgres store.
type MemStore struct {
	data map[entity.Type]map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[entity.Type]map[string][]byte)}
}

func (m *MemStore) Load(_ context.Context, typ entity.Type, key string) (entity.Entity, bool, error) {
	raw, ok := m.data[typ][key]
	if !ok {
		return nil, false, nil
	}
	e, ok := entity.New(typ)
	if !ok {
		return nil, false, fmt.Errorf("unknown entity type %q", typ)
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, false, fmt.Errorf("decode %s %s: %w", typ, key, err)
	}
	return e, true, nil
}

func (m *MemStore) Upsert(_ context.Context, e entity.Entity) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.EntityType(), e.Key(), err)
	}
	typ := e.EntityType()
	if m.data[typ] == nil {
		m.data[typ] = make(map[string][]byte)
	}
	m.data[typ][e.Key()] = raw
	return nil
}

// Apply encodes every upsert before touching the map so a failure commits
// nothing, mirroring the transactional batch of the Postgres store.
func (m *MemStore) Apply(_ context.Context, upserts []entity.Entity, deletes []Ref) error {
	encoded := make([][]byte, len(upserts))
	for i, e := range upserts {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", e.EntityType(), e.Key(), err)
		}
		encoded[i] = raw
	}
	for i, e := range upserts {
		typ := e.EntityType()
		if m.data[typ] == nil {
			m.data[typ] = make(map[string][]byte)
		}
		m.data[typ][e.Key()] = encoded[i]
	}
	for _, r := range deletes {
		delete(m.data[r.Type], r.Key)
	}
	return nil
}

func (m *MemStore) Delete(_ context.Context, typ entity.Type, key string) error {
	delete(m.data[typ], key)
	return nil
}

func (m *MemStore) ListKeys(_ context.Context, typ entity.Type) ([]string, error) {
	keys := make([]string, 0, len(m.data[typ]))
	for k := range m.data[typ] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored entities of a type.
func (m *MemStore) Len(typ entity.Type) int {
	return len(m.data[typ])
}
