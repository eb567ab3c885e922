package dal

import (
	"context"
	"slices"
	"sync"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// MemoryDAL implements DraftDAL using in-memory storage
type MemoryDAL struct {
	mu    sync.RWMutex
	items []models.Item
	index map[string]int // name -> position in items
	picks []models.PickRecord
}

// NewMemoryDAL creates a new in-memory data access layer seeded with the default catalog
func NewMemoryDAL() *MemoryDAL {
	m := &MemoryDAL{}
	m.seed()
	return m
}

func (m *MemoryDAL) seed() {
	m.items = getDefaultItems()
	m.index = make(map[string]int, len(m.items))
	for i, it := range m.items {
		m.index[it.Name] = i
	}
	m.picks = nil
}

func (m *MemoryDAL) LoadCatalog() ([]models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items), nil
}

func (m *MemoryDAL) AddItem(item models.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.index[item.Name]; ok {
		m.items[i] = item
		return nil
	}
	m.index[item.Name] = len(m.items)
	m.items = append(m.items, item)
	return nil
}

func (m *MemoryDAL) RecordPick(_ context.Context, rec models.PickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.picks = append(m.picks, rec)
	return nil
}

func (m *MemoryDAL) ListPicks(_ context.Context, draftID string) ([]models.PickRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.PickRecord{}
	for _, p := range m.picks {
		if draftID == "" || p.DraftID == draftID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryDAL) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed()
	return nil
}

func (m *MemoryDAL) Close() error {
	return nil
}
