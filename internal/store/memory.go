package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetport/internal/record"
)

// Memory is an in-process dataset store. Data is kept in its JSON form so
// callers never share record maps with the store.
type Memory struct {
	mu    sync.RWMutex
	items map[uuid.UUID]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	info DatasetInfo
	data []byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[uuid.UUID]memoryItem),
		now:   time.Now,
	}
}

// Save implements the dataset store.
func (m *Memory) Save(_ context.Context, name string, ds record.Dataset) (DatasetInfo, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("encode dataset: %w", err)
	}
	info := DatasetInfo{
		ID:        uuid.New(),
		Name:      name,
		Rows:      ds.RowCount(),
		CreatedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.items[info.ID] = memoryItem{info: info, data: data}
	m.mu.Unlock()
	return info, nil
}

// Get implements the dataset store.
func (m *Memory) Get(_ context.Context, id uuid.UUID) (Dataset, error) {
	m.mu.RLock()
	item, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return Dataset{}, fmt.Errorf("dataset %s: %w", id, ErrDatasetNotFound)
	}

	out := Dataset{DatasetInfo: item.info}
	if err := json.Unmarshal(item.data, &out.Data); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset %s: %w", id, err)
	}
	return out, nil
}

// List implements the dataset store.
func (m *Memory) List(_ context.Context, limit int) ([]DatasetInfo, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	out := make([]DatasetInfo, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item.info)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete implements the dataset store.
func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("dataset %s: %w", id, ErrDatasetNotFound)
	}
	delete(m.items, id)
	return nil
}
