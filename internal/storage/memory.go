package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps documents in a map. Contents are lost on exit.
type Memory struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: map[string][]byte{}}
}

func (m *Memory) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte(nil), data...)
	return nil
}

// Names lists stored document names, sorted.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.docs))
	for k := range m.docs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
