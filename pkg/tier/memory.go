package tier

import (
	"context"
	"slices"
	"sync"
)

// Memory keeps the blob in process memory.
type Memory struct {
	data []byte
	mu   sync.RWMutex
	set  bool
}

// NewMemory returns an empty in-memory tier.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns a copy of the saved blob.
func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.set {
		return nil, ErrNotFound
	}
	return slices.Clone(m.data), nil
}

// Save replaces the blob with a copy of data.
func (m *Memory) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = slices.Clone(data)
	m.set = true
	return nil
}

// Remove deletes the blob.
func (m *Memory) Remove(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	m.set = false
	return nil
}
