package persistence

import "sync"

// MemoryAdapter is an in-memory Adapter used by tests and by stores that
// opt out of durable snapshots.
type MemoryAdapter struct {
	mu   sync.Mutex
	blob map[string][]byte
}

// NewMemoryAdapter builds an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{blob: make(map[string][]byte)}
}

func (m *MemoryAdapter) Read(bucket string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blob[bucket]
	return b, ok, nil
}

func (m *MemoryAdapter) Write(bucket string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.blob[bucket] = cp
	return nil
}

func (m *MemoryAdapter) Delete(bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blob, bucket)
	return nil
}

func (m *MemoryAdapter) Close() error { return nil }
