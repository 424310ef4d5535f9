package settings

import "sync"

// MemoryStore keeps the configuration in memory, for tests and for running
// without a database file.
type MemoryStore struct {
	mu  sync.Mutex
	cfg *Settings
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored record or ErrNotFound.
func (m *MemoryStore) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return Settings{}, ErrNotFound
	}
	return *m.cfg, nil
}

// Save replaces the stored record.
func (m *MemoryStore) Save(cfg Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cfg
	m.cfg = &c
	return nil
}
