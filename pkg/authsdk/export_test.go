package authsdk

// setRaw writes a single entry without touching its partner, leaving the
// storage in a partial or corrupt state.
func (m *MemoryStorage) setRaw(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}
