package linemark

import "sync"

// MemoryBackend is an in-process Backend used by tests and the memory://
// DSN. Contents do not survive the process.
type MemoryBackend struct {
	mu    sync.Mutex
	notes map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{notes: map[string]string{}}
}

func (b *MemoryBackend) EnsureRoot() error {
	return nil
}

func (b *MemoryBackend) Read(id string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.notes[id]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

func (b *MemoryBackend) Write(id, content string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes[id] = content
	return nil
}

func (b *MemoryBackend) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.notes[id]; !ok {
		return ErrNotFound
	}
	delete(b.notes, id)
	return nil
}

func (b *MemoryBackend) ListAll() (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	all := make(map[string]string, len(b.notes))
	for id, content := range b.notes {
		all[id] = content
	}
	return all, nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
