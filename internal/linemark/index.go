package linemark

import "sync"

// Index is the in-memory mirror of the note directory. After any settled
// filesystem state it holds exactly the directory listing.
//
// Two producers mutate it: the watch loop and the delete command (which
// must not wait for the watcher's removed event). Both go through the
// generation-checked mutators below, so a callback from a watcher that was
// cancelled by a disarm can never touch state loaded for a later arm.
//
// Every effective mutation fires exactly one synchronous notification to
// each subscriber. Bursts of filesystem events produce bursts of
// notifications; there is deliberately no debouncing, redundant re-renders
// are cheaper than a stale marker.
type Index struct {
	mu        sync.RWMutex
	gen       uint64
	entries   map[string]string
	observers map[int]func()
	nextObs   int
}

func NewIndex() *Index {
	return &Index{
		entries:   map[string]string{},
		observers: map[int]func(){},
	}
}

// Subscribe registers a change observer and returns its cancel func.
func (x *Index) Subscribe(fn func()) func() {
	x.mu.Lock()
	id := x.nextObs
	x.nextObs++
	x.observers[id] = fn
	x.mu.Unlock()
	return func() {
		x.mu.Lock()
		delete(x.observers, id)
		x.mu.Unlock()
	}
}

func (x *Index) Get(id string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	content, ok := x.entries[id]
	return content, ok
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func (x *Index) Snapshot() map[string]string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	snapshot := make(map[string]string, len(x.entries))
	for id, content := range x.entries {
		snapshot[id] = content
	}
	return snapshot
}

func (x *Index) Generation() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.gen
}

// Reset clears all entries and advances the generation, invalidating every
// outstanding watcher. Returns the new generation. Fires one notification
// when entries were actually dropped.
func (x *Index) Reset() uint64 {
	x.mu.Lock()
	hadEntries := len(x.entries) > 0
	x.entries = map[string]string{}
	x.gen++
	gen := x.gen
	x.mu.Unlock()
	if hadEntries {
		x.notify()
	}
	return gen
}

// ReplaceAll installs a full snapshot for the given generation. Returns
// false without mutating when gen is stale.
func (x *Index) ReplaceAll(gen uint64, entries map[string]string) bool {
	x.mu.Lock()
	if gen != x.gen {
		x.mu.Unlock()
		return false
	}
	x.entries = make(map[string]string, len(entries))
	for id, content := range entries {
		x.entries[id] = content
	}
	x.mu.Unlock()
	x.notify()
	return true
}

// Upsert inserts or replaces one entry for the given generation.
func (x *Index) Upsert(gen uint64, id, content string) bool {
	x.mu.Lock()
	if gen != x.gen {
		x.mu.Unlock()
		return false
	}
	x.entries[id] = content
	x.mu.Unlock()
	x.notify()
	return true
}

// Remove drops one entry for the given generation. Removing an id that is
// not present is not a mutation and fires no notification.
func (x *Index) Remove(gen uint64, id string) bool {
	x.mu.Lock()
	if gen != x.gen {
		x.mu.Unlock()
		return false
	}
	if _, ok := x.entries[id]; !ok {
		x.mu.Unlock()
		return true
	}
	delete(x.entries, id)
	x.mu.Unlock()
	x.notify()
	return true
}

func (x *Index) notify() {
	x.mu.RLock()
	observers := make([]func(), 0, len(x.observers))
	for _, fn := range x.observers {
		observers = append(observers, fn)
	}
	x.mu.RUnlock()
	for _, fn := range observers {
		fn()
	}
}
