package linemark

import (
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher feeds filesystem events from the note directory into an Index.
// One watcher exists per armed period; it is bound to the index generation
// it was started for, so events delivered after a disarm are dropped by
// the generation check rather than corrupting state loaded for a later arm.
type Watcher struct {
	fs     *fsnotify.Watcher
	store  *DirStore
	index  *Index
	gen    uint64
	logger Logger
	done   chan struct{}
}

// StartWatcher subscribes to the store's root directory and starts the
// event loop. The caller must Stop the watcher when disarming.
func StartWatcher(store *DirStore, index *Index, gen uint64, logger Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(store.Root()); err != nil {
		_ = fs.Close()
		return nil, err
	}
	w := &Watcher{
		fs:     fs,
		store:  store,
		index:  index,
		gen:    gen,
		logger: logger,
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Stop cancels the subscription and waits for the event loop to drain.
func (w *Watcher) Stop() {
	_ = w.fs.Close()
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Watch failures never tear down the armed state; the index
			// may go stale until the user re-arms.
			logf(w.logger, "linemark: watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !IsIdentifier(name) {
		return
	}
	switch {
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		content, err := w.store.Read(name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Created and removed before we got to read it.
				w.index.Remove(w.gen, name)
				return
			}
			logf(w.logger, "linemark: re-read %s after %s: %v", name, event.Op, err)
			return
		}
		w.index.Upsert(w.gen, name, content)
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.index.Remove(w.gen, name)
	}
}
