package linemark

import (
	"sync"
	"testing"
	"time"
)

type fakeVCS struct {
	branch    string
	dirty     int
	branchErr error
	dirtyErr  error
}

func (v *fakeVCS) CurrentBranch() (string, error) {
	return v.branch, v.branchErr
}

func (v *fakeVCS) UncommittedCount() (int, error) {
	return v.dirty, v.dirtyErr
}

type recordingNotifier struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *recordingNotifier) Warn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warns = append(n.warns, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) counts() (infos, warns, errors int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.infos), len(n.warns), len(n.errors)
}

type recordingEditor struct {
	mu     sync.Mutex
	opened []string
}

func (e *recordingEditor) OpenBeside(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened = append(e.opened, path)
	return nil
}

func (e *recordingEditor) openedPaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.opened...)
}

func newTestCore(t *testing.T, vcs *fakeVCS, notifier *recordingNotifier) *Core {
	t.Helper()
	core, err := NewCore(CoreOptions{
		WorkspaceRoot: t.TempDir(),
		TargetBranch:  "feature-x",
		VCS:           vcs,
		Notifier:      notifier,
	})
	if err != nil {
		t.Fatalf("new core failed: %v", err)
	}
	t.Cleanup(core.Close)
	return core
}

// waitFor polls cond until it holds or the deadline passes. Watch events
// arrive asynchronously, so index assertions after external filesystem
// edits go through here.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
