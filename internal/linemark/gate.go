package linemark

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// GateState tracks whether the core's storage, index, and watch are live.
type GateState int

const (
	Disarmed GateState = iota
	Arming
	Armed
)

func (s GateState) String() string {
	switch s {
	case Disarmed:
		return "disarmed"
	case Arming:
		return "arming"
	case Armed:
		return "armed"
	default:
		return fmt.Sprintf("gatestate(%d)", int(s))
	}
}

// CoreOptions configures a Core.
type CoreOptions struct {
	// WorkspaceRoot is the directory the note store lives under.
	WorkspaceRoot string
	// NotesDir is the fixed-name storage subdirectory. Defaults to
	// DefaultNotesDir.
	NotesDir string
	// TargetBranch is the single branch name that gates the whole feature.
	TargetBranch string
	VCS          VCS
	Notifier     Notifier
	Logger       Logger
}

// Core owns all process-wide mutable state: current branch, gate state,
// the index, and the active watch handle. Handlers receive it explicitly;
// there are no package-level globals.
type Core struct {
	mu     sync.Mutex
	target string
	branch string
	state  GateState
	// armed mirrors state == Armed. Index change notifications run render
	// callbacks synchronously while mu may be held, so the render path
	// reads this flag instead of taking the lock.
	armed    atomic.Bool
	gen      uint64
	store    *DirStore
	index    *Index
	watcher  *Watcher
	vcs      VCS
	notifier Notifier
	logger   Logger
}

func NewCore(opts CoreOptions) (*Core, error) {
	workspace := strings.TrimSpace(opts.WorkspaceRoot)
	if workspace == "" {
		return nil, fmt.Errorf("%w: workspace root is required", ErrInvalidInput)
	}
	target := strings.TrimSpace(opts.TargetBranch)
	if target == "" {
		return nil, fmt.Errorf("%w: target branch is required", ErrInvalidInput)
	}
	notesDir := strings.TrimSpace(opts.NotesDir)
	if notesDir == "" {
		notesDir = DefaultNotesDir
	}
	return &Core{
		target:   target,
		store:    NewDirStore(filepath.Join(workspace, notesDir)),
		index:    NewIndex(),
		vcs:      opts.VCS,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}, nil
}

func (c *Core) Store() *DirStore { return c.store }
func (c *Core) Index() *Index    { return c.index }

// SetNotifier late-binds the notification surface. The bridge is built
// around the core, so the core starts without one.
func (c *Core) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

func (c *Core) TargetBranch() string { return c.target }

func (c *Core) State() GateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Core) Branch() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.branch
}

func (c *Core) Armed() bool {
	return c.armed.Load()
}

// HandleBranchChange processes one observed branch name from the VCS
// change stream. Events reporting the current branch are no-ops. Moving
// onto the target branch arms the core; moving off it disarms, with an
// advisory warning when the working tree carries uncommitted changes.
func (c *Core) HandleBranchChange(branch string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if branch == c.branch {
		return
	}
	wasArmed := c.state == Armed
	c.branch = branch

	if branch == c.target {
		if err := c.armLocked(); err != nil {
			c.notifyError(fmt.Sprintf("linemark: cannot activate on %s: %v", branch, err))
		}
		return
	}

	if wasArmed {
		c.disarmLocked()
		if pending := c.uncommittedCount(); pending > 0 {
			c.notifyWarn(fmt.Sprintf(
				"linemark: switched off %s with %d uncommitted change(s); notes are hidden until you return",
				c.target, pending))
		} else {
			c.notifyInfo(fmt.Sprintf("linemark: switched to %s, notes hidden", branch))
		}
	}
}

// Rearm re-runs the full arming sequence while on the target branch. This
// is the user-triggered retry after an arm failure or a watch breakdown.
func (c *Core) Rearm() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.branch != c.target {
		return fmt.Errorf("%w: on branch %q, target is %q", ErrNotArmed, c.branch, c.target)
	}
	return c.armLocked()
}

// Close disarms and releases the watch subscription.
func (c *Core) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
}

// Markers computes the inline marker set for a document snapshot. Returns
// nil while the gate is not armed: a disarmed index must never be trusted
// for rendering.
func (c *Core) Markers(lines []string) []Marker {
	if !c.Armed() {
		return nil
	}
	return ComputeMarkers(lines, c.index.Get)
}

// DropFromIndex removes an identifier from the index ahead of the
// watcher. The delete command calls this so a marker disappears
// synchronously instead of waiting for the removed event.
func (c *Core) DropFromIndex(id string) {
	c.mu.Lock()
	gen := c.gen
	armed := c.state == Armed
	c.mu.Unlock()
	if !armed {
		return
	}
	c.index.Remove(gen, id)
}

// armLocked performs the full arming sequence: clear, ensure root, bulk
// load, start watching. Every arm reloads from disk; nothing is carried
// across disarm periods. Any failure leaves the gate disarmed with a
// cleared index, never a partial arm.
func (c *Core) armLocked() error {
	c.state = Arming
	c.armed.Store(false)
	c.stopWatcherLocked()
	c.gen = c.index.Reset()

	if err := c.store.EnsureRoot(); err != nil {
		c.state = Disarmed
		return err
	}
	all, err := c.store.ListAll()
	if err != nil {
		c.state = Disarmed
		return err
	}
	c.index.ReplaceAll(c.gen, all)

	watcher, err := StartWatcher(c.store, c.index, c.gen, c.logger)
	if err != nil {
		c.gen = c.index.Reset()
		c.state = Disarmed
		return err
	}
	c.watcher = watcher
	c.state = Armed
	c.armed.Store(true)
	// The bulk load above notified renderers before armed flipped on, so
	// they saw an empty set. Nudge them once now that markers may render.
	c.index.notify()
	logf(c.logger, "linemark: armed on %s with %d note(s)", c.target, c.index.Len())
	return nil
}

func (c *Core) disarmLocked() {
	c.stopWatcherLocked()
	c.armed.Store(false)
	c.gen = c.index.Reset()
	c.state = Disarmed
}

func (c *Core) stopWatcherLocked() {
	if c.watcher == nil {
		return
	}
	c.watcher.Stop()
	c.watcher = nil
}

func (c *Core) uncommittedCount() int {
	if c.vcs == nil {
		return 0
	}
	pending, err := c.vcs.UncommittedCount()
	if err != nil {
		logf(c.logger, "linemark: uncommitted-change query failed: %v", err)
		return 0
	}
	return pending
}

func (c *Core) notifyInfo(msg string) {
	if c.notifier != nil {
		c.notifier.Info(msg)
	}
}

func (c *Core) notifyWarn(msg string) {
	if c.notifier != nil {
		c.notifier.Warn(msg)
	}
}

func (c *Core) notifyError(msg string) {
	logf(c.logger, "%s", msg)
	if c.notifier != nil {
		c.notifier.Error(msg)
	}
}
