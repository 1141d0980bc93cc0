package linemark

import "log"

// Logger matches the subset of *log.Logger the package needs. A nil Logger
// is always safe to pass.
type Logger interface {
	Printf(format string, args ...any)
}

func logf(l Logger, format string, args ...any) {
	if l == nil {
		return
	}
	l.Printf(format, args...)
}

// Notifier is the user-facing notification surface of the host editor.
// Info and Warn are advisory and never block; Error accompanies a failed
// user action.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Editor is the slice of the host editor the commands need: showing a note
// document next to the current view.
type Editor interface {
	OpenBeside(path string) error
}

// VCS exposes version-control state. Branch names are opaque strings
// compared for equality against the configured target branch. The
// change-notification stream itself lives outside this package; callers
// feed observed branch names into Core.HandleBranchChange.
type VCS interface {
	CurrentBranch() (string, error)
	UncommittedCount() (int, error)
}

// LogNotifier routes notifications to a Logger. Used by headless commands
// where no editor is attached.
type LogNotifier struct {
	Logger Logger
}

func (n LogNotifier) Info(msg string)  { n.printf("info: %s", msg) }
func (n LogNotifier) Warn(msg string)  { n.printf("warn: %s", msg) }
func (n LogNotifier) Error(msg string) { n.printf("error: %s", msg) }

func (n LogNotifier) printf(format string, args ...any) {
	if n.Logger == nil {
		log.Printf(format, args...)
		return
	}
	n.Logger.Printf(format, args...)
}
