// Package gitstatus implements the version-control collaborator on top of
// go-git: current branch name, uncommitted-change count, and a polling
// change stream feeding branch transitions into the core.
package gitstatus

import (
	"context"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
)

type Repo struct {
	repo *git.Repository
}

// Open locates the repository containing path, walking up to the nearest
// .git directory.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", path, err)
	}
	return &Repo{repo: repo}, nil
}

// CurrentBranch returns the checked-out branch name. A detached HEAD
// reports the commit hash; the gate treats it like any other non-target
// branch name.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

// UncommittedCount returns the number of paths with staged, modified, or
// untracked state in the working tree.
func (r *Repo) UncommittedCount() (int, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return 0, fmt.Errorf("open worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return 0, fmt.Errorf("read worktree status: %w", err)
	}
	count := 0
	for _, fileStatus := range status {
		if fileStatus.Staging != git.Unmodified || fileStatus.Worktree != git.Unmodified {
			count++
		}
	}
	return count, nil
}

// Poller turns the repository into a branch-change event stream by
// polling. go-git has no native watch API; a short interval against
// .git/HEAD is cheap and keeps the collaborator self-contained.
type Poller struct {
	repo     *Repo
	interval time.Duration
	logger   Logger
}

type Logger interface {
	Printf(format string, args ...any)
}

func NewPoller(repo *Repo, interval time.Duration, logger Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{repo: repo, interval: interval, logger: logger}
}

// Run invokes onChange for the initial branch observation and then for
// every change in the observed name, until ctx is cancelled. Transient
// read failures are logged and skipped.
func (p *Poller) Run(ctx context.Context, onChange func(branch string)) {
	last := ""
	observed := false
	poll := func() {
		branch, err := p.repo.CurrentBranch()
		if err != nil {
			if p.logger != nil {
				p.logger.Printf("gitstatus: branch poll failed: %v", err)
			}
			return
		}
		if observed && branch == last {
			return
		}
		last = branch
		observed = true
		onChange(branch)
	}

	poll()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
