package workingcopy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/mintd-labs/mintd/internal/config"
	"github.com/mintd-labs/mintd/internal/shell"
)

// Failure categories. Both are transient: the coordinator answers them by
// queueing the registration for a later sync.
var (
	// ErrUnreachableRegistry means clone or fetch could not complete
	// (network, SSH auth, host resolution).
	ErrUnreachableRegistry = errors.New("registry is unreachable")

	// ErrLockTimeout means another local process held the working-copy
	// lock for the whole bounded wait.
	ErrLockTimeout = errors.New("timed out waiting for the working-copy lock")
)

// lockRetryInterval is how often a blocked Acquire re-checks the lock.
const lockRetryInterval = 250 * time.Millisecond

// tmpSuffix is appended to the clone dir during atomic initial clone.
const tmpSuffix = ".tmp"

// Manager owns the one shared local clone of the registry repository and
// serializes access to it across processes with a file lock next to the
// clone directory.
type Manager struct {
	dir           string
	remoteURL     string
	defaultBranch string
	lockTimeout   time.Duration
	runner        shell.Runner
}

// NewManager creates a manager for the clone at dir. The directory and lock
// file are created at first use and persist across invocations.
func NewManager(dir, remoteURL, defaultBranch string, lockTimeout time.Duration, runner shell.Runner) *Manager {
	return &Manager{
		dir:           dir,
		remoteURL:     remoteURL,
		defaultBranch: defaultBranch,
		lockTimeout:   lockTimeout,
		runner:        runner,
	}
}

// Handle is a held working-copy lock. Release is safe to call more than once
// and must run on every exit path; callers defer it immediately.
type Handle struct {
	dir           string
	defaultBranch string
	lock          *flock.Flock
}

// Dir returns the working copy directory.
func (h *Handle) Dir() string { return h.dir }

// DefaultBranch returns the registry's default branch name.
func (h *Handle) DefaultBranch() string { return h.defaultBranch }

// Release unlocks the working copy.
func (h *Handle) Release() {
	if h.lock != nil {
		_ = h.lock.Unlock()
		h.lock = nil
	}
}

// Acquire takes the exclusive working-copy lock (bounded wait) and brings
// the clone up to date: initial clone if missing, otherwise fetch plus a
// hard reset of the default branch to the remote tip, discarding leftover
// registration branches from any previous crashed attempt.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(m.dir), config.DirPermNormal); err != nil {
		return nil, fmt.Errorf("creating working copy parent directory: %w", err)
	}

	lock := flock.New(m.dir + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("locking working copy: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w after %s (another registration in progress?)", ErrLockTimeout, m.lockTimeout)
	}

	if err := m.sync(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return &Handle{dir: m.dir, defaultBranch: m.defaultBranch, lock: lock}, nil
}

// sync makes the clone match the remote default branch tip.
func (m *Manager) sync() error {
	gitDir := filepath.Join(m.dir, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		return m.clone()
	}

	if _, err := m.runner.RunGit(m.dir, "fetch", "origin", "--prune"); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachableRegistry, err)
	}
	if _, err := m.runner.RunGit(m.dir, "checkout", m.defaultBranch); err != nil {
		return fmt.Errorf("checking out %s: %w", m.defaultBranch, err)
	}
	if _, err := m.runner.RunGit(m.dir, "reset", "--hard", "origin/"+m.defaultBranch); err != nil {
		return fmt.Errorf("resetting %s: %w", m.defaultBranch, err)
	}

	return m.pruneRegistrationBranches()
}

// clone performs the initial clone atomically: into a .tmp directory first,
// renamed on success, so a failed clone never leaves a half-populated clone
// that the next sync would mistake for a repository.
func (m *Manager) clone() error {
	tmpDir := m.dir + tmpSuffix

	// Clean up any leftover tmp dir from a previous failed attempt.
	_ = os.RemoveAll(tmpDir)

	if _, err := m.runner.RunGit("", "clone", m.remoteURL, tmpDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("%w: %v", ErrUnreachableRegistry, err)
	}

	if err := os.RemoveAll(m.dir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("removing stale working copy: %w", err)
	}
	if err := os.Rename(tmpDir, m.dir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("finalizing working copy clone: %w", err)
	}
	return nil
}

// pruneRegistrationBranches deletes local register-* branches left behind by
// a crashed attempt. Idempotent; the remote branches are untouched.
func (m *Manager) pruneRegistrationBranches() error {
	out, err := m.runner.RunGit(m.dir, "for-each-ref", "--format=%(refname:short)", "refs/heads/register-*")
	if err != nil {
		return fmt.Errorf("listing registration branches: %w", err)
	}
	for _, branch := range strings.Split(out, "\n") {
		branch = strings.TrimSpace(branch)
		if branch == "" || branch == m.defaultBranch {
			continue
		}
		if _, err := m.runner.RunGit(m.dir, "branch", "-D", branch); err != nil {
			return fmt.Errorf("deleting stale branch %s: %w", branch, err)
		}
	}
	return nil
}
