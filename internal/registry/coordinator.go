package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mintd-labs/mintd/internal/catalog"
	"github.com/mintd-labs/mintd/internal/config"
	"github.com/mintd-labs/mintd/internal/metadata"
	"github.com/mintd-labs/mintd/internal/queue"
	"github.com/mintd-labs/mintd/internal/shell"
	"github.com/mintd-labs/mintd/internal/workingcopy"
)

// Coordinator orchestrates registration attempts against the registry. One
// attempt walks Building → Syncing → ConflictCheck → Writing → Publishing;
// any transient failure short-circuits into the pending queue instead.
type Coordinator struct {
	copies        *workingcopy.Manager
	pending       *queue.Queue
	runner        shell.Runner
	registryURL   string
	defaultBranch string
}

// NewCoordinator wires a coordinator from its explicit dependencies. There
// are no hidden singletons: the working-copy manager and queue carry the
// fixed on-disk locations.
func NewCoordinator(copies *workingcopy.Manager, pending *queue.Queue, runner shell.Runner, registryURL, defaultBranch string) *Coordinator {
	return &Coordinator{
		copies:        copies,
		pending:       pending,
		runner:        runner,
		registryURL:   registryURL,
		defaultBranch: defaultBranch,
	}
}

// Register attempts to deliver a catalog entry for the project. The outcome
// is Registered (a PR exists or the entry is already merged), Queued (a
// transient failure was absorbed into the pending queue), or Rejected (a
// naming conflict that needs a human decision). The error return is reserved
// for unrecoverable local failures such as queue corruption.
func (c *Coordinator) Register(ctx context.Context, meta *metadata.ProjectMetadata) (Outcome, error) {
	// Building: pure, cannot fail.
	entry := catalog.Build(meta)
	want, err := catalog.Encode(entry)
	if err != nil {
		return Outcome{}, err
	}
	entryPath := catalog.EntryPath(meta.Type, meta.Name)
	branch := "register-" + meta.Name

	// Syncing: lock + clone/fetch. Failure here is the offline-mode path.
	handle, err := c.copies.Acquire(ctx)
	if err != nil {
		if IsTransient(err) {
			return c.enqueue(meta, err)
		}
		return Outcome{}, err
	}
	defer handle.Release()

	// ConflictCheck against the synchronized default branch.
	existing, err := os.ReadFile(filepath.Join(handle.Dir(), entryPath))
	switch {
	case err == nil && bytes.Equal(existing, want):
		// Already registered with identical content: idempotent no-op.
		url := c.mergedEntryURL(handle.Dir(), branch, entryPath)
		if rmErr := c.pending.Remove(meta.Name); rmErr != nil {
			return Outcome{}, rmErr
		}
		return Outcome{Kind: OutcomeRegistered, PRURL: url}, nil
	case err == nil:
		detail := c.describeConflict(existing, meta.Name)
		return Outcome{Kind: OutcomeRejected, Conflict: detail}, nil
	case !os.IsNotExist(err):
		return Outcome{}, fmt.Errorf("inspecting catalog entry: %w", err)
	}

	// A previous attempt may have pushed the branch and crashed before PR
	// creation. If the remote branch already holds exactly this entry,
	// skip Writing and resume at Publishing.
	pushed := c.remoteBranchHasEntry(handle.Dir(), branch, entryPath, want)

	if !pushed {
		// Writing: dedicated branch from the default tip, never the
		// default branch itself.
		if _, err := c.runner.RunGit(handle.Dir(), "checkout", "-B", branch, "origin/"+c.defaultBranch); err != nil {
			return c.enqueueIfTransient(meta, err)
		}
		target := filepath.Join(handle.Dir(), entryPath)
		if err := os.MkdirAll(filepath.Dir(target), config.DirPermNormal); err != nil {
			return Outcome{}, fmt.Errorf("creating catalog directory: %w", err)
		}
		if err := os.WriteFile(target, want, 0644); err != nil {
			return Outcome{}, fmt.Errorf("writing catalog entry: %w", err)
		}
		if _, err := c.runner.RunGit(handle.Dir(), "add", entryPath); err != nil {
			return c.enqueueIfTransient(meta, err)
		}
		message := commitMessage(meta)
		if _, err := c.runner.RunGit(handle.Dir(), "commit", "-m", message); err != nil {
			return c.enqueueIfTransient(meta, err)
		}

		// Publishing: force-with-lease keeps retries of the same content
		// idempotent without clobbering an unrelated branch.
		if _, err := c.runner.RunGit(handle.Dir(), "push", "--force-with-lease", "-u", "origin", branch); err != nil {
			return c.enqueueIfTransient(meta, err)
		}
	}

	url, err := c.ensurePullRequest(handle.Dir(), branch, meta)
	if err != nil {
		return c.enqueueIfTransient(meta, err)
	}

	if err := c.pending.Remove(meta.Name); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeRegistered, PRURL: url}, nil
}

// Sync drains the pending queue in creation order. Each request re-runs the
// full Register path from its metadata snapshot; one request's failure never
// blocks the next. Requests that succeed or hit a naming conflict leave the
// queue (a conflict needs user action, not another retry).
func (c *Coordinator) Sync(ctx context.Context) ([]SyncResult, error) {
	requests, err := c.pending.List()
	if err != nil {
		return nil, err
	}

	var results []SyncResult
	for _, req := range requests {
		meta := req.Metadata
		outcome, err := c.Register(ctx, &meta)
		switch {
		case err != nil:
			// Fatal local errors bypass the enqueue path; still record
			// the attempt on the surviving request.
			req.AttemptCount++
			req.LastError = err.Error()
			if upErr := c.pending.Update(req); upErr != nil {
				err = upErr
			}
		case outcome.Kind == OutcomeRejected:
			if rmErr := c.pending.Remove(req.Name); rmErr != nil {
				err = rmErr
			}
		}
		results = append(results, SyncResult{Name: req.Name, Outcome: outcome, Err: err})
	}
	return results, nil
}

// RegistrationStatus reports where a project stands. The pending queue is
// consulted first (cheap and offline-safe); the working copy and PR state
// are only inspected when the registry is reachable. When the registry
// cannot be reached and nothing is pending, the returned status is
// NotRegistered and the transient error is passed back alongside it.
func (c *Coordinator) RegistrationStatus(ctx context.Context, name string) (Status, error) {
	req, err := c.pending.Get(name)
	if err != nil {
		return Status{}, err
	}
	if req != nil {
		return Status{
			Kind:         StatusPendingLocal,
			AttemptCount: req.AttemptCount,
			LastError:    req.LastError,
		}, nil
	}

	handle, err := c.copies.Acquire(ctx)
	if err != nil {
		if IsTransient(err) {
			return Status{Kind: StatusNotRegistered}, err
		}
		return Status{}, err
	}
	defer handle.Release()

	// Merged entry on the default branch?
	for _, dir := range catalog.TypeDirs() {
		p := filepath.Join(handle.Dir(), "catalog", dir, name+".yaml")
		if _, statErr := os.Stat(p); statErr == nil {
			return Status{Kind: StatusMerged, PRURL: c.blobURL("catalog/" + dir + "/" + name + ".yaml")}, nil
		}
	}

	pr, err := c.runner.FindPullRequest(handle.Dir(), "register-"+name)
	if err != nil {
		// The PR tool being unavailable does not change what the working
		// copy told us.
		return Status{Kind: StatusNotRegistered}, err
	}
	if pr != nil {
		switch pr.State {
		case shell.PRStateOpen:
			return Status{Kind: StatusOpenPullRequest, PRURL: pr.URL}, nil
		case shell.PRStateMerged:
			return Status{Kind: StatusMerged, PRURL: pr.URL}, nil
		}
	}
	return Status{Kind: StatusNotRegistered}, nil
}

// enqueue persists the request and reports the non-fatal Queued outcome.
func (c *Coordinator) enqueue(meta *metadata.ProjectMetadata, cause error) (Outcome, error) {
	if _, err := c.pending.Enqueue(meta, cause.Error()); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeQueued, Reason: cause.Error()}, nil
}

// enqueueIfTransient queues transient failures and propagates the rest.
func (c *Coordinator) enqueueIfTransient(meta *metadata.ProjectMetadata, err error) (Outcome, error) {
	if IsTransient(err) {
		return c.enqueue(meta, err)
	}
	return Outcome{}, err
}

// IsTransient reports whether a failure belongs to the always-recoverable
// categories: unreachable registry, lock contention, or a tool exiting
// non-zero. Everything else is a genuine local error.
func IsTransient(err error) bool {
	if errors.Is(err, workingcopy.ErrUnreachableRegistry) || errors.Is(err, workingcopy.ErrLockTimeout) {
		return true
	}
	var toolErr *shell.ToolError
	return errors.As(err, &toolErr)
}

// remoteBranchHasEntry reports whether origin already has the registration
// branch with exactly the entry content we are about to write. True means a
// prior attempt crashed between push and PR creation, and re-pushing would
// duplicate content for no reason.
func (c *Coordinator) remoteBranchHasEntry(dir, branch, entryPath string, want []byte) bool {
	if _, err := c.runner.RunGit(dir, "rev-parse", "--verify", "--quiet", "origin/"+branch); err != nil {
		return false
	}
	got, err := c.runner.RunGit(dir, "show", "origin/"+branch+":"+entryPath)
	if err != nil {
		return false
	}
	// RunGit trims output; compare against the trimmed canonical form.
	return got == string(bytes.TrimSpace(want))
}

// ensurePullRequest returns the URL of the registration PR for the branch,
// reusing an existing open PR before creating a new one. This keeps PR
// creation idempotent across retries and crash recovery.
func (c *Coordinator) ensurePullRequest(dir, branch string, meta *metadata.ProjectMetadata) (string, error) {
	pr, err := c.runner.FindPullRequest(dir, branch)
	if err != nil {
		return "", err
	}
	if pr != nil && pr.State == shell.PRStateOpen {
		return pr.URL, nil
	}

	title := commitMessage(meta)
	body := prBody(meta)
	return c.runner.CreatePullRequest(dir, branch, c.defaultBranch, title, body)
}

// mergedEntryURL picks the best reference for an already-registered entry:
// the open PR if one still exists, otherwise a link to the merged file.
func (c *Coordinator) mergedEntryURL(dir, branch, entryPath string) string {
	if pr, err := c.runner.FindPullRequest(dir, branch); err == nil && pr != nil {
		return pr.URL
	}
	return c.blobURL(entryPath)
}

// describeConflict explains what the registry already holds under this name.
func (c *Coordinator) describeConflict(existing []byte, name string) string {
	detail := fmt.Sprintf("project %q is already registered with different content", name)
	entry, err := catalog.Decode(existing)
	if err != nil {
		return detail + " (existing entry could not be parsed)"
	}
	if verErr := catalog.CheckSchemaVersion(entry.SchemaVersion); verErr != nil {
		return detail + "; " + verErr.Error()
	}
	return fmt.Sprintf("%s (type %s, registered to team %s)", detail, entry.Repository.Type, entry.AccessControl.Team)
}

func (c *Coordinator) blobURL(entryPath string) string {
	return c.registryURL + "/blob/" + c.defaultBranch + "/" + entryPath
}

// commitMessage is deterministic so retries of the same registration produce
// identical commits and PR titles.
func commitMessage(meta *metadata.ProjectMetadata) string {
	return fmt.Sprintf("Register new %s project: %s", meta.Type, meta.Name)
}

// prBody renders the reviewer-facing pull request description.
func prBody(meta *metadata.ProjectMetadata) string {
	return fmt.Sprintf(`## Project Registration

This PR registers a new %[1]s project: **%[2]s**

### Details
- **Type**: %[1]s
- **Language**: %[3]s
- **Author**: %[4]s
- **Organization**: %[5]s
- **Sensitivity**: %[6]s

### Checklist
- [ ] Catalog entry follows schema requirements
- [ ] Access control teams are appropriate
- [ ] Storage configuration is correct

### Next Steps
After merging this PR, repository permissions are synchronized automatically
and the project becomes visible in the registry catalog.
`, meta.Type, meta.Name, meta.Language, meta.Author, meta.Organization, meta.Sensitivity)
}
