package registry

import "errors"

// ErrNamingConflict means the registry already has a catalog entry for this
// name with different content. Conflicts are never queued for retry: they
// need a human decision (rename, or update the existing entry).
var ErrNamingConflict = errors.New("a different project with this name is already registered")

// OutcomeKind tags the result of one registration attempt.
type OutcomeKind int

const (
	// OutcomeRegistered means the catalog entry is delivered: a pull
	// request exists (or the entry is already merged).
	OutcomeRegistered OutcomeKind = iota

	// OutcomeQueued means delivery failed transiently and the request was
	// persisted for a later `mintd sync`.
	OutcomeQueued

	// OutcomeRejected means a naming conflict was detected. Nothing was
	// written and nothing was queued.
	OutcomeRejected
)

// Outcome is the tagged result of Register. Exactly the fields matching the
// kind are set.
type Outcome struct {
	Kind OutcomeKind

	// PRURL is the pull request (or merged entry) reference. Registered only.
	PRURL string

	// Reason is the transient failure that caused queueing. Queued only.
	Reason string

	// Conflict describes the naming conflict. Rejected only.
	Conflict string
}

// StatusKind tags a project's registration status.
type StatusKind int

const (
	// StatusNotRegistered: no catalog entry, no open PR, nothing pending.
	StatusNotRegistered StatusKind = iota

	// StatusPendingLocal: a registration request sits in the local queue.
	StatusPendingLocal

	// StatusOpenPullRequest: a registration PR is open on the registry.
	StatusOpenPullRequest

	// StatusMerged: the catalog entry is on the registry default branch.
	StatusMerged
)

// Status reports where a project stands in the registration pipeline.
type Status struct {
	Kind StatusKind

	// PRURL is set for OpenPullRequest and, when known, Merged.
	PRURL string

	// AttemptCount and LastError are set for PendingLocal.
	AttemptCount int
	LastError    string
}

// SyncResult is the per-request outcome of draining the pending queue.
type SyncResult struct {
	Name    string
	Outcome Outcome
	Err     error
}
