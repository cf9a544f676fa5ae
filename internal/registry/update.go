package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mintd-labs/mintd/internal/catalog"
	"github.com/mintd-labs/mintd/internal/metadata"
)

// FieldChange is one field-level difference between the registered catalog
// entry and the entry derived from local metadata.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// UpdateResult reports what Update found and did. Changes is empty when the
// registry already matches local metadata; PRURL is set only when an update
// pull request was opened.
type UpdateResult struct {
	Changes []FieldChange
	PRURL   string
}

// Update delivers local metadata changes for an already-registered project.
// The existing entry is fetched from the registry, diffed field by field
// against the entry derived from local metadata, and any difference is
// written to a timestamped update branch with its own pull request. The
// timestamp keeps concurrent updates of the same project on distinct
// branches. With dryRun the diff is reported and nothing is written.
//
// Unlike Register, a failed update is never queued: the pending queue holds
// initial registrations, and an update retried later could deliver a diff
// computed against a stale registry state.
func (c *Coordinator) Update(ctx context.Context, meta *metadata.ProjectMetadata, dryRun bool) (UpdateResult, error) {
	entry := catalog.Build(meta)
	want, err := catalog.Encode(entry)
	if err != nil {
		return UpdateResult{}, err
	}

	handle, err := c.copies.Acquire(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	defer handle.Release()

	existing, entryPath, found, err := readEntry(handle.Dir(), meta.Name)
	if err != nil {
		return UpdateResult{}, err
	}
	if !found {
		return UpdateResult{}, fmt.Errorf("project %q is not registered yet; run 'mintd register' first", meta.Name)
	}
	if err := catalog.CheckSchemaVersion(existing.SchemaVersion); err != nil {
		return UpdateResult{}, err
	}

	changes := diffEntries(existing, entry)
	if len(changes) == 0 || dryRun {
		return UpdateResult{Changes: changes}, nil
	}

	branch := fmt.Sprintf("update-%s-%s", meta.Name, time.Now().UTC().Format("20060102-150405"))
	if _, err := c.runner.RunGit(handle.Dir(), "checkout", "-B", branch, "origin/"+c.defaultBranch); err != nil {
		return UpdateResult{}, err
	}
	// The entry stays at its registered path even when the type field
	// changed; moving it is a registry-administrator decision.
	if err := os.WriteFile(filepath.Join(handle.Dir(), entryPath), want, 0644); err != nil {
		return UpdateResult{}, fmt.Errorf("writing catalog entry: %w", err)
	}
	if _, err := c.runner.RunGit(handle.Dir(), "add", entryPath); err != nil {
		return UpdateResult{}, err
	}
	message := fmt.Sprintf("Update catalog entry: %s", meta.Name)
	if _, err := c.runner.RunGit(handle.Dir(), "commit", "-m", message); err != nil {
		return UpdateResult{}, err
	}
	if _, err := c.runner.RunGit(handle.Dir(), "push", "-u", "origin", branch); err != nil {
		return UpdateResult{}, err
	}

	url, err := c.runner.CreatePullRequest(handle.Dir(), branch, c.defaultBranch, message, updatePRBody(meta, changes))
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Changes: changes, PRURL: url}, nil
}

// diffEntries compares every catalog entry field, in entry field order.
func diffEntries(old, updated catalog.Entry) []FieldChange {
	var changes []FieldChange
	add := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			changes = append(changes, FieldChange{Field: field, Old: oldVal, New: newVal})
		}
	}
	add("repository.name", old.Repository.Name, updated.Repository.Name)
	add("repository.type", old.Repository.Type, updated.Repository.Type)
	add("repository.mirror.url", old.Repository.Mirror.URL, updated.Repository.Mirror.URL)
	add("repository.mirror.purpose", old.Repository.Mirror.Purpose, updated.Repository.Mirror.Purpose)
	add("access_control.team", old.AccessControl.Team, updated.AccessControl.Team)
	add("access_control.admin_team", old.AccessControl.AdminTeam, updated.AccessControl.AdminTeam)
	add("access_control.researcher_team", old.AccessControl.ResearcherTeam, updated.AccessControl.ResearcherTeam)
	add("storage.bucket", old.Storage.Bucket, updated.Storage.Bucket)
	add("schema_version", old.SchemaVersion, updated.SchemaVersion)
	return changes
}

// updatePRBody renders the reviewer-facing description with the field diff.
func updatePRBody(meta *metadata.ProjectMetadata, changes []FieldChange) string {
	var lines []string
	for _, ch := range changes {
		lines = append(lines, fmt.Sprintf("- `%s`: %q → %q", ch.Field, ch.Old, ch.New))
	}
	return fmt.Sprintf(`## Registry Update: %s

This PR updates the catalog entry for **%s**.

### Changes
%s

### Checklist
- [ ] Changes match the project's metadata.json
- [ ] Access control changes are approved by the admin team
`, meta.Name, meta.Name, strings.Join(lines, "\n"))
}
