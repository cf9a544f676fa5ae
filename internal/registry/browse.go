package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mintd-labs/mintd/internal/catalog"
	"github.com/mintd-labs/mintd/internal/metadata"
)

// EntrySummary is one row of `mintd list` output.
type EntrySummary struct {
	Name          string
	Type          string
	Bucket        string
	SchemaVersion string
}

// ListEntries returns the catalog entries on the registry default branch,
// optionally filtered by project type. Malformed entries are skipped; the
// catalog is shared and one bad file should not hide the rest.
func (c *Coordinator) ListEntries(ctx context.Context, typeFilter string) ([]EntrySummary, error) {
	handle, err := c.copies.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	var summaries []EntrySummary
	for projectType, dir := range catalogDirs() {
		if typeFilter != "" && typeFilter != projectType {
			continue
		}
		pattern := filepath.Join(handle.Dir(), "catalog", dir, "*.yaml")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("scanning catalog: %w", err)
		}
		for _, match := range matches {
			data, err := os.ReadFile(match)
			if err != nil {
				continue
			}
			entry, err := catalog.Decode(data)
			if err != nil {
				continue
			}
			summaries = append(summaries, EntrySummary{
				Name:          strings.TrimSuffix(filepath.Base(match), ".yaml"),
				Type:          projectType,
				Bucket:        entry.Storage.Bucket,
				SchemaVersion: entry.SchemaVersion,
			})
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Type != summaries[j].Type {
			return summaries[i].Type < summaries[j].Type
		}
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

// GetEntry fetches one catalog entry by name, searching every type
// directory. When the name is unknown, the error suggests close matches so
// typos are cheap to spot.
func (c *Coordinator) GetEntry(ctx context.Context, name string) (catalog.Entry, string, error) {
	handle, err := c.copies.Acquire(ctx)
	if err != nil {
		return catalog.Entry{}, "", err
	}
	defer handle.Release()

	entry, entryPath, found, err := readEntry(handle.Dir(), name)
	if err != nil {
		return catalog.Entry{}, "", err
	}
	if !found {
		msg := fmt.Sprintf("project %q not found in registry", name)
		if similar := c.similarNames(handle.Dir(), name); len(similar) > 0 {
			msg += ". Did you mean: " + strings.Join(similar, ", ")
		}
		return catalog.Entry{}, "", fmt.Errorf("%s", msg)
	}
	if err := catalog.CheckSchemaVersion(entry.SchemaVersion); err != nil {
		return catalog.Entry{}, "", err
	}
	return entry, entryPath, nil
}

// readEntry looks up a catalog entry by name across every type directory of
// the synchronized working copy at dir.
func readEntry(dir, name string) (catalog.Entry, string, bool, error) {
	for _, typeDir := range catalog.TypeDirs() {
		entryPath := "catalog/" + typeDir + "/" + name + ".yaml"
		data, err := os.ReadFile(filepath.Join(dir, entryPath))
		if err != nil {
			continue
		}
		entry, err := catalog.Decode(data)
		if err != nil {
			return catalog.Entry{}, "", false, fmt.Errorf("parsing catalog entry %s: %w", entryPath, err)
		}
		return entry, entryPath, true, nil
	}
	return catalog.Entry{}, "", false, nil
}

// similarNames lists catalog entries sharing a prefix with the query, capped
// at five.
func (c *Coordinator) similarNames(dir, name string) []string {
	prefix := name
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	var names []string
	for _, typeDir := range catalog.TypeDirs() {
		matches, err := filepath.Glob(filepath.Join(dir, "catalog", typeDir, "*.yaml"))
		if err != nil {
			continue
		}
		for _, match := range matches {
			candidate := strings.TrimSuffix(filepath.Base(match), ".yaml")
			if strings.HasPrefix(candidate, prefix) && candidate != name {
				names = append(names, candidate)
			}
		}
	}
	sort.Strings(names)
	if len(names) > 5 {
		names = names[:5]
	}
	return names
}

// catalogDirs maps project type to its catalog subdirectory.
func catalogDirs() map[string]string {
	return map[string]string{
		metadata.TypeData:    "data",
		metadata.TypeProject: "projects",
		metadata.TypeInfra:   "infra",
		metadata.TypeEnclave: "enclave",
	}
}
