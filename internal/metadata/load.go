package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads and validates metadata.json from a project directory.
// The returned value is a snapshot: callers may hold onto it across queue
// round-trips without re-reading project files.
func Load(projectPath string) (*ProjectMetadata, error) {
	metadataPath := filepath.Join(projectPath, MetadataFile)

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s not found in %s (is this a scaffolded project?)", MetadataFile, projectPath)
		}
		return nil, fmt.Errorf("reading %s: %w", metadataPath, err)
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", metadataPath, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("invalid %s:\n%s", MetadataFile, FormatIssues(result.Issues))
	}

	var meta ProjectMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", metadataPath, err)
	}

	return &meta, nil
}

// FormatIssues renders validation issues as an indented list for CLI output.
func FormatIssues(issues []ValidationIssue) string {
	var b strings.Builder
	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Fprintf(&b, "  - %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(&b, "  - %s\n", issue.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
