package catalog

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckSchemaVersion reports whether this tool can safely interpret an entry
// written under the given schema version. Entries with a newer major version
// are rejected rather than silently misread; minor/patch bumps are tolerated.
func CheckSchemaVersion(version string) error {
	if version == "" {
		return fmt.Errorf("catalog entry has no schema_version")
	}

	entryVer, err := parseSemver(version)
	if err != nil {
		return fmt.Errorf("parsing schema_version %q: %w", version, err)
	}
	supported, err := parseSemver(SchemaVersion)
	if err != nil {
		return fmt.Errorf("parsing supported schema version %q: %w", SchemaVersion, err)
	}

	if entryVer.Major() > supported.Major() {
		return fmt.Errorf("catalog entry schema %s is newer than supported %s; upgrade mintd", version, SchemaVersion)
	}
	return nil
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(version, "v")
	return semver.NewVersion(version)
}
