// Package metadata loads and validates the metadata.json file the project
// scaffolder writes into each project directory. Validation runs against an
// embedded JSON schema so a malformed file is rejected before any network or
// git activity happens.
package metadata
