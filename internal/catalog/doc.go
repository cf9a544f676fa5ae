// Package catalog defines the registry-side catalog entry format: the pure
// builder that derives an entry from project metadata, the canonical YAML
// codec whose output is byte-stable for idempotence checks, and the
// catalog/{type}/{name}.yaml path convention.
package catalog
