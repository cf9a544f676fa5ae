// Package config manages user-level settings stored at ~/.mintd/config.yaml
// (registry URL, default branch, lock timeout) and resolves the on-disk
// locations that persist across CLI invocations: the shared registry clone
// and the pending-registrations directory. Both locations can be overridden
// through environment variables, which the tests rely on.
package config
