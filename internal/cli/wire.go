package cli

import (
	"fmt"

	"github.com/mintd-labs/mintd/internal/config"
	"github.com/mintd-labs/mintd/internal/queue"
	"github.com/mintd-labs/mintd/internal/registry"
	"github.com/mintd-labs/mintd/internal/shell"
	"github.com/mintd-labs/mintd/internal/workingcopy"
)

// newCoordinator builds the registration coordinator from user configuration.
// All persistent locations (working copy, pending queue) are resolved here
// and passed in explicitly.
func newCoordinator() (*registry.Coordinator, error) {
	config.Load()

	registryURL := config.Get(config.KeyRegistryURL)
	if registryURL == "" {
		return nil, fmt.Errorf("registry URL not configured. Set it with:\n  mintd config set %s https://github.com/<org>/<repo>", config.KeyRegistryURL)
	}
	cloneURL, err := registry.SSHCloneURL(registryURL)
	if err != nil {
		return nil, err
	}

	repoRoot, err := config.GetRegistryRepoRoot()
	if err != nil {
		return nil, err
	}
	pendingRoot, err := config.GetPendingRoot()
	if err != nil {
		return nil, err
	}

	branch := config.Get(config.KeyDefaultBranch)
	lockTimeout := config.GetDuration(config.KeyLockTimeout, config.DefaultLockTimeout)

	runner := shell.NewExecRunner()
	copies := workingcopy.NewManager(repoRoot, cloneURL, branch, lockTimeout, runner)
	pending := queue.New(pendingRoot)

	return registry.NewCoordinator(copies, pending, runner, registryURL, branch), nil
}
