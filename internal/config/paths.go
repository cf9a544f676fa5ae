package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory name constants under ~/.mintd/.
const (
	RegistryRepoDir = "registry-repo"
	PendingDir      = "pending"
)

// Permission constants.
const (
	DirPermSecure  os.FileMode = 0700
	FilePermSecure os.FileMode = 0600
	DirPermNormal  os.FileMode = 0755
)

// GetRegistryRepoRoot returns the path to the shared local clone of the
// registry repository. It checks the MINTD_REGISTRY_REPO environment variable
// first, then falls back to ~/.mintd/registry-repo.
func GetRegistryRepoRoot() (string, error) {
	if v := os.Getenv(envPrefix + "_REGISTRY_REPO"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, homeDir, RegistryRepoDir), nil
}

// GetPendingRoot returns the path to the pending-registrations directory.
// It checks the MINTD_PENDING environment variable first, then falls back
// to ~/.mintd/pending.
func GetPendingRoot() (string, error) {
	if v := os.Getenv(envPrefix + "_PENDING"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, homeDir, PendingDir), nil
}
