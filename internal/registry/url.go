package registry

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRegistryURL extracts the org and repository name from a registry URL
// such as https://github.com/acme-lab/registry.
func ParseRegistryURL(registryURL string) (org, name string, err error) {
	u, err := url.Parse(registryURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing registry URL %q: %w", registryURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid registry URL %q: expected https://host/org/repo", registryURL)
	}
	return parts[0], parts[1], nil
}

// SSHCloneURL converts a registry URL into its SSH clone form. Registration
// relies on ambient SSH credentials, never on personal access tokens, so the
// working copy is always cloned over SSH. URLs already in SSH form pass
// through unchanged.
func SSHCloneURL(registryURL string) (string, error) {
	if strings.HasPrefix(registryURL, "git@") {
		return registryURL, nil
	}

	u, err := url.Parse(registryURL)
	if err != nil {
		return "", fmt.Errorf("parsing registry URL %q: %w", registryURL, err)
	}
	org, name, err := ParseRegistryURL(registryURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("git@%s:%s/%s.git", u.Host, org, name), nil
}
