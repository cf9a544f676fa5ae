package catalog

import (
	"path"

	"github.com/mintd-labs/mintd/internal/metadata"
)

// typeDirs maps a project type to its directory under catalog/.
var typeDirs = map[string]string{
	metadata.TypeData:    "data",
	metadata.TypeProject: "projects",
	metadata.TypeInfra:   "infra",
	metadata.TypeEnclave: "enclave",
}

// EntryPath returns the repository-relative path of a catalog entry file,
// e.g. "catalog/projects/hospital-prices.yaml". The path uses forward
// slashes regardless of platform since it addresses files inside the
// registry repository, not the local filesystem.
func EntryPath(projectType, name string) string {
	dir, ok := typeDirs[projectType]
	if !ok {
		dir = projectType
	}
	return path.Join("catalog", dir, name+".yaml")
}

// TypeDirs returns the catalog subdirectories to scan, one per project type.
func TypeDirs() []string {
	return []string{"data", "projects", "infra", "enclave"}
}
