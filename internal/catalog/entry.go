package catalog

import "github.com/mintd-labs/mintd/internal/metadata"

// SchemaVersion is the catalog schema this builder emits. Registry-side
// consumers use it to evolve independently; the builder never rewrites
// entries produced under an older schema.
const SchemaVersion = "1.0.0"

// Storage buckets by project type.
const (
	dataBucket    = "lab-data"
	projectBucket = "lab-projects"
)

// mirrorPurpose is recorded on entries that carry an external mirror URL.
const mirrorPurpose = "read-only-mirror"

// Entry is the registry-side catalog record for one project. Field order is
// the canonical serialization order; see Encode.
type Entry struct {
	Repository    Repository    `yaml:"repository" json:"repository"`
	AccessControl AccessControl `yaml:"access_control" json:"access_control"`
	Storage       Storage       `yaml:"storage" json:"storage"`
	SchemaVersion string        `yaml:"schema_version" json:"schema_version"`
}

// Repository identifies the project repository and its optional mirror.
type Repository struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type" json:"type"`
	Mirror Mirror `yaml:"mirror" json:"mirror"`
}

// Mirror describes an external read-only mirror of the repository.
type Mirror struct {
	URL     string `yaml:"url" json:"url"`
	Purpose string `yaml:"purpose" json:"purpose"`
}

// AccessControl lists the teams synchronized to repository permissions by
// the registry-side automation.
type AccessControl struct {
	Team           string `yaml:"team" json:"team"`
	AdminTeam      string `yaml:"admin_team" json:"admin_team"`
	ResearcherTeam string `yaml:"researcher_team" json:"researcher_team"`
}

// Storage names the object-storage bucket backing the project's data remote.
type Storage struct {
	Bucket string `yaml:"bucket" json:"bucket"`
}

// Build derives a catalog entry from project metadata. It is pure and total:
// every valid ProjectMetadata maps to exactly one Entry, and two builds from
// identical metadata are identical. The idempotence check in the coordinator
// depends on this.
func Build(meta *metadata.ProjectMetadata) Entry {
	entry := Entry{
		Repository: Repository{
			Name: meta.Name,
			Type: meta.Type,
		},
		AccessControl: AccessControl{
			Team:           meta.Team,
			AdminTeam:      meta.AdminTeam,
			ResearcherTeam: meta.ResearcherTeam,
		},
		Storage: Storage{
			Bucket: bucketFor(meta.Type),
		},
		SchemaVersion: SchemaVersion,
	}

	if meta.MirrorURL != "" {
		entry.Repository.Mirror = Mirror{
			URL:     meta.MirrorURL,
			Purpose: mirrorPurpose,
		}
	}

	return entry
}

// bucketFor maps a project type to its storage bucket. Data products live in
// a dedicated bucket; everything else shares the projects bucket.
func bucketFor(projectType string) string {
	if projectType == metadata.TypeData {
		return dataBucket
	}
	return projectBucket
}
