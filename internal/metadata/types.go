package metadata

// Project type values accepted by the registry.
const (
	TypeData    = "data"
	TypeProject = "project"
	TypeInfra   = "infra"
	TypeEnclave = "enclave"
)

// Language values accepted by the registry.
const (
	LangPython = "python"
	LangR      = "r"
	LangStata  = "stata"
)

// Sensitivity classification values.
const (
	SensitivityPublic       = "public"
	SensitivityRestricted   = "restricted"
	SensitivityConfidential = "confidential"
)

// MetadataFile is the file name the scaffolder writes into a project directory.
const MetadataFile = "metadata.json"

// ProjectMetadata describes a locally scaffolded project. It is captured once
// per registration attempt and treated as immutable afterwards: the pending
// queue stores a snapshot of this value, not a reference to the project files.
type ProjectMetadata struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Language       string `json:"language"`
	Path           string `json:"path"`
	Author         string `json:"author"`
	Organization   string `json:"organization"`
	Sensitivity    string `json:"sensitivity"`
	MirrorURL      string `json:"mirror_url,omitempty"`
	Team           string `json:"team"`
	AdminTeam      string `json:"admin_team"`
	ResearcherTeam string `json:"researcher_team"`
	ToolVersion    string `json:"tool_version"`
	CommitHash     string `json:"commit_hash"`
}
