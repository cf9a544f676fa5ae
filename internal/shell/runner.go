package shell

// PullRequest states reported by the PR tool.
const (
	PRStateOpen   = "OPEN"
	PRStateMerged = "MERGED"
	PRStateClosed = "CLOSED"
)

// PullRequest is the subset of pull-request fields the coordinator needs.
type PullRequest struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// Runner is the boundary to the two external collaborators: the git CLI and
// the PR-creation CLI. Implementations are synchronous and carry no retry
// logic; deciding whether to retry is the coordinator's job. Tests substitute
// an in-memory implementation.
type Runner interface {
	// RunGit executes git with the given arguments in dir and returns
	// trimmed combined output. A non-zero exit is returned as *ToolError.
	RunGit(dir string, args ...string) (string, error)

	// CreatePullRequest opens a pull request from head into base and
	// returns its URL.
	CreatePullRequest(dir, head, base, title, body string) (string, error)

	// FindPullRequest returns the most recent pull request whose head
	// branch is head, or nil if none exists.
	FindPullRequest(dir, head string) (*PullRequest, error)
}
