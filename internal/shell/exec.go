package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Install hints shown when a required tool is missing from PATH.
const (
	gitInstallHint = "Install git from https://git-scm.com/"
	ghInstallHint  = "Install GitHub CLI from https://cli.github.com/"
)

// ToolError reports a non-zero exit from an external tool. The coordinator
// treats every ToolError as transient: even authentication failures are
// retryable once credentials are fixed out-of-band.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Hint     string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s failed (exit %d)", e.Tool, strings.Join(e.Args, " "), e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}

// ExecRunner implements Runner by spawning git and gh processes.
type ExecRunner struct{}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates a Runner backed by the git and gh CLIs.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// RunGit executes a git command in dir and returns trimmed combined output.
func (*ExecRunner) RunGit(dir string, args ...string) (string, error) {
	return runTool("git", dir, args, gitInstallHint)
}

// CreatePullRequest opens a pull request with the gh CLI and returns its URL.
func (*ExecRunner) CreatePullRequest(dir, head, base, title, body string) (string, error) {
	out, err := runTool("gh", dir, []string{
		"pr", "create",
		"--head", head,
		"--base", base,
		"--title", title,
		"--body", body,
	}, ghInstallHint)
	if err != nil {
		return "", err
	}
	return lastLine(out), nil
}

// FindPullRequest looks up the most recent pull request for a head branch.
func (*ExecRunner) FindPullRequest(dir, head string) (*PullRequest, error) {
	out, err := runTool("gh", dir, []string{
		"pr", "list",
		"--head", head,
		"--state", "all",
		"--limit", "1",
		"--json", "url,state",
	}, ghInstallHint)
	if err != nil {
		return nil, err
	}

	var prs []PullRequest
	if err := json.Unmarshal([]byte(out), &prs); err != nil {
		return nil, fmt.Errorf("parsing gh pr list output: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return &prs[0], nil
}

// runTool spawns the tool, capturing combined output. A missing executable
// and a non-zero exit both surface as *ToolError so callers classify them
// uniformly.
func runTool(tool, dir string, args []string, hint string) (string, error) {
	if _, err := exec.LookPath(tool); err != nil {
		return "", &ToolError{
			Tool:     tool,
			Args:     args,
			ExitCode: -1,
			Output:   tool + " not found in PATH",
			Hint:     hint,
		}
	}

	cmd := exec.Command(tool, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &ToolError{
			Tool:     tool,
			Args:     args,
			ExitCode: exitCode,
			Output:   string(output),
			Hint:     hintFor(tool, string(output), hint),
		}
	}
	return strings.TrimSpace(string(output)), nil
}

// hintFor adds a sharper suggestion when the output points at a known cause.
func hintFor(tool, output, fallback string) string {
	if tool == "gh" && (strings.Contains(output, "gh auth login") || strings.Contains(output, "GH_TOKEN")) {
		return "GitHub CLI is not authenticated. Run: gh auth login"
	}
	if tool == "git" && strings.Contains(output, "Permission denied (publickey)") {
		return "SSH authentication to the registry failed. Check your SSH key setup."
	}
	return fallback
}

// lastLine returns the final non-empty line of output. gh prints progress
// notes before the PR URL on some terminals.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
