package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mintd-labs/mintd/internal/catalog"
	"github.com/mintd-labs/mintd/internal/metadata"
	"github.com/mintd-labs/mintd/internal/queue"
	"github.com/mintd-labs/mintd/internal/shell"
	"github.com/mintd-labs/mintd/internal/workingcopy"
)

// fakeRemote emulates the registry remote behind the Runner interface:
// branches hold file trees, pull requests are tracked per head branch, and
// reachability can be toggled to simulate outages.
type fakeRemote struct {
	mu          sync.Mutex
	branches    map[string]map[string]string // branch -> path -> content
	prs         map[string]*shell.PullRequest
	unreachable bool
	pushFail    bool
	prFail      bool
	pushes      int
	prCreates   int
	staged      []string
	nextPR      int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		branches: map[string]map[string]string{"main": {}},
		prs:      map[string]*shell.PullRequest{},
	}
}

func (f *fakeRemote) toolError(args []string, output string) error {
	return &shell.ToolError{Tool: "git", Args: args, ExitCode: 128, Output: output}
}

func (f *fakeRemote) RunGit(dir string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch args[0] {
	case "clone":
		if f.unreachable {
			return "", f.toolError(args, "ssh: could not resolve hostname")
		}
		target := args[len(args)-1]
		if err := os.MkdirAll(filepath.Join(target, ".git"), 0755); err != nil {
			return "", err
		}
		return "", f.materialize(target)
	case "fetch":
		if f.unreachable {
			return "", f.toolError(args, "ssh: could not resolve hostname")
		}
		return "", nil
	case "reset":
		return "", f.materialize(dir)
	case "for-each-ref":
		return "", nil
	case "add":
		f.staged = append(f.staged, args[1])
		return "", nil
	case "push":
		if f.pushFail {
			return "", f.toolError(args, "ssh: connection timed out")
		}
		branch := args[len(args)-1]
		tree := map[string]string{}
		for path, content := range f.branches["main"] {
			tree[path] = content
		}
		for _, path := range f.staged {
			data, err := os.ReadFile(filepath.Join(dir, path))
			if err != nil {
				return "", err
			}
			tree[path] = string(data)
		}
		f.branches[branch] = tree
		f.staged = nil
		f.pushes++
		return "", nil
	case "rev-parse":
		ref := strings.TrimPrefix(args[len(args)-1], "origin/")
		if _, ok := f.branches[ref]; ok {
			return "", nil
		}
		return "", f.toolError(args, "fatal: needed a single revision")
	case "show":
		spec := args[1]
		colon := strings.Index(spec, ":")
		branch := strings.TrimPrefix(spec[:colon], "origin/")
		path := spec[colon+1:]
		content, ok := f.branches[branch][path]
		if !ok {
			return "", f.toolError(args, "fatal: path does not exist")
		}
		return strings.TrimSpace(content), nil
	default:
		// checkout, commit, branch: no remote effect to model.
		return "", nil
	}
}

// materialize resets dir to the main branch tree, clearing everything but
// the .git marker. Caller holds f.mu.
func (f *fakeRemote) materialize(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	for path, content := range f.branches["main"] {
		target := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRemote) CreatePullRequest(_, head, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prFail {
		return "", &shell.ToolError{Tool: "gh", Args: []string{"pr", "create"}, ExitCode: 1, Output: "gh auth login required"}
	}
	f.nextPR++
	pr := &shell.PullRequest{
		URL:   fmt.Sprintf("https://github.com/acme-lab/registry/pull/%d", f.nextPR),
		State: shell.PRStateOpen,
	}
	f.prs[head] = pr
	f.prCreates++
	return pr.URL, nil
}

func (f *fakeRemote) FindPullRequest(_, head string) (*shell.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prFail {
		return nil, &shell.ToolError{Tool: "gh", Args: []string{"pr", "list"}, ExitCode: 1, Output: "gh auth login required"}
	}
	return f.prs[head], nil
}

func testMetadata(name string) *metadata.ProjectMetadata {
	return &metadata.ProjectMetadata{
		Name:           name,
		Type:           metadata.TypeProject,
		Language:       metadata.LangPython,
		Path:           "/projects/" + name,
		Author:         "Jordan Smith",
		Organization:   "acme-lab",
		Sensitivity:    metadata.SensitivityRestricted,
		Team:           "health-econ",
		AdminTeam:      "health-econ-admins",
		ResearcherTeam: "health-econ-researchers",
		ToolVersion:    "0.4.2",
		CommitHash:     "abc1234",
	}
}

func newTestCoordinator(t *testing.T, remote *fakeRemote) (*Coordinator, *queue.Queue) {
	t.Helper()
	base := t.TempDir()
	copies := workingcopy.NewManager(
		filepath.Join(base, "registry-repo"),
		"git@github.com:acme-lab/registry.git",
		"main",
		2*time.Second,
		remote,
	)
	pending := queue.New(filepath.Join(base, "pending"))
	coord := NewCoordinator(copies, pending, remote, "https://github.com/acme-lab/registry", "main")
	return coord, pending
}

func entryBytes(t *testing.T, meta *metadata.ProjectMetadata) []byte {
	t.Helper()
	data, err := catalog.Encode(catalog.Build(meta))
	if err != nil {
		t.Fatalf("encoding entry: %v", err)
	}
	return data
}

func TestRegister_CreatesPullRequest(t *testing.T) {
	remote := newFakeRemote()
	coord, _ := newTestCoordinator(t, remote)

	meta := testMetadata("hospital-prices")
	outcome, err := coord.Register(context.Background(), meta)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if outcome.Kind != OutcomeRegistered {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.PRURL != "https://github.com/acme-lab/registry/pull/1" {
		t.Errorf("pr url = %q", outcome.PRURL)
	}

	tree, ok := remote.branches["register-hospital-prices"]
	if !ok {
		t.Fatal("registration branch was not pushed")
	}
	got, ok := tree["catalog/projects/hospital-prices.yaml"]
	if !ok {
		t.Fatalf("catalog entry missing from branch, tree has %v", tree)
	}
	if got != string(entryBytes(t, meta)) {
		t.Errorf("pushed entry content differs:\n%q", got)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	remote := newFakeRemote()
	coord, pending := newTestCoordinator(t, remote)
	meta := testMetadata("hospital-prices")

	first, err := coord.Register(context.Background(), meta)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	second, err := coord.Register(context.Background(), meta)
	if err != nil {
		t.Fatalf("second register: %v", err)
	}

	if second.Kind != OutcomeRegistered {
		t.Fatalf("second outcome = %+v", second)
	}
	if first.PRURL != second.PRURL {
		t.Errorf("urls differ: %q vs %q", first.PRURL, second.PRURL)
	}
	if remote.pushes != 1 {
		t.Errorf("pushes = %d, want 1", remote.pushes)
	}
	if remote.prCreates != 1 {
		t.Errorf("pr creates = %d, want 1", remote.prCreates)
	}
	if reqs, _ := pending.List(); len(reqs) != 0 {
		t.Errorf("queue should be empty, has %d", len(reqs))
	}
}

func TestRegister_IdempotentAfterMerge(t *testing.T) {
	remote := newFakeRemote()
	coord, _ := newTestCoordinator(t, remote)
	meta := testMetadata("hospital-prices")

	// Entry already merged to the default branch with identical content.
	remote.branches["main"]["catalog/projects/hospital-prices.yaml"] = string(entryBytes(t, meta))

	outcome, err := coord.Register(context.Background(), meta)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if outcome.Kind != OutcomeRegistered {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.Contains(outcome.PRURL, "/blob/main/catalog/projects/hospital-prices.yaml") {
		t.Errorf("expected merged entry link, got %q", outcome.PRURL)
	}
	if remote.pushes != 0 {
		t.Errorf("pushes = %d, want 0", remote.pushes)
	}
	if remote.prCreates != 0 {
		t.Errorf("pr creates = %d, want 0", remote.prCreates)
	}
}

func TestRegister_NamingConflict(t *testing.T) {
	remote := newFakeRemote()
	coord, pending := newTestCoordinator(t, remote)

	original := testMetadata("hospital-prices")
	originalEntry := string(entryBytes(t, original))
	remote.branches["main"]["catalog/projects/hospital-prices.yaml"] = originalEntry

	// A different project claiming the same name.
	intruder := testMetadata("hospital-prices")
	intruder.Team = "other-team"
	intruder.AdminTeam = "other-admins"

	outcome, err := coord.Register(context.Background(), intruder)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if outcome.Kind != OutcomeRejected {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Conflict == "" {
		t.Error("conflict detail should be populated")
	}

	// The registry keeps the original entry; nothing was queued or pushed.
	if remote.branches["main"]["catalog/projects/hospital-prices.yaml"] != originalEntry {
		t.Error("registry entry was modified")
	}
	if remote.pushes != 0 {
		t.Errorf("pushes = %d, want 0", remote.pushes)
	}
	if req, _ := pending.Get("hospital-prices"); req != nil {
		t.Error("conflict must not be queued")
	}
}

func TestRegister_OfflineQueues(t *testing.T) {
	remote := newFakeRemote()
	remote.unreachable = true
	coord, pending := newTestCoordinator(t, remote)
	meta := testMetadata("hospital-prices")

	outcome, err := coord.Register(context.Background(), meta)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if outcome.Kind != OutcomeQueued {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Reason == "" {
		t.Error("queued outcome should carry a reason")
	}

	req, err := pending.Get("hospital-prices")
	if err != nil {
		t.Fatalf("queue get: %v", err)
	}
	if req == nil {
		t.Fatal("request missing from queue")
	}
	if req.AttemptCount != 1 {
		t.Errorf("attempt count = %d", req.AttemptCount)
	}

	status, _ := coord.RegistrationStatus(context.Background(), "hospital-prices")
	if status.Kind != StatusPendingLocal {
		t.Errorf("status = %+v", status)
	}
}

func TestRegister_PushFailureQueues(t *testing.T) {
	remote := newFakeRemote()
	remote.pushFail = true
	coord, pending := newTestCoordinator(t, remote)

	outcome, err := coord.Register(context.Background(), testMetadata("hospital-prices"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if outcome.Kind != OutcomeQueued {
		t.Fatalf("outcome = %+v", outcome)
	}
	if req, _ := pending.Get("hospital-prices"); req == nil {
		t.Fatal("request missing from queue")
	}
}

func TestRegister_PRFailureQueues(t *testing.T) {
	remote := newFakeRemote()
	remote.prFail = true
	coord, pending := newTestCoordinator(t, remote)

	outcome, err := coord.Register(context.Background(), testMetadata("hospital-prices"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if outcome.Kind != OutcomeQueued {
		t.Fatalf("outcome = %+v", outcome)
	}
	if req, _ := pending.Get("hospital-prices"); req == nil {
		t.Fatal("request missing from queue")
	}
}

func TestSync_DrainsQueue(t *testing.T) {
	remote := newFakeRemote()
	remote.unreachable = true
	coord, pending := newTestCoordinator(t, remote)

	names := []string{"alpha", "bravo", "charlie"}
	for _, name := range names {
		if _, err := coord.Register(context.Background(), testMetadata(name)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	remote.unreachable = false
	results, err := coord.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for _, res := range results {
		if res.Err != nil || res.Outcome.Kind != OutcomeRegistered {
			t.Errorf("%s: %+v err=%v", res.Name, res.Outcome, res.Err)
		}
	}

	if reqs, _ := pending.List(); len(reqs) != 0 {
		t.Errorf("queue should be empty, has %d", len(reqs))
	}
	for _, name := range names {
		status, err := coord.RegistrationStatus(context.Background(), name)
		if err != nil {
			t.Fatalf("status %s: %v", name, err)
		}
		if status.Kind != StatusOpenPullRequest {
			t.Errorf("%s status = %+v", name, status)
		}
	}
}

func TestSync_RenewedFailureKeepsRequest(t *testing.T) {
	remote := newFakeRemote()
	remote.unreachable = true
	coord, pending := newTestCoordinator(t, remote)

	if _, err := coord.Register(context.Background(), testMetadata("alpha")); err != nil {
		t.Fatalf("register: %v", err)
	}

	results, err := coord.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if results[0].Outcome.Kind != OutcomeQueued {
		t.Fatalf("outcome = %+v", results[0].Outcome)
	}

	req, _ := pending.Get("alpha")
	if req == nil {
		t.Fatal("request should remain queued")
	}
	if req.AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", req.AttemptCount)
	}
	if req.LastError == "" {
		t.Error("last error should be recorded")
	}
}

func TestSync_FatalErrorRecordedOnRequest(t *testing.T) {
	remote := newFakeRemote()
	remote.unreachable = true
	coord, pending := newTestCoordinator(t, remote)

	if _, err := coord.Register(context.Background(), testMetadata("alpha")); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A regular file where the type directory belongs makes the conflict
	// check fail with a local error that is not transient.
	remote.unreachable = false
	remote.branches["main"]["catalog/projects"] = "not a directory"

	results, err := coord.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if results[0].Err == nil {
		t.Fatal("expected a fatal result error")
	}

	// The request survives with the failure recorded on it.
	req, getErr := pending.Get("alpha")
	if getErr != nil {
		t.Fatalf("queue get: %v", getErr)
	}
	if req == nil {
		t.Fatal("request should remain queued after a fatal error")
	}
	if req.AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", req.AttemptCount)
	}
	if req.LastError == "" {
		t.Error("last error should record the fatal failure")
	}
}

func TestSync_ConflictLeavesQueue(t *testing.T) {
	remote := newFakeRemote()
	remote.unreachable = true
	coord, pending := newTestCoordinator(t, remote)

	intruder := testMetadata("hospital-prices")
	intruder.Team = "other-team"
	if _, err := coord.Register(context.Background(), intruder); err != nil {
		t.Fatalf("register: %v", err)
	}

	remote.unreachable = false
	remote.branches["main"]["catalog/projects/hospital-prices.yaml"] = string(entryBytes(t, testMetadata("hospital-prices")))

	results, err := coord.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if results[0].Outcome.Kind != OutcomeRejected {
		t.Fatalf("outcome = %+v", results[0].Outcome)
	}
	if req, _ := pending.Get("hospital-prices"); req != nil {
		t.Error("conflicting request should leave the queue")
	}
}

func TestSync_ResumesAfterCrashBeforePRCreation(t *testing.T) {
	remote := newFakeRemote()
	coord, pending := newTestCoordinator(t, remote)
	meta := testMetadata("hospital-prices")

	// Simulate a prior attempt that pushed the branch and crashed before
	// creating the pull request.
	remote.branches["register-hospital-prices"] = map[string]string{
		"catalog/projects/hospital-prices.yaml": string(entryBytes(t, meta)),
	}
	if _, err := pending.Enqueue(meta, "interrupted"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	results, err := coord.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if results[0].Outcome.Kind != OutcomeRegistered {
		t.Fatalf("outcome = %+v", results[0].Outcome)
	}

	// Recovery must not re-push the identical content, only open the PR.
	if remote.pushes != 0 {
		t.Errorf("pushes = %d, want 0", remote.pushes)
	}
	if remote.prCreates != 1 {
		t.Errorf("pr creates = %d, want 1", remote.prCreates)
	}
	if reqs, _ := pending.List(); len(reqs) != 0 {
		t.Errorf("queue should be empty, has %d", len(reqs))
	}
}

func TestRegistrationStatus_Merged(t *testing.T) {
	remote := newFakeRemote()
	coord, _ := newTestCoordinator(t, remote)
	meta := testMetadata("hospital-prices")
	remote.branches["main"]["catalog/projects/hospital-prices.yaml"] = string(entryBytes(t, meta))

	status, err := coord.RegistrationStatus(context.Background(), "hospital-prices")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Kind != StatusMerged {
		t.Fatalf("status = %+v", status)
	}
	if !strings.Contains(status.PRURL, "/blob/main/") {
		t.Errorf("merged status should link the catalog file, got %q", status.PRURL)
	}
}

func TestRegistrationStatus_NotRegistered(t *testing.T) {
	remote := newFakeRemote()
	coord, _ := newTestCoordinator(t, remote)

	status, err := coord.RegistrationStatus(context.Background(), "nope")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Kind != StatusNotRegistered {
		t.Fatalf("status = %+v", status)
	}
}

func TestRegister_ConcurrentDistinctNames(t *testing.T) {
	remote := newFakeRemote()
	coord, pending := newTestCoordinator(t, remote)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)
	names := []string{"alpha", "bravo"}

	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			outcomes[i], errs[i] = coord.Register(context.Background(), testMetadata(name))
		}(i, name)
	}
	wg.Wait()

	for i, name := range names {
		if errs[i] != nil {
			t.Fatalf("register %s: %v", name, errs[i])
		}
		if outcomes[i].Kind != OutcomeRegistered {
			t.Errorf("%s outcome = %+v", name, outcomes[i])
		}
	}
	if outcomes[0].PRURL == outcomes[1].PRURL {
		t.Error("distinct projects should get distinct pull requests")
	}
	for _, name := range names {
		if _, ok := remote.branches["register-"+name]; !ok {
			t.Errorf("branch for %s missing", name)
		}
	}
	if reqs, _ := pending.List(); len(reqs) != 0 {
		t.Errorf("queue should be empty, has %d", len(reqs))
	}
}
