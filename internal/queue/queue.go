package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mintd-labs/mintd/internal/config"
	"github.com/mintd-labs/mintd/internal/metadata"
)

// ErrCorrupt marks a pending record that exists on disk but cannot be
// parsed. Corruption is never repaired silently; the record name is kept in
// the error so the user can inspect or remove the file.
var ErrCorrupt = errors.New("pending registration record is corrupt")

// Request is one durable registration request. It is created when live
// delivery fails transiently, mutated on each retry, and deleted on success.
type Request struct {
	Name         string                   `json:"name"`
	Metadata     metadata.ProjectMetadata `json:"metadata"`
	CreatedAt    time.Time                `json:"created_at"`
	AttemptCount int                      `json:"attempt_count"`
	LastError    string                   `json:"last_error,omitempty"`
	BranchName   string                   `json:"branch_name"`
}

// Queue is a durable mapping from project name to Request, one JSON file per
// record. Records are independent: each mutation rewrites a single file
// atomically, so no queue-wide lock is needed.
type Queue struct {
	dir string
}

// New creates a queue rooted at dir. The directory is created on first write.
func New(dir string) *Queue {
	return &Queue{dir: dir}
}

// Dir returns the queue's on-disk location.
func (q *Queue) Dir() string {
	return q.dir
}

// Enqueue records a failed registration attempt for later sync. Enqueue is
// idempotent on name: re-enqueueing merges into the existing record (original
// created_at kept for FIFO fairness, attempt count carried forward) instead
// of duplicating it.
func (q *Queue) Enqueue(meta *metadata.ProjectMetadata, lastError string) (*Request, error) {
	existing, err := q.Get(meta.Name)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return nil, err
	}
	if errors.Is(err, ErrCorrupt) {
		return nil, err
	}

	req := &Request{
		Name:         meta.Name,
		Metadata:     *meta,
		CreatedAt:    time.Now().UTC(),
		AttemptCount: 1,
		LastError:    lastError,
		BranchName:   "register-" + meta.Name,
	}
	if existing != nil {
		req.CreatedAt = existing.CreatedAt
		req.AttemptCount = existing.AttemptCount + 1
	}

	if err := q.write(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Get returns the pending request for name, or nil if none exists.
func (q *Queue) Get(name string) (*Request, error) {
	data, err := os.ReadFile(q.recordPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading pending record for %s: %w", name, err)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return &req, nil
}

// List returns all pending requests in creation order (FIFO). A corrupt
// record aborts the listing rather than being skipped: dropping it silently
// would mask data loss.
func (q *Queue) List() ([]*Request, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading pending directory: %w", err)
	}

	var requests []*Request
	for _, entry := range entries {
		name, ok := recordName(entry.Name())
		if !ok {
			continue
		}
		req, err := q.Get(name)
		if err != nil {
			return nil, err
		}
		if req != nil {
			requests = append(requests, req)
		}
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
	return requests, nil
}

// Update rewrites an existing record after a retry (attempt count, last
// error).
func (q *Queue) Update(req *Request) error {
	return q.write(req)
}

// Remove deletes the pending record for name. Removing a record that does
// not exist is not an error.
func (q *Queue) Remove(name string) error {
	err := os.Remove(q.recordPath(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing pending record for %s: %w", name, err)
	}
	return nil
}

// write persists a record atomically: write to a temp file in the same
// directory, then rename over the target. A crash mid-write never corrupts
// an existing record.
func (q *Queue) write(req *Request) error {
	if err := os.MkdirAll(q.dir, config.DirPermSecure); err != nil {
		return fmt.Errorf("creating pending directory: %w", err)
	}

	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling pending record for %s: %w", req.Name, err)
	}

	target := q.recordPath(req.Name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, config.FilePermSecure); err != nil {
		return fmt.Errorf("writing pending record for %s: %w", req.Name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalizing pending record for %s: %w", req.Name, err)
	}
	return nil
}

func (q *Queue) recordPath(name string) string {
	return filepath.Join(q.dir, name+".json")
}

// recordName extracts the project name from a record file name, rejecting
// temp files and anything else that is not a .json record.
func recordName(fileName string) (string, bool) {
	if !strings.HasSuffix(fileName, ".json") {
		return "", false
	}
	return strings.TrimSuffix(fileName, ".json"), true
}
