package cli

import (
	"fmt"
	"os"

	"github.com/mintd-labs/mintd/internal/config"
	"github.com/mintd-labs/mintd/internal/queue"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "mintd",
	Short: "Register research projects in the shared data commons registry",
	Long: `mintd registers locally scaffolded research projects into the shared,
git-backed data commons catalog. Registration works without personal access
tokens (git over SSH plus the GitHub CLI) and tolerates the registry being
unreachable: failed registrations are queued locally and delivered later
with 'mintd sync'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if reminderSuppressed(cmd) {
			return
		}

		// Pending-registrations reminder (local only, no network).
		pendingRoot, err := config.GetPendingRoot()
		if err != nil {
			return
		}
		requests, err := queue.New(pendingRoot).List()
		if err == nil && len(requests) > 0 {
			fmt.Fprintf(os.Stderr, "%d pending registration(s) waiting. Run 'mintd sync'.\n", len(requests))
		}
	},
}

// reminderSuppressed reports whether the pending-registrations reminder is
// skipped for a command. Sync manages the queue itself and config/version
// never touch the registry; the check walks the ancestry so subcommands like
// `config get` are covered too.
func reminderSuppressed(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "sync", "config", "version":
			return true
		}
	}
	return false
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
