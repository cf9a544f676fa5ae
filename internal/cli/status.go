package cli

import (
	"fmt"

	"github.com/mintd-labs/mintd/internal/registry"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Check a project's registration status",
	Long: `Status reports where a project stands in the registration pipeline:
pending in the local queue, waiting on an open pull request, merged into the
catalog, or not registered at all. The local queue is checked first so the
command works offline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		coord, err := newCoordinator()
		if err != nil {
			return err
		}

		status, statusErr := coord.RegistrationStatus(cmd.Context(), name)
		if statusErr != nil && !registry.IsTransient(statusErr) {
			return statusErr
		}
		switch status.Kind {
		case registry.StatusPendingLocal:
			fmt.Printf("%s: queued locally (%d attempt(s))\n", name, status.AttemptCount)
			if status.LastError != "" {
				fmt.Printf("  Last error: %s\n", status.LastError)
			}
			fmt.Println("  Run 'mintd sync' to retry.")
		case registry.StatusOpenPullRequest:
			fmt.Printf("%s: registration PR open\n", name)
			fmt.Printf("  %s\n", status.PRURL)
		case registry.StatusMerged:
			fmt.Printf("%s: registered\n", name)
			if status.PRURL != "" {
				fmt.Printf("  %s\n", status.PRURL)
			}
		case registry.StatusNotRegistered:
			if statusErr != nil {
				fmt.Printf("%s: not queued locally; registry could not be checked\n", name)
				fmt.Printf("  %v\n", statusErr)
				return nil
			}
			fmt.Printf("%s: not registered\n", name)
		}
		return nil
	},
}
