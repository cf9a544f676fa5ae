package cli

import (
	"fmt"

	"github.com/mintd-labs/mintd/internal/registry"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Deliver queued registrations",
	Long: `Sync replays every pending registration request against the registry, in
the order the requests were created. Requests that succeed or hit a naming
conflict leave the queue; requests that fail again stay queued with an
updated attempt count.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			return err
		}

		results, err := coord.Sync(cmd.Context())
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No pending registrations to process.")
			return nil
		}

		var delivered, queued, rejected, failed int
		for _, res := range results {
			switch {
			case res.Err != nil:
				failed++
				fmt.Printf("✗ %s: %v\n", res.Name, res.Err)
			case res.Outcome.Kind == registry.OutcomeRegistered:
				delivered++
				fmt.Printf("✓ %s: %s\n", res.Name, res.Outcome.PRURL)
			case res.Outcome.Kind == registry.OutcomeQueued:
				queued++
				fmt.Printf("… %s: still unreachable (%s)\n", res.Name, res.Outcome.Reason)
			case res.Outcome.Kind == registry.OutcomeRejected:
				rejected++
				fmt.Printf("✗ %s: %s\n", res.Name, res.Outcome.Conflict)
			}
		}

		fmt.Printf("\nSummary: %d delivered, %d still queued, %d conflicts, %d errors\n",
			delivered, queued, rejected, failed)
		if failed > 0 {
			return fmt.Errorf("%d registration(s) failed with local errors", failed)
		}
		return nil
	},
}
