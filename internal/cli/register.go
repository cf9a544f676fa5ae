package cli

import (
	"fmt"
	"os"

	"github.com/mintd-labs/mintd/internal/metadata"
	"github.com/mintd-labs/mintd/internal/registry"
	"github.com/spf13/cobra"
)

var registerPath string

func init() {
	registerCmd.Flags().StringVarP(&registerPath, "path", "p", "", "Path to the project directory (default: current directory)")
	rootCmd.AddCommand(registerCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a project in the shared registry",
	Long: `Register reads metadata.json from a scaffolded project directory, derives
its catalog entry, and opens a registration pull request against the
registry. If the registry is unreachable the request is queued locally and
delivered by the next 'mintd sync'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := registerPath
		if projectPath == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolving current directory: %w", err)
			}
			projectPath = wd
		}

		meta, err := metadata.Load(projectPath)
		if err != nil {
			return err
		}

		coord, err := newCoordinator()
		if err != nil {
			return err
		}

		outcome, err := coord.Register(cmd.Context(), meta)
		if err != nil {
			return err
		}
		return printOutcome(meta.Name, outcome)
	},
}

// printOutcome renders a registration outcome. A naming conflict is returned
// as an error so the command exits non-zero; queued is a success with
// guidance, matching the offline-first delivery model.
func printOutcome(name string, outcome registry.Outcome) error {
	switch outcome.Kind {
	case registry.OutcomeRegistered:
		fmt.Printf("Registered %s\n", name)
		fmt.Printf("  %s\n", outcome.PRURL)
		fmt.Println("  The PR will be reviewed and merged by registry administrators.")
		return nil
	case registry.OutcomeQueued:
		fmt.Printf("Registry unavailable, registration for %s saved locally.\n", name)
		fmt.Printf("  Reason: %s\n", outcome.Reason)
		fmt.Println("  Run 'mintd sync' once the registry is reachable.")
		return nil
	case registry.OutcomeRejected:
		return fmt.Errorf("%w: %s", registry.ErrNamingConflict, outcome.Conflict)
	}
	return fmt.Errorf("unknown registration outcome for %s", name)
}
