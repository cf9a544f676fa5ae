package cli

import (
	"fmt"
	"os"

	"github.com/mintd-labs/mintd/internal/metadata"
	"github.com/spf13/cobra"
)

var (
	updatePath   string
	updateDryRun bool
)

func init() {
	updateCmd.Flags().StringVarP(&updatePath, "path", "p", "", "Path to the project directory (default: current directory)")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Show the changes without opening a pull request")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a registered project's catalog entry",
	Long: `Update compares the catalog entry derived from the local metadata.json
against the project's registered entry and, when they differ, opens an
update pull request on a timestamped branch. Use --dry-run to inspect the
changes first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := updatePath
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

		result, err := coord.Update(cmd.Context(), meta, updateDryRun)
		if err != nil {
			return err
		}

		if len(result.Changes) == 0 {
			fmt.Printf("%s: registry already matches local metadata.\n", meta.Name)
			return nil
		}

		fmt.Printf("Detected %d change(s) for %s:\n", len(result.Changes), meta.Name)
		for _, ch := range result.Changes {
			fmt.Printf("  %s: %q -> %q\n", ch.Field, ch.Old, ch.New)
		}
		if updateDryRun {
			fmt.Println("Dry run, no pull request opened.")
			return nil
		}
		fmt.Printf("Update PR opened:\n  %s\n", result.PRURL)
		return nil
	},
}
