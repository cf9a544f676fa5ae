package cli

import (
	"fmt"

	"github.com/mintd-labs/mintd/internal/metadata"
	"github.com/spf13/cobra"
)

var listType string

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by project type (data, project, infra, enclave)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries in the registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listType != "" {
			switch listType {
			case metadata.TypeData, metadata.TypeProject, metadata.TypeInfra, metadata.TypeEnclave:
			default:
				return fmt.Errorf("unknown project type %q", listType)
			}
		}

		coord, err := newCoordinator()
		if err != nil {
			return err
		}

		entries, err := coord.ListEntries(cmd.Context(), listType)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No catalog entries found.")
			return nil
		}

		fmt.Printf("%-32s %-10s %-14s %s\n", "NAME", "TYPE", "BUCKET", "SCHEMA")
		for _, entry := range entries {
			fmt.Printf("%-32s %-10s %-14s %s\n", entry.Name, entry.Type, entry.Bucket, entry.SchemaVersion)
		}
		return nil
	},
}
