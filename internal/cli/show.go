package cli

import (
	"fmt"

	"github.com/mintd-labs/mintd/internal/catalog"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a project's catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			return err
		}

		entry, entryPath, err := coord.GetEntry(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		data, err := catalog.Encode(entry)
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n%s", entryPath, data)
		return nil
	},
}
