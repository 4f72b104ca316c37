package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mockfig/mockfig/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate configuration documents without serving",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		snap, err := config.Load(config.DefaultPaths(dir))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration valid: %q, %d endpoints, %d auth methods\n",
			snap.API.Title, len(snap.Endpoints), len(snap.Auth.Methods))
		return nil
	},
}
