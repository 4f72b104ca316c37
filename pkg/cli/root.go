// Package cli implements the mockfig command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mockfig",
	Short: "Config-driven mock REST API server",
	Long: `mockfig serves a REST API described entirely by configuration:
endpoints, authentication methods, and response templates are declared in
JSON or YAML documents and served without writing any code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with build metadata injected.
func Execute(version, commit string) error {
	setVersion(version, commit)
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
