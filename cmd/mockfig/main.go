// mockfig serves a mock REST API described entirely by configuration.
package main

import (
	"fmt"
	"os"

	"github.com/mockfig/mockfig/pkg/cli"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := cli.Execute(version, commit); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
