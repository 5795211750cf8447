// Command portalctl runs maintenance tasks against the portal database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "Maintenance commands for the finance portal",
	Long: `portalctl reads the same configuration as the server (config.yml and
HUB_* environment variables) and operates on its database.

Examples:
  portalctl migrate
  portalctl grant-admin boss@example.com
  portalctl sitemap > sitemap.xml`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}
