// teamwerk - test integrity linting and evidence reporting
//
// Commands:
//   lint      Scan test files for code that mutates the system under test
//   report    Compile test results and evidence into an HTML report
//   watch     Re-lint and re-report on file changes
//   version   Show version information

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
)

var debugFlag bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "teamwerk",
		Short:         "Test integrity linting and evidence reporting",
		Long:          "teamwerk keeps automated tests honest: the lint command flags test code\nthat mutates the application it is supposed to observe, and the report\ncommand compiles run results, acceptance criteria, and screenshots into\na single self-contained HTML document.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable verbose diagnostic logging")
	root.AddCommand(newLintCmd(), newReportCmd(), newWatchCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "teamwerk %s (built %s, %s %s/%s)\n",
				Version, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
