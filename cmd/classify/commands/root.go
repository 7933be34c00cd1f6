// ABOUTME: Root command and global flags for the classify CLI
// ABOUTME: Wires subcommands and builds the shared logger
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	logLevel     string
	logFile      string
)

const banner = `
 ██████╗██╗      █████╗ ███████╗███████╗██╗███████╗██╗   ██╗
██╔════╝██║     ██╔══██╗██╔════╝██╔════╝██║██╔════╝╚██╗ ██╔╝
██║     ██║     ███████║███████╗███████╗██║█████╗   ╚████╔╝
██║     ██║     ██╔══██║╚════██║╚════██║██║██╔══╝    ╚██╔╝
╚██████╗███████╗██║  ██║███████║███████║██║██║        ██║
 ╚═════╝╚══════╝╚═╝  ╚═╝╚══════╝╚══════╝╚═╝╚═╝        ╚═╝`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify public-consultation comments with an LLM",
		Long: banner + `

Classify public-consultation comments into a closed label set.

Long comments are split into chunks under a token budget; each chunk is
classified independently and the comment's label is the majority vote.
Results are appended one row per comment, so an interrupted run resumes
where it stopped.

Configuration comes from CLASSIFY_* environment variables (or a .env
file) and is overridden by flags.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table or json")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default CLASSIFY_LOG_LEVEL or info)")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", `Also write logs to this file, rotated ("auto" for the XDG state dir)`)
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewRunCmd(),
		NewValidateCmd(),
		NewExportCmd(),
		NewTasksCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
