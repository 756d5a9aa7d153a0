package root

import (
	"github.com/cairnlab/cairn/cmd/cairn/plan"
	"github.com/cairnlab/cairn/cmd/cairn/run"
	"github.com/cairnlab/cairn/cmd/cairn/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for cairn.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cairn",
		Short: "Record and verify reproducible computational experiments",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(version.VersionCmd)
	cmd.AddCommand(run.Cmd)
	cmd.AddCommand(plan.Cmd)

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}
