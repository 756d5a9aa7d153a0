package plan

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cairnlab/cairn/cmd/cairn/run"
	"github.com/cairnlab/cairn/internal/config"
	"github.com/cairnlab/cairn/internal/report"
	"github.com/cairnlab/cairn/internal/workflow"
)

var (
	cfgPath    string
	flagTarget string
)

// Cmd represents the `cairn plan` command: it resolves and prints the
// execution order without running anything.
var Cmd = &cobra.Command{
	Use:           "plan",
	Short:         "Print the resolved stage execution order",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgPath == "" {
			return fmt.Errorf("missing required flag: --config")
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		w, _, err := run.BuildWorkflow(cfg, workflow.ModeRecord, workflow.FailStop, report.Nop{})
		if err != nil {
			return err
		}
		order, err := w.Plan(flagTarget)
		if err != nil {
			return err
		}
		for i, id := range order {
			desc, deps, outputs, _ := w.Describe(id)
			line := fmt.Sprintf("%d. %s", i+1, id)
			if desc != "" {
				line += ": " + desc
			}
			if len(deps) > 0 {
				line += fmt.Sprintf(" (depends on %s)", strings.Join(deps, ", "))
			}
			fmt.Fprintln(os.Stdout, line)
			for _, out := range outputs {
				fmt.Fprintf(os.Stdout, "   -> %s\n", out)
			}
		}
		return nil
	},
}

func init() {
	Cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to workflow definition (.cue)")
	Cmd.Flags().StringVar(&flagTarget, "target", "", "Plan only this stage and its dependencies")
}
