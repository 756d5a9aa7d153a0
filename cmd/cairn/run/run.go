package run

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cairnlab/cairn/internal/config"
	"github.com/cairnlab/cairn/internal/gitmeta"
	"github.com/cairnlab/cairn/internal/ledger"
	"github.com/cairnlab/cairn/internal/report"
	"github.com/cairnlab/cairn/internal/workflow"
)

var (
	cfgPath       string
	flagMode      string
	flagTarget    string
	flagOnFailure string
	flagLogJSON   bool
)

// Cmd represents the `cairn run` command.
var Cmd = &cobra.Command{
	Use:           "run",
	Short:         "Execute a workflow, recording or verifying output fingerprints",
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

		mode := workflow.Mode(flagMode)
		onFailure := workflow.FailurePolicy(flagOnFailure)
		rep := newReporter()

		w, l, err := BuildWorkflow(cfg, mode, onFailure, rep)
		if err != nil {
			return err
		}
		if w.Mode() == workflow.ModeRecord {
			stampProvenance(l)
			if err := l.Save(); err != nil {
				return err
			}
		}

		_, runErr := w.Run(cmd.Context(), flagTarget)
		printSummary(os.Stdout, w, flagTarget)
		return evaluateRunExit(runErr)
	},
}

func newReporter() report.Reporter {
	if flagLogJSON {
		return report.NewLog(zerolog.New(os.Stderr).With().Timestamp().Logger())
	}
	return report.NewWriter(os.Stderr)
}

// stampProvenance records the enclosing git commit when there is one; a
// workflow outside any repository is not an error.
func stampProvenance(l *ledger.Ledger) {
	info, err := gitmeta.Describe(".")
	if err != nil {
		return
	}
	l.SetProvenance(ledger.Provenance{
		Commit:     info.Commit,
		Dirty:      info.Dirty,
		RecordedAt: info.RecordedAt.Format(time.RFC3339),
	})
}

func init() {
	Cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to workflow definition (.cue)")
	Cmd.Flags().StringVar(&flagMode, "mode", "record", "Run mode: record or verify")
	Cmd.Flags().StringVar(&flagTarget, "target", "", "Run only this stage and its dependencies")
	Cmd.Flags().StringVar(&flagOnFailure, "on-failure", "stop", "Verify failure policy: stop or continue")
	Cmd.Flags().BoolVar(&flagLogJSON, "log-json", false, "Emit structured JSON logs")
}
