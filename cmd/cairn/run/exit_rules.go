package run

import (
	"errors"

	"github.com/cairnlab/cairn/internal/workflow"
)

const (
	exitCodeSuccess = 0
	exitCodeExecErr = 1
	exitCodeRepro   = 2
)

type runExitError struct {
	code int
	msg  string
}

func (e runExitError) Error() string { return e.msg }
func (e runExitError) ExitCode() int { return e.code }

// evaluateRunExit maps a run outcome onto the CLI exit contract: 0 for
// success, 2 for reproduction mismatches, 1 for everything else.
func evaluateRunExit(runErr error) error {
	if runErr == nil {
		return nil
	}
	var failure *workflow.ReproductionFailure
	if errors.As(runErr, &failure) || errors.Is(runErr, workflow.ErrRunFailed) {
		return runExitError{code: exitCodeRepro, msg: runErr.Error()}
	}
	return runExitError{code: exitCodeExecErr, msg: runErr.Error()}
}
