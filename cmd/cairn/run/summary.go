package run

import (
	"fmt"
	"io"

	"github.com/cairnlab/cairn/internal/workflow"
)

// printSummary writes one line per planned stage after a run: final status
// plus how many files were validated and how many of those passed.
func printSummary(w io.Writer, wf *workflow.Workflow, target string) {
	plan, err := wf.Plan(target)
	if err != nil {
		return
	}
	checked := map[string]int{}
	passed := map[string]int{}
	for _, res := range wf.ValidationResults() {
		checked[res.Stage]++
		if res.Passed {
			passed[res.Stage]++
		}
	}
	for _, id := range plan {
		status := wf.StageStatus(id)
		if n := checked[id]; n > 0 {
			fmt.Fprintf(w, "summary stage=%s status=%s files=%d passed=%d\n", id, status, n, passed[id])
			continue
		}
		fmt.Fprintf(w, "summary stage=%s status=%s\n", id, status)
	}
}
