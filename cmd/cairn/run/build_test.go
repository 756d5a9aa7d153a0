package run

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cairnlab/cairn/internal/config"
	"github.com/cairnlab/cairn/internal/report"
	"github.com/cairnlab/cairn/internal/workflow"
)

func testConfig(t *testing.T) config.Workflow {
	t.Helper()
	base := t.TempDir()
	seed := int64(7)
	return config.Workflow{
		ConfigVersion: "1",
		Title:         "demo",
		Seed:          &seed,
		SharedDir:     filepath.Join(base, "shared"),
		RecordDir:     filepath.Join(base, "experiment"),
		VerifyDir:     filepath.Join(base, "reproduction"),
		LedgerPath:    filepath.Join(base, "cairn.yaml"),
		Stages: []config.StageConfig{
			{ID: "prep", Lua: &config.LuaStage{Script: "return 1"}},
			{
				ID:        "train",
				DependsOn: []string{"prep"},
				Outputs:   []config.OutputConfig{{Path: "results/out.txt"}},
				Shell:     &config.ShellStage{Program: "sh", Args: []string{"-c", "mkdir -p $(dirname results/out.txt)"}},
			},
		},
	}
}

func TestBuildWorkflow_RegistersStages(t *testing.T) {
	cfg := testConfig(t)
	w, l, err := BuildWorkflow(cfg, workflow.ModeRecord, workflow.FailStop, report.Nop{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := w.Stages(); len(got) != 2 || got[0] != "prep" || got[1] != "train" {
		t.Fatalf("unexpected stage set: %v", got)
	}
	if l.Seed() == nil || *l.Seed() != 7 {
		t.Fatalf("seed not applied to ledger: %+v", l.Seed())
	}
	plan, err := w.Plan("train")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan) != 2 || plan[0] != "prep" {
		t.Fatalf("unexpected plan: %v", plan)
	}
}

func TestBuildWorkflow_LuaHandlerSeesModeAndSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stages = []config.StageConfig{{
		ID:  "probe",
		Lua: &config.LuaStage{Script: `return mode .. ":" .. tostring(seed)`},
	}}
	w, _, err := BuildWorkflow(cfg, workflow.ModeVerify, workflow.FailContinue, report.Nop{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	results, err := w.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results["probe"] != "verify:7" {
		t.Fatalf("handler globals wrong: %v", results["probe"])
	}
}

func TestEvaluateRunExit(t *testing.T) {
	if err := evaluateRunExit(nil); err != nil {
		t.Fatalf("nil run error must map to success, got %v", err)
	}

	err := evaluateRunExit(&workflow.ReproductionFailure{StageID: "s"})
	var ec runExitError
	if !errors.As(err, &ec) || ec.ExitCode() != exitCodeRepro {
		t.Fatalf("reproduction failure must exit %d, got %v", exitCodeRepro, err)
	}

	err = evaluateRunExit(workflow.ErrRunFailed)
	if !errors.As(err, &ec) || ec.ExitCode() != exitCodeRepro {
		t.Fatalf("aggregate failure must exit %d, got %v", exitCodeRepro, err)
	}

	err = evaluateRunExit(errors.New("boom"))
	if !errors.As(err, &ec) || ec.ExitCode() != exitCodeExecErr {
		t.Fatalf("generic error must exit %d, got %v", exitCodeExecErr, err)
	}
}
