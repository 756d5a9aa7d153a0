package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "workflow.cue")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

const fullConfig = `
configVersion: "1"
workflow: {
	title:       "ablation study"
	authors:     ["a", "b"]
	description: "demo"
	seed:        42
	sharedDir:   "shared"
	recordDir:   "experiment"
	verifyDir:   "reproduction"
	ledger:      "cairn.yaml"
}
stages: [
	{
		id: "prep"
		outputs: ["dataset.csv"]
		shell: {
			program: "python3"
			args: ["prep.py"]
			env: {PYTHONHASHSEED: "0"}
			timeoutMs: 30000
		}
	},
	{
		id:              "train"
		description:     "fit model"
		dependsOn:       ["prep"]
		skipIfUnchanged: true
		policy: {tier: "standard", toleranceAbsolute: 0.01}
		outputs: [
			{path: "results/metrics.csv", hashMethod: "sha256"},
			{path: "model.bin", shared: false, policy: {tier: "ignore"}},
		]
		lua: {script: "return 1", timeoutMs: 500, instructionLimit: 0}
	},
]
`

func TestLoad_FullDefinition(t *testing.T) {
	w, err := Load(writeConfig(t, fullConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if w.ConfigVersion != "1" || w.Title != "ablation study" || len(w.Authors) != 2 {
		t.Fatalf("workflow header mismatch: %+v", w)
	}
	if w.Seed == nil || *w.Seed != 42 {
		t.Fatalf("seed not decoded: %+v", w.Seed)
	}
	if len(w.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(w.Stages))
	}

	prep := w.Stages[0]
	if prep.ID != "prep" || prep.Shell == nil || prep.Lua != nil {
		t.Fatalf("prep stage mismatch: %+v", prep)
	}
	if prep.Shell.Program != "python3" || prep.Shell.Env["PYTHONHASHSEED"] != "0" || prep.Shell.TimeoutMs != 30000 {
		t.Fatalf("shell section mismatch: %+v", prep.Shell)
	}
	if len(prep.Outputs) != 1 || prep.Outputs[0].Path != "dataset.csv" {
		t.Fatalf("string-form output mismatch: %+v", prep.Outputs)
	}

	train := w.Stages[1]
	if train.Lua == nil || train.Lua.Script != "return 1" || train.Lua.TimeoutMs != 500 {
		t.Fatalf("lua section mismatch: %+v", train.Lua)
	}
	if train.Lua.InstructionLimit == nil || *train.Lua.InstructionLimit != 0 {
		t.Fatalf("explicit instructionLimit not decoded: %+v", train.Lua.InstructionLimit)
	}
	if !train.SkipIfUnchanged || len(train.DependsOn) != 1 {
		t.Fatalf("stage flags mismatch: %+v", train)
	}
	if train.Policy == nil || train.Policy.Tier != "standard" || *train.Policy.ToleranceAbsolute != 0.01 {
		t.Fatalf("stage policy mismatch: %+v", train.Policy)
	}
	second := train.Outputs[1]
	if second.Shared == nil || *second.Shared || second.Policy == nil || second.Policy.Tier != "ignore" {
		t.Fatalf("output override mismatch: %+v", second)
	}
}

func TestLoad_RejectsNonCue(t *testing.T) {
	p := filepath.Join(t.TempDir(), "workflow.yaml")
	if err := os.WriteFile(p, []byte("x: 1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil || !strings.Contains(err.Error(), "expected .cue") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestLoad_MissingConfigVersion(t *testing.T) {
	_, err := Load(writeConfig(t, `stages: [{id: "s", lua: {script: "return 1"}}]`))
	if err == nil || !strings.Contains(err.Error(), "configVersion") {
		t.Fatalf("expected missing-field error, got %v", err)
	}
}

func TestLoad_StageNeedsExactlyOneHandler(t *testing.T) {
	_, err := Load(writeConfig(t, `
configVersion: "1"
stages: [{id: "s"}]
`))
	if err == nil || !strings.Contains(err.Error(), "shell or lua") {
		t.Fatalf("expected handler error, got %v", err)
	}

	_, err = Load(writeConfig(t, `
configVersion: "1"
stages: [{id: "s", shell: {program: "true"}, lua: {script: "return 1"}}]
`))
	if err == nil || !strings.Contains(err.Error(), "both shell and lua") {
		t.Fatalf("expected both-handlers error, got %v", err)
	}
}

func TestLoad_EmptyStages(t *testing.T) {
	_, err := Load(writeConfig(t, `
configVersion: "1"
stages: []
`))
	if err == nil || !strings.Contains(err.Error(), "stages") {
		t.Fatalf("expected empty-stages error, got %v", err)
	}
}
