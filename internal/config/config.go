// Package config loads workflow definition files written in CUE: workflow
// metadata, directory roots, and the stage list with shell or lua handlers.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Workflow is the decoded definition file.
type Workflow struct {
	ConfigVersion string

	Title       string
	Description string
	Authors     []string
	Seed        *int64

	SharedDir  string
	RecordDir  string
	VerifyDir  string
	LedgerPath string

	Stages []StageConfig
}

// PolicyConfig mirrors a comparison policy block at stage or output level.
type PolicyConfig struct {
	Tier                string
	ToleranceAbsolute   *float64
	ToleranceRelative   *float64
	SimilarityThreshold *float64
}

// OutputConfig is one declared output path.
type OutputConfig struct {
	Path       string
	Shared     *bool
	HashMethod string
	Policy     *PolicyConfig
}

// ShellStage configures an external command handler.
type ShellStage struct {
	Program    string
	Args       []string
	WorkingDir string
	Env        map[string]string
	TimeoutMs  int
}

// LuaStage configures an inline sandboxed script handler. A nil
// InstructionLimit keeps the sandbox default; an explicit 0 disables the
// static instruction check.
type LuaStage struct {
	Script           string
	TimeoutMs        int
	InstructionLimit *int
	MemoryLimitBytes int
}

// StageConfig is one stage in the definition file. Exactly one of Shell or
// Lua is set.
type StageConfig struct {
	ID              string
	Description     string
	DependsOn       []string
	SkipIfUnchanged bool
	Policy          *PolicyConfig
	Outputs         []OutputConfig
	Shell           *ShellStage
	Lua             *LuaStage
}

// Load reads and validates a CUE workflow definition.
func Load(path string) (Workflow, error) {
	v, err := compileCUE(path)
	if err != nil {
		return Workflow{}, err
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Workflow{}, err
	}

	var w Workflow
	_ = v.LookupPath(cue.ParsePath("configVersion")).Decode(&w.ConfigVersion)
	parseWorkflowSection(v, &w)

	sv := v.LookupPath(cue.ParsePath("stages"))
	if !sv.Exists() || sv.Kind() != cue.ListKind {
		return Workflow{}, errors.New("missing required field: stages (expected list)")
	}
	iter, err := sv.List()
	if err != nil {
		return Workflow{}, fmt.Errorf("invalid stages list: %v", err)
	}
	for iter.Next() {
		st, err := parseStage(iter.Value())
		if err != nil {
			return Workflow{}, err
		}
		w.Stages = append(w.Stages, st)
	}
	if len(w.Stages) == 0 {
		return Workflow{}, errors.New("stages list is empty")
	}
	return w, nil
}

// compileCUE loads and compiles a CUE file at the given path.
func compileCUE(path string) (cue.Value, error) {
	if filepath.Ext(path) != ".cue" {
		return cue.Value{}, errors.New("unsupported config format: expected .cue")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("invalid config: %v", err)
	}
	return v, nil
}

func requireStringField(v cue.Value, name string) error {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return fmt.Errorf("missing required field: %s", name)
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", name)
	}
	return nil
}

// parseWorkflowSection extracts optional workflow.* metadata and roots.
func parseWorkflowSection(v cue.Value, w *Workflow) {
	wv := v.LookupPath(cue.ParsePath("workflow"))
	if !wv.Exists() {
		return
	}
	decodeString(wv, "title", &w.Title)
	decodeString(wv, "description", &w.Description)
	decodeString(wv, "sharedDir", &w.SharedDir)
	decodeString(wv, "recordDir", &w.RecordDir)
	decodeString(wv, "verifyDir", &w.VerifyDir)
	decodeString(wv, "ledger", &w.LedgerPath)

	av := wv.LookupPath(cue.ParsePath("authors"))
	if av.Exists() && av.Kind() == cue.ListKind {
		_ = av.Decode(&w.Authors)
	}
	sv := wv.LookupPath(cue.ParsePath("seed"))
	if sv.Exists() && sv.Kind() == cue.IntKind {
		var seed int64
		if err := sv.Decode(&seed); err == nil {
			w.Seed = &seed
		}
	}
}

func decodeString(v cue.Value, name string, dst *string) {
	f := v.LookupPath(cue.ParsePath(name))
	if f.Exists() && f.Kind() == cue.StringKind {
		_ = f.Decode(dst)
	}
}

func decodeInt(v cue.Value, name string, dst *int) {
	f := v.LookupPath(cue.ParsePath(name))
	if f.Exists() && f.Kind() == cue.IntKind {
		_ = f.Decode(dst)
	}
}

func decodeIntPtr(v cue.Value, name string, dst **int) {
	f := v.LookupPath(cue.ParsePath(name))
	if f.Exists() && f.Kind() == cue.IntKind {
		var x int
		if err := f.Decode(&x); err == nil {
			*dst = &x
		}
	}
}

func decodeFloatPtr(v cue.Value, name string, dst **float64) {
	f := v.LookupPath(cue.ParsePath(name))
	if f.Exists() && (f.Kind() == cue.FloatKind || f.Kind() == cue.IntKind || f.Kind() == cue.NumberKind) {
		var x float64
		if err := f.Decode(&x); err == nil {
			*dst = &x
		}
	}
}

func decodeBoolPtr(v cue.Value, name string, dst **bool) {
	f := v.LookupPath(cue.ParsePath(name))
	if f.Exists() && f.Kind() == cue.BoolKind {
		var b bool
		if err := f.Decode(&b); err == nil {
			*dst = &b
		}
	}
}
