package run

import (
	"fmt"

	"github.com/cairnlab/cairn/internal/config"
	"github.com/cairnlab/cairn/internal/fingerprint"
	"github.com/cairnlab/cairn/internal/handler"
	"github.com/cairnlab/cairn/internal/ledger"
	"github.com/cairnlab/cairn/internal/report"
	"github.com/cairnlab/cairn/internal/validate"
	"github.com/cairnlab/cairn/internal/workflow"
)

// BuildWorkflow assembles a workflow from a loaded definition: it opens the
// ledger, applies metadata and seed, and registers every stage with its
// configured handler. Shared by `cairn run` and `cairn plan`.
func BuildWorkflow(cfg config.Workflow, mode workflow.Mode, onFailure workflow.FailurePolicy, rep report.Reporter) (*workflow.Workflow, *ledger.Ledger, error) {
	ledgerPath := cfg.LedgerPath
	if ledgerPath == "" {
		ledgerPath = ledger.DefaultName
	}
	l, err := ledger.Open(ledgerPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Seed != nil {
		l.SetSeed(*cfg.Seed)
	}
	if cfg.Title != "" || cfg.Description != "" || len(cfg.Authors) > 0 {
		l.SetMetadata(ledger.Metadata{
			Title:       cfg.Title,
			Authors:     cfg.Authors,
			Description: cfg.Description,
		})
	}

	w, err := workflow.New(workflow.Options{
		Mode:      mode,
		OnFailure: onFailure,
		Ledger:    l,
		Reporter:  rep,
		SharedDir: cfg.SharedDir,
		RecordDir: cfg.RecordDir,
		VerifyDir: cfg.VerifyDir,
	})
	if err != nil {
		return nil, nil, err
	}

	seed := l.Seed()
	for _, sc := range cfg.Stages {
		st, err := buildStage(sc, mode, seed)
		if err != nil {
			return nil, nil, err
		}
		if err := w.Register(st); err != nil {
			return nil, nil, err
		}
	}
	return w, l, nil
}

func buildStage(sc config.StageConfig, mode workflow.Mode, seed *int64) (workflow.Stage, error) {
	st := workflow.Stage{
		ID:              sc.ID,
		Description:     sc.Description,
		Dependencies:    sc.DependsOn,
		SkipIfUnchanged: sc.SkipIfUnchanged,
	}
	if p := toPolicy(sc.Policy); p != nil {
		st.Policy = *p
	}
	for _, oc := range sc.Outputs {
		st.Outputs = append(st.Outputs, workflow.Output{
			Path:       oc.Path,
			Shared:     oc.Shared,
			HashMethod: fingerprint.Method(oc.HashMethod),
			Policy:     toPolicy(oc.Policy),
		})
	}

	switch {
	case sc.Shell != nil:
		env := map[string]string{"CAIRN_MODE": string(mode)}
		for k, v := range sc.Shell.Env {
			env[k] = v
		}
		st.CodeHandler = sc.Shell.Program
		st.Handler = handler.Shell(handler.ShellConfig{
			Program:    sc.Shell.Program,
			Args:       sc.Shell.Args,
			WorkingDir: sc.Shell.WorkingDir,
			Env:        env,
			TimeoutMs:  sc.Shell.TimeoutMs,
			Seed:       seed,
		})
	case sc.Lua != nil:
		st.CodeHandler = "lua"
		st.Handler = handler.Lua(sc.ID, handler.LuaConfig{
			Script:           sc.Lua.Script,
			TimeoutMs:        sc.Lua.TimeoutMs,
			InstructionLimit: sc.Lua.InstructionLimit,
			MemoryLimitBytes: sc.Lua.MemoryLimitBytes,
			Globals:          map[string]any{"mode": string(mode), "stage": sc.ID},
			Seed:             seed,
		})
	default:
		return workflow.Stage{}, fmt.Errorf("stage %s has no handler", sc.ID)
	}
	return st, nil
}

func toPolicy(p *config.PolicyConfig) *workflow.Policy {
	if p == nil {
		return nil
	}
	return &workflow.Policy{
		Tier:                validate.Tier(p.Tier),
		ToleranceAbsolute:   p.ToleranceAbsolute,
		ToleranceRelative:   p.ToleranceRelative,
		SimilarityThreshold: p.SimilarityThreshold,
	}
}
