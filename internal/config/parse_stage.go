package config

import (
	"fmt"

	"cuelang.org/go/cue"
)

// parseStage extracts one stage block and enforces that exactly one handler
// kind is configured.
func parseStage(v cue.Value) (StageConfig, error) {
	var st StageConfig
	decodeString(v, "id", &st.ID)
	if st.ID == "" {
		return StageConfig{}, fmt.Errorf("stage is missing required field: id")
	}
	decodeString(v, "description", &st.Description)

	dv := v.LookupPath(cue.ParsePath("dependsOn"))
	if dv.Exists() && dv.Kind() == cue.ListKind {
		if err := dv.Decode(&st.DependsOn); err != nil {
			return StageConfig{}, fmt.Errorf("stage %s: invalid dependsOn: %v", st.ID, err)
		}
	}
	sv := v.LookupPath(cue.ParsePath("skipIfUnchanged"))
	if sv.Exists() && sv.Kind() == cue.BoolKind {
		_ = sv.Decode(&st.SkipIfUnchanged)
	}
	st.Policy = parsePolicySection(v)

	ov := v.LookupPath(cue.ParsePath("outputs"))
	if ov.Exists() && ov.Kind() == cue.ListKind {
		iter, err := ov.List()
		if err != nil {
			return StageConfig{}, fmt.Errorf("stage %s: invalid outputs: %v", st.ID, err)
		}
		for iter.Next() {
			out, err := parseOutput(st.ID, iter.Value())
			if err != nil {
				return StageConfig{}, err
			}
			st.Outputs = append(st.Outputs, out)
		}
	}

	st.Shell = parseShellSection(v)
	st.Lua = parseLuaSection(v)
	switch {
	case st.Shell == nil && st.Lua == nil:
		return StageConfig{}, fmt.Errorf("stage %s needs a shell or lua handler", st.ID)
	case st.Shell != nil && st.Lua != nil:
		return StageConfig{}, fmt.Errorf("stage %s declares both shell and lua handlers", st.ID)
	}
	return st, nil
}

func parseOutput(stageID string, v cue.Value) (OutputConfig, error) {
	var out OutputConfig
	if v.Kind() == cue.StringKind {
		_ = v.Decode(&out.Path)
		return out, nil
	}
	decodeString(v, "path", &out.Path)
	if out.Path == "" {
		return OutputConfig{}, fmt.Errorf("stage %s declares an output without a path", stageID)
	}
	decodeBoolPtr(v, "shared", &out.Shared)
	decodeString(v, "hashMethod", &out.HashMethod)
	out.Policy = parsePolicySection(v)
	return out, nil
}

// parsePolicySection extracts an optional policy block from a stage or
// output value.
func parsePolicySection(v cue.Value) *PolicyConfig {
	pv := v.LookupPath(cue.ParsePath("policy"))
	if !pv.Exists() {
		return nil
	}
	var p PolicyConfig
	decodeString(pv, "tier", &p.Tier)
	decodeFloatPtr(pv, "toleranceAbsolute", &p.ToleranceAbsolute)
	decodeFloatPtr(pv, "toleranceRelative", &p.ToleranceRelative)
	decodeFloatPtr(pv, "similarityThreshold", &p.SimilarityThreshold)
	return &p
}

// parseShellSection extracts optional shell.* fields.
func parseShellSection(v cue.Value) *ShellStage {
	sv := v.LookupPath(cue.ParsePath("shell"))
	if !sv.Exists() {
		return nil
	}
	var s ShellStage
	decodeString(sv, "program", &s.Program)
	av := sv.LookupPath(cue.ParsePath("args"))
	if av.Exists() && av.Kind() == cue.ListKind {
		_ = av.Decode(&s.Args)
	}
	decodeString(sv, "workingDir", &s.WorkingDir)
	ev := sv.LookupPath(cue.ParsePath("env"))
	if ev.Exists() {
		tmp := map[string]string{}
		if err := ev.Decode(&tmp); err == nil {
			s.Env = tmp
		}
	}
	decodeInt(sv, "timeoutMs", &s.TimeoutMs)
	return &s
}

// parseLuaSection extracts optional lua.* fields.
func parseLuaSection(v cue.Value) *LuaStage {
	lv := v.LookupPath(cue.ParsePath("lua"))
	if !lv.Exists() {
		return nil
	}
	var l LuaStage
	decodeString(lv, "script", &l.Script)
	decodeInt(lv, "timeoutMs", &l.TimeoutMs)
	decodeIntPtr(lv, "instructionLimit", &l.InstructionLimit)
	decodeInt(lv, "memoryLimitBytes", &l.MemoryLimitBytes)
	return &l
}
