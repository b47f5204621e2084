package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/progsynth/ast-env/go-env/internal/schema"
	"github.com/progsynth/ast-env/go-env/internal/state"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a capacity
// schema, a scripted engine tape, and the expected per-step trace.
type Fixture struct {
	Description string            `json:"description"`
	Config      schema.Config     `json:"config"`
	Load        FixtureState      `json:"load"`
	Steps       []FixtureStep     `json:"steps"`
	Expected    []ExpectedOutcome `json:"expected"`
}

// FixtureState is an unpadded state snapshot: only live entries are listed,
// and counters are derived from the slice lengths when expanded to capacity.
type FixtureState struct {
	Nodes            []int32    `json:"nodes"`
	Starter          []int32    `json:"starter"`
	Edges            [][3]int32 `json:"edges"`
	VarsInScope      []int32    `json:"vars_in_scope"`
	ArgsInScope      [][2]int32 `json:"args_in_scope"`
	PermittedActions []int32    `json:"permitted_actions"`
	Cursor           int32      `json:"cursor"`
}

// FixtureStep is one tape entry: the action the caller takes, the engine's
// post-apply state, and the check result.
type FixtureStep struct {
	Action int32        `json:"action"`
	State  FixtureState `json:"state"`
	Reward int32        `json:"reward"`
}

// ExpectedOutcome captures the expected trace for one step.
type ExpectedOutcome struct {
	Step      int   `json:"step"`
	Reward    int32 `json:"reward"`
	Done      bool  `json:"done"`
	LiveNodes int   `json:"live_nodes"`
	LiveEdges int   `json:"live_edges"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToRecord expands an unpadded snapshot to a capacity-shaped record with
// authoritative counters set from the live lengths.
func (fs FixtureState) ToRecord(cfg schema.Config) (*state.Record, error) {
	if len(fs.Nodes) != len(fs.Starter) {
		return nil, fmt.Errorf("fixture state: %d nodes but %d starter entries", len(fs.Nodes), len(fs.Starter))
	}
	if len(fs.Nodes) > cfg.MaxNumNodes {
		return nil, fmt.Errorf("fixture state: %d nodes exceed capacity %d", len(fs.Nodes), cfg.MaxNumNodes)
	}
	if len(fs.Edges) > cfg.EdgeCapacity() {
		return nil, fmt.Errorf("fixture state: %d edges exceed capacity %d", len(fs.Edges), cfg.EdgeCapacity())
	}
	if len(fs.VarsInScope) > cfg.MaxNumVars || len(fs.ArgsInScope) > cfg.MaxNumVars {
		return nil, fmt.Errorf("fixture state: scope entries exceed capacity %d", cfg.MaxNumVars)
	}
	if len(fs.PermittedActions) != cfg.MaskSize() {
		return nil, fmt.Errorf("fixture state: mask length %d, want %d", len(fs.PermittedActions), cfg.MaskSize())
	}

	rec := state.NewRecord(cfg)
	copy(rec.Nodes, fs.Nodes)
	copy(rec.Starter, fs.Starter)
	copy(rec.Edges, fs.Edges)
	copy(rec.VarsInScope, fs.VarsInScope)
	copy(rec.ArgsInScope, fs.ArgsInScope)
	copy(rec.PermittedActions, fs.PermittedActions)
	rec.Cursor = fs.Cursor
	rec.NumNodes = int32(len(fs.Nodes))
	rec.NumEdges = int32(len(fs.Edges))
	rec.NumVars = int32(len(fs.VarsInScope))
	rec.NumArgs = int32(len(fs.ArgsInScope))
	return rec, nil
}

// #endregion fixture-loader
