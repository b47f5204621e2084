// Package encoding converts between the engine's raw, count-delimited AST
// record and the fixed-capacity sentinel-padded observation consumed by a
// learner. Pad and Unpad are pure transforms: they copy, never alias, and
// have no error path over well-formed input.
package encoding

import (
	"fmt"

	"github.com/progsynth/ast-env/go-env/internal/schema"
	"github.com/progsynth/ast-env/go-env/internal/state"
)

// Sentinel marks unused positions in a fixed-capacity array. It is reserved:
// node indices and descriptor codes are non-negative, so -1 is never live
// data in any observation field.
const Sentinel int32 = -1

// #region observation

// Observation is the fixed-shape numeric view of one AST state. Every field
// is exactly capacity-shaped; positions at or past the live length hold the
// sentinel in their marker slot.
type Observation struct {
	Nodes            []int32    `json:"nodes"`
	Edges            [][3]int32 `json:"edges"`
	Starter          []int32    `json:"starter"`
	PermittedActions []int32    `json:"permitted_actions"`
	CursorPosition   int32      `json:"cursor_position"`
	VarsInScope      []int32    `json:"vars_in_scope"`
	ArgsInScope      [][2]int32 `json:"args_in_scope"`
	Assignment       int32      `json:"assignment"`
}

// #endregion observation

// #region pad

// Pad copies the learner-visible fields out of a raw record and extends each
// variable-length field to its capacity with the sentinel: Nodes and Starter
// beyond NumNodes, the first edge component beyond NumEdges, VarsInScope
// beyond NumVars, the first argument component beyond NumArgs. Only the
// marker slot of a tuple field needs the sentinel; Unpad inspects nothing
// else.
//
// A count exceeding its capacity is a capacity overflow: Pad fails loudly
// rather than truncating, since truncation would silently corrupt the
// live/padded boundary.
func Pad(rec *state.Record, cfg schema.Config) (Observation, error) {
	if err := checkCounts(rec, cfg); err != nil {
		return Observation{}, err
	}

	obs := Observation{
		Nodes:            append([]int32(nil), rec.Nodes...),
		Edges:            append([][3]int32(nil), rec.Edges...),
		Starter:          append([]int32(nil), rec.Starter...),
		PermittedActions: append([]int32(nil), rec.PermittedActions...),
		CursorPosition:   rec.Cursor,
		VarsInScope:      append([]int32(nil), rec.VarsInScope...),
		ArgsInScope:      append([][2]int32(nil), rec.ArgsInScope...),
		Assignment:       rec.Assignment,
	}

	for i := int(rec.NumNodes); i < cfg.MaxNumNodes; i++ {
		obs.Nodes[i] = Sentinel
		obs.Starter[i] = Sentinel
	}
	for i := int(rec.NumEdges); i < cfg.EdgeCapacity(); i++ {
		obs.Edges[i][0] = Sentinel
	}
	for i := int(rec.NumVars); i < cfg.MaxNumVars; i++ {
		obs.VarsInScope[i] = Sentinel
	}
	for i := int(rec.NumArgs); i < cfg.MaxNumVars; i++ {
		obs.ArgsInScope[i][0] = Sentinel
	}

	return obs, nil
}

func checkCounts(rec *state.Record, cfg schema.Config) error {
	checks := []struct {
		name string
		n    int32
		max  int
	}{
		{"num_nodes", rec.NumNodes, cfg.MaxNumNodes},
		{"num_edges", rec.NumEdges, cfg.EdgeCapacity()},
		{"num_vars", rec.NumVars, cfg.MaxNumVars},
		{"num_args", rec.NumArgs, cfg.MaxNumVars},
		{"num_tests", rec.NumTests, cfg.MaxNumTests},
	}
	for _, c := range checks {
		if c.n < 0 || int(c.n) > c.max {
			return fmt.Errorf("capacity overflow: %s %d outside [0, %d]", c.name, c.n, c.max)
		}
	}
	return nil
}

// #endregion pad

// #region decoded

// Decoded is the variable-length view recovered from a padded observation,
// used wherever true graph structure is needed (e.g. batched graph
// construction).
type Decoded struct {
	Nodes          []int32
	Edges          [][3]int32
	Starter        []int32
	VarsInScope    []int32
	ArgsInScope    [][2]int32
	CursorPosition int32
	Assignment     int32
}

// #endregion decoded

// #region unpad

// Unpad strips sentinel padding, truncating each field at the first sentinel
// in its marker slot. Fields are independently capped: a sentinel in one
// never moves the boundary of another. No sentinel within capacity means the
// field is fully live. Nodes and Starter share the node count, so both are
// cut at the Nodes boundary.
func Unpad(obs Observation) Decoded {
	nodes := obs.Nodes
	starter := obs.Starter
	for i := range obs.Nodes {
		if obs.Nodes[i] == Sentinel {
			nodes = obs.Nodes[:i]
			starter = obs.Starter[:i]
			break
		}
	}

	edges := obs.Edges
	for i := range obs.Edges {
		if obs.Edges[i][0] == Sentinel {
			edges = obs.Edges[:i]
			break
		}
	}

	vars := obs.VarsInScope
	for i := range obs.VarsInScope {
		if obs.VarsInScope[i] == Sentinel {
			vars = obs.VarsInScope[:i]
			break
		}
	}

	args := obs.ArgsInScope
	for i := range obs.ArgsInScope {
		if obs.ArgsInScope[i][0] == Sentinel {
			args = obs.ArgsInScope[:i]
			break
		}
	}

	return Decoded{
		Nodes:          append([]int32(nil), nodes...),
		Edges:          append([][3]int32(nil), edges...),
		Starter:        append([]int32(nil), starter...),
		VarsInScope:    append([]int32(nil), vars...),
		ArgsInScope:    append([][2]int32(nil), args...),
		CursorPosition: obs.CursorPosition,
		Assignment:     obs.Assignment,
	}
}

// #endregion unpad
