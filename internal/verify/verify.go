// Package verify runs lightweight structural validation on padded
// observations: shape constancy, sentinel boundary monotonicity, and edge
// well-formedness. A failure here means the engine or the encoder broke an
// invariant, not a recoverable runtime condition.
package verify

import (
	"fmt"

	"github.com/progsynth/ast-env/go-env/internal/encoding"
	"github.com/progsynth/ast-env/go-env/internal/schema"
)

// #region types

// Metric captures a single validation check result.
type Metric struct {
	Name  string
	Value int32
	Pass  bool
}

// Result is the output of observation validation.
type Result struct {
	Passed  bool
	Metrics []Metric
	Reason  string
}

// #endregion types

// #region check

// Check validates one observation against the capacity schema.
func Check(obs encoding.Observation, cfg schema.Config) Result {
	var metrics []Metric
	passed := true
	var failReasons []string

	record := func(name string, value int32, pass bool, reason string) {
		metrics = append(metrics, Metric{Name: name, Value: value, Pass: pass})
		if !pass {
			passed = false
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Shape constancy: every field at exactly its capacity
	shapes := []struct {
		name string
		got  int
		want int
	}{
		{"nodes_len", len(obs.Nodes), cfg.MaxNumNodes},
		{"edges_len", len(obs.Edges), cfg.EdgeCapacity()},
		{"starter_len", len(obs.Starter), cfg.MaxNumNodes},
		{"mask_len", len(obs.PermittedActions), cfg.MaskSize()},
		{"vars_len", len(obs.VarsInScope), cfg.MaxNumVars},
		{"args_len", len(obs.ArgsInScope), cfg.MaxNumVars},
	}
	for _, s := range shapes {
		record(s.name, int32(s.got), s.got == s.want,
			fmt.Sprintf("%s is %d, want %d", s.name, s.got, s.want))
	}

	// 2. Sentinel monotonicity per marker slot: no live entry after the
	// first sentinel within the same field
	nodeBoundary := markerBoundary(len(obs.Nodes), func(i int) int32 { return obs.Nodes[i] })
	edgeBoundary := markerBoundary(len(obs.Edges), func(i int) int32 { return obs.Edges[i][0] })
	varBoundary := markerBoundary(len(obs.VarsInScope), func(i int) int32 { return obs.VarsInScope[i] })
	argBoundary := markerBoundary(len(obs.ArgsInScope), func(i int) int32 { return obs.ArgsInScope[i][0] })

	monos := []struct {
		name     string
		boundary int
		ok       bool
	}{
		{"nodes_monotone", nodeBoundary.live, nodeBoundary.monotone},
		{"edges_monotone", edgeBoundary.live, edgeBoundary.monotone},
		{"vars_monotone", varBoundary.live, varBoundary.monotone},
		{"args_monotone", argBoundary.live, argBoundary.monotone},
	}
	for _, m := range monos {
		record(m.name, int32(m.boundary), m.ok,
			fmt.Sprintf("%s: live entry after sentinel at boundary %d", m.name, m.boundary))
	}

	// 3. Mask domain: strictly {0,1}
	maskOK := true
	for _, v := range obs.PermittedActions {
		if v != 0 && v != 1 {
			maskOK = false
			break
		}
	}
	record("mask_binary", int32(len(obs.PermittedActions)), maskOK, "mask contains values outside {0,1}")

	// 4. Edge well-formedness: live endpoints inside the live node range
	edgesOK := true
	for i := 0; i < edgeBoundary.live && i < len(obs.Edges); i++ {
		src, dst := obs.Edges[i][0], obs.Edges[i][1]
		if src < 0 || int(src) >= nodeBoundary.live || dst < 0 || int(dst) >= nodeBoundary.live {
			edgesOK = false
			break
		}
	}
	record("edge_endpoints", int32(edgeBoundary.live), edgesOK,
		fmt.Sprintf("edge endpoint outside live node range [0, %d)", nodeBoundary.live))

	// 5. Cursor bounds
	cursorOK := obs.CursorPosition >= 0 && int(obs.CursorPosition) < cfg.MaxNumNodes
	record("cursor", obs.CursorPosition, cursorOK,
		fmt.Sprintf("cursor %d outside [0, %d)", obs.CursorPosition, cfg.MaxNumNodes))

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("verify failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("verify failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return Result{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion check

// #region helpers

type boundary struct {
	live     int  // index of the first sentinel, or length if none
	monotone bool // no live marker after the first sentinel
}

func markerBoundary(n int, marker func(int) int32) boundary {
	live := n
	for i := 0; i < n; i++ {
		if marker(i) == encoding.Sentinel {
			live = i
			break
		}
	}
	for i := live; i < n; i++ {
		if marker(i) != encoding.Sentinel {
			return boundary{live: live, monotone: false}
		}
	}
	return boundary{live: live, monotone: true}
}

// #endregion helpers
