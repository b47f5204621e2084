package replay

import (
	"context"
	"fmt"

	"github.com/progsynth/ast-env/go-env/internal/state"
)

// #region scripted-types

// ScriptedStep is one pre-recorded engine transition.
type ScriptedStep struct {
	State  *state.Record
	Reward int32
}

// ScriptedEngine implements engine.Engine from a fixed tape of transitions.
// Apply ignores the supplied action's semantics (the tape already encodes
// the engine's answer) and plays the next transition; Check returns that
// transition's verdict.
type ScriptedEngine struct {
	load  *state.Record
	steps []ScriptedStep

	pos           int
	pendingReward int32
	closed        bool
}

// #endregion scripted-types

// #region scripted-engine

// NewScriptedEngine builds an engine that replays the given tape.
func NewScriptedEngine(load *state.Record, steps []ScriptedStep) *ScriptedEngine {
	return &ScriptedEngine{load: load, steps: steps}
}

// Init is a no-op: a tape has no randomness to seed.
func (s *ScriptedEngine) Init(_ context.Context, _ int64) error {
	return nil
}

// LoadAssignment rewinds the tape and copies the starting snapshot into rec.
func (s *ScriptedEngine) LoadAssignment(_ context.Context, _ string, assignment, code, _ int32, rec *state.Record) error {
	rec.CopyFrom(s.load)
	rec.Assignment = assignment
	rec.Code = code
	s.pos = 0
	s.pendingReward = 0
	return nil
}

// Apply plays the next tape entry into rec.
func (s *ScriptedEngine) Apply(_ context.Context, rec *state.Record, _ int32) error {
	if s.pos >= len(s.steps) {
		return fmt.Errorf("scripted engine: tape exhausted after %d steps", len(s.steps))
	}
	step := s.steps[s.pos]
	assignment, code := rec.Assignment, rec.Code
	rec.CopyFrom(step.State)
	rec.Assignment = assignment
	rec.Code = code
	s.pendingReward = step.Reward
	s.pos++
	return nil
}

// Check returns the verdict recorded with the last applied transition.
func (s *ScriptedEngine) Check(_ context.Context, _ *state.Record) (int32, error) {
	return s.pendingReward, nil
}

// Render dumps the live node codes and cursor.
func (s *ScriptedEngine) Render(_ context.Context, rec *state.Record) (string, error) {
	return fmt.Sprintf("nodes=%v cursor=%d", rec.Nodes[:rec.NumNodes], rec.Cursor), nil
}

// Close marks the engine released.
func (s *ScriptedEngine) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *ScriptedEngine) Closed() bool {
	return s.closed
}

// #endregion scripted-engine
