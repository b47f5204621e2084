package replay

import (
	"context"
	"fmt"

	"github.com/progsynth/ast-env/go-env/internal/encoding"
	"github.com/progsynth/ast-env/go-env/internal/env"
	"github.com/progsynth/ast-env/go-env/internal/verify"
)

// #region outcome

// StepOutcome is the observed trace of one replayed step.
type StepOutcome struct {
	Step      int
	Action    int32
	Reward    int32
	Done      bool
	LiveNodes int
	LiveEdges int
	Verified  bool
	Reason    string
}

// #endregion outcome

// #region run

// Run drives a real environment over the fixture's scripted engine tape and
// returns the per-step trace. Fixtures should pin num_assignments and
// code_per_assignment to 1 so sampling cannot diverge between runs.
func Run(ctx context.Context, f *Fixture) ([]StepOutcome, error) {
	cfg := f.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fixture config: %w", err)
	}

	load, err := f.Load.ToRecord(cfg)
	if err != nil {
		return nil, fmt.Errorf("fixture load state: %w", err)
	}
	steps := make([]ScriptedStep, len(f.Steps))
	for i, fs := range f.Steps {
		rec, err := fs.State.ToRecord(cfg)
		if err != nil {
			return nil, fmt.Errorf("fixture step %d: %w", i+1, err)
		}
		steps[i] = ScriptedStep{State: rec, Reward: fs.Reward}
	}

	eng := NewScriptedEngine(load, steps)
	environment, err := env.New(ctx, cfg, eng)
	if err != nil {
		return nil, fmt.Errorf("build env: %w", err)
	}
	defer environment.Close()

	obs, err := environment.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	if v := verify.Check(obs, cfg); !v.Passed {
		return nil, fmt.Errorf("reset observation: %s", v.Reason)
	}

	outcomes := make([]StepOutcome, 0, len(f.Steps))
	for i, fs := range f.Steps {
		res, err := environment.Step(ctx, fs.Action)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		d := encoding.Unpad(res.Observation)
		v := verify.Check(res.Observation, cfg)
		outcomes = append(outcomes, StepOutcome{
			Step:      i + 1,
			Action:    fs.Action,
			Reward:    res.Reward,
			Done:      res.Done,
			LiveNodes: len(d.Nodes),
			LiveEdges: len(d.Edges),
			Verified:  v.Passed,
			Reason:    v.Reason,
		})
		if res.Done {
			break
		}
	}
	return outcomes, nil
}

// #endregion run

// #region compare

// Compare checks a trace against the fixture's expectations, returning one
// error string per mismatch.
func Compare(f *Fixture, outcomes []StepOutcome) []string {
	var mismatches []string
	if len(outcomes) != len(f.Expected) {
		mismatches = append(mismatches,
			fmt.Sprintf("expected %d steps, got %d", len(f.Expected), len(outcomes)))
	}
	n := len(outcomes)
	if len(f.Expected) < n {
		n = len(f.Expected)
	}
	for i := 0; i < n; i++ {
		want, got := f.Expected[i], outcomes[i]
		if got.Step != want.Step {
			mismatches = append(mismatches, fmt.Sprintf("step %d: step index %d, want %d", i+1, got.Step, want.Step))
		}
		if got.Reward != want.Reward {
			mismatches = append(mismatches, fmt.Sprintf("step %d: reward %d, want %d", want.Step, got.Reward, want.Reward))
		}
		if got.Done != want.Done {
			mismatches = append(mismatches, fmt.Sprintf("step %d: done %v, want %v", want.Step, got.Done, want.Done))
		}
		if got.LiveNodes != want.LiveNodes {
			mismatches = append(mismatches, fmt.Sprintf("step %d: live nodes %d, want %d", want.Step, got.LiveNodes, want.LiveNodes))
		}
		if got.LiveEdges != want.LiveEdges {
			mismatches = append(mismatches, fmt.Sprintf("step %d: live edges %d, want %d", want.Step, got.LiveEdges, want.LiveEdges))
		}
		if !got.Verified {
			mismatches = append(mismatches, fmt.Sprintf("step %d: %s", want.Step, got.Reason))
		}
	}
	return mismatches
}

// #endregion compare
