// Package env is the reset/step state machine around the native AST engine:
// it owns the current episode's record, samples assignments, derives the
// binary reward, and returns sentinel-padded observations.
package env

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"

	"github.com/progsynth/ast-env/go-env/internal/encoding"
	"github.com/progsynth/ast-env/go-env/internal/engine"
	"github.com/progsynth/ast-env/go-env/internal/schema"
	"github.com/progsynth/ast-env/go-env/internal/state"
)

// #region errors

var (
	// ErrNotReady means Step or Render was called before the first Reset.
	ErrNotReady = errors.New("environment not ready: call Reset first")
	// ErrTerminal means Step was called on a finished episode.
	ErrTerminal = errors.New("episode is terminal: call Reset")
	// ErrClosed means the environment was closed and cannot be reused.
	ErrClosed = errors.New("environment is closed")
	// ErrActionRange means the action is outside [0, NumActions+MaxNumVars).
	ErrActionRange = errors.New("action outside action space")
)

// #endregion errors

// #region phase

type phase int

const (
	phaseUnborn phase = iota
	phaseReady
	phaseTerminal
	phaseClosed
)

// #endregion phase

// #region step-result

// StepResult is the outcome of one Step call. Reward is binary: 1 iff all
// held-out tests pass, and Done is true exactly when Reward is 1.
type StepResult struct {
	Observation encoding.Observation
	Reward      int32
	Done        bool
	Info        map[string]any
}

// #endregion step-result

// #region env-struct

// Env drives exactly one engine handle, strictly sequentially. It is not
// safe for concurrent use; parallel training runs N independent instances.
type Env struct {
	cfg   schema.Config
	eng   engine.Engine
	rng   *rand.Rand
	store *state.Store

	rec       *state.Record
	episodeID string
	stepNum   int
	phase     phase
}

// Option configures an Env at construction.
type Option func(*Env)

// WithStore attaches a SQLite episode store; episodes and steps are logged
// best-effort (a store error never fails the episode loop).
func WithStore(s *state.Store) Option {
	return func(e *Env) { e.store = s }
}

// #endregion env-struct

// #region constructor

// New validates the schema, seeds the engine once, and returns an
// environment in the unborn phase. The engine handle passed in is owned by
// the environment from here on; Close releases it.
func New(ctx context.Context, cfg schema.Config, eng engine.Engine, opts ...Option) (*Env, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	e := &Env{
		cfg: cfg,
		eng: eng,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, o := range opts {
		o(e)
	}
	if err := eng.Init(ctx, cfg.Seed); err != nil {
		return nil, fmt.Errorf("engine init: %w", err)
	}
	return e, nil
}

// Config returns the capacity schema the environment was built with.
func (e *Env) Config() schema.Config {
	return e.cfg
}

// #endregion constructor

// #region reset

// Reset starts a new episode: it samples an assignment uniformly and a code
// variant uniformly within that assignment, loads the starting tree into a
// fresh record, and returns the padded observation.
func (e *Env) Reset(ctx context.Context) (encoding.Observation, error) {
	if e.phase == phaseClosed {
		return encoding.Observation{}, ErrClosed
	}
	if e.store != nil && e.episodeID != "" && e.phase == phaseReady {
		// Abandoned mid-episode: close out the log row as unsolved
		if err := e.store.FinishEpisode(e.episodeID, false); err != nil {
			log.Printf("[ENV] finish episode log: %v", err)
		}
	}

	assignment := int32(e.rng.Intn(e.cfg.NumAssignments))
	code := int32(e.rng.Intn(e.cfg.CodePerAssignment[assignment]))

	rec := state.NewRecord(e.cfg)
	if err := e.eng.LoadAssignment(ctx, e.cfg.AssignmentDir, assignment, code, int32(e.cfg.Perturbation), rec); err != nil {
		return encoding.Observation{}, fmt.Errorf("load assignment %d/%d: %w", assignment, code, err)
	}

	e.rec = rec
	e.stepNum = 0
	e.phase = phaseReady
	e.episodeID = ""

	if e.store != nil {
		row, err := e.store.BeginEpisode(rec.Assignment, rec.Code, e.cfg.Seed)
		if err != nil {
			log.Printf("[ENV] begin episode log: %v", err)
		} else {
			e.episodeID = row.EpisodeID
		}
	}

	obs, err := encoding.Pad(rec, e.cfg)
	if err != nil {
		return encoding.Observation{}, fmt.Errorf("encode reset state: %w", err)
	}
	return obs, nil
}

// #endregion reset

// #region step

// Step applies one action and checks the program against the held-out tests.
// The action's numeric range is guarded here; mask legality is not — callers
// must pick from PermittedActions themselves.
func (e *Env) Step(ctx context.Context, action int32) (StepResult, error) {
	switch e.phase {
	case phaseClosed:
		return StepResult{}, ErrClosed
	case phaseUnborn:
		return StepResult{}, ErrNotReady
	case phaseTerminal:
		return StepResult{}, ErrTerminal
	}
	if action < 0 || int(action) >= e.cfg.ActionSpaceSize() {
		return StepResult{}, fmt.Errorf("%w: %d not in [0, %d)", ErrActionRange, action, e.cfg.ActionSpaceSize())
	}

	if err := e.eng.Apply(ctx, e.rec, action); err != nil {
		return StepResult{}, fmt.Errorf("apply action %d: %w", action, err)
	}
	reward, err := e.eng.Check(ctx, e.rec)
	if err != nil {
		return StepResult{}, fmt.Errorf("check: %w", err)
	}

	done := reward == 1
	if done {
		e.phase = phaseTerminal
	}
	e.stepNum++

	obs, err := encoding.Pad(e.rec, e.cfg)
	if err != nil {
		return StepResult{}, fmt.Errorf("encode step state: %w", err)
	}

	if e.store != nil && e.episodeID != "" {
		if err := e.store.LogStep(e.episodeID, e.stepNum, action, reward, done, obs.Nodes, obs.PermittedActions); err != nil {
			log.Printf("[ENV] step log: %v", err)
		}
		if done {
			if err := e.store.FinishEpisode(e.episodeID, true); err != nil {
				log.Printf("[ENV] finish episode log: %v", err)
			}
		}
	}

	return StepResult{
		Observation: obs,
		Reward:      reward,
		Done:        done,
		Info:        map[string]any{},
	}, nil
}

// #endregion step

// #region render

// Render writes the engine's diagnostic dump of the current tree to w.
// Valid in any phase after the first Reset.
func (e *Env) Render(ctx context.Context, w io.Writer) error {
	switch e.phase {
	case phaseClosed:
		return ErrClosed
	case phaseUnborn:
		return ErrNotReady
	}
	text, err := e.eng.Render(ctx, e.rec)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Fprintln(w, "Current state:")
	fmt.Fprintln(w, text)
	return nil
}

// #endregion render

// #region close

// Close releases the engine handle. Valid in any phase, including before the
// first Reset; idempotent. An episode still in flight is marked unsolved in
// the store. The environment is not reusable afterwards.
func (e *Env) Close() error {
	if e.phase == phaseClosed {
		return nil
	}
	if e.store != nil && e.episodeID != "" && e.phase == phaseReady {
		if err := e.store.FinishEpisode(e.episodeID, false); err != nil {
			log.Printf("[ENV] finish episode log: %v", err)
		}
	}
	e.phase = phaseClosed
	e.rec = nil
	if err := e.eng.Close(); err != nil {
		return fmt.Errorf("engine close: %w", err)
	}
	return nil
}

// #endregion close
