// Package engine binds the environment to the native AST mutation and
// verification engine. The engine owns the authoritative tree state; this
// layer moves the fixed-layout record across the boundary and copies replies
// into caller-owned buffers.
package engine

import (
	"context"

	"github.com/progsynth/ast-env/go-env/internal/state"
)

// #region interface

// Engine is the five-operation native engine boundary.
//
// Apply does not validate the action against the permitted mask; callers
// must mask actions themselves. A record whose counters exceed the schema
// capacities is undefined behavior on the engine side.
type Engine interface {
	// Init seeds the engine's internal randomness. Called once per engine
	// lifetime, before any other operation.
	Init(ctx context.Context, seed int64) error

	// LoadAssignment deterministically loads the starting AST for one
	// exercise/variant pair, optionally perturbed, populating rec in place
	// with valid counters.
	LoadAssignment(ctx context.Context, dir string, assignment, code, perturbation int32, rec *state.Record) error

	// Apply performs one structural edit on rec in place, refreshing the
	// cursor, scopes, and permitted-action mask.
	Apply(ctx context.Context, rec *state.Record, action int32) error

	// Check runs the held-out tests; 1 means all pass.
	Check(ctx context.Context, rec *state.Record) (int32, error)

	// Render returns a human-readable dump of the current tree.
	Render(ctx context.Context, rec *state.Record) (string, error)

	// Close releases engine-held resources. The engine is unusable after.
	Close() error
}

// #endregion interface
