package env

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/progsynth/ast-env/go-env/internal/encoding"
	"github.com/progsynth/ast-env/go-env/internal/schema"
	"github.com/progsynth/ast-env/go-env/internal/state"
)

func testConfig() schema.Config {
	return schema.Config{
		MaxNumNodes:       5,
		NumNodeDescriptor: 10,
		NumAssignments:    1,
		CodePerAssignment: []int{1},
		NumActions:        10,
		AssignmentDir:     "testdata",
		MaxNumTests:       2,
		MaxTreeLength:     100,
		MaxNumVars:        2,
		Seed:              7,
	}
}

// #region fake-engine

type loadCall struct {
	assignment int32
	code       int32
}

// fakeEngine grows the tree by one node and one edge per Apply and reports
// success once solveAfter actions have been applied.
type fakeEngine struct {
	cfg        schema.Config
	solveAfter int

	initCalls int
	initSeed  int64
	loads     []loadCall
	applied   []int32
	closed    bool
}

func (f *fakeEngine) Init(_ context.Context, seed int64) error {
	f.initCalls++
	f.initSeed = seed
	return nil
}

func (f *fakeEngine) LoadAssignment(_ context.Context, _ string, assignment, code, _ int32, rec *state.Record) error {
	f.loads = append(f.loads, loadCall{assignment, code})
	f.applied = nil

	rec.Nodes[0], rec.Nodes[1] = 4, 2
	rec.Starter[0], rec.Starter[1] = 4, 2
	rec.Edges[0] = [3]int32{0, 1, 0}
	rec.PermittedActions[0] = 1
	rec.NumNodes = 2
	rec.NumEdges = 1
	rec.Cursor = 0
	rec.Assignment = assignment
	rec.Code = code
	return nil
}

func (f *fakeEngine) Apply(_ context.Context, rec *state.Record, action int32) error {
	f.applied = append(f.applied, action)
	if int(rec.NumNodes) < f.cfg.MaxNumNodes {
		rec.Nodes[rec.NumNodes] = 7
		rec.Edges[rec.NumEdges] = [3]int32{rec.NumNodes - 1, rec.NumNodes, 1}
		rec.NumNodes++
		rec.NumEdges++
		rec.Cursor = rec.NumNodes - 1
	}
	return nil
}

func (f *fakeEngine) Check(_ context.Context, _ *state.Record) (int32, error) {
	if f.solveAfter > 0 && len(f.applied) >= f.solveAfter {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeEngine) Render(_ context.Context, rec *state.Record) (string, error) {
	return "tree", nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

// #endregion fake-engine

func newTestEnv(t *testing.T, cfg schema.Config, eng *fakeEngine, opts ...Option) *Env {
	t.Helper()
	eng.cfg = cfg
	e, err := New(context.Background(), cfg, eng, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewSeedsEngineOnce(t *testing.T) {
	eng := &fakeEngine{}
	newTestEnv(t, testConfig(), eng)
	if eng.initCalls != 1 || eng.initSeed != 7 {
		t.Fatalf("init calls=%d seed=%d", eng.initCalls, eng.initSeed)
	}
}

func TestNewInvalidSchema(t *testing.T) {
	cfg := testConfig()
	cfg.MaxNumNodes = 0
	if _, err := New(context.Background(), cfg, &fakeEngine{}); err == nil {
		t.Fatal("expected schema error")
	}
}

func TestResetMinimalTreePadding(t *testing.T) {
	cfg := testConfig()
	e := newTestEnv(t, cfg, &fakeEngine{})

	obs, err := e.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for i := 2; i < cfg.MaxNumNodes; i++ {
		if obs.Nodes[i] != encoding.Sentinel {
			t.Fatalf("nodes[%d] = %d, want sentinel", i, obs.Nodes[i])
		}
	}
	if obs.Edges[0] != [3]int32{0, 1, 0} {
		t.Fatalf("first edge %v", obs.Edges[0])
	}
	for i := 1; i < len(obs.Edges); i++ {
		if obs.Edges[i][0] != encoding.Sentinel {
			t.Fatalf("edges[%d][0] = %d, want sentinel", i, obs.Edges[i][0])
		}
	}
	if len(obs.PermittedActions) != cfg.MaskSize() {
		t.Fatalf("mask length %d, want %d", len(obs.PermittedActions), cfg.MaskSize())
	}
}

func TestStepBeforeReset(t *testing.T) {
	e := newTestEnv(t, testConfig(), &fakeEngine{})
	if _, err := e.Step(context.Background(), 0); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestStepToSuccess(t *testing.T) {
	cfg := testConfig()
	e := newTestEnv(t, cfg, &fakeEngine{solveAfter: 2})
	ctx := context.Background()

	if _, err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := e.Step(ctx, 0)
	if err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if res.Reward != 0 || res.Done {
		t.Fatalf("step 1: reward=%d done=%v", res.Reward, res.Done)
	}
	if len(res.Info) != 0 {
		t.Fatalf("info should be empty, got %v", res.Info)
	}
	if len(res.Observation.PermittedActions) != cfg.MaskSize() {
		t.Fatalf("mask length changed mid-episode")
	}

	res, err = e.Step(ctx, 0)
	if err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if res.Reward != 1 || !res.Done {
		t.Fatalf("step 2: reward=%d done=%v", res.Reward, res.Done)
	}

	// No further steps until Reset
	if _, err := e.Step(ctx, 0); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}

	// Reset brings the environment back to Ready
	if _, err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset after terminal: %v", err)
	}
	if _, err := e.Step(ctx, 0); err != nil {
		t.Fatalf("step after second reset: %v", err)
	}
}

func TestActionRangeGuard(t *testing.T) {
	cfg := testConfig()
	e := newTestEnv(t, cfg, &fakeEngine{})
	ctx := context.Background()
	e.Reset(ctx)

	for _, action := range []int32{-1, int32(cfg.ActionSpaceSize())} {
		if _, err := e.Step(ctx, action); !errors.Is(err, ErrActionRange) {
			t.Fatalf("action %d: expected ErrActionRange, got %v", action, err)
		}
	}
	// A guard failure must not consume the episode
	if _, err := e.Step(ctx, 0); err != nil {
		t.Fatalf("step after guard failure: %v", err)
	}
}

func TestSamplingBounds(t *testing.T) {
	cfg := testConfig()
	cfg.NumAssignments = 3
	cfg.CodePerAssignment = []int{1, 2, 3}
	eng := &fakeEngine{}
	e := newTestEnv(t, cfg, eng)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if _, err := e.Reset(ctx); err != nil {
			t.Fatalf("Reset %d: %v", i, err)
		}
	}
	for _, lc := range eng.loads {
		if lc.assignment < 0 || int(lc.assignment) >= cfg.NumAssignments {
			t.Fatalf("assignment %d out of range", lc.assignment)
		}
		if lc.code < 0 || int(lc.code) >= cfg.CodePerAssignment[lc.assignment] {
			t.Fatalf("code %d out of range for assignment %d", lc.code, lc.assignment)
		}
	}
}

func TestRender(t *testing.T) {
	e := newTestEnv(t, testConfig(), &fakeEngine{})
	ctx := context.Background()

	if err := e.Render(ctx, &bytes.Buffer{}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady before reset, got %v", err)
	}

	e.Reset(ctx)
	var buf bytes.Buffer
	if err := e.Render(ctx, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "Current state:") || !strings.Contains(buf.String(), "tree") {
		t.Fatalf("render output %q", buf.String())
	}
}

func TestCloseWithoutReset(t *testing.T) {
	eng := &fakeEngine{}
	e := newTestEnv(t, testConfig(), eng)

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !eng.closed {
		t.Fatal("engine not released")
	}
	if _, err := e.Reset(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
	// Idempotent
	if err := e.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestEpisodeLogging(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	e := newTestEnv(t, testConfig(), &fakeEngine{solveAfter: 2}, WithStore(store))
	ctx := context.Background()

	if _, err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	e.Step(ctx, 0)
	e.Step(ctx, 1)

	ep, err := store.CurrentEpisode()
	if err != nil {
		t.Fatalf("CurrentEpisode: %v", err)
	}
	if !ep.Solved {
		t.Fatalf("episode should be solved: %+v", ep)
	}
	steps, err := store.Steps(ep.EpisodeID)
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 logged steps, got %d", len(steps))
	}
	if !steps[1].Done || steps[1].Reward != 1 {
		t.Fatalf("final step row: %+v", steps[1])
	}
}

func TestCloseMarksUnfinishedEpisode(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	e := newTestEnv(t, testConfig(), &fakeEngine{}, WithStore(store))
	ctx := context.Background()
	e.Reset(ctx)
	e.Step(ctx, 0)
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ep, err := store.CurrentEpisode()
	if err != nil {
		t.Fatalf("CurrentEpisode: %v", err)
	}
	if ep.Solved || ep.FinishedAt.IsZero() {
		t.Fatalf("abandoned episode should be finished unsolved: %+v", ep)
	}
}
