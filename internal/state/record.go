package state

import "github.com/progsynth/ast-env/go-env/internal/schema"

// #region record

// Record is the raw, fixed-layout AST state shared with the native engine.
// Field order and sizing mirror the engine's own record: every slice is
// allocated to its schema capacity and the Num* counters are authoritative
// for how much of each slice is live. Indices past a counter are garbage
// until the encoder pads them.
//
// Zast is the engine's serialized tree; this layer never inspects it.
type Record struct {
	Edges            [][3]int32 `msgpack:"edges" json:"edges"`
	Tests            [][2]int32 `msgpack:"tests" json:"tests"`
	Nodes            []int32    `msgpack:"nodes" json:"nodes"`
	Starter          []int32    `msgpack:"starter" json:"starter"`
	PermittedActions []int32    `msgpack:"permitted_actions" json:"permitted_actions"`
	VarsInScope      []int32    `msgpack:"vars_in_scope" json:"vars_in_scope"`
	ArgsInScope      [][2]int32 `msgpack:"args_in_scope" json:"args_in_scope"`
	Zast             []byte     `msgpack:"zast" json:"zast,omitempty"`
	Cursor           int32      `msgpack:"cursor" json:"cursor"`
	NumNodes         int32      `msgpack:"num_nodes" json:"num_nodes"`
	NumEdges         int32      `msgpack:"num_edges" json:"num_edges"`
	NumTests         int32      `msgpack:"num_tests" json:"num_tests"`
	NumVars          int32      `msgpack:"num_vars" json:"num_vars"`
	NumArgs          int32      `msgpack:"num_args" json:"num_args"`
	Assignment       int32      `msgpack:"assignment" json:"assignment"`
	Code             int32      `msgpack:"code" json:"code"`
}

// #endregion record

// #region constructor

// NewRecord allocates a record with every field at its schema capacity.
func NewRecord(cfg schema.Config) *Record {
	return &Record{
		Edges:            make([][3]int32, cfg.EdgeCapacity()),
		Tests:            make([][2]int32, cfg.MaxNumTests),
		Nodes:            make([]int32, cfg.MaxNumNodes),
		Starter:          make([]int32, cfg.MaxNumNodes),
		PermittedActions: make([]int32, cfg.MaskSize()),
		VarsInScope:      make([]int32, cfg.MaxNumVars),
		ArgsInScope:      make([][2]int32, cfg.MaxNumVars),
		Zast:             make([]byte, cfg.MaxTreeLength),
	}
}

// #endregion constructor

// #region clone

// Clone deep-copies the record. Encoded observations and logged snapshots
// must never alias the engine's live buffer.
func (r *Record) Clone() *Record {
	c := *r
	c.Edges = append([][3]int32(nil), r.Edges...)
	c.Tests = append([][2]int32(nil), r.Tests...)
	c.Nodes = append([]int32(nil), r.Nodes...)
	c.Starter = append([]int32(nil), r.Starter...)
	c.PermittedActions = append([]int32(nil), r.PermittedActions...)
	c.VarsInScope = append([]int32(nil), r.VarsInScope...)
	c.ArgsInScope = append([][2]int32(nil), r.ArgsInScope...)
	c.Zast = append([]byte(nil), r.Zast...)
	return &c
}

// #endregion clone

// #region copy-from

// CopyFrom overwrites r with the contents of src in place, preserving r's
// identity for callers holding the pointer. Used when an engine reply
// carries the mutated record back across the boundary.
func (r *Record) CopyFrom(src *Record) {
	*r = *src.Clone()
}

// #endregion copy-from
