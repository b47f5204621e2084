package schema

import "fmt"

// #region config

// Config is the capacity schema for one environment instantiation. Every
// variable-length field in the engine record is sized from these maxima,
// fixed for the lifetime of the environment.
type Config struct {
	MaxNumNodes       int    `toml:"max_num_nodes" json:"max_num_nodes"`
	NumNodeDescriptor int    `toml:"num_node_descriptor" json:"num_node_descriptor"`
	NumAssignments    int    `toml:"num_assignments" json:"num_assignments"`
	CodePerAssignment []int  `toml:"code_per_assignment" json:"code_per_assignment"`
	NumActions        int    `toml:"num_actions" json:"num_actions"`
	AssignmentDir     string `toml:"assignment_dir" json:"assignment_dir"`
	Perturbation      int    `toml:"perturbation" json:"perturbation"`
	MaxNumTests       int    `toml:"max_num_tests" json:"max_num_tests"`
	MaxTreeLength     int    `toml:"max_tree_length" json:"max_tree_length"`
	MaxNumVars        int    `toml:"max_num_vars" json:"max_num_vars"`
	Seed              int64  `toml:"seed" json:"seed"`
}

// #endregion config

// #region defaults

// ApplyDefaults fills zero-valued optional capacities with the standard
// defaults. Required fields (MaxNumNodes, NumActions, ...) are left alone
// and caught by Validate.
func (c *Config) ApplyDefaults() {
	if c.MaxNumTests == 0 {
		c.MaxNumTests = 10
	}
	if c.MaxTreeLength == 0 {
		c.MaxTreeLength = 10000
	}
	if c.MaxNumVars == 0 {
		c.MaxNumVars = 10
	}
}

// #endregion defaults

// #region derived

// ActionSpaceSize is the number of selectable actions: the structural edits
// plus one variable-insertion slot per scope variable.
func (c Config) ActionSpaceSize() int {
	return c.NumActions + c.MaxNumVars
}

// MaskSize is the length of the permitted-actions bit mask. The engine
// appends 2*MaxNumVars slots after the structural actions; the split between
// the trailing slots is an engine-defined layout carried bit-for-bit.
func (c Config) MaskSize() int {
	return c.NumActions + 2*c.MaxNumVars
}

// EdgeCapacity is the maximum number of edge triples in the engine record.
func (c Config) EdgeCapacity() int {
	return c.MaxNumNodes * 3
}

// #endregion derived

// #region validate

// Validate fails fast on an unusable schema. A config that passes Validate
// never changes for the lifetime of the environment built from it.
func (c Config) Validate() error {
	if c.MaxNumNodes <= 0 {
		return fmt.Errorf("max_num_nodes must be positive, got %d", c.MaxNumNodes)
	}
	if c.NumNodeDescriptor <= 0 {
		return fmt.Errorf("num_node_descriptor must be positive, got %d", c.NumNodeDescriptor)
	}
	if c.NumActions <= 0 {
		return fmt.Errorf("num_actions must be positive, got %d", c.NumActions)
	}
	if c.MaxNumVars <= 0 {
		return fmt.Errorf("max_num_vars must be positive, got %d", c.MaxNumVars)
	}
	if c.MaxNumVars > c.MaxNumNodes {
		return fmt.Errorf("max_num_vars %d exceeds max_num_nodes %d", c.MaxNumVars, c.MaxNumNodes)
	}
	if c.MaxNumTests <= 0 {
		return fmt.Errorf("max_num_tests must be positive, got %d", c.MaxNumTests)
	}
	if c.MaxTreeLength <= 0 {
		return fmt.Errorf("max_tree_length must be positive, got %d", c.MaxTreeLength)
	}
	if c.NumAssignments <= 0 {
		return fmt.Errorf("num_assignments must be positive, got %d", c.NumAssignments)
	}
	if len(c.CodePerAssignment) != c.NumAssignments {
		return fmt.Errorf("code_per_assignment has %d entries, want %d", len(c.CodePerAssignment), c.NumAssignments)
	}
	for i, n := range c.CodePerAssignment {
		if n <= 0 {
			return fmt.Errorf("code_per_assignment[%d] must be positive, got %d", i, n)
		}
	}
	return nil
}

// #endregion validate

// #region spaces

// Space describes the shape and integer domain of one observation field.
// Cols == 0 means a flat vector (or a scalar when Rows is also 0).
type Space struct {
	Rows int
	Cols int
	Low  int32
	High int32 // inclusive
}

// Spaces is the observation-space bounds table. The lower bound -1 is the
// sentinel; upper bounds include the extra slot the sentinel occupies.
type Spaces struct {
	Nodes            Space
	Edges            Space
	Starter          Space
	PermittedActions Space
	CursorPosition   Space
	VarsInScope      Space
	ArgsInScope      Space
	Assignment       Space
}

// Spaces derives the observation-space bounds from the capacity schema.
func (c Config) Spaces() Spaces {
	nodeSpace := Space{
		Rows: c.MaxNumNodes,
		Low:  -1,
		High: int32(c.NumNodeDescriptor + c.MaxNumVars),
	}
	return Spaces{
		Nodes:            nodeSpace,
		Edges:            Space{Rows: c.EdgeCapacity(), Cols: 3, Low: -1, High: int32(c.MaxNumNodes)},
		Starter:          nodeSpace,
		PermittedActions: Space{Rows: c.MaskSize(), Low: 0, High: 1},
		CursorPosition:   Space{Low: 0, High: int32(c.MaxNumNodes) - 1},
		VarsInScope:      Space{Rows: c.MaxNumVars, Low: -1, High: int32(c.MaxNumNodes)},
		ArgsInScope:      Space{Rows: c.MaxNumVars, Cols: 2, Low: -1, High: int32(c.MaxNumNodes)},
		Assignment:       Space{Low: 0, High: int32(c.NumAssignments) - 1},
	}
}

// #endregion spaces
