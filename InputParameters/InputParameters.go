package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/notargets/gopde/solver"
	"github.com/notargets/gopde/types"
)

// SolverParameters are the solver options as read from the YAML input file
type SolverParameters struct {
	Method              string  `json:"Method"`
	Preconditioner      string  `json:"Preconditioner"`
	Tolerance           float64 `json:"Tolerance"`
	Symmetric           bool    `json:"Symmetric"`
	IterMax             int     `json:"IterMax"`
	Restart             int     `json:"Restart"`
	Truncation          int     `json:"Truncation"`
	Sweeps              int     `json:"Sweeps"`
	CoarseningMethod    string  `json:"CoarseningMethod"`
	CoarseningThreshold float64 `json:"CoarseningThreshold"`
	MinCoarseMatrixSize int     `json:"MinCoarseMatrixSize"`
	LevelMax            int     `json:"LevelMax"`
	Verbose             bool    `json:"Verbose"`
}

// NewSolverParameters holds the default options, keys missing from a file keep them
func NewSolverParameters() SolverParameters {
	o := solver.DefaultOptions()
	return SolverParameters{
		Method:              o.Method.String(),
		Preconditioner:      o.Preconditioner.String(),
		Tolerance:           o.Tolerance,
		Symmetric:           o.Symmetric,
		IterMax:             o.IterMax,
		Restart:             o.Restart,
		Truncation:          o.Truncation,
		Sweeps:              o.Sweeps,
		CoarseningMethod:    o.CoarseningMethod.String(),
		CoarseningThreshold: o.CoarseningThreshold,
		MinCoarseMatrixSize: o.MinCoarseMatrixSize,
		LevelMax:            o.LevelMax,
		Verbose:             o.Verbose,
	}
}

func (sp *SolverParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, sp)
}

// Options resolves the option names and validates the result
func (sp *SolverParameters) Options() (o solver.Options, err error) {
	var ok bool
	if o.Method, ok = types.LookupName(types.SolverMethodNameMap, sp.Method); !ok {
		err = types.NewError(types.ValueError, "unknown solver method %q", sp.Method)
		return
	}
	if o.Preconditioner, ok = types.LookupName(types.PreconditionerNameMap, sp.Preconditioner); !ok {
		err = types.NewError(types.ValueError, "unknown preconditioner %q", sp.Preconditioner)
		return
	}
	if o.CoarseningMethod, ok = types.LookupName(types.CoarseningNameMap, sp.CoarseningMethod); !ok {
		err = types.NewError(types.ValueError, "unknown coarsening method %q", sp.CoarseningMethod)
		return
	}
	o.Tolerance = sp.Tolerance
	o.Symmetric = sp.Symmetric
	o.IterMax = sp.IterMax
	o.Restart = sp.Restart
	o.Truncation = sp.Truncation
	o.Sweeps = sp.Sweeps
	o.CoarseningThreshold = sp.CoarseningThreshold
	o.MinCoarseMatrixSize = sp.MinCoarseMatrixSize
	o.LevelMax = sp.LevelMax
	o.Verbose = sp.Verbose
	err = o.Validate()
	return
}

func (sp *SolverParameters) Print() {
	fmt.Printf("[%s]\t\t= Method\n", sp.Method)
	fmt.Printf("[%s]\t\t= Preconditioner\n", sp.Preconditioner)
	fmt.Printf("%8.2e\t\t= Tolerance\n", sp.Tolerance)
	fmt.Printf("[%d]\t\t\t= IterMax\n", sp.IterMax)
	if pc, _ := types.LookupName(types.PreconditionerNameMap, sp.Preconditioner); pc == types.PC_AMG {
		fmt.Printf("[%s]\t= Coarsening Method\n", sp.CoarseningMethod)
		fmt.Printf("%8.5f\t\t= Coarsening Threshold\n", sp.CoarseningThreshold)
		fmt.Printf("[%d]\t\t\t= Level Max\n", sp.LevelMax)
	}
}

/*
ProblemParameters describe a steady diffusion-reaction problem

	-div(Diffusion grad u) + Reaction u = Source

on a structured rectangle or box with fixed values on named sides x0, x1, y0, y1, z0, z1.
With a MeshFile the mesh is read in SU2 format and Dirichlet names its markers.
*/
type ProblemParameters struct {
	Title        string             `json:"Title"`
	MeshFile     string             `json:"MeshFile"`
	Dimensions   []int              `json:"Dimensions"` // cells per direction, 2 or 3 entries
	Lengths      []float64          `json:"Lengths"`
	Diffusion    float64            `json:"Diffusion"`
	Reaction     float64            `json:"Reaction"`
	Source       float64            `json:"Source"`
	Dirichlet    map[string]float64 `json:"Dirichlet"`
	Reduced      bool               `json:"ReducedIntegration"`
	Expanded     bool               `json:"Expanded"`
	NumEquations int                `json:"NumEquations"` // uncoupled copies of the equation
	Partitions   int                `json:"Partitions"`
	Solver       SolverParameters   `json:"Solver"`
}

func NewProblemParameters() (pp *ProblemParameters) {
	return &ProblemParameters{
		Diffusion:    1,
		NumEquations: 1,
		Partitions:   1,
		Solver:       NewSolverParameters(),
	}
}

func (pp *ProblemParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, pp); err != nil {
		return
	}
	switch {
	case pp.NumEquations < 1:
		return fmt.Errorf("number of equations must be positive, have %d", pp.NumEquations)
	case pp.Partitions < 1:
		return fmt.Errorf("number of partitions must be positive, have %d", pp.Partitions)
	case pp.MeshFile != "":
		return
	}
	switch {
	case len(pp.Dimensions) != 2 && len(pp.Dimensions) != 3:
		return fmt.Errorf("dimensions need 2 or 3 entries, have %v", pp.Dimensions)
	case len(pp.Lengths) != len(pp.Dimensions):
		return fmt.Errorf("lengths %v do not match dimensions %v", pp.Lengths, pp.Dimensions)
	}
	for side := range pp.Dirichlet {
		if s, ok := SideNames[side]; !ok || s[0] >= len(pp.Dimensions) {
			return fmt.Errorf("unknown Dirichlet side %q for a %dD problem", side, len(pp.Dimensions))
		}
	}
	return
}

// SideNames maps the side names to the coordinate direction and the low/high end
var SideNames = map[string][2]int{
	"x0": {0, 0}, "x1": {0, 1},
	"y0": {1, 0}, "y1": {1, 1},
	"z0": {2, 0}, "z1": {2, 1},
}

func (pp *ProblemParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", pp.Title)
	if pp.MeshFile != "" {
		fmt.Printf("[%s]\t\t= Mesh File\n", pp.MeshFile)
	} else {
		fmt.Printf("%v\t\t\t= Dimensions\n", pp.Dimensions)
		fmt.Printf("%v\t\t\t= Lengths\n", pp.Lengths)
	}
	fmt.Printf("%8.5f\t\t= Diffusion\n", pp.Diffusion)
	fmt.Printf("%8.5f\t\t= Reaction\n", pp.Reaction)
	fmt.Printf("%8.5f\t\t= Source\n", pp.Source)
	fmt.Printf("[%d]\t\t\t= Partitions\n", pp.Partitions)
	keys := make([]string, len(pp.Dirichlet))
	i := 0
	for k := range pp.Dirichlet {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Dirichlet[%s] = %v\n", key, pp.Dirichlet[key])
	}
	pp.Solver.Print()
}
