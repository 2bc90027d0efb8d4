package model_problems

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"

	"github.com/notargets/gopde/InputParameters"
	"github.com/notargets/gopde/assemble"
	"github.com/notargets/gopde/data"
	"github.com/notargets/gopde/mesh"
	"github.com/notargets/gopde/solver"
	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

/*
DiffusionReaction solves NumEquations uncoupled copies of

	-div(Diffusion grad u) + Reaction u = Source

on a structured rectangle or box or an SU2 mesh, u fixed on the Dirichlet sides or markers.
*/
type DiffusionReaction struct {
	Params  *InputParameters.ProblemParameters
	Mesh    *mesh.Mesh
	Options solver.Options
	U       []float64 // (node DOF, equation)
	Stats   solver.Stats
	Workers int // assembly goroutines, 0 uses every CPU
	mask, g []float64
}

func NewDiffusionReaction(pp *InputParameters.ProblemParameters) (c *DiffusionReaction, err error) {
	c = &DiffusionReaction{Params: pp}
	if c.Options, err = pp.Solver.Options(); err != nil {
		return nil, err
	}
	if len(pp.Dirichlet) == 0 && pp.Reaction == 0 {
		err = types.NewError(types.ValueError, "no Dirichlet side and no reaction, the problem is singular")
		return nil, err
	}
	var markers map[string][]int
	if c.Mesh, markers, err = NewProblemMesh(pp); err != nil {
		return nil, err
	}
	if err = c.setDirichlet(markers); err != nil {
		return nil, err
	}
	fmt.Printf("%s: %d nodes, %d %v elements, %d equations\n", pp.Title,
		c.Mesh.Nodes.NumNodes, c.Mesh.Elements.NumElements, c.Mesh.Elements.Type, pp.NumEquations)
	return
}

// NewProblemMesh reads the mesh file of pp, or builds its structured rectangle or box
func NewProblemMesh(pp *InputParameters.ProblemParameters) (m *mesh.Mesh, markers map[string][]int, err error) {
	if pp.MeshFile != "" {
		return mesh.ReadSU2File(pp.MeshFile)
	}
	d, l := pp.Dimensions, pp.Lengths
	if len(d) == 2 {
		m, err = mesh.NewRectangle(d[0], d[1], l[0], l[1])
	} else {
		m, err = mesh.NewBox(d[0], d[1], d[2], l[0], l[1], l[2])
	}
	return
}

/*
setDirichlet tags the nodes of each Dirichlet side, or of each marker for a mesh read
from file. Later names in sorted order win on shared nodes.
*/
func (c *DiffusionReaction) setDirichlet(markers map[string][]int) (err error) {
	var (
		pp    = c.Params
		nodes = c.Mesh.Nodes
		q     = pp.NumEquations
		sides = make([]string, 0, len(pp.Dirichlet))
	)
	for side := range pp.Dirichlet {
		sides = append(sides, side)
	}
	sort.Strings(sides)
	for i, side := range sides {
		if markers != nil {
			onMarker, ok := markers[side]
			if !ok {
				return types.NewError(types.ValueError, "mesh %s has no marker %q", pp.MeshFile, side)
			}
			for _, n := range onMarker {
				nodes.Tag[n] = i + 1
			}
			continue
		}
		var (
			s   = InputParameters.SideNames[side]
			dir = s[0]
			at  = float64(s[1]) * pp.Lengths[dir]
			tol = utils.NODETOL * math.Max(1, pp.Lengths[dir])
		)
		nodes.TagNodes(i+1, func(x []float64) bool { return math.Abs(x[dir]-at) <= tol })
	}
	c.mask = make([]float64, nodes.NumDOF*q)
	c.g = make([]float64, nodes.NumDOF*q)
	for i, side := range sides {
		for k, m := range nodes.DOFMask(i+1, q) {
			if m > 0 {
				c.mask[k], c.g[k] = 1, pp.Dirichlet[side]
			}
		}
	}
	return
}

// Assemble returns the unconstrained system matrix and right hand side
func (c *DiffusionReaction) Assemble() (S *sysmat.SystemMatrix, F []float64, err error) {
	var (
		pp        = c.Params
		q         = pp.NumEquations
		dim       = c.Mesh.Nodes.NumDim
		fsType    = types.FS_Elements
		fs        data.FunctionSpace
		A, D, Y   *data.Data
		aVals     []float64
		aShape    []int
		dShape    = []int{q, q}
		yShape    = []int{q}
		identityQ = func(v float64) (vals []float64) {
			vals = make([]float64, q*q)
			for k := 0; k < q; k++ {
				vals[k*q+k] = v
			}
			return
		}
	)
	if pp.Reduced {
		fsType = types.FS_ReducedElements
	}
	if fs, err = c.Mesh.FunctionSpace(fsType); err != nil {
		return
	}
	if S, err = c.Mesh.NewSystemMatrix(q, q, pp.Expanded); err != nil {
		return
	}
	F = make([]float64, c.Mesh.Nodes.NumDOF*q)
	if q == 1 {
		aShape, dShape, yShape = []int{dim, dim}, []int{}, []int{}
		aVals = make([]float64, dim*dim)
		for i := 0; i < dim; i++ {
			aVals[i*dim+i] = pp.Diffusion
		}
	} else {
		aShape = []int{q, dim, q, dim}
		aVals = make([]float64, q*dim*q*dim)
		for k := 0; k < q; k++ {
			for i := 0; i < dim; i++ {
				aVals[((k*dim+i)*q+k)*dim+i] = pp.Diffusion
			}
		}
	}
	if pp.Diffusion != 0 {
		if A, err = data.NewConstant(fs, aShape, aVals); err != nil {
			return
		}
	}
	if pp.Reaction != 0 {
		if D, err = data.NewConstant(fs, dShape, identityQ(pp.Reaction)); err != nil {
			return
		}
	}
	if pp.Source != 0 {
		vals := make([]float64, q)
		for k := range vals {
			vals[k] = pp.Source
		}
		if Y, err = data.NewConstant(fs, yShape, vals); err != nil {
			return
		}
	}
	err = assemble.Assembler{NumWorkers: c.Workers}.AssemblePDE(c.Mesh.Nodes, c.Mesh.Elements, S, F, A, nil, nil, D, nil, Y)
	return
}

/*
Constrain fixes the Dirichlet values. Constrained columns move to the right hand side
and rows and columns are cleared with a unit diagonal, keeping S symmetric.
*/
func (c *DiffusionReaction) Constrain(S *sysmat.SystemMatrix, F []float64) {
	S.MatrixVector(-1, c.g, 1, F)
	for i, m := range c.mask {
		if m > 0 {
			F[i] = c.g[i]
		}
	}
	S.NullifyRowsAndCols(c.mask, c.mask, 1)
}

func (c *DiffusionReaction) Run(showGraph bool, graphDelay ...time.Duration) (err error) {
	var (
		S *sysmat.SystemMatrix
		F []float64
	)
	start := time.Now()
	if S, F, err = c.Assemble(); err != nil {
		return
	}
	c.Constrain(S, F)
	if c.Options.Method == types.SM_Default {
		c.Options.Symmetric = S.IsSymmetric(1.e-12)
	}
	fmt.Printf("Assembled %d unknowns in %v\n", len(F), time.Since(start))
	if c.Params.Partitions > 1 {
		err = c.solveDistributed(S, F)
	} else {
		c.U = make([]float64, len(F))
		c.Stats, err = solver.Solve(S, c.U, F, c.Options)
	}
	fmt.Printf("%v\n", c.Stats)
	fmt.Println(utils.MemUsage())
	if c.U != nil {
		uMin, uMax := minMax(c.U)
		fmt.Printf("umin = %8.4f, umax = %8.4f\n", uMin, uMax)
		if showGraph {
			c.Plot(graphDelay...)
		}
	}
	return
}

// solveDistributed splits the DOFs with METIS and solves with one goroutine per partition
func (c *DiffusionReaction) solveDistributed(S *sysmat.SystemMatrix, F []float64) (err error) {
	var (
		np        = c.Params.Partitions
		bs        = S.RowBlockSize()
		q         = c.Params.NumEquations
		partition []int
		d         *sysmat.Distribution
		parts     []*sysmat.SystemMatrix
	)
	if partition, err = c.Mesh.PartitionDOFs(np); err != nil {
		return
	}
	if S.IsExpanded() {
		expanded := make([]int, len(partition)*q)
		for i, r := range partition {
			for k := 0; k < q; k++ {
				expanded[i*q+k] = r
			}
		}
		partition = expanded
	}
	if d, err = sysmat.NewDistribution(partition, np); err != nil {
		return
	}
	if parts, err = sysmat.Distribute(S.MainBlock, d, sysmat.NewThreadComms(np)); err != nil {
		return
	}
	var (
		locals = make([][]float64, np)
		stats  = make([]solver.Stats, np)
		errs   = make([]error, np)
		wg     sync.WaitGroup
	)
	for r := 0; r < np; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			locals[r] = make([]float64, d.LocalSize(r)*bs)
			stats[r], errs[r] = solver.Solve(parts[r], locals[r], d.Scatter(F, r, bs), c.Options)
		}(r)
	}
	wg.Wait()
	c.U = d.Gather(locals, bs)
	c.Stats = stats[0]
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return
}

// Value returns equation k of the solution at node i
func (c *DiffusionReaction) Value(i, k int) float64 {
	return c.U[c.Mesh.Nodes.GlobalDOF[i]*c.Params.NumEquations+k]
}

// Plot scatters the first equation over the x coordinate of every node
func (c *DiffusionReaction) Plot(graphDelay ...time.Duration) {
	var (
		nodes = c.Mesh.Nodes
		x     = make([]float64, nodes.NumNodes)
		u     = make([]float64, nodes.NumNodes)
	)
	for i := range x {
		x[i] = nodes.Coordinate(i)[0]
		u[i] = c.Value(i, 0)
	}
	xMin, xMax := minMax(x)
	uMin, uMax := minMax(u)
	if uMax-uMin < 1.e-12 {
		uMin, uMax = uMin-1, uMax+1
	}
	chart := chart2d.NewChart2D(1024, 768, float32(xMin), float32(xMax), float32(uMin), float32(uMax))
	colorMap := utils2.NewColorMap(-1, 1, 1)
	go chart.Plot()
	if err := chart.AddSeries(c.Params.Title, x, u,
		chart2d.CrossGlyph, chart2d.NoLine, colorMap.GetRGB(0)); err != nil {
		panic("unable to add graph series")
	}
	if len(graphDelay) != 0 {
		time.Sleep(graphDelay[0])
	}
}

func minMax(v []float64) (vMin, vMax float64) {
	vMin, vMax = math.Inf(1), math.Inf(-1)
	for _, val := range v {
		vMin, vMax = math.Min(vMin, val), math.Max(vMax, val)
	}
	return
}
