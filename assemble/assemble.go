package assemble

import (
	"runtime"

	"github.com/notargets/gopde/data"
	"github.com/notargets/gopde/mesh"
	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
)

// Assembler runs the element loops on NumWorkers goroutines, NumWorkers < 1 uses every CPU
type Assembler struct {
	NumWorkers int
}

func (a Assembler) workers() (np int) {
	if np = a.NumWorkers; np < 1 {
		np = runtime.NumCPU()
	}
	return
}

// AssemblePDE assembles with the default Assembler
func AssemblePDE(nodes *mesh.NodeFile, elements *mesh.ElementFile, S *sysmat.SystemMatrix, F []float64,
	A, B, C, D, X, Y *data.Data) error {
	return Assembler{}.AssemblePDE(nodes, elements, S, F, A, B, C, D, X, Y)
}

type coefficient struct {
	name string
	d    *data.Data
}

/*
AssemblePDE adds the element contributions of

	-(A_kimj u_m,j + B_ikm u_m)_,i + C_kjm u_m,j + D_km u_m = -(X_ki)_,i + Y_k

into the matrix S and the right hand side F. The coefficients are empty, constant per
element or expanded to the quadrature points of the function space they live on. S and
F are only touched after every check passed.
*/
func (a Assembler) AssemblePDE(nodes *mesh.NodeFile, elements *mesh.ElementFile, S *sysmat.SystemMatrix,
	F []float64, A, B, C, D, X, Y *data.Data) (err error) {
	if nodes == nil || elements == nil || (S == nil && F == nil) {
		return
	}
	if F == nil && (!X.IsEmpty() || !Y.IsEmpty()) {
		return types.NewError(types.ValueError,
			"right hand side coefficients are non-zero but no right hand side vector given")
	}
	if S == nil && (!A.IsEmpty() || !B.IsEmpty() || !C.IsEmpty() || !D.IsEmpty()) {
		return types.NewError(types.ValueError, "coefficients are non-zero but no matrix is given")
	}
	coeffs := []coefficient{{"A", A}, {"B", B}, {"C", C}, {"D", D}, {"X", X}, {"Y", Y}}
	funcSpace := types.FS_Unknown
	for _, c := range coeffs {
		if !c.d.IsEmpty() {
			funcSpace = c.d.GetFunctionSpace().GetTypeCode()
		}
	}
	if funcSpace == types.FS_Unknown {
		return
	}
	for _, c := range coeffs {
		if !c.d.IsEmpty() && c.d.GetFunctionSpace().GetTypeCode() != funcSpace {
			return types.NewError(types.FunctionSpaceMismatchError,
				"unexpected function space type %v for coefficient %s, expected %v",
				c.d.GetFunctionSpace().GetTypeCode(), c.name, funcSpace)
		}
	}
	var reduced bool
	switch funcSpace {
	case types.FS_Elements, types.FS_FaceElements:
	case types.FS_ReducedElements, types.FS_ReducedFaceElements, types.FS_Points:
		reduced = true
	default:
		return types.NewError(types.FunctionSpaceMismatchError,
			"assemblage failed because of illegal function space %v", funcSpace)
	}
	if nodes.NumDim != 2 && nodes.NumDim != 3 {
		return types.NewError(types.UnsupportedDimensionError,
			"assemblage supports spatial dimensions 2 and 3 only, have %d", nodes.NumDim)
	}
	var p *AssembleParameters
	if p, err = newAssembleParameters(nodes, elements, S, F, reduced); err != nil {
		return
	}
	for _, c := range coeffs {
		if !c.d.IsEmpty() && !c.d.NumSamplesEqual(p.NumQuad, elements.NumElements) {
			fs := c.d.GetFunctionSpace()
			return types.NewError(types.SampleCountMismatchError,
				"sample points of coefficient %s don't match (%d,%d), have (%d,%d)",
				c.name, p.NumQuad, elements.NumElements, fs.NumDPPS, fs.NumSamples)
		}
	}
	if err = checkShapes(p, coeffs); err != nil {
		return
	}
	if funcSpace == types.FS_Points {
		if !A.IsEmpty() || !B.IsEmpty() || !C.IsEmpty() || !X.IsEmpty() {
			return types.NewError(types.ValueError, "point elements require A, B, C and X to be empty")
		}
		return a.assemblePoints(p, elements, S, F, D, Y)
	}
	return a.assembleElements(p, elements, S, F, A, B, C, D, X, Y)
}

// shapes returns the data point shape every coefficient must have, scalar PDEs drop the equation axes
func shapes(numEqu, numComp, numDim int) map[string][]int {
	if numEqu == 1 {
		return map[string][]int{
			"A": {numDim, numDim}, "B": {numDim}, "C": {numDim},
			"D": {}, "X": {numDim}, "Y": {},
		}
	}
	return map[string][]int{
		"A": {numEqu, numDim, numComp, numDim},
		"B": {numDim, numEqu, numComp},
		"C": {numEqu, numDim, numComp},
		"D": {numEqu, numComp},
		"X": {numEqu, numDim},
		"Y": {numEqu},
	}
}

func checkShapes(p *AssembleParameters, coeffs []coefficient) error {
	expected := shapes(p.NumEqu, p.NumComp, p.NumDim)
	for _, c := range coeffs {
		dims := expected[c.name]
		if !c.d.IsEmpty() && !c.d.IsDataPointShapeEqual(len(dims), dims) {
			return types.NewError(types.ShapeMismatchError,
				"coefficient %s: illegal shape %v, expected %v", c.name, c.d.GetShape(), dims)
		}
	}
	return nil
}
