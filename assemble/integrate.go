package assemble

import (
	"github.com/notargets/gopde/data"
	"github.com/notargets/gopde/mesh"
	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

// AssembleRHS adds only the right hand side terms X and Y into F
func (a Assembler) AssembleRHS(nodes *mesh.NodeFile, elements *mesh.ElementFile, F []float64,
	X, Y *data.Data) error {
	return a.AssemblePDE(nodes, elements, nil, F, nil, nil, nil, nil, X, Y)
}

/*
AssembleIntegrate returns the integral of every component of d over the element file.
Partial sums are combined in worker order.
*/
func (a Assembler) AssembleIntegrate(nodes *mesh.NodeFile, elements *mesh.ElementFile,
	d *data.Data) (out []float64, err error) {
	if d.IsEmpty() {
		return
	}
	var (
		fs      = d.GetFunctionSpace()
		reduced bool
		jac     *mesh.Jacobians
	)
	switch fs.GetTypeCode() {
	case types.FS_Elements, types.FS_FaceElements:
	case types.FS_ReducedElements, types.FS_ReducedFaceElements:
		reduced = true
	default:
		err = types.NewError(types.FunctionSpaceMismatchError,
			"integration of data on %v is not supported", fs.GetTypeCode())
		return
	}
	if jac, err = mesh.ComputeJacobians(nodes, elements, reduced); err != nil {
		return
	}
	nq := jac.Ref.NumQuad
	if !d.NumSamplesEqual(nq, elements.NumElements) {
		err = types.NewError(types.SampleCountMismatchError,
			"integrand has (%d,%d) sample points, expected (%d,%d)",
			fs.NumDPPS, fs.NumSamples, nq, elements.NumElements)
		return
	}
	var (
		np       = a.workers()
		dpSize   = d.GetDataPointSize()
		partials = make([][]float64, np)
	)
	out = make([]float64, dpSize)
	utils.ParallelFor(np, elements.NumElements, func(bn, kMin, kMax int) {
		sum := make([]float64, dpSize)
		for e := kMin; e < kMax; e++ {
			vol := jac.ElementVol(e)
			for q := 0; q < nq; q++ {
				for i, v := range d.GetDataPointRO(e, q) {
					sum[i] += vol[q] * v
				}
			}
		}
		partials[bn] = sum
	})
	for _, sum := range partials {
		for i, v := range sum {
			out[i] += v
		}
	}
	return
}

/*
AssembleGradient interpolates the gradient of the nodal field u, numComp values per DOF,
to the quadrature points of the element file. The result has shape [numDim] for scalar
fields and [numComp, numDim] otherwise.
*/
func (a Assembler) AssembleGradient(nodes *mesh.NodeFile, elements *mesh.ElementFile, fsType types.FunctionSpaceType,
	u []float64, numComp int) (grad *data.Data, err error) {
	if numComp < 1 || len(u) != nodes.NumDOF*numComp {
		err = types.NewError(types.ShapeMismatchError,
			"nodal field of length %d does not hold %d components on %d DOFs", len(u), numComp, nodes.NumDOF)
		return
	}
	switch fsType {
	case types.FS_Elements, types.FS_FaceElements, types.FS_ReducedElements, types.FS_ReducedFaceElements:
	default:
		err = types.NewError(types.FunctionSpaceMismatchError, "gradient on %v is not supported", fsType)
		return
	}
	var jac *mesh.Jacobians
	if jac, err = mesh.ComputeJacobians(nodes, elements, fsType.IsReduced()); err != nil {
		return
	}
	var (
		nd     = nodes.NumDim
		ns, nq = jac.Ref.NumShapes, jac.Ref.NumQuad
		iDX    = utils.NewMultiIndex(nq, ns, nd)
		dp     = numComp * nd
		values = make([]float64, elements.NumElements*nq*dp)
		shape  = []int{numComp, nd}
	)
	if numComp == 1 {
		shape = []int{nd}
	}
	utils.ParallelFor(a.workers(), elements.NumElements, func(bn, kMin, kMax int) {
		for e := kMin; e < kMax; e++ {
			dsdx := jac.ElementDSDX(e)
			for s, n := range elements.Element(e) {
				dof := nodes.GlobalDOF[n]
				for q := 0; q < nq; q++ {
					g := values[(e*nq+q)*dp : (e*nq+q+1)*dp]
					for k := 0; k < numComp; k++ {
						for i := 0; i < nd; i++ {
							g[k*nd+i] += u[dof*numComp+k] * dsdx[iDX.I3(q, s, i)]
						}
					}
				}
			}
		}
	})
	fs := data.FunctionSpace{Type: fsType, NumSamples: elements.NumElements, NumDPPS: nq}
	return data.NewExpanded(fs, shape, values)
}

func AssembleIntegrate(nodes *mesh.NodeFile, elements *mesh.ElementFile, d *data.Data) ([]float64, error) {
	return Assembler{}.AssembleIntegrate(nodes, elements, d)
}

func AssembleRHS(nodes *mesh.NodeFile, elements *mesh.ElementFile, F []float64, X, Y *data.Data) error {
	return Assembler{}.AssembleRHS(nodes, elements, F, X, Y)
}

func AssembleGradient(nodes *mesh.NodeFile, elements *mesh.ElementFile, fsType types.FunctionSpaceType,
	u []float64, numComp int) (*data.Data, error) {
	return Assembler{}.AssembleGradient(nodes, elements, fsType, u, numComp)
}
