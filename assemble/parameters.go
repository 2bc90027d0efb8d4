package assemble

import (
	"fmt"

	"github.com/notargets/gopde/mesh"
	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

/*
AssembleParameters is derived once per assembly call and only read afterwards. It
borrows the node to DOF map from the node file and the geometry from the Jacobians.
S is (quad, shape), DSDX is (element, quad, shape, dim) and Vol is (element, quad).
*/
type AssembleParameters struct {
	NumEqu, NumComp  int
	NumDim           int
	NumShapes        int
	NumQuad          int
	NN               int
	RowDOF           utils.Index
	RowDOFUpperBound int
	S                []float64
	DSDX             []float64
	Vol              []float64
	jac              *mesh.Jacobians
}

func newAssembleParameters(nodes *mesh.NodeFile, elements *mesh.ElementFile,
	S *sysmat.SystemMatrix, F []float64, reduced bool) (p *AssembleParameters, err error) {
	p = &AssembleParameters{
		NumDim: nodes.NumDim,
		NN:     elements.NumNodes,
		RowDOF: nodes.GlobalDOF,
	}
	if S != nil {
		p.NumEqu, p.NumComp = S.LogicalRowBlockSize, S.LogicalColBlockSize
		p.RowDOFUpperBound = S.LocalSize() / p.NumEqu
		if F != nil && len(F) != p.RowDOFUpperBound*p.NumEqu {
			err = types.NewError(types.ShapeMismatchError,
				"right hand side has length %d, expected %d", len(F), p.RowDOFUpperBound*p.NumEqu)
			return
		}
	} else {
		if nodes.NumDOF == 0 || len(F)%nodes.NumDOF != 0 {
			err = types.NewError(types.ShapeMismatchError,
				"right hand side of length %d does not cover %d DOFs", len(F), nodes.NumDOF)
			return
		}
		p.NumEqu = len(F) / nodes.NumDOF
		p.NumComp = p.NumEqu
		p.RowDOFUpperBound = nodes.NumDOF
	}
	if p.NumEqu < 1 || (p.NumEqu == 1 && p.NumComp != 1) {
		err = types.NewError(types.MatrixTypeError,
			"%d equations in %d components are not supported", p.NumEqu, p.NumComp)
		return
	}
	if p.jac, err = mesh.ComputeJacobians(nodes, elements, reduced); err != nil {
		err = fmt.Errorf("assemblage failed computing the element geometry: %w", err)
		return
	}
	p.NumShapes = p.jac.Ref.NumShapes
	p.NumQuad = p.jac.Ref.NumQuad
	p.S = p.jac.Ref.S
	p.DSDX = p.jac.DSDX
	p.Vol = p.jac.Vol
	return
}

// elementDOFs writes the row DOFs of element e into rowIndex
func (p *AssembleParameters) elementDOFs(elements *mesh.ElementFile, e int, rowIndex utils.Index) {
	for s, n := range elements.Element(e) {
		rowIndex[s] = p.RowDOF[n]
	}
}
