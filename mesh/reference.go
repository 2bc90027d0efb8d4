package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/gopde/utils"
)

/*
ReferenceElement holds linear simplex shape functions evaluated at the points of one
quadrature rule. S is (quad, shape) and DSDv is (quad, shape, local dim), both row-major.
*/
type ReferenceElement struct {
	Type        utils.ElementType
	NumLocalDim int
	NumShapes   int
	NumQuad     int
	QuadPoints  []float64 // (quad, local dim)
	QuadWeights []float64
	S           []float64
	DSDv        []float64
}

func newReferenceElement(et utils.ElementType, points, weights []float64) (re *ReferenceElement) {
	var (
		ld = et.GetDimension()
		ns = et.GetNumNodes()
		nq = len(weights)
	)
	re = &ReferenceElement{
		Type:        et,
		NumLocalDim: ld,
		NumShapes:   ns,
		NumQuad:     nq,
		QuadPoints:  points,
		QuadWeights: weights,
		S:           make([]float64, nq*ns),
		DSDv:        make([]float64, nq*ns*ld),
	}
	for q := 0; q < nq; q++ {
		var (
			v   = points[q*ld : (q+1)*ld]
			sum float64
		)
		// S_0 = 1 - sum(v), S_l+1 = v_l
		for l := 0; l < ld; l++ {
			sum += v[l]
			re.S[q*ns+l+1] = v[l]
			re.DSDv[(q*ns+0)*ld+l] = -1
			re.DSDv[(q*ns+l+1)*ld+l] = 1
		}
		re.S[q*ns] = 1 - sum
	}
	return
}

// GetReferenceElement returns the element with its full or reduced (one point) quadrature
func GetReferenceElement(et utils.ElementType, reduced bool) (re *ReferenceElement) {
	var (
		points, weights []float64
	)
	switch et {
	case utils.Point:
		points, weights = nil, []float64{1}
	case utils.Line:
		if reduced {
			points, weights = []float64{0.5}, []float64{1}
		} else {
			g := 0.5 / math.Sqrt(3)
			points, weights = []float64{0.5 - g, 0.5 + g}, []float64{0.5, 0.5}
		}
	case utils.Triangle:
		if reduced {
			points, weights = []float64{1. / 3, 1. / 3}, []float64{0.5}
		} else {
			points = []float64{1. / 6, 1. / 6, 2. / 3, 1. / 6, 1. / 6, 2. / 3}
			weights = []float64{1. / 6, 1. / 6, 1. / 6}
		}
	case utils.Tet:
		if reduced {
			points, weights = []float64{0.25, 0.25, 0.25}, []float64{1. / 6}
		} else {
			a, b := 0.5854101966249685, 0.1381966011250105
			points = []float64{b, b, b, a, b, b, b, a, b, b, b, a}
			weights = []float64{1. / 24, 1. / 24, 1. / 24, 1. / 24}
		}
	default:
		panic(fmt.Errorf("no reference element for %v", et))
	}
	return newReferenceElement(et, points, weights)
}
