package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/gopde/utils"
)

/*
Jacobians carries the geometry of one element file for one quadrature rule: DSDX is
(element, quad, shape, dim) and Vol is (element, quad) holding |det J| times the weight.
*/
type Jacobians struct {
	Ref         *ReferenceElement
	NumDim      int
	NumElements int
	DSDX        []float64
	Vol         []float64
}

func (jac *Jacobians) ElementDSDX(e int) []float64 {
	n := jac.Ref.NumQuad * jac.Ref.NumShapes * jac.NumDim
	return jac.DSDX[e*n : (e+1)*n]
}

func (jac *Jacobians) ElementVol(e int) []float64 {
	return jac.Vol[e*jac.Ref.NumQuad : (e+1)*jac.Ref.NumQuad]
}

/*
ComputeJacobians evaluates the element geometry. Elements of the full dimension use the
inverse Jacobian, manifold elements one dimension lower use the pseudo-inverse
(JᵀJ)⁻¹Jᵀ and the length of the normal as scaling. A singular element is an error.
*/
func ComputeJacobians(nodes *NodeFile, ef *ElementFile, reduced bool) (jac *Jacobians, err error) {
	var (
		ref    = GetReferenceElement(ef.Type, reduced)
		numDim = nodes.NumDim
		ld     = ref.NumLocalDim
		ns, nq = ref.NumShapes, ref.NumQuad
		errs   = make([]error, utils.ParallelDegree(ef.NumElements))
	)
	if ld != numDim && ld != numDim-1 && ld != 0 {
		err = fmt.Errorf("%v elements cannot live in dimension %d", ef.Type, numDim)
		return
	}
	if ns != ef.NumNodes {
		err = fmt.Errorf("%v elements need %d nodes, have %d", ef.Type, ns, ef.NumNodes)
		return
	}
	jac = &Jacobians{
		Ref:         ref,
		NumDim:      numDim,
		NumElements: ef.NumElements,
		DSDX:        make([]float64, ef.NumElements*nq*ns*numDim),
		Vol:         make([]float64, ef.NumElements*nq),
	}
	if ef.NumElements == 0 {
		return
	}
	utils.ParallelFor(len(errs), ef.NumElements, func(bn, kMin, kMax int) {
		var (
			J    = make([]float64, numDim*ld)
			G    = make([]float64, ld*ld)
			invG = make([]float64, ld*ld)
			dsdx = utils.NewMultiIndex(nq, ns, numDim)
			dsdv = utils.NewMultiIndex(nq, ns, ld)
		)
		for e := kMin; e < kMax; e++ {
			var (
				elNodes = ef.Element(e)
				DSDX    = jac.ElementDSDX(e)
				vol     = jac.ElementVol(e)
			)
			for q := 0; q < nq; q++ {
				if ld == 0 {
					vol[q] = ref.QuadWeights[q]
					continue
				}
				for i := range J {
					J[i] = 0
				}
				for s := 0; s < ns; s++ {
					x := nodes.Coordinate(elNodes[s])
					for d := 0; d < numDim; d++ {
						for l := 0; l < ld; l++ {
							J[d*ld+l] += x[d] * ref.DSDv[dsdv.I3(q, s, l)]
						}
					}
				}
				var absD float64
				if ld == numDim {
					det, e2 := utils.InvertSmallMat(numDim, J, invG)
					if e2 != nil {
						errs[bn] = fmt.Errorf("element %d: %w", e, e2)
						return
					}
					absD = math.Abs(det)
					// DSDX = DSDv * invJ
					for s := 0; s < ns; s++ {
						for d := 0; d < numDim; d++ {
							var sum float64
							for l := 0; l < ld; l++ {
								sum += ref.DSDv[dsdv.I3(q, s, l)] * invG[l*numDim+d]
							}
							DSDX[dsdx.I3(q, s, d)] = sum
						}
					}
				} else {
					absD = utils.LengthOfNormalVector(numDim, J)
					for l := 0; l < ld; l++ {
						for m := 0; m < ld; m++ {
							var sum float64
							for d := 0; d < numDim; d++ {
								sum += J[d*ld+l] * J[d*ld+m]
							}
							G[l*ld+m] = sum
						}
					}
					if _, e2 := utils.InvertSmallMat(ld, G, invG); e2 != nil {
						errs[bn] = fmt.Errorf("face element %d: %w", e, e2)
						return
					}
					// DSDX = DSDv * (JᵀJ)⁻¹ * Jᵀ
					for s := 0; s < ns; s++ {
						for d := 0; d < numDim; d++ {
							var sum float64
							for l := 0; l < ld; l++ {
								for m := 0; m < ld; m++ {
									sum += ref.DSDv[dsdv.I3(q, s, l)] * invG[l*ld+m] * J[d*ld+m]
								}
							}
							DSDX[dsdx.I3(q, s, d)] = sum
						}
					}
				}
				vol[q] = absD * ref.QuadWeights[q]
			}
		}
	})
	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	return
}
