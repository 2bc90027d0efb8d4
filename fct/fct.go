package fct

import (
	"math"

	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

/*
TransportProblem carries the operators of a flux-corrected transport step for a scalar
transport matrix K and consistent mass matrix M on the same pattern. The low order
operator L = K + D adds the artificial diffusion

	d_ij = max(0, -k_ij, -k_ji)

so that L has no negative off-diagonal entries. Iteration holds -L away from the main
diagonal, the main diagonal of L is kept in LowOrderDiag.
*/
type TransportProblem struct {
	Theta        float64
	Transport    *sysmat.SparseMatrix
	Mass         *sysmat.SparseMatrix
	Iteration    *sysmat.SparseMatrix
	LowOrderDiag []float64
	LumpedMass   []float64
	mainPtr      []int
}

func NewTransportProblem(theta float64, K, M *sysmat.SystemMatrix) (fc *TransportProblem, err error) {
	switch {
	case theta < 0 || theta > 1:
		err = types.NewError(types.ValueError, "theta must be in [0,1], have %g", theta)
		return
	case K.Comm.Size() > 1 || M.Comm.Size() > 1:
		err = types.NewError(types.MatrixTypeError, "flux-corrected transport needs serial matrices")
		return
	case K.RowBlockSize() != 1 || K.ColBlockSize() != 1 || M.RowBlockSize() != 1 || M.ColBlockSize() != 1:
		err = types.NewError(types.MatrixTypeError, "flux-corrected transport needs block size 1")
		return
	case !samePattern(K.MainBlock.Pattern, M.MainBlock.Pattern):
		err = types.NewError(types.MatrixTypeError, "transport and mass matrix patterns differ")
		return
	}
	fc = &TransportProblem{
		Theta:     theta,
		Transport: K.MainBlock,
		Mass:      M.MainBlock,
		mainPtr:   K.MainBlock.Pattern.MainDiagonalPointer(),
	}
	for i, iptr := range fc.mainPtr {
		if iptr < 0 {
			err = types.NewError(types.MatrixTypeError, "row %d of the transport matrix has no main diagonal", i)
			return nil, err
		}
	}
	n := fc.Mass.NumRows()
	fc.LumpedMass = make([]float64, n)
	for i := 0; i < n; i++ {
		for iptr := fc.Mass.Pattern.Ptr[i]; iptr < fc.Mass.Pattern.Ptr[i+1]; iptr++ {
			fc.LumpedMass[i] += fc.Mass.Val[iptr]
		}
	}
	fc.SetLowOrderOperator()
	return
}

func samePattern(a, b *sysmat.Pattern) bool {
	if a == b {
		return true
	}
	if a.NumOutput != b.NumOutput || a.NumInput != b.NumInput || a.Len() != b.Len() {
		return false
	}
	for i := range a.Ptr {
		if a.Ptr[i] != b.Ptr[i] {
			return false
		}
	}
	for i := range a.Index {
		if a.Index[i] != b.Index[i] {
			return false
		}
	}
	return true
}

// SetLowOrderOperator rebuilds Iteration and LowOrderDiag from the current transport matrix
func (fc *TransportProblem) SetLowOrderOperator() {
	var (
		K = fc.Transport
		p = K.Pattern
		n = K.NumRows()
	)
	if fc.Iteration == nil {
		fc.Iteration = sysmat.NewSparseMatrix(p, 1, 1)
		fc.LowOrderDiag = make([]float64, n)
	}
	utils.ParallelFor(0, n, func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			sum := K.Val[fc.mainPtr[i]]
			for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
				j := p.Index[iptr]
				if j == i {
					continue
				}
				jptr := p.Find(j, i)
				if jptr < 0 {
					continue
				}
				kij, kji := K.Val[iptr], K.Val[jptr]
				dij := -math.Min(0, math.Min(kij, kji))
				fc.Iteration.Val[iptr] = -(kij + dij)
				sum -= dij
			}
			fc.LowOrderDiag[i] = sum
		}
	})
}

// SetMuPaLuPbQ computes out_i = m_i u_i + a sum_j l_ij (u_j - u_i) + b q_i
func SetMuPaLuPbQ(out, m, u []float64, a float64, L *sysmat.SparseMatrix, b float64, q []float64) {
	p := L.Pattern
	utils.ParallelFor(0, L.NumRows(), func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			out[i] = m[i]*u[i] + b*q[i]
			if a == 0 {
				continue
			}
			var sum float64
			for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
				sum += L.Val[iptr] * (u[p.Index[iptr]] - u[i])
			}
			out[i] += a * sum
		}
	})
}

// SetQs returns the largest decrease QN and increase QP of u towards the neighbours in L
func SetQs(u []float64, L *sysmat.SparseMatrix) (QN, QP []float64) {
	var (
		p = L.Pattern
		n = L.NumRows()
	)
	QN, QP = make([]float64, n), make([]float64, n)
	utils.ParallelFor(0, n, func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			uMin, uMax := u[i], u[i]
			for _, j := range p.Row(i) {
				uMin = math.Min(uMin, u[j])
				uMax = math.Max(uMax, u[j])
			}
			QN[i], QP[i] = uMin-u[i], uMax-u[i]
		}
	})
	return
}

/*
SetAntiDiffusionFlux fills flux, on the pattern of the transport matrix, with

	f_ij = (m_ij - dt (1-theta) d_ij)(uLast_j - uLast_i) - (m_ij + dt theta d_ij)(u_j - u_i)

the difference between the high order and the low order step.
*/
func (fc *TransportProblem) SetAntiDiffusionFlux(dt float64, u, uLast []float64, flux *sysmat.SparseMatrix) {
	var (
		f1 = -dt * (1 - fc.Theta)
		f2 = dt * fc.Theta
		p  = fc.Iteration.Pattern
	)
	utils.ParallelFor(0, p.NumOutput, func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
				var (
					j   = p.Index[iptr]
					mij = fc.Mass.Val[iptr]
					dij = -(fc.Transport.Val[iptr] + fc.Iteration.Val[iptr])
				)
				flux.Val[iptr] = (mij+f1*dij)*(uLast[j]-uLast[i]) - (mij+f2*dij)*(u[j]-u[i])
			}
		}
	})
}

// ApplyPreAntiDiffusionCorrection drops fluxes flattening u, f_ij := 0 where f_ij (u_i - u_j) <= 0
func ApplyPreAntiDiffusionCorrection(f *sysmat.SparseMatrix, u []float64) {
	p := f.Pattern
	utils.ParallelFor(0, p.NumOutput, func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
				if f.Val[iptr]*(u[i]-u[p.Index[iptr]]) <= 0 {
					f.Val[iptr] = 0
				}
			}
		}
	})
}

/*
SetRs returns the Zalesak ratios RN and RP, the fractions of the summed negative and
positive fluxes into each node that keep it within m_i QN_i and m_i QP_i.
*/
func SetRs(f *sysmat.SparseMatrix, lumpedMass, QN, QP []float64) (RN, RP []float64) {
	var (
		p = f.Pattern
		n = p.NumOutput
	)
	RN, RP = make([]float64, n), make([]float64, n)
	utils.ParallelFor(0, n, func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			var PN, PP float64
			for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
				if p.Index[iptr] == i {
					continue
				}
				if fij := f.Val[iptr]; fij <= 0 {
					PN += fij
				} else {
					PP += fij
				}
			}
			RN[i], RP[i] = 1, 1
			if PN < 0 {
				RN[i] = math.Min(1, QN[i]*lumpedMass[i]/PN)
			}
			if PP > 0 {
				RP[i] = math.Min(1, QP[i]*lumpedMass[i]/PP)
			}
		}
	})
	return
}

// AddCorrectedFluxes adds the limited fluxes sum_j alpha_ij f_ij to out
func AddCorrectedFluxes(out []float64, f *sysmat.SparseMatrix, RN, RP []float64) {
	p := f.Pattern
	utils.ParallelFor(0, p.NumOutput, func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			var fi float64
			for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
				j := p.Index[iptr]
				if fij := f.Val[iptr]; fij >= 0 {
					fi += fij * math.Min(RP[i], RN[j])
				} else {
					fi += fij * math.Min(RN[i], RP[j])
				}
			}
			out[i] += fi
		}
	})
}

/*
LimitedAntiDiffusion adds to out the anti-diffusive correction of a low order solution
uLow computed from uLast, limited so that no node leaves the range of its neighbours.
*/
func (fc *TransportProblem) LimitedAntiDiffusion(dt float64, uLow, uLast, out []float64) {
	flux := sysmat.NewSparseMatrix(fc.Iteration.Pattern, 1, 1)
	fc.SetAntiDiffusionFlux(dt, uLow, uLast, flux)
	ApplyPreAntiDiffusionCorrection(flux, uLow)
	QN, QP := SetQs(uLow, fc.Iteration)
	RN, RP := SetRs(flux, fc.LumpedMass, QN, QP)
	AddCorrectedFluxes(out, flux, RN, RP)
}
