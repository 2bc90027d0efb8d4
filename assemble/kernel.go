package assemble

import (
	"github.com/notargets/gopde/data"
	"github.com/notargets/gopde/mesh"
	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/utils"
)

// elementKernel holds the per worker element buffers of one assembly call
type elementKernel struct {
	p          *AssembleParameters
	A, B, C, D *data.Data
	X, Y       *data.Data
	emS, emF   []float64
	geo        []float64
	rowIndex   utils.Index
	iS, iF     utils.MultiIndex // element matrix (k,m,s,r) and vector (s,k)
	iDSDX      utils.MultiIndex // (q,s,i)
	iA, iB, iC utils.MultiIndex
	iD, iX     utils.MultiIndex
}

func newElementKernel(p *AssembleParameters, A, B, C, D, X, Y *data.Data) (ek *elementKernel) {
	var (
		ns, nd = p.NumShapes, p.NumDim
		ne, nc = p.NumEqu, p.NumComp
	)
	ek = &elementKernel{
		p: p,
		A: A, B: B, C: C, D: D, X: X, Y: Y,
		emS:      make([]float64, ns*ns*ne*nc),
		emF:      make([]float64, ns*ne),
		geo:      make([]float64, ns*ns*nd*nd),
		rowIndex: utils.NewIndex(ns),
		iS:       utils.NewMultiIndex(ne, nc, ns, ns),
		iF:       utils.NewMultiIndex(ns, ne),
		iDSDX:    utils.NewMultiIndex(p.NumQuad, ns, nd),
		// coefficient data points, the scalar shapes are the ne = nc = 1 case
		iA: utils.NewMultiIndex(ne, nd, nc, nd),
		iB: utils.NewMultiIndex(nd, ne, nc),
		iC: utils.NewMultiIndex(ne, nd, nc),
		iD: utils.NewMultiIndex(ne, nc),
		iX: utils.NewMultiIndex(ne, nd),
	}
	return
}

// element computes EM_S and EM_F of element e, it reports which of them received terms
func (ek *elementKernel) element(e int) (addS, addF bool) {
	var (
		p      = ek.p
		ns, nq = p.NumShapes, p.NumQuad
		nd     = p.NumDim
		ne, nc = p.NumEqu, p.NumComp
		n      = nq * ns * nd
		dsdx   = p.DSDX[e*n : (e+1)*n]
		vol    = p.Vol[e*nq : (e+1)*nq]
		S      = p.S
		iDX    = ek.iDSDX
	)
	for i := range ek.emS {
		ek.emS[i] = 0
	}
	for i := range ek.emF {
		ek.emF[i] = 0
	}
	if !ek.A.IsEmpty() {
		addS = true
		Ap := ek.A.GetSampleDataRO(e)
		if ek.A.ActsExpanded() {
			dp := ek.A.GetDataPointSize()
			for s := 0; s < ns; s++ {
				for r := 0; r < ns; r++ {
					for k := 0; k < ne; k++ {
						for m := 0; m < nc; m++ {
							var f float64
							for q := 0; q < nq; q++ {
								Aq := Ap[q*dp : (q+1)*dp]
								var sum float64
								for i := 0; i < nd; i++ {
									for j := 0; j < nd; j++ {
										sum += dsdx[iDX.I3(q, s, i)] * Aq[ek.iA.I4(k, i, m, j)] * dsdx[iDX.I3(q, r, j)]
									}
								}
								f += vol[q] * sum
							}
							ek.emS[ek.iS.I4(k, m, s, r)] += f
						}
					}
				}
			}
		} else {
			// geo(s,r,i,j) = sum_q vol dS_s/dx_i dS_r/dx_j
			for s := 0; s < ns; s++ {
				for r := 0; r < ns; r++ {
					g := ek.geo[(s*ns+r)*nd*nd : (s*ns+r+1)*nd*nd]
					for i := range g {
						g[i] = 0
					}
					for q := 0; q < nq; q++ {
						for i := 0; i < nd; i++ {
							f := vol[q] * dsdx[iDX.I3(q, s, i)]
							for j := 0; j < nd; j++ {
								g[i*nd+j] += f * dsdx[iDX.I3(q, r, j)]
							}
						}
					}
					for k := 0; k < ne; k++ {
						for m := 0; m < nc; m++ {
							var sum float64
							for i := 0; i < nd; i++ {
								for j := 0; j < nd; j++ {
									sum += g[i*nd+j] * Ap[ek.iA.I4(k, i, m, j)]
								}
							}
							ek.emS[ek.iS.I4(k, m, s, r)] += sum
						}
					}
				}
			}
		}
	}
	if !ek.B.IsEmpty() {
		addS = true
		Bp := ek.B.GetSampleDataRO(e)
		expanded := ek.B.ActsExpanded()
		dp := ek.B.GetDataPointSize()
		for s := 0; s < ns; s++ {
			for r := 0; r < ns; r++ {
				if expanded {
					for k := 0; k < ne; k++ {
						for m := 0; m < nc; m++ {
							var f float64
							for q := 0; q < nq; q++ {
								Bq := Bp[q*dp : (q+1)*dp]
								var sum float64
								for i := 0; i < nd; i++ {
									sum += dsdx[iDX.I3(q, s, i)] * Bq[ek.iB.I3(i, k, m)]
								}
								f += vol[q] * S[q*ns+r] * sum
							}
							ek.emS[ek.iS.I4(k, m, s, r)] += f
						}
					}
					continue
				}
				g := ek.geo[:nd]
				for i := range g {
					g[i] = 0
				}
				for q := 0; q < nq; q++ {
					f := vol[q] * S[q*ns+r]
					for i := 0; i < nd; i++ {
						g[i] += f * dsdx[iDX.I3(q, s, i)]
					}
				}
				for k := 0; k < ne; k++ {
					for m := 0; m < nc; m++ {
						var sum float64
						for i := 0; i < nd; i++ {
							sum += g[i] * Bp[ek.iB.I3(i, k, m)]
						}
						ek.emS[ek.iS.I4(k, m, s, r)] += sum
					}
				}
			}
		}
	}
	if !ek.C.IsEmpty() {
		addS = true
		Cp := ek.C.GetSampleDataRO(e)
		expanded := ek.C.ActsExpanded()
		dp := ek.C.GetDataPointSize()
		for s := 0; s < ns; s++ {
			for r := 0; r < ns; r++ {
				if expanded {
					for k := 0; k < ne; k++ {
						for m := 0; m < nc; m++ {
							var f float64
							for q := 0; q < nq; q++ {
								Cq := Cp[q*dp : (q+1)*dp]
								var sum float64
								for j := 0; j < nd; j++ {
									sum += Cq[ek.iC.I3(k, j, m)] * dsdx[iDX.I3(q, r, j)]
								}
								f += vol[q] * S[q*ns+s] * sum
							}
							ek.emS[ek.iS.I4(k, m, s, r)] += f
						}
					}
					continue
				}
				g := ek.geo[:nd]
				for j := range g {
					g[j] = 0
				}
				for q := 0; q < nq; q++ {
					f := vol[q] * S[q*ns+s]
					for j := 0; j < nd; j++ {
						g[j] += f * dsdx[iDX.I3(q, r, j)]
					}
				}
				for k := 0; k < ne; k++ {
					for m := 0; m < nc; m++ {
						var sum float64
						for j := 0; j < nd; j++ {
							sum += g[j] * Cp[ek.iC.I3(k, j, m)]
						}
						ek.emS[ek.iS.I4(k, m, s, r)] += sum
					}
				}
			}
		}
	}
	if !ek.D.IsEmpty() {
		addS = true
		Dp := ek.D.GetSampleDataRO(e)
		expanded := ek.D.ActsExpanded()
		dp := ek.D.GetDataPointSize()
		for s := 0; s < ns; s++ {
			for r := 0; r < ns; r++ {
				if expanded {
					for k := 0; k < ne; k++ {
						for m := 0; m < nc; m++ {
							var f float64
							for q := 0; q < nq; q++ {
								f += vol[q] * S[q*ns+s] * Dp[q*dp+ek.iD.I2(k, m)] * S[q*ns+r]
							}
							ek.emS[ek.iS.I4(k, m, s, r)] += f
						}
					}
					continue
				}
				var f float64
				for q := 0; q < nq; q++ {
					f += vol[q] * S[q*ns+s] * S[q*ns+r]
				}
				for k := 0; k < ne; k++ {
					for m := 0; m < nc; m++ {
						ek.emS[ek.iS.I4(k, m, s, r)] += f * Dp[ek.iD.I2(k, m)]
					}
				}
			}
		}
	}
	if !ek.X.IsEmpty() {
		addF = true
		Xp := ek.X.GetSampleDataRO(e)
		expanded := ek.X.ActsExpanded()
		dp := ek.X.GetDataPointSize()
		for s := 0; s < ns; s++ {
			if expanded {
				for k := 0; k < ne; k++ {
					var f float64
					for q := 0; q < nq; q++ {
						var sum float64
						for i := 0; i < nd; i++ {
							sum += dsdx[iDX.I3(q, s, i)] * Xp[q*dp+ek.iX.I2(k, i)]
						}
						f += vol[q] * sum
					}
					ek.emF[ek.iF.I2(s, k)] += f
				}
				continue
			}
			g := ek.geo[:nd]
			for i := range g {
				g[i] = 0
			}
			for q := 0; q < nq; q++ {
				for i := 0; i < nd; i++ {
					g[i] += vol[q] * dsdx[iDX.I3(q, s, i)]
				}
			}
			for k := 0; k < ne; k++ {
				var sum float64
				for i := 0; i < nd; i++ {
					sum += g[i] * Xp[ek.iX.I2(k, i)]
				}
				ek.emF[ek.iF.I2(s, k)] += sum
			}
		}
	}
	if !ek.Y.IsEmpty() {
		addF = true
		Yp := ek.Y.GetSampleDataRO(e)
		expanded := ek.Y.ActsExpanded()
		for s := 0; s < ns; s++ {
			if expanded {
				for k := 0; k < ne; k++ {
					var f float64
					for q := 0; q < nq; q++ {
						f += vol[q] * S[q*ns+s] * Yp[q*ne+k]
					}
					ek.emF[ek.iF.I2(s, k)] += f
				}
				continue
			}
			var f float64
			for q := 0; q < nq; q++ {
				f += vol[q] * S[q*ns+s]
			}
			for k := 0; k < ne; k++ {
				ek.emF[ek.iF.I2(s, k)] += f * Yp[k]
			}
		}
	}
	return
}

/*
assembleElements runs the kernel color by color. Elements of one color share no node, so
the scatter of a color never hits the same entry twice and the result does not depend on
the number of workers.
*/
func (a Assembler) assembleElements(p *AssembleParameters, elements *mesh.ElementFile,
	S *sysmat.SystemMatrix, F []float64, A, B, C, D, X, Y *data.Data) (err error) {
	var (
		np      = a.workers()
		kernels = make([]*elementKernel, np)
		errs    = make([]error, np)
	)
	for i := range kernels {
		kernels[i] = newElementKernel(p, A, B, C, D, X, Y)
	}
	for color := elements.MinColor; color <= elements.MaxColor; color++ {
		elems := elements.ElementsOfColor(color)
		utils.ParallelFor(np, len(elems), func(bn, kMin, kMax int) {
			ek := kernels[bn]
			for _, e := range elems[kMin:kMax] {
				addS, addF := ek.element(e)
				p.elementDOFs(elements, e, ek.rowIndex)
				if addF {
					utils.AddScatter(ek.rowIndex, p.NumEqu, ek.emF, F, p.RowDOFUpperBound)
				}
				if addS {
					if e2 := S.AddToSystemMatrix(ek.rowIndex, p.NumEqu, ek.rowIndex, p.NumComp,
						p.RowDOFUpperBound, ek.emS); e2 != nil && errs[bn] == nil {
						errs[bn] = e2
					}
				}
			}
		})
		for _, e := range errs {
			if e != nil {
				return e
			}
		}
	}
	return
}
