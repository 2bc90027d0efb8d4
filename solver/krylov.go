package solver

import (
	"errors"
	"math"

	"github.com/notargets/gopde/sysmat"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

var (
	errMaxIterations = errors.New("maximum number of iterations reached")
	errBreakdown     = errors.New("breakdown")
)

/*
krylovMethod improves x starting from the residual r = b - A x until the 2-norm of the
residual is at most tol or maxIter iterations are done. r is updated along with x. The
returned error is nil on convergence, errMaxIterations or errBreakdown otherwise.
*/
type krylovMethod func(S *sysmat.SystemMatrix, P Preconditioner, x, r []float64,
	maxIter int, tol float64) (iter int, resid float64, err error)

// PCG is the preconditioned conjugate gradient method for symmetric matrices
func PCG(S *sysmat.SystemMatrix, P Preconditioner, x, r []float64,
	maxIter int, tol float64) (iter int, resid float64, err error) {
	var (
		n        = len(r)
		z        = make([]float64, n)
		p        = make([]float64, n)
		q        = make([]float64, n)
		rho, tau float64
	)
	resid, _ = S.Norms(r, nil)
	P.Solve(z, r)
	rho = S.Dot(r, z)
	copy(p, z)
	for iter < maxIter {
		if rho == 0 || math.IsNaN(rho) {
			return iter, resid, errBreakdown
		}
		S.MatrixVector(1, p, 0, q)
		if tau = S.Dot(p, q); tau == 0 || math.IsNaN(tau) {
			return iter, resid, errBreakdown
		}
		alpha := rho / tau
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)
		iter++
		if resid, _ = S.Norms(r, nil); resid <= tol {
			return
		}
		P.Solve(z, r)
		rhoNew := S.Dot(r, z)
		// p = z + beta p
		floats.Scale(rhoNew/rho, p)
		floats.Add(p, z)
		rho = rhoNew
	}
	return iter, resid, errMaxIterations
}

// BiCGStab is the stabilized bi-conjugate gradient method with right preconditioning
func BiCGStab(S *sysmat.SystemMatrix, P Preconditioner, x, r []float64,
	maxIter int, tol float64) (iter int, resid float64, err error) {
	var (
		n      = len(r)
		rTilde = make([]float64, n)
		p      = make([]float64, n)
		v      = make([]float64, n)
		s      = make([]float64, n)
		t      = make([]float64, n)
		pHat   = make([]float64, n)
		sHat   = make([]float64, n)
	)
	rhoOld, alpha, omega := 1., 1., 1.
	resid, _ = S.Norms(r, nil)
	copy(rTilde, r)
	for iter < maxIter {
		rho := S.Dot(rTilde, r)
		if rho == 0 || math.IsNaN(rho) {
			return iter, resid, errBreakdown
		}
		if iter == 0 {
			copy(p, r)
		} else {
			// p = r + beta (p - omega v)
			beta := (rho / rhoOld) * (alpha / omega)
			floats.AddScaled(p, -omega, v)
			floats.Scale(beta, p)
			floats.Add(p, r)
		}
		P.Solve(pHat, p)
		S.MatrixVector(1, pHat, 0, v)
		tau := S.Dot(rTilde, v)
		if tau == 0 || math.IsNaN(tau) {
			return iter, resid, errBreakdown
		}
		alpha = rho / tau
		floats.AddScaledTo(s, r, -alpha, v)
		floats.AddScaled(x, alpha, pHat)
		iter++
		if resid, _ = S.Norms(s, nil); resid <= tol {
			copy(r, s)
			return
		}
		P.Solve(sHat, s)
		S.MatrixVector(1, sHat, 0, t)
		tt := S.Dot(t, t)
		if tt == 0 || math.IsNaN(tt) {
			copy(r, s)
			return iter, resid, errBreakdown
		}
		omega = S.Dot(t, s) / tt
		floats.AddScaled(x, omega, sHat)
		floats.AddScaledTo(r, s, -omega, t)
		if resid, _ = S.Norms(r, nil); resid <= tol {
			return
		}
		if omega == 0 {
			return iter, resid, errBreakdown
		}
		rhoOld = rho
	}
	return iter, resid, errMaxIterations
}

/*
NewGMRES returns restarted right preconditioned GMRES building Krylov spaces of
dimension m before each restart.
*/
func NewGMRES(m int) krylovMethod {
	if m < 1 {
		m = 1
	}
	return func(S *sysmat.SystemMatrix, P Preconditioner, x, r []float64,
		maxIter int, tol float64) (iter int, resid float64, err error) {
		return gmres(S, P, x, r, maxIter, tol, m)
	}
}

func gmres(S *sysmat.SystemMatrix, P Preconditioner, x, r []float64,
	maxIter int, tol float64, m int) (iter int, resid float64, err error) {
	var (
		n      = len(r)
		V      = make([][]float64, m+1)
		H      = make([]float64, (m+1)*m) // row major, stride m
		cs, sn = make([]float64, m), make([]float64, m)
		g      = make([]float64, m+1)
		y      = make([]float64, m)
		w      = make([]float64, n)
		z      = make([]float64, n)
	)
	for k := range V {
		V[k] = make([]float64, n)
	}
	resid, _ = S.Norms(r, nil)
	for iter < maxIter {
		beta := resid
		if beta == 0 {
			return
		}
		if math.IsNaN(beta) {
			return iter, resid, errBreakdown
		}
		floats.ScaleTo(V[0], 1/beta, r)
		for i := range g {
			g[i] = 0
		}
		g[0] = beta
		k := 0
		for k < m && iter < maxIter {
			P.Solve(z, V[k])
			S.MatrixVector(1, z, 0, w)
			// modified Gram-Schmidt
			for j := 0; j <= k; j++ {
				h := S.Dot(w, V[j])
				H[j*m+k] = h
				floats.AddScaled(w, -h, V[j])
			}
			hNext, _ := S.Norms(w, nil)
			for j := 0; j < k; j++ {
				a, b := H[j*m+k], H[(j+1)*m+k]
				H[j*m+k] = cs[j]*a + sn[j]*b
				H[(j+1)*m+k] = -sn[j]*a + cs[j]*b
			}
			var rr float64
			cs[k], sn[k], rr, _ = blas64.Rotg(H[k*m+k], hNext)
			H[k*m+k], H[(k+1)*m+k] = rr, 0
			g[k+1] = -sn[k] * g[k]
			g[k] *= cs[k]
			iter++
			k++
			resid = math.Abs(g[k])
			if hNext == 0 || resid <= tol {
				break
			}
			floats.ScaleTo(V[k], 1/hNext, w)
		}
		for j := 0; j < k; j++ {
			if H[j*m+j] == 0 {
				return iter, resid, errBreakdown
			}
		}
		copy(y, g[:k])
		blas64.Trsv(blas.NoTrans,
			blas64.Triangular{Uplo: blas.Upper, Diag: blas.NonUnit, N: k, Stride: m, Data: H},
			blas64.Vector{N: k, Inc: 1, Data: y})
		// x += P⁻¹ V y and r -= A P⁻¹ V y
		for i := range w {
			w[i] = 0
		}
		for j := 0; j < k; j++ {
			floats.AddScaled(w, y[j], V[j])
		}
		P.Solve(z, w)
		floats.Add(x, z)
		S.MatrixVector(-1, z, 1, r)
		if resid, _ = S.Norms(r, nil); resid <= tol {
			return
		}
	}
	return iter, resid, errMaxIterations
}
