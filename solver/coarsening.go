package solver

import (
	"container/heap"
	"math"

	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
)

/*
Coarsen splits the rows of a scalar matrix into a fine set F, eliminated on this level,
and a coarse set C passed to the next level. isF[i] is true for rows in F. Rows without
strong connections always go to F.
*/
func Coarsen(A *sysmat.SparseMatrix, method types.CoarseningMethod, threshold float64) (isF []bool) {
	switch method {
	case types.CM_YairShapira:
		return coarsenYairShapira(A, threshold)
	case types.CM_Aggregation:
		return coarsenAggregation(A, threshold)
	default:
		return coarsenRugeStueben(A, threshold)
	}
}

// strongNegative lists for every row the columns j with -a_ij >= theta max_k(-a_ik)
func strongNegative(A *sysmat.SparseMatrix, theta float64) (S [][]int) {
	var (
		p = A.Pattern
		n = A.NumRows()
	)
	S = make([][]int, n)
	for i := 0; i < n; i++ {
		var maxNeg float64
		for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
			if j := p.Index[iptr]; j != i && j < n {
				maxNeg = math.Max(maxNeg, -A.Val[iptr])
			}
		}
		if maxNeg <= 0 {
			continue
		}
		for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
			if j := p.Index[iptr]; j != i && j < n && -A.Val[iptr] >= theta*maxNeg {
				S[i] = append(S[i], j)
			}
		}
	}
	return
}

/*
strongSymmetric lists for every row the columns j with

	|a_ij| >= theta sqrt(r_i r_j),  r_i = max_{k != i} |a_ik|

the strength relation is symmetric and does not depend on the weight of the main
diagonal, so reaction or mass terms do not hide the coupling.
*/
func strongSymmetric(A *sysmat.SparseMatrix, theta float64) (S [][]int) {
	var (
		p = A.Pattern
		n = A.NumRows()
		r = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
			if j := p.Index[iptr]; j != i && j < n {
				r[i] = math.Max(r[i], math.Abs(A.Val[iptr]))
			}
		}
	}
	S = make([][]int, n)
	for i := 0; i < n; i++ {
		if r[i] == 0 {
			continue
		}
		for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
			j := p.Index[iptr]
			if j == i || j >= n || r[j] == 0 {
				continue
			}
			if aij := math.Abs(A.Val[iptr]); aij > 0 && aij >= theta*math.Sqrt(r[i]*r[j]) {
				S[i] = append(S[i], j)
			}
		}
	}
	return
}

type lambdaItem struct {
	row, lambda int
}

// lambdaHeap is a max heap with lazy deletion, stale items are skipped on Pop
type lambdaHeap []lambdaItem

func (h lambdaHeap) Len() int { return len(h) }
func (h lambdaHeap) Less(i, j int) bool {
	if h[i].lambda == h[j].lambda {
		return h[i].row < h[j].row
	}
	return h[i].lambda > h[j].lambda
}
func (h lambdaHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *lambdaHeap) Push(x any)   { *h = append(*h, x.(lambdaItem)) }
func (h *lambdaHeap) Pop() any {
	old := *h
	item := old[len(old)-1]
	*h = old[:len(old)-1]
	return item
}

const (
	undecided = iota
	inF
	inC
)

/*
coarsenRugeStueben is the classical first pass: the undecided row influencing the most
undecided rows becomes C and every row strongly depending on it becomes F.
*/
func coarsenRugeStueben(A *sysmat.SparseMatrix, theta float64) (isF []bool) {
	var (
		n      = A.NumRows()
		S      = strongNegative(A, theta)
		ST     = make([][]int, n)
		lambda = make([]int, n)
		state  = make([]int, n)
		h      = make(lambdaHeap, 0, n)
	)
	for i, row := range S {
		for _, j := range row {
			ST[j] = append(ST[j], i)
		}
	}
	for i := 0; i < n; i++ {
		if len(S[i]) == 0 && len(ST[i]) == 0 {
			state[i] = inF
			continue
		}
		lambda[i] = len(ST[i])
		h = append(h, lambdaItem{row: i, lambda: lambda[i]})
	}
	heap.Init(&h)
	for h.Len() > 0 {
		item := heap.Pop(&h).(lambdaItem)
		j := item.row
		if state[j] != undecided || item.lambda != lambda[j] {
			continue
		}
		state[j] = inC
		for _, k := range S[j] {
			if state[k] == undecided {
				lambda[k]--
				heap.Push(&h, lambdaItem{row: k, lambda: lambda[k]})
			}
		}
		for _, i := range ST[j] {
			if state[i] != undecided {
				continue
			}
			state[i] = inF
			for _, k := range S[i] {
				if state[k] == undecided {
					lambda[k]++
					heap.Push(&h, lambdaItem{row: k, lambda: lambda[k]})
				}
			}
		}
	}
	isF = make([]bool, n)
	for i, s := range state {
		isF[i] = s == inF
	}
	return
}

// coarsenYairShapira puts a maximal independent set of the strong graph into F
func coarsenYairShapira(A *sysmat.SparseMatrix, theta float64) (isF []bool) {
	var (
		n     = A.NumRows()
		S     = strongSymmetric(A, theta)
		state = make([]int, n)
	)
	for i := 0; i < n; i++ {
		if state[i] != undecided {
			continue
		}
		state[i] = inF
		for _, j := range S[i] {
			if state[j] == undecided {
				state[j] = inC
			}
		}
	}
	isF = make([]bool, n)
	for i, s := range state {
		isF[i] = s == inF
	}
	return
}

// coarsenAggregation makes every undecided row with strong neighbours an aggregate root
// in C, its undecided strong neighbours join the aggregate in F
func coarsenAggregation(A *sysmat.SparseMatrix, theta float64) (isF []bool) {
	var (
		n     = A.NumRows()
		S     = strongSymmetric(A, theta)
		state = make([]int, n)
	)
	for i := 0; i < n; i++ {
		if len(S[i]) == 0 {
			state[i] = inF
		}
	}
	for i := 0; i < n; i++ {
		if state[i] != undecided {
			continue
		}
		state[i] = inC
		for _, j := range S[i] {
			if state[j] == undecided {
				state[j] = inF
			}
		}
	}
	isF = make([]bool, n)
	for i, s := range state {
		isF[i] = s == inF
	}
	return
}
