package InputParameters

import (
	"errors"
	"testing"

	"github.com/notargets/gopde/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemParameters(t *testing.T) {
	{ // Keys missing from the file keep their defaults
		var data = []byte(`
Title: "Heated plate"
Dimensions: [8, 4]
Lengths: [2, 1]
Reaction: 0.5
Source: 1
Dirichlet:
  x0: 0
  x1: 1
Solver:
  Method: pcg
  Preconditioner: amg
  CoarseningMethod: yair_shapira
  Tolerance: 1.e-10
`)
		pp := NewProblemParameters()
		require.NoError(t, pp.Parse(data))
		assert.Equal(t, "Heated plate", pp.Title)
		assert.Equal(t, []int{8, 4}, pp.Dimensions)
		assert.Equal(t, 1., pp.Diffusion)
		assert.Equal(t, 0.5, pp.Reaction)
		assert.Equal(t, map[string]float64{"x0": 0, "x1": 1}, pp.Dirichlet)
		assert.Equal(t, 1, pp.Partitions)
		o, err := pp.Solver.Options()
		require.NoError(t, err)
		assert.Equal(t, types.SM_PCG, o.Method)
		assert.Equal(t, types.PC_AMG, o.Preconditioner)
		assert.Equal(t, types.CM_YairShapira, o.CoarseningMethod)
		assert.Equal(t, 1.e-10, o.Tolerance)
		assert.Equal(t, 10000, o.IterMax)
		assert.Equal(t, 0.25, o.CoarseningThreshold)
		assert.Equal(t, 20, o.Truncation)
	}
	{ // Malformed problems
		pp := NewProblemParameters()
		assert.Error(t, pp.Parse([]byte(`Dimensions: [8]`)))
		pp = NewProblemParameters()
		assert.Error(t, pp.Parse([]byte("Dimensions: [8, 8]\nLengths: [1]")))
		pp = NewProblemParameters()
		assert.Error(t, pp.Parse([]byte("Dimensions: [8, 8]\nLengths: [1, 1]\nDirichlet:\n  z0: 1")))
		pp = NewProblemParameters()
		require.NoError(t, pp.Parse([]byte("Dimensions: [2, 2, 2]\nLengths: [1, 1, 1]\nDirichlet:\n  z0: 1")))
	}
	{ // Unknown option names
		sp := NewSolverParameters()
		require.NoError(t, sp.Parse([]byte(`Preconditioner: ilu0`)))
		_, err := sp.Options()
		assert.True(t, errors.Is(err, types.ErrValue))
		sp = NewSolverParameters()
		require.NoError(t, sp.Parse([]byte(`Sweeps: 0`)))
		_, err = sp.Options()
		assert.True(t, errors.Is(err, types.ErrValue))
	}
}
