package model_problems

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gopde/InputParameters"
	"github.com/notargets/gopde/types"
)

func problem(t *testing.T, input string) *InputParameters.ProblemParameters {
	pp := InputParameters.NewProblemParameters()
	require.NoError(t, pp.Parse([]byte(input)))
	return pp
}

func TestDiffusionReaction(t *testing.T) {
	{ // Linear profile between two fixed sides, reproduced exactly by linear elements
		for _, input := range []string{
			"Title: plate\nDimensions: [8, 4]\nLengths: [2, 1]\nDirichlet: {x0: 0, x1: 1}\n",
			"Title: plate\nDimensions: [8, 4]\nLengths: [2, 1]\nDirichlet: {x0: 0, x1: 1}\nSolver: {Method: gmres, Preconditioner: amg, MinCoarseMatrixSize: 10}\n",
			"Title: box\nDimensions: [4, 3, 2]\nLengths: [2, 1, 1]\nDirichlet: {x0: 0, x1: 1}\nSolver: {Method: bicgstab}\n",
			"Title: split\nDimensions: [8, 4]\nLengths: [2, 1]\nDirichlet: {x0: 0, x1: 1}\nPartitions: 2\n",
		} {
			pp := problem(t, input)
			pp.Solver.Tolerance = 1.e-12
			c, err := NewDiffusionReaction(pp)
			require.NoError(t, err)
			require.NoError(t, c.Run(false), input)
			assert.Equal(t, types.SS_Converged, c.Stats.Status)
			for i := 0; i < c.Mesh.Nodes.NumNodes; i++ {
				x := c.Mesh.Nodes.Coordinate(i)[0]
				assert.InDelta(t, x/2, c.Value(i, 0), 1.e-8, "%s node %d", pp.Title, i)
			}
		}
	}
	{ // Reaction and source alone give u = Source/Reaction, block and expanded storage
		for _, expanded := range []string{"false", "true"} {
			pp := problem(t, "Dimensions: [4, 4]\nLengths: [1, 1]\nReaction: 2\nSource: 3\nNumEquations: 2\nExpanded: "+expanded+"\n")
			c, err := NewDiffusionReaction(pp)
			require.NoError(t, err)
			require.NoError(t, c.Run(false))
			for i := 0; i < c.Mesh.Nodes.NumNodes; i++ {
				assert.InDelta(t, 1.5, c.Value(i, 0), 1.e-7)
				assert.InDelta(t, 1.5, c.Value(i, 1), 1.e-7)
			}
		}
	}
	{ // Dirichlet values end up on the constrained nodes
		pp := problem(t, "Dimensions: [4, 4]\nLengths: [1, 1]\nDirichlet: {y0: 2, y1: 2}\nSource: 1\n")
		c, err := NewDiffusionReaction(pp)
		require.NoError(t, err)
		require.NoError(t, c.Run(false))
		for i := 0; i < c.Mesh.Nodes.NumNodes; i++ {
			if y := c.Mesh.Nodes.Coordinate(i)[1]; y == 0 || y == 1 {
				assert.InDelta(t, 2, c.Value(i, 0), 1.e-12)
			} else {
				assert.True(t, c.Value(i, 0) > 2)
			}
		}
	}
	{ // SU2 mesh with Dirichlet markers
		file := filepath.Join(t.TempDir(), "strip.su2")
		require.NoError(t, os.WriteFile(file, []byte(`NDIME= 2
NPOIN= 6
0 0
1 0
2 0
0 1
1 1
2 1
NELEM= 4
5 0 1 4
5 0 4 3
5 1 2 5
5 1 5 4
NMARK= 2
MARKER_TAG= inlet
MARKER_ELEMS= 1
3 3 0
MARKER_TAG= outlet
MARKER_ELEMS= 1
3 2 5
`), 0644))
		pp := problem(t, "MeshFile: "+file+"\nDirichlet: {inlet: 0, outlet: 1}\n")
		c, err := NewDiffusionReaction(pp)
		require.NoError(t, err)
		require.NoError(t, c.Run(false))
		assert.InDelta(t, 0.5, c.Value(1, 0), 1.e-8)
		assert.InDelta(t, 0.5, c.Value(4, 0), 1.e-8)
		assert.InDelta(t, 1, c.Value(5, 0), 1.e-12)

		pp = problem(t, "MeshFile: "+file+"\nDirichlet: {wall: 0}\n")
		_, err = NewDiffusionReaction(pp)
		assert.True(t, errors.Is(err, types.ErrValue))
	}
	{ // Pure diffusion without a fixed value is rejected
		pp := problem(t, "Dimensions: [4, 4]\nLengths: [1, 1]\n")
		_, err := NewDiffusionReaction(pp)
		assert.True(t, errors.Is(err, types.ErrValue))
	}
}
