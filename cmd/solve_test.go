package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/utils"
)

func TestProcessInput(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
Dimensions: [6, 3]
Lengths: [2., 1.]
Source: 1.
Dirichlet:
  x0: 0.
  y1: 1.5
Solver:
  Method: gmres
  Preconditioner: amg
`)
	file := filepath.Join(t.TempDir(), "problem.yaml")
	require.NoError(t, os.WriteFile(file, fileInput, 0644))
	pp := processInput(&ModelSolve{ICFile: file})
	assert.Equal(t, "Test Case", pp.Title)
	assert.Equal(t, 1.5, pp.Dirichlet["y1"])
	assert.Equal(t, "gmres", pp.Solver.Method)
	pp.Print()
	require.NoError(t, RunSolve(&ModelSolve{}, pp))
}

func TestPartitionReport(t *testing.T) {
	dok := utils.NewDOK(4, 4, "chain")
	for i := 0; i < 4; i++ {
		for j := i - 1; j <= i+1; j++ {
			if j >= 0 && j < 4 {
				dok.Insert(i, j)
			}
		}
	}
	rep := NewPartitionReport(sysmat.NewPatternFromDOK(dok), []int{0, 0, 1, 1}, 2)
	assert.Equal(t, []int{2, 2}, rep.Sizes)
	assert.Equal(t, 2, rep.Coupling)
}

func TestConvergenceStudy(t *testing.T) {
	{ // Orders from errors that drop by four per halving
		cs := NewConvergenceStudy("synthetic")
		cs.Add(10, 1, 2)
		cs.Add(20, 0.25, 0.5)
		cs.Add(40, 0.0625, 0.125)
		rms, mx := cs.Orders()
		assert.InDeltaSlice(t, []float64{2, 2}, rms, 1.e-12)
		assert.InDeltaSlice(t, []float64{2, 2}, mx, 1.e-12)
		file := filepath.Join(t.TempDir(), "study.csv")
		require.NoError(t, cs.WriteCSV(file))
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "synthetic,20,2.50000000e-01,5.00000000e-01")
	}
	{ // Linear elements reduce the nodal error under refinement
		cs, err := RunConvergence(4, 3, 0)
		require.NoError(t, err)
		for i := 1; i < 3; i++ {
			assert.True(t, cs.errMAX[i] < cs.errMAX[i-1])
		}
	}
}
