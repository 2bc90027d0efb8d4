/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notargets/gopde/InputParameters"
	"github.com/notargets/gopde/mesh"
	"github.com/notargets/gopde/model_problems"
	"github.com/notargets/gopde/sysmat"
)

// PartitionCmd represents the partition command
var PartitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Split the DOFs of a problem mesh with METIS and report the balance",
	Long: `
Builds the mesh of a problem file, partitions its DOF graph into the requested number
of parts and prints the part sizes and the number of matrix entries coupling parts.

gopde partition -I problem.yaml -n 4`,
	Run: func(cmd *cobra.Command, args []string) {
		ms := &ModelSolve{}
		ms.ICFile, _ = cmd.Flags().GetString("inputConditionsFile")
		np, _ := cmd.Flags().GetInt("parts")
		pp := processInput(ms)
		if np < 1 {
			np = pp.Partitions
		}
		if err := RunPartition(pp, np); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(PartitionCmd)
	PartitionCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML problem file, see solve")
	PartitionCmd.Flags().IntP("parts", "n", 0, "number of parts, 0 uses Partitions from the problem file")
}

type PartitionReport struct {
	Sizes    []int
	Coupling int // off-rank entries of the DOF pattern
}

func RunPartition(pp *InputParameters.ProblemParameters, np int) (err error) {
	var (
		m    *mesh.Mesh
		part []int
	)
	if m, _, err = model_problems.NewProblemMesh(pp); err != nil {
		return
	}
	if part, err = m.PartitionDOFs(np); err != nil {
		return
	}
	rep := NewPartitionReport(m.GetPattern(), part, np)
	fmt.Printf("%d DOFs in %d parts\n", m.Nodes.NumDOF, np)
	for r, size := range rep.Sizes {
		fmt.Printf("part[%d] = %d DOFs\n", r, size)
	}
	fmt.Printf("%d of %d pattern entries couple parts\n", rep.Coupling, m.GetPattern().Len())
	return
}

func NewPartitionReport(p *sysmat.Pattern, part []int, np int) (rep PartitionReport) {
	rep.Sizes = make([]int, np)
	for i, r := range part {
		rep.Sizes[r]++
		for _, j := range p.Row(i) {
			if part[j] != r {
				rep.Coupling++
			}
		}
	}
	return
}
