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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gopde/InputParameters"
	"github.com/notargets/gopde/model_problems"
)

type ModelSolve struct {
	ICFile   string
	Graph    bool
	Delay    time.Duration
	Perf     bool
	Workers  int
	Validate bool
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Assemble and solve a diffusion-reaction problem described in a YAML file",
	Long: `
Assembles -div(Diffusion grad u) + Reaction u = Source on a structured rectangle or
box, or on an SU2 mesh given as MeshFile, fixes u on the Dirichlet sides or markers and solves with the configured Krylov method and
preconditioner. Partitions > 1 splits the DOFs with METIS and solves in parallel.

gopde solve -I problem.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		ms := &ModelSolve{}
		if ms.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		ms.Graph, _ = cmd.Flags().GetBool("graph")
		ms.Perf, _ = cmd.Flags().GetBool("perf")
		ms.Validate, _ = cmd.Flags().GetBool("validate")
		ms.Workers = viper.GetInt("workers")
		dr, _ := cmd.Flags().GetInt("delay")
		ms.Delay = time.Duration(dr) * time.Millisecond
		pp := processInput(ms)
		if ms.Validate {
			pp.Print()
			return
		}
		if err = RunSolve(ms, pp); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

const exampleFile = `
########################################
Title: "Heated plate"
Dimensions: [32, 16]   # cells per direction, 3 entries for a box
Lengths: [2, 1]
Diffusion: 1
Reaction: 0
Source: 1
Dirichlet:             # sides x0, x1, y0, y1, z0, z1
  x0: 0
  x1: 1
NumEquations: 1
Partitions: 1
Solver:
  Method: pcg          # default, pcg, bicgstab, gmres, pres20
  Preconditioner: amg  # jacobi, gauss_seidel, amg, none
  Tolerance: 1.e-8
########################################
`

func processInput(ms *ModelSolve) (pp *InputParameters.ProblemParameters) {
	var (
		err  error
		data []byte
	)
	if len(ms.ICFile) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	if data, err = os.ReadFile(ms.ICFile); err != nil {
		panic(err)
	}
	pp = InputParameters.NewProblemParameters()
	if err = pp.Parse(data); err != nil {
		panic(err)
	}
	return
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	SolveCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Dimensions, Lengths\n\t- Diffusion, Reaction, Source\n\t- Dirichlet sides\n\t- Solver options")
	SolveCmd.Flags().BoolP("graph", "g", false, "display the solution over x")
	SolveCmd.Flags().IntP("delay", "d", 0, "milliseconds to keep the graph open")
	SolveCmd.Flags().Bool("perf", false, "count the CPU instructions of the run")
	SolveCmd.Flags().Bool("validate", false, "print the parsed input and exit")
}

func RunSolve(ms *ModelSolve, pp *InputParameters.ProblemParameters) (err error) {
	pp.Print()
	c, err := model_problems.NewDiffusionReaction(pp)
	if err != nil {
		return
	}
	c.Workers = ms.Workers
	run := func() error { return c.Run(ms.Graph, ms.Delay) }
	if ms.Perf {
		return countInstructions(run)
	}
	return run()
}
