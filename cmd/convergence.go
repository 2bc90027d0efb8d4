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
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gopde/InputParameters"
	"github.com/notargets/gopde/model_problems"
)

// ConvergenceCmd represents the convergence command
var ConvergenceCmd = &cobra.Command{
	Use:   "convergence",
	Short: "Refine a problem with a known solution and report the observed order",
	Long: `
Solves -u'' + u = 1 on [0,L]x[0,1] with u = 0 at x = 0 and x = L on a sequence of
refined meshes and compares with u = 1 - cosh(x - L/2)/cosh(L/2).

gopde convergence -k 4 -l 5 -o study.csv`,
	Run: func(cmd *cobra.Command, args []string) {
		k, _ := cmd.Flags().GetInt("k")
		levels, _ := cmd.Flags().GetInt("levels")
		csvFile, _ := cmd.Flags().GetString("output")
		cs, err := RunConvergence(k, levels, viper.GetInt("workers"))
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		cs.Print()
		if csvFile != "" {
			if err = cs.WriteCSV(csvFile); err != nil {
				fmt.Printf("error: %s\n", err.Error())
				os.Exit(1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(ConvergenceCmd)
	ConvergenceCmd.Flags().IntP("k", "k", 4, "cells in x on the coarsest mesh")
	ConvergenceCmd.Flags().IntP("levels", "l", 4, "number of meshes, each refined by 2")
	ConvergenceCmd.Flags().StringP("output", "o", "", "CSV file for the study")
}

type ConvergenceStudy struct {
	title          string
	numPTS         []int
	errRMS, errMAX []float64
}

func NewConvergenceStudy(title string) *ConvergenceStudy {
	return &ConvergenceStudy{title: title}
}

func (cs *ConvergenceStudy) Add(numPTS int, errRMS, errMAX float64) {
	cs.numPTS = append(cs.numPTS, numPTS)
	cs.errRMS = append(cs.errRMS, errRMS)
	cs.errMAX = append(cs.errMAX, errMAX)
}

// Orders returns the observed order between consecutive refinements, in the RMS and max error
func (cs *ConvergenceStudy) Orders() (rms, mx []float64) {
	for i := 1; i < len(cs.numPTS); i++ {
		ratio := math.Log(float64(cs.numPTS[i]) / float64(cs.numPTS[i-1]))
		rms = append(rms, math.Log(cs.errRMS[i-1]/cs.errRMS[i])/ratio)
		mx = append(mx, math.Log(cs.errMAX[i-1]/cs.errMAX[i])/ratio)
	}
	return
}

func (cs *ConvergenceStudy) Print() {
	rms, mx := cs.Orders()
	fmt.Printf("Title = %s\n", cs.title)
	for i := range cs.numPTS {
		fmt.Printf("%d, %v, %v", cs.numPTS[i], cs.errRMS[i], cs.errMAX[i])
		if i > 0 {
			fmt.Printf(", order %5.2f, %5.2f", rms[i-1], mx[i-1])
		}
		fmt.Println()
	}
}

func (cs *ConvergenceStudy) WriteCSV(csvFile string) (err error) {
	var f *os.File
	if f, err = os.Create(csvFile); err != nil {
		return
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for i := range cs.numPTS {
		if err = w.Write([]string{cs.title, strconv.Itoa(cs.numPTS[i]),
			strconv.FormatFloat(cs.errRMS[i], 'e', 8, 64),
			strconv.FormatFloat(cs.errMAX[i], 'e', 8, 64)}); err != nil {
			return
		}
	}
	w.Flush()
	return w.Error()
}

// RunConvergence solves on k, 2k, ... cells in x and records the nodal errors
func RunConvergence(k, levels, workers int) (cs *ConvergenceStudy, err error) {
	const length = 2.
	exact := func(x float64) float64 {
		return 1 - math.Cosh(x-length/2)/math.Cosh(length/2)
	}
	cs = NewConvergenceStudy("reaction-diffusion")
	for level := 0; level < levels; level++ {
		nx := k << level
		pp := InputParameters.NewProblemParameters()
		pp.Title = fmt.Sprintf("level %d", level)
		pp.Dimensions, pp.Lengths = []int{nx, 2}, []float64{length, 1}
		pp.Reaction, pp.Source = 1, 1
		pp.Dirichlet = map[string]float64{"x0": 0, "x1": 0}
		pp.Solver.Tolerance = 1.e-12
		var c *model_problems.DiffusionReaction
		if c, err = model_problems.NewDiffusionReaction(pp); err != nil {
			return
		}
		c.Workers = workers
		if err = c.Run(false); err != nil {
			return
		}
		var sum2, errMax float64
		for i := 0; i < c.Mesh.Nodes.NumNodes; i++ {
			e := math.Abs(c.Value(i, 0) - exact(c.Mesh.Nodes.Coordinate(i)[0]))
			sum2 += e * e
			errMax = math.Max(errMax, e)
		}
		cs.Add(nx+1, math.Sqrt(sum2/float64(c.Mesh.Nodes.NumNodes)), errMax)
	}
	return
}
