package types

import "strings"

type SolverMethod uint8

const (
	SM_Default SolverMethod = iota
	SM_BiCGStab
	SM_PCG
	SM_GMRES
	SM_PRES20
)

var SolverMethodNameMap = map[string]SolverMethod{
	"default":  SM_Default,
	"bicgstab": SM_BiCGStab,
	"pcg":      SM_PCG,
	"cg":       SM_PCG,
	"gmres":    SM_GMRES,
	"pres20":   SM_PRES20,
}

func (sm SolverMethod) String() string {
	return [...]string{"DEFAULT", "BICGSTAB", "PCG", "GMRES", "PRES20"}[sm]
}

type PreconditionerType uint8

const (
	PC_Jacobi PreconditionerType = iota
	PC_GaussSeidel
	PC_AMG
	PC_None
)

var PreconditionerNameMap = map[string]PreconditionerType{
	"jacobi":       PC_Jacobi,
	"gauss_seidel": PC_GaussSeidel,
	"gs":           PC_GaussSeidel,
	"amg":          PC_AMG,
	"none":         PC_None,
}

func (pc PreconditionerType) String() string {
	return [...]string{"JACOBI", "GAUSS_SEIDEL", "AMG", "NONE"}[pc]
}

type CoarseningMethod uint8

const (
	CM_RugeStueben CoarseningMethod = iota
	CM_YairShapira
	CM_Aggregation
)

var CoarseningNameMap = map[string]CoarseningMethod{
	"ruge_stueben": CM_RugeStueben,
	"rs":           CM_RugeStueben,
	"yair_shapira": CM_YairShapira,
	"ys":           CM_YairShapira,
	"aggregation":  CM_Aggregation,
}

func (cm CoarseningMethod) String() string {
	return [...]string{"RUGE_STUEBEN", "YAIR_SHAPIRA", "AGGREGATION"}[cm]
}

// LookupName resolves a case insensitive option name through one of the name maps
func LookupName[T ~uint8](nameMap map[string]T, name string) (val T, ok bool) {
	val, ok = nameMap[strings.ToLower(strings.TrimSpace(name))]
	return
}

// SolverStatus is the terminal state reported by the iterative driver
type SolverStatus uint8

const (
	SS_Initializing SolverStatus = iota
	SS_Iterating
	SS_Converged
	SS_Diverged
	SS_MaxIterReached
	SS_FatalError
)

func (ss SolverStatus) String() string {
	return [...]string{"Initializing", "Iterating", "Converged", "Diverged",
		"MaxIterReached", "FatalError"}[ss]
}
