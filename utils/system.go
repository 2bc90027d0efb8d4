package utils

import (
	"fmt"
	"math"
	"runtime"
)

// MemUsage reports heap and system memory in MiB
func MemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	const mib = 1 << 20
	return fmt.Sprintf("heap %.1f MiB, total allocated %.1f MiB, system %.1f MiB, %d GC cycles",
		float64(m.HeapAlloc)/mib, float64(m.TotalAlloc)/mib, float64(m.Sys)/mib, m.NumGC)
}

// IsFinite is false if any value is NaN or infinite
func IsFinite(A []float64) bool {
	for _, f := range A {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
