package utils

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicAddFloat64 adds val to *addr with a compare and swap loop
func AtomicAddFloat64(addr *float64, val float64) {
	var (
		p = (*uint64)(unsafe.Pointer(addr))
	)
	for {
		old := atomic.LoadUint64(p)
		nv := math.Float64bits(math.Float64frombits(old) + val)
		if atomic.CompareAndSwapUint64(p, old, nv) {
			return
		}
	}
}
