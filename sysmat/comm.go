package sysmat

import (
	"sort"

	"github.com/notargets/gopde/utils"
)

// Comm is the collective interface a rank uses, every rank must make the same calls in the same order
type Comm interface {
	Rank() int
	Size() int
	// AllReduceSum replaces vals by the sum over all ranks, summed in rank order
	AllReduceSum(vals []float64)
	// AllReduceMax replaces vals by the maximum over all ranks
	AllReduceMax(vals []float64)
	// Exchange sends one buffer to each listed rank and returns the buffers sent to this rank
	Exchange(sends map[int][]float64) (recv map[int][]float64)
}

type SerialComm struct{}

func (SerialComm) Rank() int                   { return 0 }
func (SerialComm) Size() int                   { return 1 }
func (SerialComm) AllReduceSum(vals []float64) {}
func (SerialComm) AllReduceMax(vals []float64) {}
func (SerialComm) Exchange(sends map[int][]float64) (recv map[int][]float64) {
	recv = make(map[int][]float64)
	if v, ok := sends[0]; ok {
		recv[0] = append([]float64{}, v...)
	}
	return
}

type packet struct {
	from   int
	values []float64
}

type threadHub struct {
	np      int
	mb      *utils.MailBox[packet]
	barrier *utils.Barrier
}

// ThreadComm is one rank of a group of goroutines exchanging through a shared MailBox
type ThreadComm struct {
	rank int
	hub  *threadHub
}

// NewThreadComms returns one Comm per rank, each must be driven by its own goroutine
func NewThreadComms(np int) (comms []Comm) {
	var (
		hub = &threadHub{
			np:      np,
			mb:      utils.NewMailBox[packet](np),
			barrier: utils.NewBarrier(np),
		}
	)
	comms = make([]Comm, np)
	for r := 0; r < np; r++ {
		comms[r] = &ThreadComm{rank: r, hub: hub}
	}
	return
}

func (tc *ThreadComm) Rank() int { return tc.rank }
func (tc *ThreadComm) Size() int { return tc.hub.np }

func (tc *ThreadComm) Exchange(sends map[int][]float64) (recv map[int][]float64) {
	var (
		mb = tc.hub.mb
	)
	for tgt, vals := range sends {
		mb.PostMessage(tc.rank, tgt, packet{from: tc.rank, values: append([]float64{}, vals...)})
	}
	mb.DeliverMyMessages(tc.rank)
	tc.hub.barrier.Wait()
	mb.ReceiveMyMessages(tc.rank)
	recv = make(map[int][]float64)
	for _, msg := range mb.ReceiveMsgQs[tc.rank].Cells() {
		recv[msg.from] = msg.values
	}
	mb.ClearMyMessages(tc.rank)
	// Senders reuse their buffers in the next round
	tc.hub.barrier.Wait()
	return
}

func (tc *ThreadComm) allGather(vals []float64) (all [][]float64) {
	sends := make(map[int][]float64, tc.hub.np)
	for r := 0; r < tc.hub.np; r++ {
		if r != tc.rank {
			sends[r] = vals
		}
	}
	recv := tc.Exchange(sends)
	recv[tc.rank] = vals
	ranks := make([]int, 0, len(recv))
	for r := range recv {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	for _, r := range ranks {
		all = append(all, recv[r])
	}
	return
}

func (tc *ThreadComm) AllReduceSum(vals []float64) {
	all := tc.allGather(append([]float64{}, vals...))
	for i := range vals {
		var sum float64
		for _, v := range all {
			sum += v[i]
		}
		vals[i] = sum
	}
}

func (tc *ThreadComm) AllReduceMax(vals []float64) {
	all := tc.allGather(append([]float64{}, vals...))
	for i := range vals {
		max := all[0][i]
		for _, v := range all[1:] {
			if v[i] > max {
				max = v[i]
			}
		}
		vals[i] = max
	}
}
