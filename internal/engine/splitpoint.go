package engine

import (
	"sync"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// MaxSplitPointsPerThread bounds how deeply a thread can nest split points.
const MaxSplitPointsPerThread = 8

// guarded holds a value that may only be reached through its mutex.
type guarded[T any] struct {
	mu sync.Mutex
	v  T
}

// Lock acquires the mutex and returns the protected value. The pointer must
// not be used after Unlock.
func (g *guarded[T]) Lock() *T {
	g.mu.Lock()
	return &g.v
}

// Unlock releases the mutex.
func (g *guarded[T]) Unlock() {
	g.mu.Unlock()
}

// splitState is the part of a split point that participants update while
// searching its moves.
type splitState struct {
	bestValue int
	bestMove  board.Move
	moveCount int
	nodes     uint64
	picker    *MovePicker
}

// SplitPoint describes a node whose remaining moves are searched by several
// threads. The master fills in the read-only fields before publishing it and
// tears it down once every participant has left.
type SplitPoint struct {
	// Read-only once published.
	master   *Worker
	parent   *SplitPoint
	pos      *board.Position
	stack    []Stack
	depth    int
	beta     int
	nodeType nodeType
	cutNode  bool

	shared guarded[splitState]

	// alpha is written under the lock and read without it.
	alpha              atomic.Int32
	slavesMask         atomic.Uint64
	allSlavesSearching atomic.Bool
	cutoff             atomic.Bool
}

// Alpha returns the current lower bound of the split point window.
func (sp *SplitPoint) Alpha() int {
	return int(sp.alpha.Load())
}

func (sp *SplitPoint) setAlpha(v int) {
	sp.alpha.Store(int32(v))
}

func (sp *SplitPoint) hasSlave(idx int) bool {
	return sp.slavesMask.Load()&(1<<idx) != 0
}

func (sp *SplitPoint) addSlave(idx int) {
	sp.slavesMask.Or(1 << idx)
}

func (sp *SplitPoint) removeSlave(idx int) {
	sp.slavesMask.And(^(uint64(1) << idx))
}
