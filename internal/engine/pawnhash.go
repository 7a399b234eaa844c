package engine

import (
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// PawnEntry stores the cached evaluation of a pawn structure.
type PawnEntry struct {
	MgScore int // White's point of view
	EgScore int
	Passed  [2]board.Bitboard
}

// pawnSlot is written without locks. check is the key XORed with every data
// word, so a slot mixing two writes fails validation on probe.
type pawnSlot struct {
	check  atomic.Uint64
	score  atomic.Uint64
	passed [2]atomic.Uint64
}

// PawnTable is a hash table for caching pawn structure evaluations, shared
// by all search threads.
type PawnTable struct {
	entries []pawnSlot
	mask    uint64
}

// NewPawnTable creates a new pawn hash table with the given size in MB.
func NewPawnTable(sizeMB int) *PawnTable {
	// Each slot is 32 bytes, round down to a power of 2
	numEntries := max(sizeMB, 1) * 1024 * 1024 / 32

	size := 1
	for size*2 <= numEntries {
		size *= 2
	}

	return &PawnTable{
		entries: make([]pawnSlot, size),
		mask:    uint64(size - 1),
	}
}

func packScore(mg, eg int) uint64 {
	return uint64(uint32(int32(mg)))<<32 | uint64(uint32(int32(eg)))
}

// Probe looks up a pawn structure evaluation in the hash table.
func (pt *PawnTable) Probe(key uint64) (PawnEntry, bool) {
	s := &pt.entries[key&pt.mask]
	check, score := s.check.Load(), s.score.Load()
	p0, p1 := s.passed[0].Load(), s.passed[1].Load()
	if check^score^p0^p1 != key {
		return PawnEntry{}, false
	}
	return PawnEntry{
		MgScore: int(int32(score >> 32)),
		EgScore: int(int32(score)),
		Passed:  [2]board.Bitboard{board.Bitboard(p0), board.Bitboard(p1)},
	}, true
}

// Store saves a pawn structure evaluation in the hash table.
func (pt *PawnTable) Store(key uint64, e PawnEntry) {
	s := &pt.entries[key&pt.mask]
	score := packScore(e.MgScore, e.EgScore)
	p0, p1 := uint64(e.Passed[0]), uint64(e.Passed[1])
	s.score.Store(score)
	s.passed[0].Store(p0)
	s.passed[1].Store(p1)
	s.check.Store(key ^ score ^ p0 ^ p1)
}

// Clear clears the pawn hash table.
func (pt *PawnTable) Clear() {
	for i := range pt.entries {
		s := &pt.entries[i]
		s.check.Store(0)
		s.score.Store(0)
		s.passed[0].Store(0)
		s.passed[1].Store(0)
	}
}
