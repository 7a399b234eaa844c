package engine

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
	"github.com/pbnjay/memory"
)

// Bound indicates the type of bound stored in the transposition table.
type Bound uint8

const (
	BoundNone  Bound = 0
	BoundUpper Bound = 1 // Failed low: the true score is at most the value
	BoundLower Bound = 2 // Failed high: the true score is at least the value
	BoundExact       = BoundUpper | BoundLower
)

// ErrHashTooLarge is returned by Resize when the requested table does not fit
// in the memory of the machine.
var ErrHashTooLarge = errors.New("hash table larger than system memory")

const (
	clusterSize      = 4
	clusterBytes     = clusterSize * 16
	depthEntryOffset = DepthNone - 1 // stored depth 0 marks an empty slot
)

// TTEntry is a decoded transposition table entry.
type TTEntry struct {
	Move       board.Move
	Bound      Bound
	Value      int
	Depth      int
	Eval       int
	key32      uint32
	generation uint8
}

// ttSlot packs an entry into two words so that readers and writers never
// need a lock. Word 0 holds key32, move, bound and generation; word 1 holds
// value, depth and static eval. A torn write can mix two entries, which the
// search treats like any other hash collision.
type ttSlot struct {
	w0 atomic.Uint64
	w1 atomic.Uint64
}

type ttCluster [clusterSize]ttSlot

func (s *ttSlot) load() TTEntry {
	w0, w1 := s.w0.Load(), s.w1.Load()
	return TTEntry{
		key32:      uint32(w0 >> 32),
		Move:       board.Move(w0 >> 16),
		Bound:      Bound(w0 >> 8),
		generation: uint8(w0),
		Value:      int(int16(w1 >> 32)),
		Depth:      int(int16(w1>>16)) + depthEntryOffset,
		Eval:       int(int16(w1)),
	}
}

func (s *ttSlot) save(e TTEntry) {
	s.w0.Store(uint64(e.key32)<<32 | uint64(e.Move)<<16 | uint64(e.Bound)<<8 | uint64(e.generation))
	s.w1.Store(uint64(uint16(int16(e.Value)))<<32 | uint64(uint16(int16(e.Depth-depthEntryOffset)))<<16 | uint64(uint16(int16(e.Eval))))
}

func (s *ttSlot) empty() bool {
	return uint16(s.w1.Load()>>16) == 0
}

func (s *ttSlot) refresh(generation uint8) {
	for {
		old := s.w0.Load()
		if s.w0.CompareAndSwap(old, old&^0xFF|uint64(generation)) {
			return
		}
	}
}

// TranspositionTable is a clustered hash table of search results. Probe and
// Store may run concurrently from every search thread; Resize and Clear must
// only be called between searches.
type TranspositionTable struct {
	clusters   []ttCluster
	mask       uint64
	generation atomic.Uint32
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) (*TranspositionTable, error) {
	tt := &TranspositionTable{}
	if err := tt.Resize(sizeMB); err != nil {
		return nil, err
	}
	return tt, nil
}

// Resize reallocates the table to the largest power-of-two number of clusters
// that fits in sizeMB, leaving it empty. The old table is kept when the
// request is refused.
func (tt *TranspositionTable) Resize(sizeMB int) error {
	if sizeMB < 1 {
		return fmt.Errorf("hash size %d MB: must be at least 1", sizeMB)
	}
	bytes := uint64(sizeMB) << 20
	if total := memory.TotalMemory(); total != 0 && bytes > total {
		return fmt.Errorf("%w: %d MB requested, %d MB available", ErrHashTooLarge, sizeMB, total>>20)
	}

	count := uint64(1) << (bits.Len64(bytes/clusterBytes) - 1)
	if uint64(len(tt.clusters)) == count {
		tt.Clear()
		return nil
	}
	tt.clusters = make([]ttCluster, count)
	tt.mask = count - 1
	return nil
}

// SizeMB returns the allocated size of the table in MB.
func (tt *TranspositionTable) SizeMB() int {
	return len(tt.clusters) * clusterBytes >> 20
}

// Clear zeroes every entry.
func (tt *TranspositionTable) Clear() {
	clear(tt.clusters)
	tt.generation.Store(0)
}

// NewSearch advances the generation so entries from earlier searches become
// preferred replacement victims.
func (tt *TranspositionTable) NewSearch() {
	tt.generation.Add(1)
}

func (tt *TranspositionTable) gen() uint8 {
	return uint8(tt.generation.Load())
}

func (tt *TranspositionTable) cluster(key uint64) *ttCluster {
	return &tt.clusters[uint64(uint32(key))&tt.mask]
}

// Probe looks up key. On a hit the entry's generation is refreshed so that it
// survives replacement in the current search.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	c := tt.cluster(key)
	key32 := uint32(key >> 32)
	for i := range c {
		if c[i].empty() {
			continue
		}
		if e := c[i].load(); e.key32 == key32 {
			c[i].refresh(tt.gen())
			return e, true
		}
	}
	return TTEntry{}, false
}

// Store writes a search result. It reuses the slot of the same position or
// an empty one; otherwise it evicts the least valuable entry, preferring
// entries from older searches that are not exact and then the shallowest.
// A store without a move keeps the move already recorded for the position.
func (tt *TranspositionTable) Store(key uint64, value int, bound Bound, depth int, move board.Move, eval int) {
	c := tt.cluster(key)
	key32 := uint32(key >> 32)
	generation := tt.gen()

	replace := &c[0]
	replaceEntry := replace.load()
	for i := range c {
		slot := &c[i]
		if slot.empty() {
			replace = slot
			break
		}
		e := slot.load()
		if e.key32 == key32 {
			if move == board.NoMove {
				move = e.Move
			}
			replace = slot
			break
		}
		if i == 0 {
			continue
		}
		if replacementScore(e, generation) < replacementScore(replaceEntry, generation) {
			replace, replaceEntry = slot, e
		}
	}

	replace.save(TTEntry{
		key32:      key32,
		Move:       move,
		Bound:      bound,
		generation: generation,
		Value:      value,
		Depth:      depth,
		Eval:       eval,
	})
}

// replacementScore ranks entries for eviction; the lowest is replaced.
func replacementScore(e TTEntry, generation uint8) int {
	score := e.Depth
	if e.generation == generation || e.Bound == BoundExact {
		score += 256
	}
	return score
}

// Hashfull returns the permille of sampled entries written in the current
// search.
func (tt *TranspositionTable) Hashfull() int {
	generation := tt.gen()
	samples := min(1000/clusterSize, len(tt.clusters))
	used := 0
	for i := 0; i < samples; i++ {
		for j := range tt.clusters[i] {
			slot := &tt.clusters[i][j]
			if !slot.empty() && slot.load().generation == generation {
				used++
			}
		}
	}
	if samples == 0 {
		return 0
	}
	return used * 1000 / (samples * clusterSize)
}

// adjustScoreToTT converts a mate score from distance-to-root to
// distance-to-node before it is stored.
func adjustScoreToTT(v, ply int) int {
	switch {
	case v >= ValueMateInMaxPly:
		return v + ply
	case v <= ValueMatedInMaxPly:
		return v - ply
	}
	return v
}

// adjustScoreFromTT is the inverse of adjustScoreToTT.
func adjustScoreFromTT(v, ply int) int {
	switch {
	case v == ValueNone:
		return ValueNone
	case v >= ValueMateInMaxPly:
		return v - ply
	case v <= ValueMatedInMaxPly:
		return v + ply
	}
	return v
}
