package engine

import (
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// HistoryMax bounds the magnitude of a history entry.
const HistoryMax = 2000

// The statistics below are shared by every search thread and updated
// without locking. Entries are atomics so concurrent updates stay well
// defined; a lost update only costs move ordering quality.

// HistoryStats scores quiet moves by piece and destination square.
type HistoryStats struct {
	table [board.PieceNB][64]atomic.Int32
}

// Get returns the score for piece pc moving to sq.
func (h *HistoryStats) Get(pc board.Piece, sq board.Square) int {
	if pc >= board.NoPiece {
		return 0
	}
	return int(h.table[pc][sq].Load())
}

// Update adds v unless the result would reach HistoryMax in magnitude.
func (h *HistoryStats) Update(pc board.Piece, sq board.Square, v int) {
	if pc >= board.NoPiece {
		return
	}
	e := &h.table[pc][sq]
	if cur := int(e.Load()); abs(cur+v) < HistoryMax {
		e.Store(int32(cur + v))
	}
}

// Clear resets every entry.
func (h *HistoryStats) Clear() {
	for pc := range h.table {
		for sq := range h.table[pc] {
			h.table[pc][sq].Store(0)
		}
	}
}

// GainsStats tracks the largest observed static evaluation swing of a quiet
// move, decayed by one on every update.
type GainsStats struct {
	table [board.PieceNB][64]atomic.Int32
}

// Get returns the recorded gain for piece pc moving to sq.
func (g *GainsStats) Get(pc board.Piece, sq board.Square) int {
	if pc >= board.NoPiece {
		return 0
	}
	return int(g.table[pc][sq].Load())
}

// Update records max(v, current-1).
func (g *GainsStats) Update(pc board.Piece, sq board.Square, v int) {
	if pc >= board.NoPiece {
		return
	}
	e := &g.table[pc][sq]
	e.Store(int32(max(v, int(e.Load())-1)))
}

// Clear resets every entry.
func (g *GainsStats) Clear() {
	for pc := range g.table {
		for sq := range g.table[pc] {
			g.table[pc][sq].Store(0)
		}
	}
}

// MovesStats remembers the two most recent refutations of a move, keyed by
// the piece and destination of the move being answered.
type MovesStats struct {
	table [board.PieceNB][64]atomic.Uint32
}

// Get returns the stored pair, most recent first.
func (m *MovesStats) Get(pc board.Piece, sq board.Square) [2]board.Move {
	if pc >= board.NoPiece {
		return [2]board.Move{}
	}
	v := m.table[pc][sq].Load()
	return [2]board.Move{board.Move(v), board.Move(v >> 16)}
}

// Update pushes mv to the front of the pair unless it is already there.
func (m *MovesStats) Update(pc board.Piece, sq board.Square, mv board.Move) {
	if pc >= board.NoPiece {
		return
	}
	e := &m.table[pc][sq]
	v := e.Load()
	if board.Move(v) == mv {
		return
	}
	e.Store(v<<16 | uint32(mv))
}

// Clear resets every entry.
func (m *MovesStats) Clear() {
	for pc := range m.table {
		for sq := range m.table[pc] {
			m.table[pc][sq].Store(0)
		}
	}
}
