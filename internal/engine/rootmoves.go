package engine

import (
	"slices"

	"github.com/hailam/chesscore/internal/board"
)

// RootMove is a legal move at the root together with its score and
// principal variation. PV[0] is the move itself.
type RootMove struct {
	Score     int
	PrevScore int
	PV        []board.Move
}

func newRootMove(m board.Move) RootMove {
	return RootMove{Score: -ValueInfinite, PrevScore: -ValueInfinite, PV: []board.Move{m}}
}

// extractPVFromTT rebuilds the PV by following TT moves from the position
// after PV[0]. pos is left unchanged.
func (rm *RootMove) extractPVFromTT(pos *board.Position, tt *TranspositionTable) {
	pv := append(rm.PV[:0:0], rm.PV[0])

	pos.DoMove(pv[0])
	for len(pv) < MaxPly && (!pos.IsDraw() || len(pv) <= 2) {
		tte, ok := tt.Probe(pos.Key())
		if !ok {
			break
		}
		m := tte.Move
		if m == board.NoMove || !pos.PseudoLegal(m) || !pos.Legal(m, pos.PinnedPieces(pos.SideToMove())) {
			break
		}
		pv = append(pv, m)
		pos.DoMove(m)
	}
	for i := len(pv) - 1; i >= 0; i-- {
		pos.UndoMove(pv[i])
	}
	rm.PV = pv
}

// insertPVInTT stores the PV moves so that the next iteration searches them
// first even if their entries were overwritten.
func (rm *RootMove) insertPVInTT(pos *board.Position, tt *TranspositionTable) {
	for _, m := range rm.PV {
		if tte, ok := tt.Probe(pos.Key()); !ok || tte.Move != m {
			tt.Store(pos.Key(), ValueNone, BoundNone, DepthNone, m, ValueNone)
		}
		pos.DoMove(m)
	}
	for i := len(rm.PV) - 1; i >= 0; i-- {
		pos.UndoMove(rm.PV[i])
	}
}

// isRootMove reports whether m is searched in the current PV line, which
// covers the moves from pvIdx onwards.
func (e *Engine) isRootMove(m board.Move) bool {
	return slices.ContainsFunc(e.rootMoves[e.pvIdx:], func(rm RootMove) bool { return rm.PV[0] == m })
}

func (e *Engine) findRootMove(m board.Move) *RootMove {
	for i := range e.rootMoves {
		if e.rootMoves[i].PV[0] == m {
			return &e.rootMoves[i]
		}
	}
	return nil
}

// sortRootMoves orders rm by descending score; moves with equal scores keep
// their relative order.
func sortRootMoves(rm []RootMove) {
	slices.SortStableFunc(rm, func(a, b RootMove) int {
		return b.Score - a.Score
	})
}
