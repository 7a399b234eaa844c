package engine

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
	"github.com/matryer/is"
)

func TestHistoryStatsSaturates(t *testing.T) {
	is := is.New(t)
	var h HistoryStats
	pc := board.NewPiece(board.Knight, board.White)

	h.Update(pc, board.F3, 1500)
	is.Equal(h.Get(pc, board.F3), 1500)
	h.Update(pc, board.F3, 600) // would reach the bound, ignored
	is.Equal(h.Get(pc, board.F3), 1500)
	h.Update(pc, board.F3, -3600)
	is.Equal(h.Get(pc, board.F3), 1500)
	h.Update(pc, board.F3, -2000)
	is.Equal(h.Get(pc, board.F3), -500)

	h.Update(board.NoPiece, board.F3, 10)
	is.Equal(h.Get(board.NoPiece, board.F3), 0)

	h.Clear()
	is.Equal(h.Get(pc, board.F3), 0)
}

func TestGainsStatsDecays(t *testing.T) {
	is := is.New(t)
	var g GainsStats
	pc := board.NewPiece(board.Bishop, board.Black)

	g.Update(pc, board.C5, 40)
	is.Equal(g.Get(pc, board.C5), 40)
	g.Update(pc, board.C5, 10) // smaller gains only decay the entry
	is.Equal(g.Get(pc, board.C5), 39)
	g.Update(pc, board.C5, 70)
	is.Equal(g.Get(pc, board.C5), 70)
}

func TestMovesStatsKeepsTwoMostRecent(t *testing.T) {
	is := is.New(t)
	var ms MovesStats
	pc := board.NewPiece(board.Pawn, board.White)
	m1 := board.NewMove(board.G8, board.F6)
	m2 := board.NewMove(board.B8, board.C6)
	m3 := board.NewMove(board.D7, board.D5)

	is.Equal(ms.Get(pc, board.E4), [2]board.Move{})
	ms.Update(pc, board.E4, m1)
	ms.Update(pc, board.E4, m1)
	is.Equal(ms.Get(pc, board.E4), [2]board.Move{m1, board.NoMove})
	ms.Update(pc, board.E4, m2)
	is.Equal(ms.Get(pc, board.E4), [2]board.Move{m2, m1})
	ms.Update(pc, board.E4, m3)
	is.Equal(ms.Get(pc, board.E4), [2]board.Move{m3, m2})

	// Other destinations are independent.
	is.Equal(ms.Get(pc, board.D4), [2]board.Move{})
}
