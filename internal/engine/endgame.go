package engine

import (
	"strings"

	"github.com/hailam/chesscore/internal/board"
)

// endgameKind tags the specialised evaluations known to the evaluator.
type endgameKind uint8

const (
	endgameDraw endgameKind = iota // insufficient material, always 0
	endgameKXK                     // mating material against a bare king
	endgameKBNK                    // bishop and knight against a bare king
)

// endgame is an entry of the material signature table. strong is the side
// with the winning material.
type endgame struct {
	kind   endgameKind
	strong board.Color
}

// Table used to drive the king towards the edge of the board in KXK.
var pushToEdges = [64]int{
	100, 90, 80, 70, 70, 80, 90, 100,
	90, 70, 60, 50, 50, 60, 70, 90,
	80, 60, 40, 30, 30, 40, 60, 80,
	70, 50, 30, 20, 20, 30, 50, 70,
	70, 50, 30, 20, 20, 30, 50, 70,
	80, 60, 40, 30, 30, 40, 60, 80,
	90, 70, 60, 50, 50, 60, 70, 90,
	100, 90, 80, 70, 70, 80, 90, 100,
}

// Table used to drive the king towards a dark corner square in KBNK.
var pushToCorners = [64]int{
	200, 190, 180, 170, 160, 150, 140, 130,
	190, 180, 170, 160, 150, 140, 130, 140,
	180, 170, 155, 140, 140, 125, 140, 150,
	170, 160, 140, 120, 110, 140, 150, 160,
	160, 150, 140, 110, 120, 140, 160, 170,
	150, 140, 125, 140, 140, 155, 170, 180,
	140, 130, 140, 150, 160, 170, 180, 190,
	130, 140, 150, 160, 170, 180, 190, 200,
}

// Table used to drive the strong king towards the weak one
var pushClose = [8]int{0, 0, 100, 80, 60, 40, 20, 10}

// endgames maps material keys to their evaluation. Written once by init.
var endgames = map[uint64]endgame{}

func init() {
	for _, code := range []string{"KvK", "KNvK", "KBvK", "KNNvK"} {
		addEndgame(code, endgameDraw)
	}
	addEndgame("KBNvK", endgameKBNK)

	// Every other combination of at least a rook's worth of pieces against
	// a lone king is a plain KXK win.
	for q := 0; q <= 2; q++ {
		for r := 0; r <= 2; r++ {
			for b := 0; b <= 2; b++ {
				for n := 0; n <= 2; n++ {
					npm := q*board.QueenValueMg + r*board.RookValueMg + b*board.BishopValueMg + n*board.KnightValueMg
					code := "K" + strings.Repeat("Q", q) + strings.Repeat("R", r) + strings.Repeat("B", b) + strings.Repeat("N", n) + "vK"
					if _, known := endgames[materialKeyOf(code, board.White)]; known || npm < board.RookValueMg {
						continue
					}
					addEndgame(code, endgameKXK)
				}
			}
		}
	}
}

// addEndgame registers code, written strong side first, for both colors.
func addEndgame(code string, kind endgameKind) {
	endgames[materialKeyOf(code, board.White)] = endgame{kind: kind, strong: board.White}
	endgames[materialKeyOf(code, board.Black)] = endgame{kind: kind, strong: board.Black}
}

// materialKeyOf computes the material key of a signature such as "KBNvK"
// with the first side playing strong.
func materialKeyOf(code string, strong board.Color) uint64 {
	sides := strings.SplitN(code, "v", 2)
	var key uint64
	for i, side := range sides {
		c := strong
		if i == 1 {
			c = strong.Other()
		}
		var counts [board.PieceTypeNB]int
		for j := range len(side) {
			pt := board.PieceFromChar(side[j] | 0x20).Type()
			key ^= board.ZobristPiece(c, pt, board.Square(counts[pt]))
			counts[pt]++
		}
	}
	return key
}

func probeEndgame(materialKey uint64) *endgame {
	if eg, ok := endgames[materialKey]; ok {
		return &eg
	}
	return nil
}

// evaluate returns the score from the side to move's point of view.
func (eg *endgame) evaluate(pos *board.Position) int {
	switch eg.kind {
	case endgameKXK:
		return evaluateKXK(pos, eg.strong)
	case endgameKBNK:
		return evaluateKBNK(pos, eg.strong)
	}
	return ValueDraw
}

// evaluateKXK gives a known win for the strong side, growing as the weak king
// is pushed to the edge and the kings come together.
func evaluateKXK(pos *board.Position, strong board.Color) int {
	weak := strong.Other()

	// Stalemate detection with a lone king
	if pos.SideToMove() == weak && !pos.InCheck() && !pos.HasLegalMoves() {
		return ValueDraw
	}

	winnerKSq, loserKSq := pos.KingSquare(strong), pos.KingSquare(weak)
	result := pos.NonPawnMaterial(strong) +
		pushToEdges[loserKSq] +
		pushClose[board.Distance(winnerKSq, loserKSq)]

	bishops := pos.PiecesOf(strong, board.Bishop)
	if pos.Count(strong, board.Queen) > 0 || pos.Count(strong, board.Rook) > 0 ||
		(bishops != 0 && pos.Count(strong, board.Knight) > 0) ||
		(bishops&board.DarkSquares != 0 && bishops&^board.DarkSquares != 0) {
		result += ValueKnownWin
	}

	if strong != pos.SideToMove() {
		result = -result
	}
	return result
}

// evaluateKBNK drives the weak king to a corner of the bishop's color.
func evaluateKBNK(pos *board.Position, strong board.Color) int {
	weak := strong.Other()
	winnerKSq, loserKSq := pos.KingSquare(strong), pos.KingSquare(weak)
	bishopSq := pos.PiecesOf(strong, board.Bishop).LSB()

	// pushToCorners favours A1 and H8; mirror for a light-squared bishop.
	if !board.DarkSquares.IsSet(bishopSq) {
		winnerKSq = winnerKSq.Mirror()
		loserKSq = loserKSq.Mirror()
	}

	result := ValueKnownWin +
		pushClose[board.Distance(winnerKSq, loserKSq)] +
		pushToCorners[loserKSq]

	if strong != pos.SideToMove() {
		result = -result
	}
	return result
}
