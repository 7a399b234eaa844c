package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Evaluator scores a position statically from the side to move's point of
// view. Implementations must be safe for concurrent use by all search
// threads.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// Passed pawn bonuses by relative rank
var (
	passedPawnMgBonus = [8]int{0, 5, 10, 20, 35, 60, 100, 0}
	passedPawnEgBonus = [8]int{0, 10, 20, 35, 60, 100, 160, 0}
)

const (
	passedPawnFreePathBonus    = 30 // No blockers in front
	passedPawnProtectedBonus   = 15 // Protected by own pawn
	passedPawnUnstoppableBonus = 200
)

// Passed pawn king distance bonus table
var kingDistanceBonus = [8]int{0, 0, 10, 20, 30, 40, 50, 60}

// Mobility weights per piece type
var mobilityMgWeight = [6]int{0, 4, 5, 2, 1, 0} // Pawn, Knight, Bishop, Rook, Queen, King
var mobilityEgWeight = [6]int{0, 3, 4, 4, 2, 0}

// King safety weights per attacker type
var attackerWeight = [6]int{0, 20, 20, 40, 80, 0}

const (
	pawnShieldBonus      = 10  // Bonus per pawn in front of king
	pawnShieldMissing    = -15 // Penalty per missing shield pawn
	openFileNearKing     = -20 // Penalty for open file near king
	semiOpenFileNearKing = -10 // Penalty for semi-open file
)

// Bishop pair bonus (having two bishops)
const (
	bishopPairMgBonus = 25
	bishopPairEgBonus = 50
)

// Rook on open/semi-open file bonuses
const (
	rookOpenFileMg     = 20
	rookOpenFileEg     = 25
	rookSemiOpenFileMg = 10
	rookSemiOpenFileEg = 15
)

// Pawn structure penalties
const (
	doubledPawnMgPenalty  = -15
	doubledPawnEgPenalty  = -20
	isolatedPawnMgPenalty = -20
	isolatedPawnEgPenalty = -25
	backwardPawnMgPenalty = -15
	backwardPawnEgPenalty = -10
)

// Tempo bonus - small advantage for having the move
const tempoBonus = 10

// Game phase weights; a full set of pieces is maxPhase.
const maxPhase = 24

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// ClassicalEvaluator is a hand-written evaluation: material and placement
// tapered by game phase, cached pawn structure, passed pawns, mobility, king
// safety, bishop pair, rooks on open files and a tempo bonus. Known endgames
// are recognized by their material signature.
type ClassicalEvaluator struct {
	pawns *PawnTable
}

// NewClassicalEvaluator creates an evaluator with a 1 MB pawn table.
func NewClassicalEvaluator() *ClassicalEvaluator {
	return &ClassicalEvaluator{pawns: NewPawnTable(1)}
}

// Clear empties the pawn table.
func (ev *ClassicalEvaluator) Clear() {
	ev.pawns.Clear()
}

// Evaluate returns the static evaluation of pos from the side to move's
// point of view.
func (ev *ClassicalEvaluator) Evaluate(pos *board.Position) int {
	us := pos.SideToMove()

	if eg := probeEndgame(pos.MaterialKey()); eg != nil {
		return eg.evaluate(pos)
	}

	psq := pos.PSQScore()
	mgScore, egScore := psq.Mg(), psq.Eg()

	pe := ev.probePawns(pos)
	mgScore += pe.MgScore
	egScore += pe.EgScore

	ppMg, ppEg := evaluatePassedPawns(pos, &pe)
	mgScore += ppMg
	egScore += ppEg

	mobMg, mobEg := evaluateMobility(pos)
	mgScore += mobMg
	egScore += mobEg

	mgScore += evaluateKingSafety(pos)

	bpMg, bpEg := evaluateBishopPair(pos)
	mgScore += bpMg
	egScore += bpEg

	rfMg, rfEg := evaluateRooksOnFiles(pos)
	mgScore += rfMg
	egScore += rfEg

	phase := gamePhase(pos)
	score := (mgScore*phase + egScore*(maxPhase-phase)) / maxPhase
	score = score * drawishScale(pos, score) / scaleNormal

	if us == board.Black {
		score = -score
	}
	return clamp(score+tempoBonus, -ValueKnownWin+1, ValueKnownWin-1)
}

func gamePhase(pos *board.Position) int {
	phase := 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		phase += phaseWeight[pt] * (pos.Count(board.White, pt) + pos.Count(board.Black, pt))
	}
	return min(phase, maxPhase)
}

const scaleNormal = 64

// drawishScale shrinks the score when the stronger side has no pawns and at
// most a minor piece of extra material, which rarely suffices to win.
func drawishScale(pos *board.Position, score int) int {
	strong := board.White
	if score < 0 {
		strong = board.Black
	}
	weak := strong.Other()
	if pos.Count(strong, board.Pawn) > 0 {
		return scaleNormal
	}
	if pos.NonPawnMaterial(strong)-pos.NonPawnMaterial(weak) <= board.BishopValueMg {
		if pos.NonPawnMaterial(strong) < board.RookValueMg {
			return 0
		}
		return scaleNormal / 4
	}
	return scaleNormal
}

func (ev *ClassicalEvaluator) probePawns(pos *board.Position) PawnEntry {
	key := pos.PawnKey()
	if pe, ok := ev.pawns.Probe(key); ok {
		return pe
	}
	pe := evaluatePawnStructure(pos)
	ev.pawns.Store(key, pe)
	return pe
}

// evaluatePawnStructure scores pawn structure defects and finds the passed
// pawns. The result depends only on the pawns, so it can be cached by pawn
// key.
func evaluatePawnStructure(pos *board.Position) PawnEntry {
	var pe PawnEntry
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		ownPawns := pos.PiecesOf(color, board.Pawn)
		enemyPawns := pos.PiecesOf(color.Other(), board.Pawn)

		for pawns := ownPawns; pawns != 0; {
			sq := pawns.PopLSB()
			adjacent := board.AdjacentFiles(sq.File())

			if board.PassedPawnMask(color, sq)&enemyPawns == 0 && board.ForwardBB(color, sq)&ownPawns == 0 {
				pe.Passed[color] |= board.SquareBB(sq)
			}

			// Doubled: another own pawn in front on the same file
			if board.ForwardBB(color, sq)&ownPawns != 0 {
				pe.MgScore += sign * doubledPawnMgPenalty
				pe.EgScore += sign * doubledPawnEgPenalty
			}

			// Isolated pawns can't be backward
			if ownPawns&adjacent == 0 {
				pe.MgScore += sign * isolatedPawnMgPenalty
				pe.EgScore += sign * isolatedPawnEgPenalty
				continue
			}

			// Backward: no own pawn on an adjacent file level with or behind
			// it, and the stop square is controlled by an enemy pawn.
			behindOrLevel := ownPawns & adjacent &^ board.InFrontRanks(color, sq.Rank())
			stop := board.Square(int(sq) + board.PawnPush(color))
			if behindOrLevel == 0 && board.PawnAttacks(stop, color)&enemyPawns != 0 {
				pe.MgScore += sign * backwardPawnMgPenalty
				pe.EgScore += sign * backwardPawnEgPenalty
			}
		}
	}
	return pe
}

// evaluatePassedPawns returns the passed pawn evaluation bonus.
func evaluatePassedPawns(pos *board.Position, pe *PawnEntry) (mgBonus, egBonus int) {
	occupied := pos.Occupied()
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		enemy := color.Other()
		ownKing, enemyKing := pos.KingSquare(color), pos.KingSquare(enemy)
		ownPawns := pos.PiecesOf(color, board.Pawn)

		for passed := pe.Passed[color]; passed != 0; {
			sq := passed.PopLSB()
			relRank := sq.RelativeRank(color)
			promoSq := board.RelativeSquare(color, board.NewSquare(sq.File(), 7))

			mg := passedPawnMgBonus[relRank]
			eg := passedPawnEgBonus[relRank]

			// Friendly king close to pawn is good, enemy king far from
			// the promotion square is good.
			eg += kingDistanceBonus[7-min(board.Distance(ownKing, sq), 7)]
			eg += kingDistanceBonus[min(board.Distance(enemyKing, promoSq), 7)]

			if board.PawnAttacks(sq, enemy)&ownPawns != 0 {
				mg += passedPawnProtectedBonus
				eg += passedPawnProtectedBonus
			}

			pathClear := board.ForwardBB(color, sq)&occupied == 0
			if pathClear {
				eg += passedPawnFreePathBonus
			}

			// Rule of the square against a bare king
			if pathClear && relRank >= 4 && pos.NonPawnMaterial(enemy) == 0 {
				squaresToPromo := 7 - relRank
				tempo := 0
				if pos.SideToMove() == color {
					tempo = 1
				}
				if board.Distance(enemyKing, promoSq) > squaresToPromo+1-tempo {
					eg += passedPawnUnstoppableBonus
				}
			}

			mgBonus += sign * mg
			egBonus += sign * eg
		}
	}
	return mgBonus, egBonus
}

// evaluateMobility calculates mobility scores for all pieces, counting
// squares not occupied by own pieces nor attacked by enemy pawns.
func evaluateMobility(pos *board.Position) (mgBonus, egBonus int) {
	occupied := pos.Occupied()

	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		var unsafe board.Bitboard
		for pawns := pos.PiecesOf(color.Other(), board.Pawn); pawns != 0; {
			unsafe |= board.PawnAttacks(pawns.PopLSB(), color.Other())
		}
		blocked := unsafe | pos.ByColor(color)

		for pt := board.Knight; pt <= board.Queen; pt++ {
			for pieces := pos.PiecesOf(color, pt); pieces != 0; {
				sq := pieces.PopLSB()
				count := (board.Attacks(pt, sq, occupied) &^ blocked).PopCount()
				mgBonus += sign * mobilityMgWeight[pt] * count
				egBonus += sign * mobilityEgWeight[pt] * count
			}
		}
	}
	return mgBonus, egBonus
}

// evaluateKingSafety evaluates the pawn shield, open files next to the king
// and pieces attacking the king zone. Middlegame only.
func evaluateKingSafety(pos *board.Position) int {
	var score int
	occupied := pos.Occupied()

	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		enemy := color.Other()
		kingSq := pos.KingSquare(color)
		ownPawns := pos.PiecesOf(color, board.Pawn)
		enemyPawns := pos.PiecesOf(enemy, board.Pawn)

		// Shield: own pawns on the king file and adjacent files, one or two
		// ranks in front of the king.
		if kingSq.RelativeRank(color) <= 1 {
			f := kingSq.File()
			for file := max(f-1, 0); file <= min(f+1, 7); file++ {
				fileBB := board.FileMask[file]
				shield := fileBB & ownPawns & board.InFrontRanks(color, kingSq.Rank())
				near := shield & (board.KingAttacks(kingSq) | board.KingAttacks(kingSq).Shift(forward(color)))
				if near != 0 {
					score += sign * pawnShieldBonus
				} else {
					score += sign * pawnShieldMissing
				}
				switch {
				case fileBB&(ownPawns|enemyPawns) == 0:
					score += sign * openFileNearKing
				case fileBB&ownPawns == 0:
					score += sign * semiOpenFileNearKing
				}
			}
		}

		zone := board.KingAttacks(kingSq) | board.SquareBB(kingSq)
		zone |= zone.Shift(forward(color))

		attackers, weight := 0, 0
		for pt := board.Knight; pt <= board.Queen; pt++ {
			for pieces := pos.PiecesOf(enemy, pt); pieces != 0; {
				if board.Attacks(pt, pieces.PopLSB(), occupied)&zone != 0 {
					attackers++
					weight += attackerWeight[pt]
				}
			}
		}
		// A single attacker is rarely dangerous.
		if attackers >= 2 {
			score -= sign * weight * attackers / 4
		}
	}
	return score
}

func forward(c board.Color) board.Direction {
	if c == board.White {
		return board.DeltaN
	}
	return board.DeltaS
}

// evaluateBishopPair returns bonus for having the bishop pair.
func evaluateBishopPair(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		bishops := pos.PiecesOf(color, board.Bishop)
		if bishops&board.DarkSquares != 0 && bishops&^board.DarkSquares != 0 {
			mgBonus += sign * bishopPairMgBonus
			egBonus += sign * bishopPairEgBonus
		}
	}
	return mgBonus, egBonus
}

// evaluateRooksOnFiles returns bonus for rooks on open/semi-open files.
func evaluateRooksOnFiles(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		ownPawns := pos.PiecesOf(color, board.Pawn)
		enemyPawns := pos.PiecesOf(color.Other(), board.Pawn)

		for rooks := pos.PiecesOf(color, board.Rook); rooks != 0; {
			fileMask := board.FileMask[rooks.PopLSB().File()]
			if ownPawns&fileMask != 0 {
				continue
			}
			if enemyPawns&fileMask == 0 {
				mgBonus += sign * rookOpenFileMg
				egBonus += sign * rookOpenFileEg
			} else {
				mgBonus += sign * rookSemiOpenFileMg
				egBonus += sign * rookSemiOpenFileEg
			}
		}
	}
	return mgBonus, egBonus
}
