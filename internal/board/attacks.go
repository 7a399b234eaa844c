package board

// Pre-computed attack tables. Everything here is written once by init and
// read-only afterwards.
var (
	squareDistance [64][64]int
	distanceRing   [64][8]Bitboard

	stepAttacks   [PieceTypeNB][64]Bitboard // knight and king
	pawnAttacks   [2][64]Bitboard           // [Color][Square]
	pseudoAttacks [PieceTypeNB][64]Bitboard // attacks on an empty board

	betweenBB [64][64]Bitboard // Squares strictly between two aligned squares
	lineBB    [64][64]Bitboard // Full line through two aligned squares

	adjacentFilesBB [8]Bitboard
	inFrontBB       [2][8]Bitboard // ranks strictly in front of a rank
	forwardBB       [2][64]Bitboard
	pawnAttackSpan  [2][64]Bitboard
	passedPawnMask  [2][64]Bitboard
)

var (
	knightSteps = [...]int{-17, -15, -10, -6, 6, 10, 15, 17}
	kingSteps   = [...]int{-9, -8, -7, -1, 1, 7, 8, 9}
)

func init() {
	initDistance()
	initStepAttacks()
	initMagics()
	initPseudoAttacks()
	initLines()
	initPawnSpans()
}

func initDistance() {
	for s1 := A1; s1 <= H8; s1++ {
		for s2 := A1; s2 <= H8; s2++ {
			if s1 == s2 {
				continue
			}
			d := max(FileDistance(s1, s2), RankDistance(s1, s2))
			squareDistance[s1][s2] = d
			distanceRing[s1][d-1] |= SquareBB(s2)
		}
	}
}

// initStepAttacks enumerates offsets per square and rejects any destination
// that is more than two squares away, which is what a wrap-around looks like.
func initStepAttacks() {
	for sq := A1; sq <= H8; sq++ {
		for _, step := range knightSteps {
			if to := int(sq) + step; to >= 0 && to < 64 && Distance(sq, Square(to)) < 3 {
				stepAttacks[Knight][sq] |= SquareBB(Square(to))
			}
		}
		for _, step := range kingSteps {
			if to := int(sq) + step; to >= 0 && to < 64 && Distance(sq, Square(to)) == 1 {
				stepAttacks[King][sq] |= SquareBB(Square(to))
			}
		}
		for _, step := range [...]int{7, 9} {
			if to := int(sq) + step; to < 64 && Distance(sq, Square(to)) == 1 {
				pawnAttacks[White][sq] |= SquareBB(Square(to))
			}
			if to := int(sq) - step; to >= 0 && Distance(sq, Square(to)) == 1 {
				pawnAttacks[Black][sq] |= SquareBB(Square(to))
			}
		}
	}
}

func initPseudoAttacks() {
	for sq := A1; sq <= H8; sq++ {
		pseudoAttacks[Knight][sq] = stepAttacks[Knight][sq]
		pseudoAttacks[King][sq] = stepAttacks[King][sq]
		pseudoAttacks[Bishop][sq] = BishopAttacks(sq, 0)
		pseudoAttacks[Rook][sq] = RookAttacks(sq, 0)
		pseudoAttacks[Queen][sq] = pseudoAttacks[Bishop][sq] | pseudoAttacks[Rook][sq]
	}
}

// initLines derives the line and between tables from the empty-board slider
// attacks: two squares share a line exactly when one attacks the other.
func initLines() {
	for s1 := A1; s1 <= H8; s1++ {
		for _, pt := range [...]PieceType{Bishop, Rook} {
			for s2 := A1; s2 <= H8; s2++ {
				if !pseudoAttacks[pt][s1].IsSet(s2) {
					continue
				}
				lineBB[s1][s2] = (Attacks(pt, s1, 0) & Attacks(pt, s2, 0)) | SquareBB(s1) | SquareBB(s2)
				betweenBB[s1][s2] = Attacks(pt, s1, SquareBB(s2)) & Attacks(pt, s2, SquareBB(s1))
			}
		}
	}
}

func initPawnSpans() {
	for f := 0; f < 8; f++ {
		if f > 0 {
			adjacentFilesBB[f] |= FileMask[f-1]
		}
		if f < 7 {
			adjacentFilesBB[f] |= FileMask[f+1]
		}
	}
	for r := 0; r < 7; r++ {
		inFrontBB[Black][r+1] = inFrontBB[Black][r] | RankMask[r]
		inFrontBB[White][r] = ^inFrontBB[Black][r+1]
	}
	for c := White; c <= Black; c++ {
		for sq := A1; sq <= H8; sq++ {
			front := inFrontBB[c][sq.Rank()]
			forwardBB[c][sq] = front & FileMask[sq.File()]
			pawnAttackSpan[c][sq] = front & adjacentFilesBB[sq.File()]
			passedPawnMask[c][sq] = forwardBB[c][sq] | pawnAttackSpan[c][sq]
		}
	}
}

// PawnAttacks returns the squares attacked by a pawn of color c on sq.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// KnightAttacks returns knight attacks from a square.
func KnightAttacks(sq Square) Bitboard {
	return stepAttacks[Knight][sq]
}

// KingAttacks returns king attacks from a square.
func KingAttacks(sq Square) Bitboard {
	return stepAttacks[King][sq]
}

// BishopAttacks returns bishop attacks given the board occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return bishopMagics[sq].attacks(occupied)
}

// RookAttacks returns rook attacks given the board occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return rookMagics[sq].attacks(occupied)
}

// QueenAttacks returns queen attacks (bishop | rook).
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// Attacks returns the attack set of a non-pawn piece type on sq.
func Attacks(pt PieceType, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	default:
		return stepAttacks[pt][sq]
	}
}

// PseudoAttacks returns the attacks of a non-pawn piece type on an empty board.
func PseudoAttacks(pt PieceType, sq Square) Bitboard {
	return pseudoAttacks[pt][sq]
}

// Between returns the squares strictly between two squares on a line, or
// Empty if they are not aligned.
func Between(s1, s2 Square) Bitboard {
	return betweenBB[s1][s2]
}

// Line returns the full edge-to-edge line through two squares, or Empty
// if they are not aligned.
func Line(s1, s2 Square) Bitboard {
	return lineBB[s1][s2]
}

// Aligned returns true if three squares are on the same line.
func Aligned(s1, s2, s3 Square) bool {
	return lineBB[s1][s2]&SquareBB(s3) != 0
}

// DistanceRing returns the squares at exactly distance d+1 from sq.
func DistanceRing(sq Square, d int) Bitboard {
	return distanceRing[sq][d]
}

// AdjacentFiles returns the files next to file f.
func AdjacentFiles(f int) Bitboard {
	return adjacentFilesBB[f]
}

// InFrontRanks returns the ranks strictly in front of rank r from c's side.
func InFrontRanks(c Color, r int) Bitboard {
	return inFrontBB[c][r]
}

// ForwardBB returns the squares in front of sq on its file from c's side.
func ForwardBB(c Color, sq Square) Bitboard {
	return forwardBB[c][sq]
}

// PawnAttackSpan returns every square a pawn of color c on sq could attack
// while advancing.
func PawnAttackSpan(c Color, sq Square) Bitboard {
	return pawnAttackSpan[c][sq]
}

// PassedPawnMask returns the squares that must be free of enemy pawns for a
// pawn of color c on sq to be passed.
func PassedPawnMask(c Color, sq Square) Bitboard {
	return passedPawnMask[c][sq]
}
