package board

import (
	"math"

	"lukechampine.com/frand"
)

// Zobrist hash keys for position hashing. The material key reuses the piece
// table indexed by piece count instead of square.
var (
	zobristPiece      [2][PieceTypeNB][64]uint64
	zobristEnPassant  [8]uint64
	zobristCastling   [16]uint64
	zobristSideToMove uint64
	zobristExclusion  uint64
)

var zobristSeed = [32]byte{
	0x98, 0xf1, 0x07, 0xa2, 0xbe, 0xef, 0x12, 0x34,
	0x7a, 0x0c, 0x33, 0x91, 0x5e, 0x42, 0xd8, 0x17,
	0x0b, 0xad, 0xc0, 0xde, 0x64, 0x21, 0x9f, 0xe3,
	0x55, 0x18, 0x7c, 0x02, 0xa9, 0x6b, 0x30, 0xf4,
}

func init() {
	initZobrist()
}

func initZobrist() {
	rng := frand.NewCustom(zobristSeed[:], 0, 0)
	next := func() uint64 { return rng.Uint64n(math.MaxUint64) }

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = next()
			}
		}
	}
	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = next()
	}

	// Castling keys are built from one key per right so that the key of a
	// combination is the XOR of its parts.
	var rightKeys [4]uint64
	for i := range rightKeys {
		rightKeys[i] = next()
	}
	for cr := range zobristCastling {
		for i, k := range rightKeys {
			if cr&(1<<i) != 0 {
				zobristCastling[cr] ^= k
			}
		}
	}

	zobristSideToMove = next()
	zobristExclusion = next()
}

// ZobristPiece returns the Zobrist key for a piece on a square.
func ZobristPiece(c Color, pt PieceType, sq Square) uint64 {
	return zobristPiece[c][pt][sq]
}

// ZobristSideToMove returns the Zobrist key for side to move.
func ZobristSideToMove() uint64 {
	return zobristSideToMove
}

// ExclusionKey returns the key that is XORed into a position key while a
// move is excluded from the search of that node.
func ExclusionKey(key uint64) uint64 {
	return key ^ zobristExclusion
}
