package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"lukechampine.com/frand"
)

func TestMagicAttacksMatchSlidingRays(t *testing.T) {
	rng := frand.NewCustom(make([]byte, 32), 0, 0)
	for i := 0; i < 2000; i++ {
		occ := Bitboard(rng.Uint64n(^uint64(0)) & rng.Uint64n(^uint64(0)))
		for sq := A1; sq <= H8; sq++ {
			if got, want := BishopAttacks(sq, occ), bishopAttacksSlow(sq, occ); got != want {
				t.Fatalf("bishop on %s, occupancy %X: got %X want %X", sq, uint64(occ), uint64(got), uint64(want))
			}
			if got, want := RookAttacks(sq, occ), rookAttacksSlow(sq, occ); got != want {
				t.Fatalf("rook on %s, occupancy %X: got %X want %X", sq, uint64(occ), uint64(got), uint64(want))
			}
		}
	}
}

func TestLineAndBetween(t *testing.T) {
	assert.Equal(t, SquareBB(B2)|SquareBB(C3)|SquareBB(D4)|SquareBB(E5)|SquareBB(F6)|SquareBB(G7), Between(A1, H8))
	assert.Equal(t, Empty, Between(A1, B3))
	assert.Equal(t, FileE, Line(E2, E7))
	assert.True(t, Aligned(A1, D4, H8))
	assert.False(t, Aligned(A1, D4, H7))
	assert.Equal(t, Empty, Line(A1, B3))
}

func TestStepAttacks(t *testing.T) {
	assert.Equal(t, 2, KnightAttacks(A1).PopCount())
	assert.Equal(t, 8, KnightAttacks(E4).PopCount())
	assert.Equal(t, 3, KingAttacks(H8).PopCount())
	assert.Equal(t, SquareBB(D5)|SquareBB(F5), PawnAttacks(E4, White))
	assert.Equal(t, SquareBB(B3), PawnAttacks(A4, Black))
}

func TestPawnMasks(t *testing.T) {
	assert.Equal(t, (FileD|FileE|FileF)&(Rank5|Rank6|Rank7|Rank8), PassedPawnMask(White, E4))
	assert.Equal(t, SquareBB(E3)|SquareBB(E2)|SquareBB(E1), ForwardBB(Black, E4))
	assert.Equal(t, 3, Distance(A1, D3))
	assert.Equal(t, E8, RelativeSquare(Black, E1))
}
