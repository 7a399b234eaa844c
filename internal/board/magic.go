package board

import (
	"math"

	"lukechampine.com/frand"
)

// Magic holds the magic bitboard data for a single square.
type Magic struct {
	Mask  Bitboard   // Relevant occupancy mask (excludes edges)
	Magic uint64     // Magic multiplier
	Shift uint8      // Bits to shift right
	table []Bitboard // Window into the shared attack table
}

func (m *Magic) index(occupied Bitboard) uint64 {
	return (uint64(occupied&m.Mask) * m.Magic) >> m.Shift
}

func (m *Magic) attacks(occupied Bitboard) Bitboard {
	return m.table[m.index(occupied)]
}

var (
	bishopMagics [64]Magic
	rookMagics   [64]Magic

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

// magicSeed fixes the search so every process builds identical tables.
var magicSeed = [32]byte{
	0x6d, 0x61, 0x67, 0x69, 0x63, 0x2d, 0x73, 0x65,
	0x61, 0x72, 0x63, 0x68, 0x2d, 0x63, 0x68, 0x65,
	0x73, 0x73, 0x63, 0x6f, 0x72, 0x65, 0x2d, 0x62,
	0x69, 0x74, 0x62, 0x6f, 0x61, 0x72, 0x64, 0x73,
}

func initMagics() {
	rng := frand.NewCustom(magicSeed[:], 0, 0)
	findMagics(rng, &bishopMagics, bishopTable[:], bishopAttacksSlow)
	findMagics(rng, &rookMagics, rookTable[:], rookAttacksSlow)
}

// findMagics searches a multiplier for every square such that the
// multiply-and-shift of each occupancy subset lands on a slot holding that
// subset's attack set. Two subsets may share a slot only if their attacks
// are equal.
func findMagics(rng *frand.RNG, magics *[64]Magic, table []Bitboard, slow func(Square, Bitboard) Bitboard) {
	var (
		occupancy [4096]Bitboard
		reference [4096]Bitboard
		epoch     [4096]int
		current   int
		offset    int
	)

	for sq := A1; sq <= H8; sq++ {
		edges := ((Rank1 | Rank8) &^ RankMask[sq.Rank()]) | ((FileA | FileH) &^ FileMask[sq.File()])

		m := &magics[sq]
		m.Mask = slow(sq, 0) &^ edges
		m.Shift = uint8(64 - m.Mask.PopCount())

		// Carry-Rippler enumeration of every subset of the mask.
		size := 0
		for b := Bitboard(0); ; {
			occupancy[size] = b
			reference[size] = slow(sq, b)
			size++
			b = (b - m.Mask) & m.Mask
			if b == 0 {
				break
			}
		}

		m.table = table[offset : offset+size]
		offset += size

		for i := 0; i < size; {
			for {
				m.Magic = sparseRand(rng)
				if Bitboard((m.Magic*uint64(m.Mask))>>56).PopCount() >= 6 {
					break
				}
			}

			current++
			for i = 0; i < size; i++ {
				idx := m.index(occupancy[i])
				if epoch[idx] < current {
					epoch[idx] = current
					m.table[idx] = reference[i]
				} else if m.table[idx] != reference[i] {
					break
				}
			}
		}
	}
}

func sparseRand(rng *frand.RNG) uint64 {
	return rng.Uint64n(math.MaxUint64) & rng.Uint64n(math.MaxUint64) & rng.Uint64n(math.MaxUint64)
}

var (
	bishopDirections = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	rookDirections   = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

// slideAttacks computes slider attacks by ray casting (used during initialization).
func slideAttacks(sq Square, occupied Bitboard, dirs *[4][2]int) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		for f, r := sq.File()+d[0], sq.Rank()+d[1]; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+d[0], r+d[1] {
			s := NewSquare(f, r)
			attacks |= SquareBB(s)
			if occupied.IsSet(s) {
				break
			}
		}
	}
	return attacks
}

func bishopAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return slideAttacks(sq, occupied, &bishopDirections)
}

func rookAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return slideAttacks(sq, occupied, &rookDirections)
}
