package board

import (
	"math/bits"
	"strings"
)

// Bitboard represents a 64-bit board where each bit corresponds to a square.
// Bit 0 = A1, Bit 7 = H1, Bit 56 = A8, Bit 63 = H8 (Little-Endian Rank-File Mapping).
type Bitboard uint64

// File and rank masks.
const (
	FileA Bitboard = 0x0101010101010101 << iota
	FileB
	FileC
	FileD
	FileE
	FileF
	FileG
	FileH
)

const (
	Rank1 Bitboard = 0xFF << (8 * iota)
	Rank2
	Rank3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
)

const (
	Empty    Bitboard = 0
	Universe Bitboard = 0xFFFFFFFFFFFFFFFF

	NotFileA Bitboard = ^FileA
	NotFileH Bitboard = ^FileH

	DarkSquares Bitboard = 0xAA55AA55AA55AA55

	Center Bitboard = (FileD | FileE) & (Rank4 | Rank5)
)

// FileMask returns the file mask for a given file (0-7).
var FileMask = [8]Bitboard{FileA, FileB, FileC, FileD, FileE, FileF, FileG, FileH}

// RankMask returns the rank mask for a given rank (0-7).
var RankMask = [8]Bitboard{Rank1, Rank2, Rank3, Rank4, Rank5, Rank6, Rank7, Rank8}

// SquareBB returns a bitboard with only the given square set.
func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

// IsSet returns true if the bit at the given square is set.
func (b Bitboard) IsSet(sq Square) bool {
	return b&(1<<sq) != 0
}

// PopCount returns the number of set bits (population count).
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(uint64(b))
}

// MoreThanOne reports whether at least two bits are set.
func (b Bitboard) MoreThanOne() bool {
	return b&(b-1) != 0
}

// LSB returns the least significant bit (lowest square index).
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// MSB returns the most significant bit (highest square index).
func (b Bitboard) MSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(63 - bits.LeadingZeros64(uint64(b)))
}

// PopLSB removes and returns the least significant bit.
func (b *Bitboard) PopLSB() Square {
	sq := b.LSB()
	*b &= *b - 1
	return sq
}

// FrontmostSquare returns the most advanced square of b from c's point of view.
func (b Bitboard) FrontmostSquare(c Color) Square {
	if c == White {
		return b.MSB()
	}
	return b.LSB()
}

// BackmostSquare returns the least advanced square of b from c's point of view.
func (b Bitboard) BackmostSquare(c Color) Square {
	if c == White {
		return b.LSB()
	}
	return b.MSB()
}

// Direction is a board offset used by the pre-shifted pawn bitboards.
type Direction int

const (
	DeltaN  Direction = 8
	DeltaS  Direction = -8
	DeltaE  Direction = 1
	DeltaW  Direction = -1
	DeltaNE Direction = 9
	DeltaNW Direction = 7
	DeltaSE Direction = -7
	DeltaSW Direction = -9
)

// Shift moves every bit one step in direction d, dropping bits that would
// wrap around a board edge.
func (b Bitboard) Shift(d Direction) Bitboard {
	switch d {
	case DeltaN:
		return b << 8
	case DeltaS:
		return b >> 8
	case DeltaE:
		return (b << 1) & NotFileA
	case DeltaW:
		return (b >> 1) & NotFileH
	case DeltaNE:
		return (b << 9) & NotFileA
	case DeltaNW:
		return (b << 7) & NotFileH
	case DeltaSE:
		return (b >> 7) & NotFileA
	case DeltaSW:
		return (b >> 9) & NotFileH
	}
	return 0
}

// NorthFill fills all squares north of the set bits.
func (b Bitboard) NorthFill() Bitboard {
	b |= b << 8
	b |= b << 16
	b |= b << 32
	return b
}

// SouthFill fills all squares south of the set bits.
func (b Bitboard) SouthFill() Bitboard {
	b |= b >> 8
	b |= b >> 16
	b |= b >> 32
	return b
}

// String returns a visual representation of the bitboard.
func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		sb.WriteByte(' ')
		for file := 0; file < 8; file++ {
			if b.IsSet(NewSquare(file, rank)) {
				sb.WriteString("1 ")
			} else {
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
