// Package board implements chess board representation using bitboards.
package board

import "fmt"

// Square represents a square on the chess board (0-63).
// Uses Little-Endian Rank-File Mapping: A1=0, H1=7, A8=56, H8=63.
type Square uint8

// Square constants, one rank per line.
const (
	A1, B1, C1, D1, E1, F1, G1, H1 Square = 8*iota + 0, 8*iota + 1, 8*iota + 2, 8*iota + 3, 8*iota + 4, 8*iota + 5, 8*iota + 6, 8*iota + 7
	A2, B2, C2, D2, E2, F2, G2, H2
	A3, B3, C3, D3, E3, F3, G3, H3
	A4, B4, C4, D4, E4, F4, G4, H4
	A5, B5, C5, D5, E5, F5, G5, H5
	A6, B6, C6, D6, E6, F6, G6, H6
	A7, B7, C7, D7, E7, F7, G7, H7
	A8, B8, C8, D8, E8, F8, G8, H8
)

// NoSquare marks an absent square, e.g. no en-passant target.
const NoSquare Square = 64

// File returns the file (column) of the square (0-7, where 0=a, 7=h).
func (sq Square) File() int {
	return int(sq) & 7
}

// Rank returns the rank (row) of the square (0-7, where 0=1, 7=8).
func (sq Square) Rank() int {
	return int(sq) >> 3
}

// String returns the algebraic name of the square ("e4"), "-" for NoSquare.
func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// NewSquare creates a square from 0-based file and rank.
func NewSquare(file, rank int) Square {
	return Square(rank<<3 | file)
}

// ParseSquare parses an algebraic square name such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// FlipFile mirrors the square horizontally (a-file <-> h-file).
func (sq Square) FlipFile() Square {
	return sq ^ 7
}

// IsValid returns true if the square is a valid board square (0-63).
func (sq Square) IsValid() bool {
	return sq < NoSquare
}

// Mirror returns the square mirrored vertically (for black's perspective).
func (sq Square) Mirror() Square {
	return sq ^ 56
}

// RelativeSquare returns the square as seen from c's side of the board.
func RelativeSquare(c Color, sq Square) Square {
	return sq ^ Square(int(c)*56)
}

// PawnPush returns the square offset of a single pawn push for c.
func PawnPush(c Color) int {
	if c == White {
		return 8
	}
	return -8
}

// RelativeRank returns the rank from a given color's perspective.
// For White, rank 0 is the 1st rank; for Black, rank 0 is the 8th rank.
func (sq Square) RelativeRank(c Color) int {
	if c == White {
		return sq.Rank()
	}
	return 7 - sq.Rank()
}

// OppositeColors reports whether the two squares have different shades.
func OppositeColors(s1, s2 Square) bool {
	s := int(s1) ^ int(s2)
	return ((s>>3)^s)&1 != 0
}

// Distance returns the Chebyshev (king-move) distance between two squares.
func Distance(s1, s2 Square) int {
	return squareDistance[s1][s2]
}

// FileDistance returns the absolute file difference of two squares.
func FileDistance(s1, s2 Square) int {
	return absInt(s1.File() - s2.File())
}

// RankDistance returns the absolute rank difference of two squares.
func RankDistance(s1, s2 Square) int {
	return absInt(s1.Rank() - s2.Rank())
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
