package board

import (
	"testing"

	"github.com/matryer/is"
)

func TestSEE(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"pawn takes rook defended by queen", "3qk3/8/8/3r4/4P3/8/8/4K3 w - - 0 1", "e4d5", RookValueMg - PawnValueMg},
		{"rook takes pawn defended by pawn", "4k3/8/2p5/3p4/8/8/8/3RK3 w - - 0 1", "d1d5", PawnValueMg - RookValueMg},
		{"undefended knight", "4k3/8/8/3n4/8/8/8/3RK3 w - - 0 1", "d1d5", KnightValueMg},
		{"x-ray rook behind rook", "3rk3/8/8/3p4/8/8/3R4/3RK3 w - - 0 1", "d2d5", PawnValueMg},
		{"doubled rooks against doubled rooks", "3rk3/3r4/8/3p4/8/8/3R4/3RK3 w - - 0 1", "d2d5", PawnValueMg - RookValueMg},
		{"quiet move to safe square", "4k3/8/8/3p4/8/8/8/2N1K3 w - - 0 1", "c1b3", 0},
		{"knight into pawn attack", "4k3/2p5/8/8/4N3/8/8/4K3 w - - 0 1", "e4d6", -KnightValueMg},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6", PawnValueMg},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			pos, err := ParseFEN(tc.fen)
			is.NoErr(err)
			m, err := pos.ParseMove(tc.move)
			is.NoErr(err)
			is.Equal(pos.SEE(m), tc.want)
		})
	}
}

func TestSEESignShortcut(t *testing.T) {
	is := is.New(t)

	// Pawn takes knight: can never lose, so the exchange is not computed.
	pos, err := ParseFEN("4k3/8/8/3n4/4P3/8/8/4K3 w - - 0 1")
	is.NoErr(err)
	m, err := pos.ParseMove("e4d5")
	is.NoErr(err)
	is.Equal(pos.SEESign(m), SEEWin)

	// Queen takes a defended pawn: computed and negative.
	pos, err = ParseFEN("4k3/8/2p5/3p4/8/8/8/3QK3 w - - 0 1")
	is.NoErr(err)
	m, err = pos.ParseMove("d1d5")
	is.NoErr(err)
	is.True(pos.SEESign(m) < 0)
}
