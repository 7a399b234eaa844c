package engine

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
	"github.com/matryer/is"
)

var evalFENs = []string{
	board.StartFEN,
	kiwipete,
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r1bq1rk1/pp2bppp/2n1pn2/3p4/2PP4/2N1PN2/PP1B1PPP/R2QKB1R b KQ - 3 8",
	"8/5pk1/6p1/3P4/1p6/1P3KP1/8/8 w - - 0 45",
	"6k1/5ppp/8/8/8/8/5PPP/3R2K1 b - - 0 1",
}

func TestEvaluateIsColorSymmetric(t *testing.T) {
	ev := NewClassicalEvaluator()
	for _, fen := range evalFENs {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		want := ev.Evaluate(pos)
		if err := pos.Flip(); err != nil {
			t.Fatalf("Flip(%q): %v", fen, err)
		}
		if got := ev.Evaluate(pos); got != want {
			t.Errorf("%s: flipped eval %d, original %d", fen, got, want)
		}
	}
}

func TestEvaluateStaysBelowKnownWin(t *testing.T) {
	is := is.New(t)
	ev := NewClassicalEvaluator()

	// Huge material edge but not a recognized endgame.
	pos, err := board.ParseFEN("4k3/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQ - 0 1")
	is.NoErr(err)
	v := ev.Evaluate(pos)
	is.True(v > 0)
	is.True(v < ValueKnownWin)
}

func TestEvaluatePawnCacheIsTransparent(t *testing.T) {
	is := is.New(t)
	ev := NewClassicalEvaluator()
	for _, fen := range evalFENs {
		pos, err := board.ParseFEN(fen)
		is.NoErr(err)
		first := ev.Evaluate(pos) // fills the pawn table
		is.Equal(ev.Evaluate(pos), first)
		ev.Clear()
		is.Equal(ev.Evaluate(pos), first)
	}
}

func TestMaterialKeyOfMatchesPosition(t *testing.T) {
	is := is.New(t)
	tests := []struct {
		fen    string
		code   string
		strong board.Color
	}{
		{"4k3/8/8/8/8/8/8/3QK3 w - - 0 1", "KQvK", board.White},
		{"4k3/8/8/8/8/8/8/4K3 b - - 0 1", "KvK", board.White},
		{"2b1k1n1/8/8/8/8/8/8/4K3 w - - 0 1", "KBNvK", board.Black},
		{"4k3/8/8/8/8/8/8/RR2K3 w - - 0 1", "KRRvK", board.White},
	}
	for _, tt := range tests {
		pos, err := board.ParseFEN(tt.fen)
		is.NoErr(err)
		is.Equal(pos.MaterialKey(), materialKeyOf(tt.code, tt.strong)) // material key of tt.code
	}
}

func TestEndgameDispatch(t *testing.T) {
	ev := NewClassicalEvaluator()
	tests := []struct {
		name string
		fen  string
		win  int // 1 side to move wins, -1 loses, 0 draw
	}{
		{"bare kings", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", 0},
		{"lone knight", "4k3/8/8/8/8/8/8/3NK3 w - - 0 1", 0},
		{"lone bishop", "4k3/8/8/8/8/8/8/3BK3 b - - 0 1", 0},
		{"two knights", "4k3/8/8/8/8/8/8/2NNK3 w - - 0 1", 0},
		{"queen", "4k3/8/8/8/8/8/8/3QK3 w - - 0 1", 1},
		{"black rook", "4k3/r7/8/8/8/8/8/4K3 w - - 0 1", -1},
		{"bishop and knight", "4k3/8/8/8/8/8/8/2BNK3 b - - 0 1", -1},
		{"bishop pair", "4k3/8/8/8/8/8/8/2B1KB2 w - - 0 1", 1},
		{"queen stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := board.ParseFEN(tt.fen)
			if err != nil {
				t.Fatal(err)
			}
			v := ev.Evaluate(pos)
			switch tt.win {
			case 0:
				if v != ValueDraw {
					t.Errorf("eval = %d, want draw", v)
				}
			case 1:
				if v < ValueKnownWin {
					t.Errorf("eval = %d, want known win", v)
				}
			case -1:
				if v > -ValueKnownWin {
					t.Errorf("eval = %d, want known loss", v)
				}
			}
		})
	}
}

func TestKXKPrefersEdgeAndCloseKings(t *testing.T) {
	ev := NewClassicalEvaluator()
	eval := func(fen string) int {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatal(err)
		}
		return ev.Evaluate(pos)
	}

	center := eval("8/8/8/3k4/8/3K4/8/R7 w - - 0 1")
	edge := eval("3k4/8/3K4/8/8/8/8/R7 w - - 0 1")
	edgeFar := eval("3k4/8/8/8/8/3K4/8/R7 w - - 0 1")
	if center >= edge {
		t.Errorf("king in the center %d should score below king on the edge %d", center, edge)
	}
	if edgeFar >= edge {
		t.Errorf("distant kings %d should score below close kings %d", edgeFar, edge)
	}
}

func TestKBNKDrivesToBishopCorner(t *testing.T) {
	ev := NewClassicalEvaluator()
	eval := func(fen string) int {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatal(err)
		}
		return ev.Evaluate(pos)
	}

	// Dark-squared bishop: a1 is the mating corner, a8 is not.
	if right, wrong := eval("8/8/8/3K4/8/8/8/k1BN4 w - - 0 1"), eval("k7/8/8/3K4/8/8/8/2BN4 w - - 0 1"); right <= wrong {
		t.Errorf("dark bishop: a1 corner %d should beat a8 corner %d", right, wrong)
	}
	// Light-squared bishop: the other way round.
	if right, wrong := eval("k7/8/8/3K4/8/8/8/3N1B2 w - - 0 1"), eval("8/8/8/3K4/8/8/8/k2N1B2 w - - 0 1"); right <= wrong {
		t.Errorf("light bishop: a8 corner %d should beat a1 corner %d", right, wrong)
	}
}

func TestPawnTable(t *testing.T) {
	is := is.New(t)
	pt := NewPawnTable(1)

	key := uint64(0x0123456789abcdef)
	_, ok := pt.Probe(key)
	is.True(!ok) // empty table

	want := PawnEntry{MgScore: -37, EgScore: 512, Passed: [2]board.Bitboard{0x0000_1000_0000_0000, 0x42}}
	pt.Store(key, want)
	got, ok := pt.Probe(key)
	is.True(ok)
	is.Equal(got, want)

	// Same slot, different key.
	_, ok = pt.Probe(key ^ (1 << 63))
	is.True(!ok)

	pt.Clear()
	_, ok = pt.Probe(key)
	is.True(!ok)
}

func TestEngineEvaluateUsesEvaluator(t *testing.T) {
	is := is.New(t)
	opts := DefaultOptions()
	opts.Evaluator = constEvaluator(42)
	eng, err := NewEngine(opts)
	is.NoErr(err)
	defer eng.Close()

	is.Equal(eng.Evaluate(board.NewPosition()), 42)
}

type constEvaluator int

func (c constEvaluator) Evaluate(*board.Position) int { return int(c) }
