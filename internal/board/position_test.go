package board

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFENs = []string{
	StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	"8/8/8/K2pP2q/8/8/8/7k w - d6 0 1",
}

// walk applies every legal move to depth plies and calls fn at each node.
func walk(p *Position, depth int, fn func(p *Position)) {
	fn(p)
	if depth == 0 {
		return
	}
	var ml MoveList
	Generate(p, GenLegal, &ml)
	for _, em := range ml.Slice() {
		p.DoMove(em.Move)
		walk(p, depth-1, fn)
		p.UndoMove(em.Move)
	}
}

func withDebugChecks(t *testing.T) {
	DebugChecks = true
	t.Cleanup(func() { DebugChecks = false })
}

func TestDoUndoRestoresPosition(t *testing.T) {
	withDebugChecks(t)

	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)
		require.NoError(t, pos.Validate())

		key, fenBefore := pos.Key(), pos.FEN()
		walk(pos, 3, func(*Position) {})
		assert.Equal(t, key, pos.Key(), fen)
		assert.Equal(t, fenBefore, pos.FEN())
	}
}

func TestIncrementalKeysMatchRecomputed(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)

		walk(pos, 2, func(p *Position) {
			fresh, err := ParseFEN(p.FEN())
			require.NoError(t, err)
			assert.Equal(t, fresh.Key(), p.Key(), p.FEN())
			assert.Equal(t, fresh.PawnKey(), p.PawnKey(), p.FEN())
			assert.Equal(t, fresh.MaterialKey(), p.MaterialKey(), p.FEN())
			assert.Equal(t, fresh.PSQScore(), p.PSQScore(), p.FEN())
		})
	}
}

func TestGivesCheckMatchesCheckers(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)

		walk(pos, 2, func(p *Position) {
			ci := p.NewCheckInfo()
			var ml MoveList
			Generate(p, GenLegal, &ml)
			for _, em := range ml.Slice() {
				gives := p.GivesCheck(em.Move, &ci)
				p.DoMoveCheck(em.Move, true)
				inCheck := p.InCheck()
				p.UndoMove(em.Move)
				if gives != inCheck {
					t.Fatalf("%s: GivesCheck(%s) = %v, but check after move is %v", p.FEN(), em.Move, gives, inCheck)
				}
			}
		})
	}
}

func TestMaterialKeyIgnoresPlacement(t *testing.T) {
	a, err := ParseFEN("4k3/8/8/8/8/8/2N5/4K3 w - - 0 1")
	require.NoError(t, err)
	b, err := ParseFEN("4k3/8/8/5N2/8/8/8/4K3 b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, a.MaterialKey(), b.MaterialKey())
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)
		assert.Equal(t, fen, pos.FEN())
	}

	pos := &Position{}
	fen := "bqnb1rkr/pp3ppp/3ppn2/2p5/5P2/P2P4/NPP1P1PP/BQ1BNRKR w HFhf - 2 9"
	require.NoError(t, pos.Set(fen, true))
	assert.Equal(t, fen, pos.FEN())
}

func TestEnPassantKeptOnlyWhenCapturable(t *testing.T) {
	pos, err := ParseFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	require.NoError(t, err)
	assert.Equal(t, NoSquare, pos.EpSquare())

	plain, err := ParseFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	require.NoError(t, err)
	assert.Equal(t, plain.Key(), pos.Key())
}

func TestInvalidFEN(t *testing.T) {
	for _, fen := range []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQ1BNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNX w KQkq - 0 1",
		"Pnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBN1 w KQkq - 0 1",
		"4k3/8/8/8/8/8/8/4K2R w KQ - 0 1",
		"4k3/4R3/8/8/8/8/8/4K3 w - - 0 1",
		"4ū3/8/8/8/8/8/8/4K3 w - - 0 1",
		"r3k2r/8/8/8/8/8/8/R3K2R w Kū - 0 1",
	} {
		pos := &Position{}
		err := pos.Set(fen, false)
		if !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("Set(%q) error = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestFlipIsInvolution(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)

		require.NoError(t, pos.Flip())
		require.NoError(t, pos.Validate())
		require.NoError(t, pos.Flip())
		assert.Equal(t, fen, pos.FEN())
	}
}

func TestCopyFromIsIndependent(t *testing.T) {
	src := NewPosition()
	m, err := src.ParseMove("e2e4")
	require.NoError(t, err)
	src.DoMove(m)

	var dst Position
	dst.CopyFrom(src)
	assert.Equal(t, src.FEN(), dst.FEN())

	m2, err := dst.ParseMove("e7e5")
	require.NoError(t, err)
	dst.DoMove(m2)
	assert.NotEqual(t, src.FEN(), dst.FEN())
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", src.FEN())

	dst.UndoMove(m2)
	dst.UndoMove(m)
	assert.Equal(t, StartFEN, dst.FEN())
}

func TestParseMove(t *testing.T) {
	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	m, err := pos.ParseMove("e1g1")
	require.NoError(t, err)
	assert.Equal(t, Castling, m.Type())
	assert.Equal(t, H1, m.To())
	assert.Equal(t, "e1g1", MoveString(m, false))
	assert.Equal(t, "e1h1", MoveString(m, true))

	_, err = pos.ParseMove("e1e3")
	assert.Error(t, err)
}
