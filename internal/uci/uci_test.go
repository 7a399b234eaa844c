package uci

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

// session drives a UCI handler command by command. Output is only read once
// no search is running.
type session struct {
	t   *testing.T
	u   *UCI
	eng *engine.Engine
	out *bytes.Buffer
}

func newSession(t *testing.T, store *storage.AnalysisStore) *session {
	t.Helper()
	eng, err := engine.NewEngine(engine.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	out := &bytes.Buffer{}
	return &session{t: t, u: New(eng, store, out), eng: eng, out: out}
}

// run executes the lines and waits for any search they started.
func (s *session) run(lines ...string) string {
	s.t.Helper()
	for _, l := range lines {
		require.False(s.t, s.u.Execute(context.Background(), l), "unexpected quit on %q", l)
	}
	s.u.waitSearch()
	got := s.out.String()
	s.out.Reset()
	return got
}

func bestMove(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if f := strings.Fields(line); len(f) >= 2 && f[0] == "bestmove" {
			return f[1]
		}
	}
	t.Fatalf("no bestmove in output:\n%s", out)
	return ""
}

func TestHandshake(t *testing.T) {
	s := newSession(t, nil)
	out := s.run("uci")

	assert.Contains(t, out, "id name chesscore\n")
	assert.Contains(t, out, "option name Hash type spin default 16 min 1 max 131072\n")
	assert.Contains(t, out, "option name Threads type spin default 1 min 1 max 64\n")
	assert.Contains(t, out, "option name Clear Hash type button\n")
	assert.Contains(t, out, "option name UCI_Chess960 type check default false\n")
	assert.NotContains(t, out, "Clear Analysis")
	assert.True(t, strings.HasSuffix(out, "uciok\n"))

	assert.Equal(t, "readyok\n", s.run("isready"))
}

func TestGoDepth(t *testing.T) {
	s := newSession(t, nil)
	out := s.run("position startpos moves e2e4 e7e5", "go depth 4")

	assert.Contains(t, out, "info depth 4 seldepth ")
	assert.Contains(t, out, " multipv 1 score cp ")

	pos := board.NewPosition()
	for _, m := range []string{"e2e4", "e7e5"} {
		mv, err := pos.ParseMove(m)
		require.NoError(t, err)
		pos.DoMove(mv)
	}
	_, err := pos.ParseMove(bestMove(t, out))
	assert.NoError(t, err)
}

func TestMateAndNoMoves(t *testing.T) {
	s := newSession(t, nil)

	out := s.run("position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "go depth 3")
	assert.Contains(t, out, "score mate 1 ")
	assert.Equal(t, "a1a8", bestMove(t, out))

	out = s.run("position fen 7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", "go depth 3")
	assert.Contains(t, out, "info depth 0 score cp 0\n")
	assert.Contains(t, out, "bestmove (none)\n")

	out = s.run("position fen R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1", "go depth 3")
	assert.Contains(t, out, "info depth 0 score mate 0\n")
}

func TestBadPositionKeepsPrevious(t *testing.T) {
	s := newSession(t, nil)
	s.run("position startpos moves e2e4")
	after := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq"

	out := s.run("position fen rnbqkbnr/pppppppp/8/8 w KQkq - 0 1")
	assert.Contains(t, out, "info string position:")
	assert.Contains(t, s.run("d"), after)

	out = s.run("position startpos moves e2e4 e7e4")
	assert.Contains(t, out, "illegal move")
	assert.Contains(t, s.run("d"), after)

	out = s.run("position something")
	assert.Contains(t, out, "expected startpos or fen")
}

func TestSetOption(t *testing.T) {
	s := newSession(t, nil)

	s.run("setoption name Hash value 32", "setoption name threads value 3", "setoption name Contempt value 20")
	opts := s.eng.Options()
	assert.Equal(t, 32, opts.Hash)
	assert.Equal(t, 3, opts.Threads)
	assert.Equal(t, 20, opts.Contempt)

	s.run("setoption name Min Split Depth value 6", "setoption name Max Threads per Split Point value 4")
	opts = s.eng.Options()
	assert.Equal(t, 6, opts.MinSplitDepth)
	assert.Equal(t, 4, opts.MaxThreadsPerSplitPoint)

	s.run("setoption name Move Overhead value 100")
	assert.Equal(t, 100*time.Millisecond, s.eng.Options().MoveOverhead)

	assert.Contains(t, s.run("setoption name Hash value 0"), "out of range")
	assert.Contains(t, s.run("setoption name Threads value lots"), "bad value")
	assert.Contains(t, s.run("setoption name NoSuchThing value 1"), "no such option")
	assert.Contains(t, s.run("setoption name UCI_Chess960 value maybe"), "expected true or false")
	assert.Empty(t, s.run("setoption name Clear Hash"))
}

func TestMultiPVOutput(t *testing.T) {
	s := newSession(t, nil)
	out := s.run("setoption name MultiPV value 3", "position startpos", "go depth 3")
	for _, want := range []string{"info depth 3 seldepth", " multipv 1 ", " multipv 2 ", " multipv 3 "} {
		assert.Contains(t, out, want)
	}
}

func TestChess960Castling(t *testing.T) {
	fen := "position fen r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"
	s := newSession(t, nil)

	assert.Empty(t, s.run(fen+" moves e1g1"))
	assert.Contains(t, s.run("d"), "r3k2r/8/8/8/8/8/8/R4RK1 b kq")

	s.run("setoption name UCI_Chess960 value true")
	assert.Contains(t, s.run(fen+" moves e1g1"), "illegal move")
	assert.Empty(t, s.run(fen+" moves e1h1"))
	assert.Contains(t, s.run("d"), "r3k2r/8/8/8/8/8/8/R4RK1 b")
}

func TestPerft(t *testing.T) {
	s := newSession(t, nil)
	out := s.run("position startpos", "perft 3")
	assert.Contains(t, out, "e2e4: 600\n")
	assert.Contains(t, out, "Nodes searched: 8902\n")

	assert.Contains(t, s.run("perft x"), "bad depth")
}

func TestEvalAndFlip(t *testing.T) {
	s := newSession(t, nil)
	assert.Contains(t, s.run("eval"), "Evaluation: +")

	s.run("position startpos moves e2e4", "flip")
	assert.Contains(t, s.run("d"), "rnbqkbnr/pppp1ppp/8/4p3/8/8/PPPPPPPP/RNBQKBNR w KQkq")
}

func TestSearchMovesAndGoErrors(t *testing.T) {
	s := newSession(t, nil)

	out := s.run("position startpos", "go depth 3 searchmoves a2a3 zz99")
	assert.Equal(t, "a2a3", bestMove(t, out))

	assert.Contains(t, s.run("go depth"), "missing value for depth")
	assert.Contains(t, s.run("go wtime soon"), "bad value for wtime")
	assert.Contains(t, s.run("go sideways"), "unknown go parameter")
}

func TestGoClock(t *testing.T) {
	s := newSession(t, nil)
	start := time.Now()
	out := s.run("position startpos", "go wtime 2000 btime 2000 winc 0 binc 0 movestogo 20")
	assert.Less(t, time.Since(start), 2*time.Second)
	bestMove(t, out)
}

func TestInfiniteAndStop(t *testing.T) {
	s := newSession(t, nil)
	require.False(t, s.u.Execute(context.Background(), "position startpos"))
	require.False(t, s.u.Execute(context.Background(), "go infinite"))
	time.Sleep(50 * time.Millisecond)

	out := s.run("stop")
	bestMove(t, out)
}

func TestPonderHit(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()
	require.False(t, s.u.Execute(ctx, "position startpos moves e2e4"))
	require.False(t, s.u.Execute(ctx, "go ponder depth 2"))

	// The pondering search finishes its depth but holds back bestmove.
	time.Sleep(100 * time.Millisecond)
	s.u.outMu.Lock()
	pending := s.out.String()
	s.u.outMu.Unlock()
	assert.NotContains(t, pending, "bestmove")

	out := s.run("ponderhit")
	bestMove(t, out)
}

func TestUnknownCommand(t *testing.T) {
	s := newSession(t, nil)
	assert.Contains(t, s.run("fly away"), "Unknown command: fly away")
}

func TestRun(t *testing.T) {
	eng, err := engine.NewEngine(engine.DefaultOptions())
	require.NoError(t, err)
	defer eng.Close()

	var out bytes.Buffer
	u := New(eng, nil, &out)
	in := strings.NewReader("uci\n\nisready\nposition startpos\ngo depth 2\nquit\nisready\n")
	require.NoError(t, u.Run(context.Background(), in))

	// Commands after quit are not read; the search was stopped cleanly.
	assert.Equal(t, 1, strings.Count(out.String(), "readyok"))
	bestMove(t, out.String())

	// End of input behaves like quit.
	out.Reset()
	require.NoError(t, u.Run(context.Background(), strings.NewReader("go infinite\n")))
	bestMove(t, out.String())
}

func TestAnalysisStore(t *testing.T) {
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	s := newSession(t, store)
	assert.Contains(t, s.run("uci"), "option name Clear Analysis type button\n")

	out := s.run("position startpos", "go depth 3")
	best := bestMove(t, out)
	a, err := store.Get(board.StartFEN)
	require.NoError(t, err)
	assert.Equal(t, best, a.BestMove)
	assert.Equal(t, 3, a.Depth)
	assert.NotEmpty(t, a.PV)

	// A shallower request sees the stored result, a deeper one does not.
	assert.Contains(t, s.run("go depth 2"), "info string stored depth 3 ")
	assert.NotContains(t, s.run("go depth 4"), "info string stored depth 3 ")

	s.run("setoption name Clear Analysis")
	n, err := store.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "cp 0", formatScore(0))
	assert.Equal(t, "cp 100", formatScore(board.PawnValueEg))
	assert.Equal(t, "cp -50", formatScore(-board.PawnValueEg/2))
	assert.Equal(t, "mate 1", formatScore(engine.MateIn(1)))
	assert.Equal(t, "mate 2", formatScore(engine.MateIn(3)))
	assert.Equal(t, "mate -1", formatScore(engine.MatedIn(2)))
	assert.Equal(t, "mate 0", formatScore(-engine.ValueMate))
}
