// Package uci implements the Universal Chess Interface on top of the engine.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

const (
	engineName   = "chesscore"
	engineAuthor = "the chesscore authors"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	store    *storage.AnalysisStore // nil disables the analysis store
	position *board.Position
	chess960 bool
	options  []option

	outMu sync.Mutex
	out   io.Writer

	// Search state
	searchDone chan struct{}
	cancel     context.CancelFunc
}

// New creates a new UCI protocol handler writing to out. store may be nil.
func New(eng *engine.Engine, store *storage.AnalysisStore, out io.Writer) *UCI {
	u := &UCI{
		engine:   eng,
		store:    store,
		position: board.NewPosition(),
		out:      out,
	}
	u.options = u.buildOptions()
	eng.OnInfo = u.sendInfo
	return u
}

// Run reads commands from in until "quit" or end of input. A running search
// is stopped before Run returns.
func (u *UCI) Run(ctx context.Context, in io.Reader) error {
	defer u.stopSearch()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := u.Execute(ctx, line); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute runs a single command line and reports whether it was "quit".
func (u *UCI) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]
	log.Debug().Str("cmd", line).Msg("uci command")

	var err error
	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.println("readyok")
	case "ucinewgame":
		u.stopSearch()
		u.engine.Clear()
		u.position = board.NewPosition()
	case "setoption":
		u.stopSearch()
		err = u.handleSetOption(args)
	case "position":
		err = u.handlePosition(args)
	case "go":
		err = u.handleGo(ctx, args)
	case "stop":
		u.stopSearch()
	case "ponderhit":
		u.engine.PonderHit()
	case "quit":
		return true

	// Debug commands
	case "d":
		u.printf("%s", u.position.String())
	case "perft":
		err = u.handlePerft(args)
	case "eval":
		v := u.engine.Evaluate(u.position)
		u.printf("Evaluation: %s (side to move)\n", engine.ScoreToString(v))
	case "flip":
		err = u.position.Flip()

	default:
		log.Warn().Str("cmd", line).Msg("unknown command")
		u.printf("info string Unknown command: %s\n", line)
	}
	if err != nil {
		log.Error().Err(err).Str("cmd", line).Msg("command rejected")
		u.printf("info string %s: %v\n", cmd, err)
	}
	return false
}

func (u *UCI) printf(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, args...)
}

func (u *UCI) println(s string) {
	u.printf("%s\n", s)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.printf("id name %s\nid author %s\n\n", engineName, engineAuthor)
	for _, o := range u.options {
		u.println(o.String())
	}
	u.println("uciok")
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// A bad FEN or move rejects the whole command and keeps the old position.
func (u *UCI) handlePosition(args []string) error {
	head, moves := args, []string(nil)
	if i := slices.Index(args, "moves"); i >= 0 {
		head, moves = args[:i], args[i+1:]
	}

	var fen string
	switch {
	case len(head) > 0 && head[0] == "startpos":
		fen = board.StartFEN
	case len(head) > 1 && head[0] == "fen":
		fen = strings.Join(head[1:], " ")
	default:
		return fmt.Errorf("expected startpos or fen")
	}

	pos := &board.Position{}
	if err := pos.Set(fen, u.chess960); err != nil {
		return err
	}
	for _, s := range moves {
		m, err := pos.ParseMove(s)
		if err != nil {
			return err
		}
		pos.DoMove(m)
	}
	u.position = pos
	return nil
}

// parseGo converts "go" arguments into search limits. Moves listed after
// searchmoves that are not legal are skipped.
func (u *UCI) parseGo(args []string) (engine.Limits, error) {
	var limits engine.Limits
	us := u.position.SideToMove()

	intArg := func(i int) (int, error) {
		if i+1 >= len(args) {
			return 0, fmt.Errorf("missing value for %s", args[i])
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return 0, fmt.Errorf("bad value for %s: %w", args[i], err)
		}
		return n, nil
	}
	ms := func(n int) time.Duration { return time.Duration(max(n, 0)) * time.Millisecond }

	for i := 0; i < len(args); i++ {
		var n int
		var err error
		switch args[i] {
		case "infinite":
			limits.Infinite = true
			continue
		case "ponder":
			limits.Ponder = true
			continue
		case "searchmoves":
			for _, s := range args[i+1:] {
				if m, err := u.position.ParseMove(s); err == nil {
					limits.SearchMoves = append(limits.SearchMoves, m)
				}
			}
			i = len(args)
			continue
		case "wtime", "btime", "winc", "binc", "movestogo", "depth", "nodes", "mate", "movetime":
			n, err = intArg(i)
			if err != nil {
				return limits, err
			}
		default:
			return limits, fmt.Errorf("unknown go parameter %q", args[i])
		}

		switch args[i] {
		case "wtime":
			limits.Time[board.White] = ms(n)
		case "btime":
			limits.Time[board.Black] = ms(n)
		case "winc":
			limits.Inc[board.White] = ms(n)
		case "binc":
			limits.Inc[board.Black] = ms(n)
		case "movestogo":
			limits.MovesToGo = n
		case "depth":
			limits.Depth = n
		case "nodes":
			limits.Nodes = uint64(max(n, 0))
		case "mate":
			limits.Mate = n
		case "movetime":
			limits.MoveTime = ms(n)
		}
		i++
	}

	log.Debug().Dur("time", limits.Time[us]).Dur("inc", limits.Inc[us]).Int("depth", limits.Depth).
		Bool("infinite", limits.Infinite).Bool("ponder", limits.Ponder).Msg("go")
	return limits, nil
}

// handleGo starts a search in the background. bestmove is printed when it
// ends.
func (u *UCI) handleGo(ctx context.Context, args []string) error {
	limits, err := u.parseGo(args)
	if err != nil {
		return err
	}
	u.stopSearch()
	u.reportStored(limits)

	pos := &board.Position{}
	pos.CopyFrom(u.position)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	u.cancel, u.searchDone = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		res := u.engine.Search(ctx, pos, limits)
		u.sendBestMove(pos, res)
		u.saveAnalysis(pos, res)
	}()
	return nil
}

// stopSearch stops a running search and waits until bestmove was sent.
func (u *UCI) stopSearch() {
	if u.cancel != nil {
		u.cancel()
	}
	u.waitSearch()
}

// waitSearch waits for the running search to end on its own.
func (u *UCI) waitSearch() {
	if u.searchDone == nil {
		return
	}
	<-u.searchDone
	u.searchDone, u.cancel = nil, nil
}

func (u *UCI) sendBestMove(pos *board.Position, res engine.Result) {
	line := "bestmove " + board.MoveString(res.BestMove, u.chess960)
	if res.PonderMove != board.NoMove {
		line += " ponder " + board.MoveString(res.PonderMove, u.chess960)
	}
	log.Debug().Str("fen", pos.FEN()).Str("result", line).Msg("search done")
	u.println(line)
}

// formatScore renders a score for an info line: mate in moves, or
// centipawns where a pawn in the endgame is 100.
func formatScore(v int) string {
	switch {
	case v >= engine.ValueMateInMaxPly:
		return "mate " + strconv.Itoa((engine.ValueMate-v+1)/2)
	case v <= engine.ValueMatedInMaxPly:
		return "mate " + strconv.Itoa((-engine.ValueMate-v)/2)
	}
	return "cp " + strconv.Itoa(v*100/board.PawnValueEg)
}

func (u *UCI) movesString(moves []board.Move) string {
	return strings.Join(lo.Map(moves, func(m board.Move, _ int) string {
		return board.MoveString(m, u.chess960)
	}), " ")
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	if info.CurrMove != board.NoMove {
		u.printf("info depth %d currmove %s currmovenumber %d\n",
			info.Depth, board.MoveString(info.CurrMove, u.chess960), info.CurrMoveNumber)
		return
	}

	// No legal moves at the root.
	if len(info.PV) == 0 {
		u.printf("info depth 0 score %s\n", formatScore(info.Score))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d multipv %d score %s", info.Depth, info.SelDepth, info.MultiPV, formatScore(info.Score))
	switch info.Bound {
	case engine.BoundLower:
		sb.WriteString(" lowerbound")
	case engine.BoundUpper:
		sb.WriteString(" upperbound")
	}
	fmt.Fprintf(&sb, " nodes %d nps %d hashfull %d time %d pv %s",
		info.Nodes, info.NPS, info.HashFull, info.Time.Milliseconds(), u.movesString(info.PV))
	u.println(sb.String())
}

// reportStored prints the stored analysis of the current position when it
// is deeper than the requested search.
func (u *UCI) reportStored(limits engine.Limits) {
	if u.store == nil {
		return
	}
	a, err := u.store.Get(u.position.FEN())
	if err != nil {
		return
	}
	if limits.Depth > 0 && a.Depth < limits.Depth {
		return
	}
	u.printf("info string stored depth %d score %s bestmove %s pv %s\n",
		a.Depth, formatScore(a.Score), a.BestMove, strings.Join(a.PV, " "))
}

func (u *UCI) saveAnalysis(pos *board.Position, res engine.Result) {
	if u.store == nil || res.BestMove == board.NoMove || res.Depth == 0 {
		return
	}
	a := storage.Analysis{
		FEN:      pos.FEN(),
		BestMove: board.MoveString(res.BestMove, u.chess960),
		Score:    res.Score,
		Depth:    res.Depth,
		Nodes:    res.Nodes,
		PV:       strings.Fields(u.movesString(res.PV)),
	}
	if res.PonderMove != board.NoMove {
		a.PonderMove = board.MoveString(res.PonderMove, u.chess960)
	}
	if _, err := u.store.Put(a); err != nil {
		log.Error().Err(err).Str("fen", a.FEN).Msg("saving analysis")
	}
}

// handlePerft prints the node count below every root move and the total.
func (u *UCI) handlePerft(args []string) error {
	depth := 5
	if len(args) > 0 {
		var err error
		if depth, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("bad depth: %w", err)
		}
	}

	start := time.Now()
	pos := &board.Position{}
	pos.CopyFrom(u.position)
	nodes := board.Divide(pos, depth, func(m board.Move, n uint64) {
		u.printf("%s: %d\n", board.MoveString(m, u.chess960), n)
	})
	elapsed := time.Since(start)

	u.printf("\nNodes searched: %d\n", nodes)
	log.Debug().Uint64("nodes", nodes).Dur("elapsed", elapsed).Msg("perft")
	return nil
}
