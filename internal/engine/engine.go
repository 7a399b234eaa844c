package engine

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hailam/chesscore/internal/board"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// timerResolution is the period of the stop check during a search.
	timerResolution = 5 * time.Millisecond

	// Search progress and root move details are only reported once the
	// search has been running for this long.
	currMoveReportDelay = 3 * time.Second
)

// SearchInfo contains information about the current search. A report with
// CurrMove set announces the root move being searched and carries no PV.
type SearchInfo struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Score    int
	Bound    Bound // BoundExact unless the line failed high or low
	Nodes    uint64
	NPS      uint64
	Time     time.Duration
	HashFull int // Permille of hash table used
	PV       []board.Move

	CurrMove       board.Move
	CurrMoveNumber int
}

// Result is the outcome of a search.
type Result struct {
	BestMove   board.Move
	PonderMove board.Move
	Score      int
	Depth      int
	Nodes      uint64
	PV         []board.Move
}

// Options configures an Engine.
type Options struct {
	Hash                    int // transposition table size in MB
	Threads                 int
	MultiPV                 int
	MinSplitDepth           int // 0 picks a value from the thread count
	MaxThreadsPerSplitPoint int
	Contempt                int // centipawns, positive avoids draws
	MoveOverhead            time.Duration

	// Evaluator and TimeManager default to ClassicalEvaluator and
	// ClockTimeManager when nil.
	Evaluator   Evaluator
	TimeManager TimeManager
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Hash:                    16,
		Threads:                 1,
		MultiPV:                 1,
		MaxThreadsPerSplitPoint: 5,
		MoveOverhead:            30 * time.Millisecond,
	}
}

type signals struct {
	stop            atomic.Bool
	ponder          atomic.Bool
	stopOnPonderhit atomic.Bool
	firstRootMove   atomic.Bool
	failedLowAtRoot atomic.Bool
}

// Engine is the search context: transposition table, move ordering
// statistics, thread pool and the state of the running search. One search
// runs at a time; Stop and PonderHit may be called from any goroutine.
type Engine struct {
	opts        Options
	tt          *TranspositionTable
	pool        *Pool
	evaluator   Evaluator
	timeManager TimeManager

	history       HistoryStats
	gains         GainsStats
	counterMoves  MovesStats
	followupMoves MovesStats

	searchMu sync.Mutex
	signals  signals
	cancelMu sync.Mutex
	searchID uint64

	// State of the running search. Only the main thread writes these,
	// except root move scores which split point helpers update under the
	// split point lock.
	limits          Limits
	rootPos         *board.Position
	rootMoves       []RootMove
	pvIdx           int
	multiPV         int
	completedDepth  int
	bestMoveChanges float64
	drawValue       [2]int
	searchStart     time.Time

	// Budget snapshot read by the timer goroutine.
	optimum atomic.Int64
	maximum atomic.Int64

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine and starts its helper threads.
func NewEngine(opts Options) (*Engine, error) {
	def := DefaultOptions()
	if opts.Hash <= 0 {
		opts.Hash = def.Hash
	}
	if opts.Threads <= 0 {
		opts.Threads = def.Threads
	}
	if opts.MultiPV <= 0 {
		opts.MultiPV = def.MultiPV
	}
	if opts.MaxThreadsPerSplitPoint <= 0 {
		opts.MaxThreadsPerSplitPoint = def.MaxThreadsPerSplitPoint
	}

	tt, err := NewTranspositionTable(opts.Hash)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		opts:        opts,
		tt:          tt,
		evaluator:   opts.Evaluator,
		timeManager: opts.TimeManager,
	}
	if e.evaluator == nil {
		e.evaluator = NewClassicalEvaluator()
	}
	if e.timeManager == nil {
		e.timeManager = NewClockTimeManager(opts.MoveOverhead)
	}
	e.pool = newPool(e, opts.Threads, opts.MinSplitDepth, opts.MaxThreadsPerSplitPoint)
	return e, nil
}

// Close stops any running search and terminates the helper threads.
func (e *Engine) Close() error {
	e.Stop()
	e.searchMu.Lock()
	defer e.searchMu.Unlock()
	return e.pool.stop()
}

// Options returns the current configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Stop asks the running search to finish as soon as possible.
func (e *Engine) Stop() {
	e.signals.stop.Store(true)
	e.pool.main().notify()
}

// PonderHit switches a pondering search to normal time management. If the
// search already decided to stop it does so now.
func (e *Engine) PonderHit() {
	e.signals.ponder.Store(false)
	if e.signals.stopOnPonderhit.Load() {
		e.Stop()
		return
	}
	e.pool.main().notify()
}

// Clear forgets everything learned in previous searches.
func (e *Engine) Clear() {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()
	e.tt.Clear()
	e.history.Clear()
	e.gains.Clear()
	e.counterMoves.Clear()
	e.followupMoves.Clear()
	if c, ok := e.evaluator.(interface{ Clear() }); ok {
		c.Clear()
	}
}

// ResizeHash changes the transposition table size. The table is cleared.
func (e *Engine) ResizeHash(mb int) error {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()
	if err := e.tt.Resize(mb); err != nil {
		return err
	}
	e.opts.Hash = mb
	return nil
}

// SetThreads restarts the thread pool with n threads.
func (e *Engine) SetThreads(n int) error {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()
	e.opts.Threads = n
	return e.pool.resize(e, n, e.opts.MinSplitDepth)
}

// SetSplitParameters changes the minimum split depth (0 for automatic) and
// the number of threads that may work on one split point.
func (e *Engine) SetSplitParameters(minSplitDepth, maxThreadsPerSplitPoint int) error {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()
	e.opts.MinSplitDepth = minSplitDepth
	e.opts.MaxThreadsPerSplitPoint = max(maxThreadsPerSplitPoint, 1)
	e.pool.maxThreadsPerSplitPoint = e.opts.MaxThreadsPerSplitPoint
	return e.pool.resize(e, e.opts.Threads, minSplitDepth)
}

// SetMultiPV sets the number of principal variations searched.
func (e *Engine) SetMultiPV(n int) {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()
	e.opts.MultiPV = max(n, 1)
}

// SetContempt sets the score of a draw for the side to move at the root,
// negated, in centipawns.
func (e *Engine) SetContempt(cp int) {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()
	e.opts.Contempt = cp
}

// SetMoveOverhead changes the time reserved per move for communication when
// the clock time manager is in use.
func (e *Engine) SetMoveOverhead(d time.Duration) {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()
	e.opts.MoveOverhead = d
	if tm, ok := e.timeManager.(*ClockTimeManager); ok {
		tm.MoveOverhead = d
	}
}

// HashFull returns the permille of the transposition table in use.
func (e *Engine) HashFull() int {
	return e.tt.Hashfull()
}

// Evaluate returns the static evaluation of a position from the side to
// move's point of view.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.evaluator.Evaluate(pos)
}

func (e *Engine) evaluate(pos *board.Position) int {
	return e.evaluator.Evaluate(pos)
}

// Search finds the best move for pos within limits. pos is not modified. The
// search ends when a limit is reached, Stop is called or ctx is done; a
// ponder or infinite search only returns after Stop (or PonderHit once it
// has finished).
func (e *Engine) Search(ctx context.Context, pos *board.Position, limits Limits) Result {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()

	// A cancellation of an earlier search that fires late must not stop
	// this one, hence the search id.
	e.cancelMu.Lock()
	e.searchID++
	id := e.searchID
	e.signals.stop.Store(false)
	e.signals.stopOnPonderhit.Store(false)
	e.signals.firstRootMove.Store(false)
	e.signals.failedLowAtRoot.Store(false)
	e.signals.ponder.Store(limits.Ponder)
	e.cancelMu.Unlock()

	stopOnCancel := context.AfterFunc(ctx, func() {
		e.cancelMu.Lock()
		defer e.cancelMu.Unlock()
		if e.searchID == id {
			e.Stop()
		}
	})
	defer stopOnCancel()

	e.limits = limits
	e.searchStart = time.Now()
	main := e.pool.main()
	e.rootPos = &main.positions[0]
	e.rootPos.CopyFrom(pos)
	e.rootMoves = e.rootMoves[:0]
	e.pvIdx = 0
	e.bestMoveChanges = 0

	var legal board.MoveList
	board.Generate(e.rootPos, board.GenLegal, &legal)
	for _, m := range legal.Slice() {
		if len(limits.SearchMoves) == 0 || slices.Contains(limits.SearchMoves, m.Move) {
			e.rootMoves = append(e.rootMoves, newRootMove(m.Move))
		}
	}

	us := e.rootPos.SideToMove()
	e.timeManager.Init(&e.limits, us, e.rootPos.GamePly())
	e.publishBudget()

	cf := e.opts.Contempt * board.PawnValueEg / 100
	e.drawValue[us] = ValueDraw - cf
	e.drawValue[us.Other()] = ValueDraw + cf

	for _, w := range e.pool.workers {
		w.selDepth.Store(0)
	}

	log.Debug().Str("fen", e.rootPos.FEN()).Int("rootMoves", len(e.rootMoves)).
		Int("threads", e.pool.Size()).Dur("optimum", e.timeManager.Optimum()).Msg("search started")

	var res Result
	if len(e.rootMoves) == 0 {
		res.Score = ValueDraw
		if e.rootPos.InCheck() {
			res.Score = -ValueMate
		}
		e.report(SearchInfo{Score: res.Score, Bound: BoundExact})
	} else {
		e.run(main)
		rm := &e.rootMoves[0]
		res = Result{
			BestMove: rm.PV[0],
			Score:    rm.Score,
			PV:       slices.Clone(rm.PV),
		}
		if res.Score == -ValueInfinite {
			res.Score = rm.PrevScore
		}
		if len(rm.PV) > 1 {
			res.PonderMove = rm.PV[1]
		}
	}
	res.Depth = e.completedDepth
	res.Nodes = e.pool.nodesSearched(e.rootPos)

	// A ponder or infinite search must not return before the GUI says so.
	if !e.signals.stop.Load() && (e.signals.ponder.Load() || limits.Infinite) {
		e.signals.stopOnPonderhit.Store(true)
		main.waitFor(func() bool {
			return e.signals.stop.Load() || (!limits.Infinite && !e.signals.ponder.Load())
		})
	}

	log.Debug().Str("best", board.MoveString(res.BestMove, e.rootPos.Chess960())).Int("score", res.Score).
		Int("depth", res.Depth).Uint64("nodes", res.Nodes).Dur("elapsed", time.Since(e.searchStart)).Msg("search finished")
	return res
}

// run drives the iterative deepening loop on the main thread while a timer
// goroutine enforces the limits.
func (e *Engine) run(main *Worker) {
	done := make(chan struct{})
	var timer errgroup.Group
	timer.Go(func() error {
		ticker := time.NewTicker(timerResolution)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				e.checkTime()
			}
		}
	})

	e.idLoop(main, e.rootPos)

	close(done)
	_ = timer.Wait()
}

func (e *Engine) publishBudget() {
	e.optimum.Store(int64(e.timeManager.Optimum()))
	e.maximum.Store(int64(e.timeManager.Maximum()))
}

// idLoop is the iterative deepening loop. Every iteration searches each PV
// line with an aspiration window around its previous score.
func (e *Engine) idLoop(w *Worker, pos *board.Position) {
	stack := w.stacks[0][:]
	clear(stack)
	stack[1].currentMove = board.NullMove

	e.tt.NewSearch()
	e.history.Clear()
	e.gains.Clear()
	e.counterMoves.Clear()
	e.followupMoves.Clear()

	e.multiPV = min(e.opts.MultiPV, len(e.rootMoves))
	e.completedDepth = 0
	bestValue, delta := -ValueInfinite, 0
	alpha, beta := -ValueInfinite, ValueInfinite

	for depth := 1; depth <= MaxPly && !e.signals.stop.Load(); depth++ {
		if e.limits.Depth > 0 && depth > e.limits.Depth {
			break
		}

		// Age the count so that only recent changes extend the budget.
		e.bestMoveChanges *= 0.5

		for i := range e.rootMoves {
			e.rootMoves[i].PrevScore = e.rootMoves[i].Score
		}

		for e.pvIdx = 0; e.pvIdx < e.multiPV && !e.signals.stop.Load(); e.pvIdx++ {
			alpha, beta = -ValueInfinite, ValueInfinite
			if prev := e.rootMoves[e.pvIdx].PrevScore; depth >= 5 && prev != -ValueInfinite {
				delta = 16
				alpha = max(prev-delta, -ValueInfinite)
				beta = min(prev+delta, ValueInfinite)
			}

		aspiration:
			for {
				bestValue = w.search(pos, stack, alpha, beta, depth, false, nodeRoot)

				// Searched lines with a new score move to the front; stable
				// ordering keeps the others where they were.
				sortRootMoves(e.rootMoves[e.pvIdx:])
				for i := 0; i <= e.pvIdx; i++ {
					e.rootMoves[i].insertPVInTT(pos, e.tt)
				}

				if e.signals.stop.Load() {
					break
				}

				if (bestValue <= alpha || bestValue >= beta) && time.Since(e.searchStart) > currMoveReportDelay {
					e.reportPV(pos, depth, alpha, beta)
				}

				switch {
				case bestValue <= alpha:
					alpha = max(bestValue-delta, -ValueInfinite)
					e.signals.failedLowAtRoot.Store(true)
					e.signals.stopOnPonderhit.Store(false)
				case bestValue >= beta:
					beta = min(bestValue+delta, ValueInfinite)
				default:
					break aspiration
				}
				delta += delta / 2
			}

			sortRootMoves(e.rootMoves[:e.pvIdx+1])
			if e.pvIdx+1 == e.multiPV || time.Since(e.searchStart) > currMoveReportDelay {
				e.reportPV(pos, depth, alpha, beta)
			}
		}

		if !e.signals.stop.Load() {
			e.completedDepth = depth
		}

		if e.limits.Mate > 0 && bestValue >= ValueMateInMaxPly && ValueMate-bestValue <= 2*e.limits.Mate {
			e.signals.stop.Store(true)
		}

		if e.limits.UseTimeManagement() && !e.signals.stop.Load() && !e.signals.stopOnPonderhit.Load() {
			if depth > 4 && depth < 50 && e.multiPV == 1 {
				e.timeManager.PVInstability(e.bestMoveChanges)
				e.publishBudget()
			}

			// Stop when there is no choice or the next iteration is
			// unlikely to finish in time.
			if len(e.rootMoves) == 1 || time.Since(e.searchStart) > e.timeManager.Optimum() {
				if e.signals.ponder.Load() {
					e.signals.stopOnPonderhit.Store(true)
				} else {
					e.signals.stop.Store(true)
				}
			}
		}
	}
}

// checkTime runs on the timer goroutine and raises the stop signal when a
// limit is reached.
func (e *Engine) checkTime() {
	if e.signals.ponder.Load() {
		return
	}

	var nodes uint64
	if e.limits.Nodes > 0 {
		nodes = e.pool.nodesSearched(e.rootPos)
	}

	elapsed := time.Since(e.searchStart)
	optimum, maximum := time.Duration(e.optimum.Load()), time.Duration(e.maximum.Load())
	stillAtFirstMove := e.signals.firstRootMove.Load() && !e.signals.failedLowAtRoot.Load() && elapsed > optimum*75/100
	noMoreTime := elapsed > maximum-2*timerResolution || stillAtFirstMove

	if (e.limits.UseTimeManagement() && noMoreTime) ||
		(e.limits.MoveTime > 0 && elapsed >= e.limits.MoveTime) ||
		(e.limits.Nodes > 0 && nodes >= e.limits.Nodes) {
		e.signals.stop.Store(true)
	}
}

func (e *Engine) report(info SearchInfo) {
	if e.OnInfo != nil {
		e.OnInfo(info)
	}
}

// reportPV sends one report per PV line. Lines not yet searched in this
// iteration show the previous iteration's result.
func (e *Engine) reportPV(pos *board.Position, depth, alpha, beta int) {
	if e.OnInfo == nil {
		return
	}
	elapsed := time.Since(e.searchStart)
	nodes := e.pool.nodesSearched(pos)
	nps := nodes * uint64(time.Second) / uint64(max(elapsed, time.Millisecond))
	selDepth := e.pool.maxSelDepth()
	hashFull := e.tt.Hashfull()

	for i := range e.multiPV {
		updated := i <= e.pvIdx
		if depth == 1 && !updated {
			continue
		}
		rm := &e.rootMoves[i]
		d, v := depth, rm.Score
		if !updated {
			d, v = depth-1, rm.PrevScore
		}
		bound := BoundExact
		if i == e.pvIdx {
			switch {
			case v >= beta:
				bound = BoundLower
			case v <= alpha:
				bound = BoundUpper
			}
		}
		e.OnInfo(SearchInfo{
			Depth:    d,
			SelDepth: selDepth,
			MultiPV:  i + 1,
			Score:    v,
			Bound:    bound,
			Nodes:    nodes,
			NPS:      nps,
			Time:     elapsed,
			HashFull: hashFull,
			PV:       slices.Clone(rm.PV),
		})
	}
}

func (e *Engine) reportCurrMove(m board.Move, n, depth int) {
	e.report(SearchInfo{Depth: depth, CurrMove: m, CurrMoveNumber: n, Time: time.Since(e.searchStart)})
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score >= ValueMateInMaxPly {
		return "#" + strconv.Itoa((ValueMate-score+1)/2)
	}
	if score <= ValueMatedInMaxPly {
		return "#-" + strconv.Itoa((ValueMate+score)/2)
	}

	// Convert centipawns to pawns
	sign := "+"
	if score < 0 {
		sign = "-"
		score = -score
	}
	return sign + strconv.Itoa(score/100) + "." + strconv.Itoa(score%100/10) + strconv.Itoa(score%10)
}
