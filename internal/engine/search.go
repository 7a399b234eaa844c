package engine

import (
	"math"
	"time"

	"github.com/hailam/chesscore/internal/board"
	"golang.org/x/exp/constraints"
)

// Search constants
const (
	MaxPly = 128

	ValueZero     = 0
	ValueDraw     = 0
	ValueKnownWin = 10000
	ValueMate     = 32000
	ValueInfinite = 32001
	ValueNone     = 32002

	ValueMateInMaxPly  = ValueMate - MaxPly
	ValueMatedInMaxPly = -ValueMate + MaxPly
)

// Depths are counted in plies. Quiescence search continues into negative
// depths; the first quiescence ply also tries quiet checks.
const (
	DepthZero         = 0
	DepthQSChecks     = 0
	DepthQSNoChecks   = -1
	DepthQSRecaptures = -5
	DepthNone         = -6
)

// Pruning constants
const (
	razorDepth          = 4
	futilityDepth       = 7
	nullMoveMinDepth    = 2
	nullVerifyDepth     = 12
	probcutMinDepth     = 5
	probcutMargin       = 200
	probcutReduction    = 4
	singularMinDepth    = 8
	lmrMinDepth         = 3
	moveCountPruneDepth = 16
	qsFutilityMargin    = 64
	iidEvalMargin       = 128
	seePruneDepth       = 4
)

// MateIn returns the score of giving mate in ply plies from the root.
func MateIn(ply int) int { return ValueMate - ply }

// MatedIn returns the score of being mated in ply plies from the root.
func MatedIn(ply int) int { return -ValueMate + ply }

type nodeType uint8

const (
	nodeRoot nodeType = iota
	nodePV
	nodeNonPV
	nodeSplitPointRoot
	nodeSplitPointPV
	nodeSplitPointNonPV
)

func (nt nodeType) isRoot() bool {
	return nt == nodeRoot || nt == nodeSplitPointRoot
}

func (nt nodeType) isPV() bool {
	return nt != nodeNonPV && nt != nodeSplitPointNonPV
}

func (nt nodeType) isSplitPoint() bool {
	return nt >= nodeSplitPointRoot
}

// splitPointType maps a node type to the variant searched by split point
// participants.
func (nt nodeType) splitPointType() nodeType {
	if nt.isSplitPoint() {
		return nt
	}
	return nt + nodeSplitPointRoot
}

// Stack is the per-ply search state. A node reads its parent and
// grandparent entries and resets the entries of its children, so every
// stack window passed to search starts two entries above the node's
// ancestors: stack[2] is the node itself.
type Stack struct {
	splitPoint   *SplitPoint
	ply          int
	currentMove  board.Move
	ttMove       board.Move
	excludedMove board.Move
	killers      [2]board.Move
	reduction    int
	staticEval   int
	skipNullMove bool
}

// stackSize covers MaxPly+1 plies plus two sentinels below the root and the
// two child entries a node at the last ply resets.
const stackSize = MaxPly + 6

var (
	// reductions[pv][improving][depth][moveCount] in plies.
	reductions [2][2][64][64]int8

	// futilityMoveCounts[improving][depth] is the number of quiet moves
	// searched before the rest are pruned at shallow depth.
	futilityMoveCounts [2][moveCountPruneDepth]int
)

func init() {
	for d := 1; d < 64; d++ {
		for mc := 1; mc < 64; mc++ {
			ll := math.Log(float64(d)) * math.Log(float64(mc))
			pvRed := ll / 3.0
			nonPVRed := 0.33 + ll/2.25
			if pvRed >= 1.0 {
				reductions[1][1][d][mc] = int8(pvRed + 0.5)
			}
			if nonPVRed >= 1.0 {
				reductions[0][1][d][mc] = int8(nonPVRed + 0.5)
			}
			reductions[1][0][d][mc] = reductions[1][1][d][mc]
			reductions[0][0][d][mc] = reductions[0][1][d][mc]
			if reductions[0][0][d][mc] >= 2 {
				reductions[0][0][d][mc]++
			}
		}
	}

	for d := range moveCountPruneDepth {
		hd := float64(2 * d)
		futilityMoveCounts[0][d] = int(2.4 + 0.773*math.Pow(hd, 1.8))
		futilityMoveCounts[1][d] = int(2.9 + 1.045*math.Pow(hd+0.49, 1.8))
	}
}

func reduction(pv, improving bool, depth, moveCount int) int {
	return int(reductions[b2i(pv)][b2i(improving)][min(depth, 63)][min(moveCount, 63)])
}

func razorMargin(depth int) int    { return 256 + 16*depth }
func futilityMargin(depth int) int { return 100 * depth }

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// abs returns the absolute value of x.
func abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// clamp limits v to [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// ttCutoff reports whether a stored bound proves the node's result. PV nodes
// only accept exact scores.
func ttCutoff(pvNode bool, b Bound, ttValue, beta int) bool {
	switch {
	case pvNode:
		return b == BoundExact
	case ttValue >= beta:
		return b&BoundLower != 0
	default:
		return b&BoundUpper != 0
	}
}

// boundImproves returns the bound a TT value must carry to replace a static
// evaluation in the direction it moves the score.
func boundImproves(ttValue, eval int) Bound {
	if ttValue > eval {
		return BoundLower
	}
	return BoundUpper
}

func pawnOn7th(pos *board.Position, c board.Color) bool {
	rank := board.Rank7
	if c == board.Black {
		rank = board.Rank2
	}
	return pos.PiecesOf(c, board.Pawn)&rank != 0
}

func givesCheckFast(pos *board.Position, m board.Move, ci *board.CheckInfo) bool {
	if m.Type() == board.Normal && ci.DcCandidates == 0 {
		return ci.CheckSquares[pos.PieceOn(m.From()).Type()].IsSet(m.To())
	}
	return pos.GivesCheck(m, ci)
}

// search is the alpha-beta search with principal variation, null-window,
// root and split point variants selected by nt. stack[2] is this node.
func (w *Worker) search(pos *board.Position, stack []Stack, alpha, beta, depth int, cutNode bool, nt nodeType) int {
	e := w.engine
	rootNode, pvNode, spNode := nt.isRoot(), nt.isPV(), nt.isSplitPoint()
	ss, prev, next := &stack[2], &stack[1], &stack[3]
	us := pos.SideToMove()
	inCheck := pos.InCheck()

	var (
		sp                    *SplitPoint
		state                 *splitState
		mp                    *MovePicker
		quiets                [64]board.Move
		quietCount, moveCount int
		bestMove, ttMove      board.Move
		excludedMove          board.Move
		bestValue, eval       int
		ttValue               = ValueNone
		tte                   TTEntry
		ttHit                 bool
		posKey                uint64
	)

	if spNode {
		sp = ss.splitPoint
		state = sp.shared.Lock()
		bestMove, bestValue = state.bestMove, state.bestValue
		mp = state.picker
		goto movesLoop
	}

	// Node initialization
	bestValue = -ValueInfinite
	ss.currentMove, ss.ttMove = board.NoMove, board.NoMove
	next.excludedMove = board.NoMove
	ss.ply = prev.ply + 1
	next.skipNullMove = false
	next.reduction = 0
	stack[4].killers = [2]board.Move{}

	if pvNode && int32(ss.ply) > w.selDepth.Load() {
		w.selDepth.Store(int32(ss.ply))
	}

	if !rootNode {
		if e.signals.stop.Load() || pos.IsDraw() || ss.ply > MaxPly {
			if ss.ply > MaxPly && !inCheck {
				return e.evaluate(pos)
			}
			return e.drawValue[us]
		}

		// Mate distance pruning: even mating at the next ply cannot beat
		// a shorter mate already found.
		alpha = max(MatedIn(ss.ply), alpha)
		beta = min(MateIn(ss.ply+1), beta)
		if alpha >= beta {
			return alpha
		}
	}

	// Transposition table lookup. An excluded move gets its own key so the
	// singular extension search does not overwrite the full node's entry.
	excludedMove = ss.excludedMove
	posKey = pos.Key()
	if excludedMove != board.NoMove {
		posKey = board.ExclusionKey(posKey)
	}
	tte, ttHit = e.tt.Probe(posKey)
	switch {
	case rootNode:
		ttMove = e.rootMoves[e.pvIdx].PV[0]
	case ttHit:
		ttMove = tte.Move
	}
	ss.ttMove = ttMove
	if ttHit {
		ttValue = adjustScoreFromTT(tte.Value, ss.ply)
	}

	if !rootNode && ttHit && tte.Depth >= depth && ttValue != ValueNone && ttCutoff(pvNode, tte.Bound, ttValue, beta) {
		ss.currentMove = ttMove
		if ttValue >= beta && ttMove != board.NoMove && !pos.IsCaptureOrPromotion(ttMove) && !inCheck {
			e.updateStats(pos, stack, ttMove, depth, nil)
		}
		return ttValue
	}

	// Static evaluation
	if inCheck {
		ss.staticEval, eval = ValueNone, ValueNone
		goto movesLoop
	}
	if ttHit {
		eval = tte.Eval
		if eval == ValueNone {
			eval = e.evaluate(pos)
		}
		ss.staticEval = eval
		if ttValue != ValueNone && tte.Bound&boundImproves(ttValue, eval) != 0 {
			eval = ttValue
		}
	} else {
		eval = e.evaluate(pos)
		ss.staticEval = eval
		e.tt.Store(posKey, ValueNone, BoundNone, DepthNone, board.NoMove, ss.staticEval)
	}

	if pos.CapturedPieceType() == board.NoPieceType && ss.staticEval != ValueNone && prev.staticEval != ValueNone {
		if m := prev.currentMove; m.IsOK() && m.Type() == board.Normal {
			to := m.To()
			e.gains.Update(pos.PieceOn(to), to, -prev.staticEval-ss.staticEval)
		}
	}

	// Razoring
	if !pvNode && depth < razorDepth && eval+razorMargin(depth) <= alpha && ttMove == board.NoMove && !pawnOn7th(pos, us) {
		if depth <= 1 && eval+razorMargin(3) <= alpha {
			return w.qsearch(pos, stack, alpha, beta, DepthZero, false, false)
		}
		ralpha := alpha - razorMargin(depth)
		if v := w.qsearch(pos, stack, ralpha, ralpha+1, DepthZero, false, false); v <= ralpha {
			return v
		}
	}

	// Reverse futility pruning
	if !pvNode && !ss.skipNullMove && depth < futilityDepth && eval-futilityMargin(depth) >= beta &&
		abs(beta) < ValueMateInMaxPly && abs(eval) < ValueKnownWin && pos.HasNonPawnMaterial(us) {
		return eval - futilityMargin(depth)
	}

	// Null move search with verification at high depths
	if !pvNode && !ss.skipNullMove && depth >= nullMoveMinDepth && eval >= beta &&
		abs(beta) < ValueMateInMaxPly && pos.HasNonPawnMaterial(us) {
		ss.currentMove = board.NullMove
		r := 3 + depth/4
		if eval-board.PawnValueMg > beta {
			r++
		}

		pos.DoNullMove()
		next.skipNullMove = true
		var nullValue int
		if depth-r < 1 {
			nullValue = -w.qsearch(pos, stack[1:], -beta, -beta+1, DepthZero, false, false)
		} else {
			nullValue = -w.search(pos, stack[1:], -beta, -beta+1, depth-r, !cutNode, nodeNonPV)
		}
		next.skipNullMove = false
		pos.UndoNullMove()

		if nullValue >= beta {
			// Do not return unproven mates
			if nullValue >= ValueMateInMaxPly {
				nullValue = beta
			}
			if depth < nullVerifyDepth {
				return nullValue
			}

			ss.skipNullMove = true
			var v int
			if depth-r < 1 {
				v = w.qsearch(pos, stack, beta-1, beta, DepthZero, false, false)
			} else {
				v = w.search(pos, stack, beta-1, beta, depth-r, false, nodeNonPV)
			}
			ss.skipNullMove = false
			if v >= beta {
				return nullValue
			}
		}
	}

	// ProbCut: a good capture that beats beta by a margin at reduced depth
	// almost certainly beats beta at full depth.
	if !pvNode && depth >= probcutMinDepth && !ss.skipNullMove && abs(beta) < ValueMateInMaxPly {
		rbeta := min(beta+probcutMargin, ValueInfinite)
		pc := w.picker(ss)
		pc.InitProbCut(pos, ttMove, &e.history, pos.CapturedPieceType())
		ci := pos.NewCheckInfo()
		for m := pc.NextMove(); m != board.NoMove; m = pc.NextMove() {
			if !pos.Legal(m, ci.Pinned) {
				continue
			}
			ss.currentMove = m
			pos.DoMoveCheck(m, givesCheckFast(pos, m, &ci))
			v := -w.search(pos, stack[1:], -rbeta, -rbeta+1, depth-probcutReduction, !cutNode, nodeNonPV)
			pos.UndoMove(m)
			if v >= rbeta {
				return v
			}
		}
	}

	// Internal iterative deepening
	if ttMove == board.NoMove && (depth >= 8 || (pvNode && depth >= 5)) && (pvNode || ss.staticEval+iidEvalMargin >= beta) {
		d := depth - 2
		iidType := nodePV
		if !pvNode {
			d -= depth / 4
			iidType = nodeNonPV
		}
		ss.skipNullMove = true
		w.search(pos, stack, alpha, beta, d, true, iidType)
		ss.skipNullMove = false

		if tte, ttHit = e.tt.Probe(posKey); ttHit {
			ttMove = tte.Move
			ttValue = adjustScoreFromTT(tte.Value, ss.ply)
		}
	}

movesLoop:
	prevSq := prev.currentMove.To()
	counterMoves := e.counterMoves.Get(pos.PieceOn(prevSq), prevSq)
	prevOwnSq := stack[0].currentMove.To()
	followupMoves := e.followupMoves.Get(pos.PieceOn(prevOwnSq), prevOwnSq)

	if !spNode {
		mp = w.picker(ss)
		mp.InitMain(pos, ttMove, depth, &e.history, counterMoves, followupMoves, ss)
	}
	ci := pos.NewCheckInfo()
	improving := ss.staticEval >= stack[0].staticEval || ss.staticEval == ValueNone || stack[0].staticEval == ValueNone
	singularExtensionNode := !rootNode && !spNode && depth >= singularMinDepth && ttMove != board.NoMove &&
		excludedMove == board.NoMove && ttHit && tte.Bound&BoundLower != 0 && tte.Depth >= depth-3

	// Loop through the moves. At a split point the shared picker and counters
	// are only touched while holding the split point lock.
	for {
		m := mp.NextMove()
		if m == board.NoMove {
			break
		}
		if m == excludedMove {
			continue
		}
		// At the root only the moves of the current and later PV lines are
		// searched, which also honours searchmoves.
		if rootNode && !e.isRootMove(m) {
			continue
		}

		if spNode {
			if !pos.Legal(m, ci.Pinned) {
				continue
			}
			state.moveCount++
			moveCount = state.moveCount
			sp.shared.Unlock()
		} else {
			moveCount++
		}

		if rootNode {
			e.signals.firstRootMove.Store(moveCount == 1)
			if w.idx == 0 && time.Since(e.searchStart) > currMoveReportDelay {
				e.reportCurrMove(m, moveCount+e.pvIdx, depth)
			}
		}

		ext := 0
		captureOrPromotion := pos.IsCaptureOrPromotion(m)
		givesCheck := givesCheckFast(pos, m, &ci)
		dangerous := givesCheck || m.Type() != board.Normal || pos.AdvancedPawnPush(m)

		// Check extension
		if givesCheck && pos.SEESign(m) >= 0 {
			ext = 1
		}

		// Singular extension: the TT move is extended when every other move
		// fails low against a margin below its stored value.
		if singularExtensionNode && m == ttMove && ext == 0 && pos.Legal(m, ci.Pinned) && abs(ttValue) < ValueKnownWin {
			rBeta := ttValue - depth
			ss.excludedMove = m
			ss.skipNullMove = true
			v := w.search(pos, stack, rBeta-1, rBeta, depth/2, cutNode, nodeNonPV)
			ss.skipNullMove = false
			ss.excludedMove = board.NoMove
			if v < rBeta {
				ext = 1
			}
		}

		newDepth := depth - 1 + ext

		// Pruning at shallow depth
		if !pvNode && !captureOrPromotion && !inCheck && !dangerous && bestValue > ValueMatedInMaxPly {
			if depth < moveCountPruneDepth && moveCount >= futilityMoveCounts[b2i(improving)][depth] {
				if spNode {
					state = sp.shared.Lock()
				}
				continue
			}

			predictedDepth := newDepth - reduction(pvNode, improving, depth, moveCount)

			if predictedDepth < futilityDepth {
				futilityValue := ss.staticEval + futilityMargin(predictedDepth) + qsFutilityMargin + e.gains.Get(pos.MovedPiece(m), m.To())
				if futilityValue <= alpha {
					bestValue = max(bestValue, futilityValue)
					if spNode {
						state = sp.shared.Lock()
						if bestValue > state.bestValue {
							state.bestValue = bestValue
						}
					}
					continue
				}
			}

			if predictedDepth < seePruneDepth && pos.SEESign(m) < 0 {
				if spNode {
					state = sp.shared.Lock()
				}
				continue
			}
		}

		// Root and split point moves were checked for legality already.
		if !rootNode && !spNode && !pos.Legal(m, ci.Pinned) {
			moveCount--
			continue
		}

		pvMove := pvNode && moveCount == 1
		ss.currentMove = m
		if !spNode && !captureOrPromotion && quietCount < len(quiets) {
			quiets[quietCount] = m
			quietCount++
		}

		pos.DoMoveCheck(m, givesCheck)

		var value int
		doFullDepthSearch := !pvMove

		// Late move reductions
		if depth >= lmrMinDepth && !pvMove && !captureOrPromotion && m != ttMove && m != ss.killers[0] && m != ss.killers[1] {
			ss.reduction = reduction(pvNode, improving, depth, moveCount)
			if !pvNode && cutNode {
				ss.reduction++
			}
			if m == counterMoves[0] || m == counterMoves[1] {
				ss.reduction = max(0, ss.reduction-1)
			}

			if spNode {
				alpha = sp.Alpha()
			}
			d := max(newDepth-ss.reduction, 1)
			value = -w.search(pos, stack[1:], -(alpha + 1), -alpha, d, true, nodeNonPV)

			// Re-search at an intermediate depth when a large reduction
			// fails high.
			if value > alpha && ss.reduction >= 4 {
				d2 := max(newDepth-2, 1)
				value = -w.search(pos, stack[1:], -(alpha + 1), -alpha, d2, true, nodeNonPV)
			}

			doFullDepthSearch = value > alpha && ss.reduction != 0
			ss.reduction = 0
		}

		if doFullDepthSearch {
			if spNode {
				alpha = sp.Alpha()
			}
			if newDepth < 1 {
				value = -w.qsearch(pos, stack[1:], -(alpha + 1), -alpha, DepthZero, false, givesCheck)
			} else {
				value = -w.search(pos, stack[1:], -(alpha + 1), -alpha, newDepth, !cutNode, nodeNonPV)
			}
		}

		// Full window search for the first move of a PV node and for any
		// move that raised alpha in the null window search.
		if pvNode && (pvMove || (value > alpha && (rootNode || value < beta))) {
			if newDepth < 1 {
				value = -w.qsearch(pos, stack[1:], -beta, -alpha, DepthZero, true, givesCheck)
			} else {
				value = -w.search(pos, stack[1:], -beta, -alpha, newDepth, false, nodePV)
			}
		}

		pos.UndoMove(m)

		if spNode {
			state = sp.shared.Lock()
			bestValue = state.bestValue
			alpha = sp.Alpha()
		}

		// A stop or a cutoff elsewhere makes value unreliable; return
		// without touching best move, PV or TT.
		if e.signals.stop.Load() || w.cutoffOccurred() {
			if spNode {
				sp.shared.Unlock()
			}
			return ValueZero
		}

		if rootNode {
			rm := e.findRootMove(m)
			if pvMove || value > alpha {
				rm.Score = value
				rm.extractPVFromTT(pos, e.tt)
				if !pvMove {
					e.bestMoveChanges++
				}
			} else {
				// Sorting is stable, so every move but the new PV keeps its
				// place in the list.
				rm.Score = -ValueInfinite
			}
		}

		if value > bestValue {
			bestValue = value
			if spNode {
				state.bestValue = value
			}
			if value > alpha {
				bestMove = m
				if spNode {
					state.bestMove = m
				}
				if pvNode && value < beta {
					alpha = value
					if spNode {
						sp.setAlpha(value)
					}
				} else {
					if spNode {
						sp.cutoff.Store(true)
					}
					break
				}
			}
		}

		// Hand the remaining moves to idle threads.
		if !spNode && e.pool.Size() >= 2 && depth >= e.pool.minSplitDepth && w.canSplit() {
			bestValue, bestMove = w.split(pos, stack, alpha, beta, bestValue, bestMove, depth, moveCount, mp, nt, cutNode)
			if e.signals.stop.Load() || w.cutoffOccurred() {
				return ValueZero
			}
			if bestValue >= beta {
				break
			}
		}
	}

	if spNode {
		sp.shared.Unlock()
		return bestValue
	}

	// No legal move: mate or stalemate. A node searched with an excluded
	// move reports a fail low instead.
	if moveCount == 0 {
		switch {
		case excludedMove != board.NoMove:
			bestValue = alpha
		case inCheck:
			bestValue = MatedIn(ss.ply)
		default:
			bestValue = e.drawValue[us]
		}
	} else if bestValue >= beta && !pos.IsCaptureOrPromotion(bestMove) && !inCheck {
		e.updateStats(pos, stack, bestMove, depth, quiets[:max(quietCount-1, 0)])
	}

	bound := BoundUpper
	switch {
	case bestValue >= beta:
		bound = BoundLower
	case pvNode && bestMove != board.NoMove:
		bound = BoundExact
	}
	e.tt.Store(posKey, adjustScoreToTT(bestValue, ss.ply), bound, depth, bestMove, ss.staticEval)

	return bestValue
}

// qsearch searches captures, promotions and, at its first ply, quiet checks
// until the position is quiet. depth is zero or negative.
func (w *Worker) qsearch(pos *board.Position, stack []Stack, alpha, beta, depth int, pvNode, inCheck bool) int {
	e := w.engine
	ss, prev := &stack[2], &stack[1]
	oldAlpha := alpha
	bestMove := board.NoMove

	ss.currentMove = board.NoMove
	ss.ply = prev.ply + 1

	if pos.IsDraw() || ss.ply > MaxPly {
		if ss.ply > MaxPly && !inCheck {
			return e.evaluate(pos)
		}
		return e.drawValue[pos.SideToMove()]
	}

	// Only two depths are stored from quiescence: with and without checks.
	ttDepth := DepthQSNoChecks
	if inCheck || depth >= DepthQSChecks {
		ttDepth = DepthQSChecks
	}

	posKey := pos.Key()
	tte, ttHit := e.tt.Probe(posKey)
	ttMove, ttValue := board.NoMove, ValueNone
	if ttHit {
		ttMove = tte.Move
		ttValue = adjustScoreFromTT(tte.Value, ss.ply)
	}
	if ttHit && tte.Depth >= ttDepth && ttValue != ValueNone && ttCutoff(pvNode, tte.Bound, ttValue, beta) {
		ss.currentMove = ttMove
		return ttValue
	}

	var bestValue, futilityBase int
	if inCheck {
		ss.staticEval = ValueNone
		bestValue, futilityBase = -ValueInfinite, -ValueInfinite
	} else {
		if ttHit {
			bestValue = tte.Eval
			if bestValue == ValueNone {
				bestValue = e.evaluate(pos)
			}
			ss.staticEval = bestValue
			if ttValue != ValueNone && tte.Bound&boundImproves(ttValue, bestValue) != 0 {
				bestValue = ttValue
			}
		} else {
			bestValue = e.evaluate(pos)
			ss.staticEval = bestValue
		}

		// Stand pat
		if bestValue >= beta {
			if !ttHit {
				e.tt.Store(posKey, adjustScoreToTT(bestValue, ss.ply), BoundLower, DepthNone, board.NoMove, ss.staticEval)
			}
			return bestValue
		}
		if pvNode && bestValue > alpha {
			alpha = bestValue
		}
		futilityBase = bestValue + qsFutilityMargin
	}

	mp := w.picker(ss)
	mp.InitQSearch(pos, ttMove, depth, &e.history, prev.currentMove.To())
	ci := pos.NewCheckInfo()
	castling := board.MakeCastling(pos.SideToMove(), board.KingSide) | board.MakeCastling(pos.SideToMove(), board.QueenSide)

	for m := mp.NextMove(); m != board.NoMove; m = mp.NextMove() {
		givesCheck := givesCheckFast(pos, m, &ci)

		// Futility pruning
		if !pvNode && !inCheck && !givesCheck && m != ttMove && futilityBase > -ValueKnownWin && !pos.AdvancedPawnPush(m) {
			futilityValue := futilityBase + board.PieceValue[board.EG][pos.PieceOn(m.To()).Type()]
			if futilityValue < beta {
				bestValue = max(bestValue, futilityValue)
				continue
			}
			if futilityBase < beta && pos.SEE(m) <= 0 {
				bestValue = max(bestValue, futilityBase)
				continue
			}
		}

		// Quiet evasions are candidates for pruning once a non-mated score
		// is known and castling cannot be the only defence.
		evasionPrunable := inCheck && bestValue > ValueMatedInMaxPly && !pos.IsCapture(m) && !pos.CanCastle(castling)

		if !pvNode && (!inCheck || evasionPrunable) && m != ttMove && m.Type() != board.Promotion && pos.SEESign(m) < 0 {
			continue
		}

		if !pos.Legal(m, ci.Pinned) {
			continue
		}

		ss.currentMove = m
		pos.DoMoveCheck(m, givesCheck)
		value := -w.qsearch(pos, stack[1:], -beta, -alpha, depth-1, pvNode, givesCheck)
		pos.UndoMove(m)

		if value > bestValue {
			bestValue = value
			if value > alpha {
				if pvNode && value < beta {
					alpha = value
					bestMove = m
				} else {
					e.tt.Store(posKey, adjustScoreToTT(value, ss.ply), BoundLower, ttDepth, m, ss.staticEval)
					return value
				}
			}
		}
	}

	// In check with no legal move searched: checkmate.
	if inCheck && bestValue == -ValueInfinite {
		return MatedIn(ss.ply)
	}

	bound := BoundUpper
	if pvNode && bestValue > oldAlpha {
		bound = BoundExact
	}
	e.tt.Store(posKey, adjustScoreToTT(bestValue, ss.ply), bound, ttDepth, bestMove, ss.staticEval)

	return bestValue
}

// updateStats rewards the quiet move m that caused a fail high and
// penalizes the quiet moves searched before it.
func (e *Engine) updateStats(pos *board.Position, stack []Stack, m board.Move, depth int, quiets []board.Move) {
	ss, prev, prev2 := &stack[2], &stack[1], &stack[0]

	if ss.killers[0] != m {
		ss.killers[1] = ss.killers[0]
		ss.killers[0] = m
	}

	bonus := depth * depth
	e.history.Update(pos.MovedPiece(m), m.To(), bonus)
	for _, q := range quiets {
		e.history.Update(pos.MovedPiece(q), q.To(), -bonus)
	}

	if prev.currentMove.IsOK() {
		sq := prev.currentMove.To()
		e.counterMoves.Update(pos.PieceOn(sq), sq, m)
	}
	if prev2.currentMove.IsOK() && prev.currentMove == prev.ttMove {
		sq := prev2.currentMove.To()
		e.followupMoves.Update(pos.PieceOn(sq), sq, m)
	}
}
