package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

type pickStage int

// Stage sequences. Each group starts at its entry stage (the TT move) and
// walks forward until it reaches the next entry stage, which maps to stop.
const (
	stageMainSearch pickStage = iota
	stageGoodCaptures
	stageKillers
	stageGoodQuiets
	stageBadQuiets
	stageBadCaptures

	stageEvasion
	stageAllEvasions

	stageQSearchWithChecks
	stageQCaptures1
	stageQuietChecks

	stageProbCut
	stageProbCutCaptures

	stageRecapture
	stageRecaptures

	stageQSearchNoChecks
	stageQCaptures2

	stageStop
)

// MovePicker hands out pseudo-legal moves one at a time, best guesses first,
// generating each group lazily so that a cutoff skips the remaining work.
// Legality is left to the caller.
type MovePicker struct {
	pos     *board.Position
	history *HistoryStats
	ss      *Stack
	depth   int

	ttMove           board.Move
	counterMoves     [2]board.Move
	followupMoves    [2]board.Move
	killers          [6]board.ExtMove
	recaptureSquare  board.Square
	captureThreshold int

	stage     pickStage
	moves     board.MoveList
	list      []board.ExtMove
	cur, end  int
	endQuiets int

	badCaptures     [board.MaxMoves]board.Move
	badCaptureCount int
}

func (mp *MovePicker) setTTMove(ttm board.Move) {
	if ttm != board.NoMove && mp.pos.PseudoLegal(ttm) {
		mp.ttMove = ttm
		mp.end = 1
	}
}

// InitMain prepares mp for an interior node of the main search.
func (mp *MovePicker) InitMain(pos *board.Position, ttm board.Move, depth int, h *HistoryStats, cm, fm [2]board.Move, ss *Stack) {
	*mp = MovePicker{pos: pos, history: h, depth: depth, counterMoves: cm, followupMoves: fm, ss: ss}
	mp.stage = stageMainSearch
	if pos.InCheck() {
		mp.stage = stageEvasion
	}
	mp.setTTMove(ttm)
}

// InitQSearch prepares mp for quiescence search. Depth selects whether quiet
// checks are tried, and at very low depths only recaptures to sq are
// returned.
func (mp *MovePicker) InitQSearch(pos *board.Position, ttm board.Move, depth int, h *HistoryStats, sq board.Square) {
	*mp = MovePicker{pos: pos, history: h, depth: depth}
	switch {
	case pos.InCheck():
		mp.stage = stageEvasion
	case depth > DepthQSNoChecks:
		mp.stage = stageQSearchWithChecks
	case depth > DepthQSRecaptures:
		mp.stage = stageQSearchNoChecks
		if ttm != board.NoMove && !pos.IsCaptureOrPromotion(ttm) {
			ttm = board.NoMove
		}
	default:
		mp.stage = stageRecapture
		mp.recaptureSquare = sq
		ttm = board.NoMove
	}
	mp.setTTMove(ttm)
}

// InitProbCut prepares mp to yield only captures whose exchange value exceeds
// the value of the piece captured by the previous move.
func (mp *MovePicker) InitProbCut(pos *board.Position, ttm board.Move, h *HistoryStats, captured board.PieceType) {
	*mp = MovePicker{pos: pos, history: h, stage: stageProbCut}
	mp.captureThreshold = board.PieceValue[board.MG][captured]
	mp.setTTMove(ttm)
	if mp.ttMove != board.NoMove && (!pos.IsCapture(mp.ttMove) || pos.SEE(mp.ttMove) <= mp.captureThreshold) {
		mp.ttMove, mp.end = board.NoMove, 0
	}
}

// mvvLva orders captures by victim value, breaking ties by the cheaper
// attacker.
func (mp *MovePicker) mvvLva(m board.Move) int {
	v := board.PieceValue[board.MG][mp.pos.PieceOn(m.To()).Type()] - int(mp.pos.MovedPiece(m).Type())
	switch m.Type() {
	case board.EnPassant:
		v += board.PawnValueMg
	case board.Promotion:
		v += board.PieceValue[board.MG][m.Promotion()] - board.PawnValueMg
	}
	return v
}

func (mp *MovePicker) scoreCaptures() {
	for i := range mp.list {
		mp.list[i].Value = mp.mvvLva(mp.list[i].Move)
	}
}

func (mp *MovePicker) scoreQuiets() {
	for i := range mp.list {
		m := mp.list[i].Move
		mp.list[i].Value = mp.history.Get(mp.pos.MovedPiece(m), m.To())
	}
}

// scoreEvasions puts losing moves last ordered by exchange value, captures
// first by MVV/LVA and the remaining quiets in history order.
func (mp *MovePicker) scoreEvasions() {
	for i := range mp.list {
		m := mp.list[i].Move
		switch see := mp.pos.SEESign(m); {
		case see < 0:
			mp.list[i].Value = see - HistoryMax
		case mp.pos.IsCapture(m):
			mp.list[i].Value = mp.mvvLva(m) + HistoryMax
		default:
			mp.list[i].Value = mp.history.Get(mp.pos.MovedPiece(m), m.To())
		}
	}
}

func (mp *MovePicker) generate(gt board.GenType) {
	mp.moves.Clear()
	board.Generate(mp.pos, gt, &mp.moves)
	mp.list = mp.moves.Slice()
	mp.cur, mp.end = 0, len(mp.list)
}

func (mp *MovePicker) nextStage() {
	mp.cur = 0
	mp.stage++
	switch mp.stage {
	case stageGoodCaptures, stageQCaptures1, stageProbCutCaptures, stageRecaptures, stageQCaptures2:
		mp.generate(board.GenCaptures)
		mp.scoreCaptures()

	case stageKillers:
		mp.killers = [6]board.ExtMove{}
		mp.killers[0].Move = mp.ss.killers[0]
		mp.killers[1].Move = mp.ss.killers[1]
		n := 2
		for _, m := range mp.counterMoves {
			if m != mp.killers[0].Move && m != mp.killers[1].Move {
				mp.killers[n].Move = m
				n++
			}
		}
		for _, m := range mp.followupMoves {
			if m != mp.killers[0].Move && m != mp.killers[1].Move &&
				m != mp.killers[2].Move && m != mp.killers[3].Move {
				mp.killers[n].Move = m
				n++
			}
		}
		mp.list = mp.killers[:]
		mp.end = n

	case stageGoodQuiets:
		mp.generate(board.GenQuiets)
		mp.scoreQuiets()
		mp.endQuiets = mp.end
		mp.end = partitionPositive(mp.list[:mp.end])
		insertionSort(mp.list[:mp.end])

	case stageBadQuiets:
		mp.cur, mp.end = mp.end, mp.endQuiets
		if mp.depth >= 3 {
			insertionSort(mp.list[mp.cur:mp.end])
		}

	case stageBadCaptures:
		mp.end = mp.badCaptureCount

	case stageAllEvasions:
		mp.generate(board.GenEvasions)
		if mp.end > 1 {
			mp.scoreEvasions()
		}

	case stageQuietChecks:
		mp.generate(board.GenQuietChecks)

	case stageEvasion, stageQSearchWithChecks, stageProbCut, stageRecapture, stageQSearchNoChecks, stageStop:
		mp.stage = stageStop
		mp.end = 1
	}
}

// NextMove returns the next pseudo-legal move, or NoMove when the picker is
// exhausted. The TT move is returned at most once.
func (mp *MovePicker) NextMove() board.Move {
	for {
		for mp.cur == mp.end {
			mp.nextStage()
		}

		switch mp.stage {
		case stageMainSearch, stageEvasion, stageQSearchWithChecks, stageQSearchNoChecks, stageProbCut:
			mp.cur++
			return mp.ttMove

		case stageGoodCaptures:
			m := mp.pickBest()
			if m != mp.ttMove {
				if mp.pos.SEESign(m) >= 0 {
					return m
				}
				mp.badCaptures[mp.badCaptureCount] = m
				mp.badCaptureCount++
			}

		case stageKillers:
			m := mp.list[mp.cur].Move
			mp.cur++
			if m != board.NoMove && m != mp.ttMove && mp.pos.PseudoLegal(m) && !mp.pos.IsCapture(m) {
				return m
			}

		case stageGoodQuiets, stageBadQuiets:
			m := mp.list[mp.cur].Move
			mp.cur++
			if m != mp.ttMove && !mp.isKillerStageMove(m) {
				return m
			}

		case stageBadCaptures:
			m := mp.badCaptures[mp.cur]
			mp.cur++
			return m

		case stageAllEvasions, stageQCaptures1, stageQCaptures2:
			if m := mp.pickBest(); m != mp.ttMove {
				return m
			}

		case stageProbCutCaptures:
			if m := mp.pickBest(); m != mp.ttMove && mp.pos.SEE(m) > mp.captureThreshold {
				return m
			}

		case stageRecaptures:
			if m := mp.pickBest(); m.To() == mp.recaptureSquare {
				return m
			}

		case stageQuietChecks:
			m := mp.list[mp.cur].Move
			mp.cur++
			if m != mp.ttMove {
				return m
			}

		case stageStop:
			return board.NoMove
		}
	}
}

func (mp *MovePicker) isKillerStageMove(m board.Move) bool {
	for _, k := range mp.killers {
		if k.Move == m && m != board.NoMove {
			return true
		}
	}
	return false
}

// pickBest swaps the highest scored remaining move to the cursor and
// returns it. Among equal scores the first one wins, but the swap may move
// the displaced entry behind later equal ones.
func (mp *MovePicker) pickBest() board.Move {
	best := mp.cur
	for i := mp.cur + 1; i < mp.end; i++ {
		if mp.list[i].Value > mp.list[best].Value {
			best = i
		}
	}
	mp.list[mp.cur], mp.list[best] = mp.list[best], mp.list[mp.cur]
	m := mp.list[mp.cur].Move
	mp.cur++
	return m
}

// partitionPositive moves entries with a positive score to the front and
// returns their count.
func partitionPositive(list []board.ExtMove) int {
	n := 0
	for i := range list {
		if list[i].Value > 0 {
			list[i], list[n] = list[n], list[i]
			n++
		}
	}
	return n
}

// insertionSort sorts by descending score and is stable.
func insertionSort(list []board.ExtMove) {
	for i := 1; i < len(list); i++ {
		tmp := list[i]
		j := i
		for ; j > 0 && list[j-1].Value < tmp.Value; j-- {
			list[j] = list[j-1]
		}
		list[j] = tmp
	}
}
