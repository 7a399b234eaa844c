package board

import (
	"fmt"
	"sync/atomic"
)

// DebugChecks makes every DoMove and UndoMove verify the position against a
// from-scratch recomputation and panic on mismatch. Tests switch it on.
var DebugChecks = false

// The node counter is read by the timer goroutine while a search thread
// writes it.
func loadNodes(n *uint64) uint64     { return atomic.LoadUint64(n) }
func storeNodes(n *uint64, v uint64) { atomic.StoreUint64(n, v) }

// pushState makes room for a new state on the stack and returns it together
// with its predecessor.
func (p *Position) pushState() (prev, next *StateInfo) {
	if p.sp+1 == len(p.states) {
		p.states = append(p.states, StateInfo{})
		p.states = p.states[:cap(p.states)]
	}
	p.sp++
	prev, next = &p.states[p.sp-1], &p.states[p.sp]
	p.st = next
	return prev, next
}

func (p *Position) popState() {
	p.sp--
	p.st = &p.states[p.sp]
}

// DoMove applies a pseudo-legal move and works out the checkers itself.
func (p *Position) DoMove(m Move) {
	ci := p.NewCheckInfo()
	p.DoMoveCheck(m, p.GivesCheck(m, &ci))
}

// DoMoveCheck applies a pseudo-legal move. givesCheck must be the result of
// GivesCheck for m; it decides whether checkers are computed at all.
func (p *Position) DoMoveCheck(m Move, givesCheck bool) {
	atomic.AddUint64(&p.nodes, 1)

	prev, st := p.pushState()
	st.PawnKey = prev.PawnKey
	st.MaterialKey = prev.MaterialKey
	st.NonPawnMaterial = prev.NonPawnMaterial
	st.CastlingRights = prev.CastlingRights
	st.Rule50 = prev.Rule50 + 1
	st.PliesFromNull = prev.PliesFromNull + 1
	st.PSQ = prev.PSQ
	st.EpSquare = prev.EpSquare

	k := prev.Key ^ zobristSideToMove
	p.gamePly++

	us := p.sideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	pt := p.board[from].Type()
	captured := p.board[to].Type()
	if m.Type() == EnPassant {
		captured = Pawn
	}

	if m.Type() == Castling {
		var rfrom, rto Square
		to, rfrom, rto = p.doCastling(us, from, to, true)
		captured = NoPieceType
		rook := NewPiece(Rook, us)
		st.PSQ += psq[rook][rto] - psq[rook][rfrom]
		k ^= zobristPiece[us][Rook][rfrom] ^ zobristPiece[us][Rook][rto]
	}

	if captured != NoPieceType {
		capsq := to
		if captured == Pawn {
			if m.Type() == EnPassant {
				capsq = Square(int(to) - PawnPush(us))
			}
			st.PawnKey ^= zobristPiece[them][Pawn][capsq]
		} else {
			st.NonPawnMaterial[them] -= PieceValue[MG][captured]
		}
		p.removePiece(capsq, them, captured)
		k ^= zobristPiece[them][captured][capsq]
		st.MaterialKey ^= zobristPiece[them][captured][p.pieceCount[them][captured]]
		st.PSQ -= psq[NewPiece(captured, them)][capsq]
		st.Rule50 = 0
	}

	k ^= zobristPiece[us][pt][from] ^ zobristPiece[us][pt][to]

	if st.EpSquare != NoSquare {
		k ^= zobristEnPassant[st.EpSquare.File()]
		st.EpSquare = NoSquare
	}

	if st.CastlingRights != 0 {
		if cr := p.castlingRightsMask[from] | p.castlingRightsMask[to]; cr != 0 {
			k ^= zobristCastling[st.CastlingRights&cr]
			st.CastlingRights &^= cr
		}
	}

	if m.Type() != Castling {
		p.movePiece(from, to, us, pt)
	}

	if pt == Pawn {
		if int(to)^int(from) == 16 && PawnAttacks(Square(int(from)+PawnPush(us)), us)&p.PiecesOf(them, Pawn) != 0 {
			st.EpSquare = Square((int(from) + int(to)) / 2)
			k ^= zobristEnPassant[st.EpSquare.File()]
		} else if m.Type() == Promotion {
			promo := m.Promotion()
			p.removePiece(to, us, Pawn)
			p.putPiece(to, us, promo)
			k ^= zobristPiece[us][Pawn][to] ^ zobristPiece[us][promo][to]
			st.PawnKey ^= zobristPiece[us][Pawn][to]
			st.MaterialKey ^= zobristPiece[us][promo][p.pieceCount[us][promo]-1] ^
				zobristPiece[us][Pawn][p.pieceCount[us][Pawn]]
			st.PSQ += psq[NewPiece(promo, us)][to] - psq[NewPiece(Pawn, us)][to]
			st.NonPawnMaterial[us] += PieceValue[MG][promo]
		}
		st.PawnKey ^= zobristPiece[us][Pawn][from] ^ zobristPiece[us][Pawn][to]
		st.Rule50 = 0
	}

	st.PSQ += psq[NewPiece(pt, us)][to] - psq[NewPiece(pt, us)][from]
	st.CapturedType = captured
	st.Key = k

	st.Checkers = 0
	if givesCheck {
		st.Checkers = p.AttackersTo(p.KingSquare(them), p.Occupied()) & p.byColor[us]
	}

	p.sideToMove = them

	if DebugChecks {
		p.mustBeValid("DoMove", m)
	}
}

// UndoMove retracts m, which must be the last move made.
func (p *Position) UndoMove(m Move) {
	p.sideToMove = p.sideToMove.Other()
	us := p.sideToMove
	from, to := m.From(), m.To()
	pt := p.board[to].Type()

	if m.Type() == Promotion {
		p.removePiece(to, us, m.Promotion())
		p.putPiece(to, us, Pawn)
		pt = Pawn
	}

	if m.Type() == Castling {
		p.doCastling(us, from, to, false)
	} else {
		p.movePiece(to, from, us, pt)
		if captured := p.st.CapturedType; captured != NoPieceType {
			capsq := to
			if m.Type() == EnPassant {
				capsq = Square(int(to) - PawnPush(us))
			}
			p.putPiece(capsq, us.Other(), captured)
		}
	}

	p.popState()
	p.gamePly--

	if DebugChecks {
		p.mustBeValid("UndoMove", m)
	}
}

// doCastling moves king and rook for a castling move encoded as king takes
// rook. It returns the king destination and both rook squares. Both pieces
// are removed before either is placed since the squares may overlap in
// Chess960.
func (p *Position) doCastling(us Color, from, to Square, do bool) (kto, rfrom, rto Square) {
	kingSide := to > from
	rfrom = to
	rto = RelativeSquare(us, D1)
	kto = RelativeSquare(us, C1)
	if kingSide {
		rto = RelativeSquare(us, F1)
		kto = RelativeSquare(us, G1)
	}
	if do {
		p.removePiece(from, us, King)
		p.removePiece(rfrom, us, Rook)
		p.putPiece(kto, us, King)
		p.putPiece(rto, us, Rook)
	} else {
		p.removePiece(kto, us, King)
		p.removePiece(rto, us, Rook)
		p.putPiece(from, us, King)
		p.putPiece(rfrom, us, Rook)
	}
	return kto, rfrom, rto
}

// DoNullMove passes the turn. The side to move must not be in check.
func (p *Position) DoNullMove() {
	prev, st := p.pushState()
	*st = *prev
	if st.EpSquare != NoSquare {
		st.Key ^= zobristEnPassant[st.EpSquare.File()]
		st.EpSquare = NoSquare
	}
	st.Key ^= zobristSideToMove
	st.Rule50++
	st.PliesFromNull = 0
	st.CapturedType = NoPieceType
	p.sideToMove = p.sideToMove.Other()
}

// UndoNullMove retracts DoNullMove.
func (p *Position) UndoNullMove() {
	p.popState()
	p.sideToMove = p.sideToMove.Other()
}

func (p *Position) mustBeValid(op string, m Move) {
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("%s %s: %v\n%s", op, m, err, p))
	}
}
