package board

import (
	"errors"
	"fmt"
)

// ErrInconsistent is wrapped by every error Validate returns.
var ErrInconsistent = errors.New("inconsistent position")

// Validate cross-checks the redundant parts of the position: the bitboards,
// the piece lists and the incrementally kept state against values computed
// from the board array alone. It is meant for tests and debugging; a failure
// means a bug in move making, never bad input.
func (p *Position) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
	}

	if p.sideToMove != White && p.sideToMove != Black {
		return fail("bad side to move %d", p.sideToMove)
	}
	for c := White; c <= Black; c++ {
		if p.pieceCount[c][King] != 1 || p.board[p.KingSquare(c)] != NewPiece(King, c) {
			return fail("%s king missing", c)
		}
	}
	if p.st.EpSquare != NoSquare && p.st.EpSquare.RelativeRank(p.sideToMove) != 5 {
		return fail("en passant square %s on wrong rank", p.st.EpSquare)
	}

	if p.byColor[White]&p.byColor[Black] != 0 {
		return fail("color bitboards overlap")
	}
	if p.byColor[White]|p.byColor[Black] != p.byType[AllPieces] {
		return fail("color bitboards do not cover all pieces")
	}
	var union Bitboard
	for pt := Pawn; pt <= King; pt++ {
		if union&p.byType[pt] != 0 {
			return fail("type bitboards overlap at %s", pt)
		}
		union |= p.byType[pt]
	}
	if union != p.byType[AllPieces] {
		return fail("type bitboards do not cover all pieces")
	}

	for sq := A1; sq <= H8; sq++ {
		pc := p.board[sq]
		if pc == NoPiece {
			if p.byType[AllPieces].IsSet(sq) {
				return fail("empty square %s is occupied in bitboards", sq)
			}
			continue
		}
		if !p.PiecesOf(pc.Color(), pc.Type()).IsSet(sq) {
			return fail("piece %s on %s missing from bitboards", pc, sq)
		}
		if p.pieceList[pc.Color()][pc.Type()][p.index[sq]] != sq {
			return fail("piece list slot of %s is stale", sq)
		}
	}
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			if p.pieceCount[c][pt] != p.PiecesOf(c, pt).PopCount() {
				return fail("piece count of %s %s is %d", c, pt, p.pieceCount[c][pt])
			}
		}
	}

	var si StateInfo
	si.CastlingRights = p.st.CastlingRights
	si.EpSquare = p.st.EpSquare
	p.computeState(&si)
	switch {
	case si.Key != p.st.Key:
		return fail("key %016X, recomputed %016X", p.st.Key, si.Key)
	case si.PawnKey != p.st.PawnKey:
		return fail("pawn key mismatch")
	case si.MaterialKey != p.st.MaterialKey:
		return fail("material key mismatch")
	case si.NonPawnMaterial != p.st.NonPawnMaterial:
		return fail("non-pawn material %v, recomputed %v", p.st.NonPawnMaterial, si.NonPawnMaterial)
	case si.PSQ != p.st.PSQ:
		return fail("psq score mismatch")
	case si.Checkers != p.st.Checkers:
		return fail("checkers %X, recomputed %X", uint64(p.st.Checkers), uint64(si.Checkers))
	}

	them := p.sideToMove.Other()
	if p.AttackersTo(p.KingSquare(them), p.Occupied())&p.byColor[p.sideToMove] != 0 {
		return fail("side not to move is in check")
	}

	for c := White; c <= Black; c++ {
		for _, s := range [...]CastlingSide{KingSide, QueenSide} {
			cr := MakeCastling(c, s)
			if !p.CanCastle(cr) {
				continue
			}
			rsq := p.castlingRookSquare[cr]
			if p.board[rsq] != NewPiece(Rook, c) || p.castlingRightsMask[rsq]&cr == 0 ||
				p.castlingRightsMask[p.KingSquare(c)]&cr == 0 {
				return fail("castling right %s without king and rook in place", cr)
			}
		}
	}
	return nil
}
