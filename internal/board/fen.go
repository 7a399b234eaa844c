package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN is wrapped by every error Set returns.
var ErrInvalidFEN = errors.New("invalid FEN")

func fenError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFEN, fmt.Sprintf(format, args...))
}

// ParseFEN parses a FEN string and returns a standard-chess Position.
func ParseFEN(fen string) (*Position, error) {
	p := &Position{}
	if err := p.Set(fen, false); err != nil {
		return nil, err
	}
	return p, nil
}

// Set replaces the position with the one described by fen. Castling rights
// may use KQkq, or rook files (A-H, a-h) for Chess960 starting positions. On
// error the position is left as an empty board and must not be searched.
func (p *Position) Set(fen string, chess960 bool) error {
	p.clear()
	if err := p.set(fen, chess960); err != nil {
		p.clear()
		return err
	}
	return nil
}

func (p *Position) set(fen string, chess960 bool) error {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return fenError("need at least 4 fields, got %d", len(parts))
	}
	p.chess960 = chess960

	if err := p.parsePiecePlacement(parts[0]); err != nil {
		return err
	}

	switch parts[1] {
	case "w":
		p.sideToMove = White
	case "b":
		p.sideToMove = Black
	default:
		return fenError("invalid side to move: %s", parts[1])
	}

	if err := p.parseCastlingRights(parts[2]); err != nil {
		return err
	}

	if parts[3] != "-" {
		if err := p.parseEnPassant(parts[3]); err != nil {
			return err
		}
	}

	fullMove := 1
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil || hmc < 0 {
			return fenError("invalid half-move clock: %s", parts[4])
		}
		p.st.Rule50 = hmc
	}
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil || fmn < 0 {
			return fenError("invalid full-move number: %s", parts[5])
		}
		fullMove = fmn
	}
	p.gamePly = max(2*(fullMove-1), 0)
	if p.sideToMove == Black {
		p.gamePly++
	}

	p.computeState(p.st)

	them := p.sideToMove.Other()
	if p.AttackersTo(p.KingSquare(them), p.Occupied())&p.byColor[p.sideToMove] != 0 {
		return fenError("side not to move is in check")
	}
	return nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func (p *Position) parsePiecePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fenError("need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0

		for i := 0; i < len(rankStr); i++ {
			c := rankStr[i]
			if file > 7 {
				return fenError("too many squares in rank %d", rank+1)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(c)
			if piece == NoPiece {
				return fenError("invalid piece character: %c", c)
			}
			color, pt := piece.Color(), piece.Type()
			if pt == Pawn && (rank == 0 || rank == 7) {
				return fenError("pawn on back rank %d", rank+1)
			}
			if p.byColor[color].PopCount() == 16 || (pt == Pawn && p.pieceCount[color][Pawn] == 8) {
				return fenError("too many %s pieces", strings.ToLower(color.String()))
			}
			p.putPiece(NewSquare(file, rank), color, pt)
			file++
		}

		if file != 8 {
			return fenError("invalid number of squares in rank %d: got %d", rank+1, file)
		}
	}

	for c := White; c <= Black; c++ {
		if p.pieceCount[c][King] != 1 {
			return fenError("%s must have exactly one king", strings.ToLower(c.String()))
		}
	}
	return nil
}

// parseCastlingRights parses the castling rights section of a FEN string.
func (p *Position) parseCastlingRights(castling string) error {
	if castling == "-" {
		return nil
	}

	for _, ch := range castling {
		c := White
		if ch >= 'a' && ch <= 'z' {
			c = Black
			ch -= 'a' - 'A'
		}
		ksq := p.KingSquare(c)
		backRank := RelativeSquare(c, A1).Rank()
		if ksq.Rank() != backRank {
			return fenError("castling right %c without king on back rank", ch)
		}
		rook := NewPiece(Rook, c)

		rsq := NoSquare
		switch {
		case ch == 'K':
			for f := 7; f > ksq.File(); f-- {
				if sq := NewSquare(f, backRank); p.board[sq] == rook {
					rsq = sq
					break
				}
			}
		case ch == 'Q':
			for f := 0; f < ksq.File(); f++ {
				if sq := NewSquare(f, backRank); p.board[sq] == rook {
					rsq = sq
					break
				}
			}
		case ch >= 'A' && ch <= 'H':
			if sq := NewSquare(int(ch-'A'), backRank); p.board[sq] == rook {
				rsq = sq
			}
		default:
			return fenError("invalid castling character: %c", ch)
		}
		if rsq == NoSquare {
			return fenError("no rook for castling right %c", ch)
		}
		p.setCastlingRight(c, rsq)
	}
	return nil
}

// setCastlingRight records a right for the king of c and the rook on rfrom,
// including the squares that must be empty to castle.
func (p *Position) setCastlingRight(c Color, rfrom Square) {
	kfrom := p.KingSquare(c)
	side := QueenSide
	if kfrom < rfrom {
		side = KingSide
	}
	cr := MakeCastling(c, side)

	p.st.CastlingRights |= cr
	p.castlingRightsMask[kfrom] |= cr
	p.castlingRightsMask[rfrom] |= cr
	p.castlingRookSquare[cr] = rfrom

	kto := RelativeSquare(c, C1)
	rto := RelativeSquare(c, D1)
	if side == KingSide {
		kto = RelativeSquare(c, G1)
		rto = RelativeSquare(c, F1)
	}

	for s := min(rfrom, rto); s <= max(rfrom, rto); s++ {
		if s != kfrom && s != rfrom {
			p.castlingPath[cr] |= SquareBB(s)
		}
	}
	for s := min(kfrom, kto); s <= max(kfrom, kto); s++ {
		if s != kfrom && s != rfrom {
			p.castlingPath[cr] |= SquareBB(s)
		}
	}
}

// parseEnPassant keeps the en-passant square only when a capture is actually
// possible, so that equal positions get equal keys.
func (p *Position) parseEnPassant(field string) error {
	sq, err := ParseSquare(field)
	if err != nil {
		return fenError("invalid en passant square: %s", field)
	}
	us := p.sideToMove
	if sq.RelativeRank(us) != 5 {
		return fenError("en passant square %s on wrong rank", field)
	}
	pushed := Square(int(sq) - PawnPush(us))
	if p.board[pushed] == NewPiece(Pawn, us.Other()) && PawnAttacks(sq, us.Other())&p.PiecesOf(us, Pawn) != 0 {
		p.st.EpSquare = sq
	}
	return nil
}

// computeState fills si with everything that can be derived from the board.
// It is the reference the incremental updates are checked against.
func (p *Position) computeState(si *StateInfo) {
	si.Key, si.PawnKey, si.MaterialKey = 0, 0, 0
	si.NonPawnMaterial = [2]int{}
	si.PSQ = 0

	them := p.sideToMove.Other()
	si.Checkers = p.AttackersTo(p.KingSquare(p.sideToMove), p.Occupied()) & p.byColor[them]

	for b := p.Occupied(); b != 0; {
		sq := b.PopLSB()
		pc := p.board[sq]
		si.Key ^= zobristPiece[pc.Color()][pc.Type()][sq]
		si.PSQ += psq[pc][sq]
		if pc.Type() == Pawn {
			si.PawnKey ^= zobristPiece[pc.Color()][Pawn][sq]
		}
	}
	if si.EpSquare != NoSquare {
		si.Key ^= zobristEnPassant[si.EpSquare.File()]
	}
	if p.sideToMove == Black {
		si.Key ^= zobristSideToMove
	}
	si.Key ^= zobristCastling[si.CastlingRights]

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for cnt := 0; cnt < p.pieceCount[c][pt]; cnt++ {
				si.MaterialKey ^= zobristPiece[c][pt][cnt]
			}
		}
		for pt := Knight; pt <= Queen; pt++ {
			si.NonPawnMaterial[c] += p.pieceCount[c][pt] * PieceValue[MG][pt]
		}
	}
}

// FEN returns the FEN representation of the position.
func (p *Position) FEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.board[NewSquare(file, rank)]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.sideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	if p.chess960 && p.st.CastlingRights != NoCastling {
		for i := 0; i < 4; i++ {
			cr := CastlingRights(1 << i)
			if !p.CanCastle(cr) {
				continue
			}
			ch := byte('A' + p.castlingRookSquare[cr].File())
			if cr >= BlackKingSideCastle {
				ch += 'a' - 'A'
			}
			sb.WriteByte(ch)
		}
	} else {
		sb.WriteString(p.st.CastlingRights.String())
	}

	sb.WriteByte(' ')
	sb.WriteString(p.st.EpSquare.String())

	fullMove := 1 + (p.gamePly-int(p.sideToMove))/2
	fmt.Fprintf(&sb, " %d %d", p.st.Rule50, fullMove)
	return sb.String()
}

// Flip mirrors the position vertically and swaps the colors. Evaluation of
// a flipped position must equal that of the original.
func (p *Position) Flip() error {
	parts := strings.Fields(p.FEN())
	ranks := strings.Split(parts[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	side := "w"
	if parts[1] == "w" {
		side = "b"
	}
	ep := parts[3]
	if ep != "-" {
		if ep[1] == '3' {
			ep = ep[:1] + "6"
		} else {
			ep = ep[:1] + "3"
		}
	}
	flipped := strings.Join([]string{swapCase(strings.Join(ranks, "/")), side, swapCase(parts[2]), ep, parts[4], parts[5]}, " ")
	return p.Set(flipped, p.chess960)
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		}
		return r
	}, s)
}
