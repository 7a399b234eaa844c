package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5:   to square (0-63)
// bits 6-11:  from square (0-63)
// bits 12-13: promotion piece type - Knight (0=Knight, 1=Bishop, 2=Rook, 3=Queen)
// bits 14-15: move type (0=normal, 1=promotion, 2=en passant, 3=castling)
//
// Castling is stored as the king capturing its own rook, which covers both
// standard chess and Chess960 with one representation.
type Move uint16

// MoveType is the special-move flag stored in the top two bits.
type MoveType uint16

const (
	Normal    MoveType = 0 << 14
	Promotion MoveType = 1 << 14
	EnPassant MoveType = 2 << 14
	Castling  MoveType = 3 << 14
)

const (
	// NoMove is the empty move.
	NoMove Move = 0
	// NullMove passes the turn; from and to are both B1, which no real move has.
	NullMove Move = 65
)

// MaxMoves bounds the number of moves in any legal chess position.
const MaxMoves = 256

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(to) | Move(from)<<6
}

// NewSpecialMove creates a move with the given type. For promotions pt is
// the promoted piece type; other types ignore it.
func NewSpecialMove(t MoveType, from, to Square, pt PieceType) Move {
	if t != Promotion {
		pt = Knight
	}
	return Move(to) | Move(from)<<6 | Move(pt-Knight)<<12 | Move(t)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square((m >> 6) & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m & 0x3F)
}

// Type returns the special-move flag.
func (m Move) Type() MoveType {
	return MoveType(m & 0xC000)
}

// Promotion returns the promotion piece type (only valid for promotions).
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

// IsOK reports whether m is a real move rather than NoMove or NullMove.
func (m Move) IsOK() bool {
	return m.From() != m.To()
}

// String returns the move in coordinate notation without Chess960
// translation. Use Position.MoveString for protocol output.
func (m Move) String() string {
	switch m {
	case NoMove:
		return "(none)"
	case NullMove:
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.Type() == Promotion {
		s += string(m.Promotion().Char())
	}
	return s
}

// MoveString formats m for the UCI protocol. Castling is printed as the king's
// two-square step unless chess960 is set, where the king-takes-rook form is kept.
func MoveString(m Move, chess960 bool) string {
	if !m.IsOK() {
		if m == NoMove {
			return "(none)"
		}
		return "0000"
	}
	from, to := m.From(), m.To()
	if m.Type() == Castling && !chess960 {
		if to > from {
			to = NewSquare(6, from.Rank())
		} else {
			to = NewSquare(2, from.Rank())
		}
	}
	s := from.String() + to.String()
	if m.Type() == Promotion {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove converts a UCI coordinate string into the matching legal move of
// pos, so that special-move flags come from the generator rather than the text.
func (p *Position) ParseMove(s string) (Move, error) {
	if len(s) == 5 && s[4] >= 'A' && s[4] <= 'Z' {
		s = s[:4] + string(s[4]+'a'-'A')
	}
	var ml MoveList
	Generate(p, GenLegal, &ml)
	for _, em := range ml.Slice() {
		if MoveString(em.Move, p.chess960) == s {
			return em.Move, nil
		}
	}
	return NoMove, fmt.Errorf("illegal move %q in %s", s, p.FEN())
}

// ExtMove is a move with an ordering score.
type ExtMove struct {
	Move  Move
	Value int
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [MaxMoves]ExtMove
	count int
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count].Move = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i].Move
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i].Move == m {
			return true
		}
	}
	return false
}

// Slice returns the scored moves as a slice backed by the list.
func (ml *MoveList) Slice() []ExtMove {
	return ml.moves[:ml.count]
}
