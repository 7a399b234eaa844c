package board

// Color represents the color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

var colorNames = [...]string{"White", "Black", "NoColor"}

func (c Color) String() string {
	return colorNames[min(c, NoColor)]
}

// PieceType represents the type of a chess piece.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6

	// AllPieces indexes the union slot of Position.byType.
	AllPieces = NoPieceType

	PieceTypeNB = 6
)

var pieceTypeNames = [...]string{"Pawn", "Knight", "Bishop", "Rook", "Queen", "King", "None"}

func (pt PieceType) String() string {
	return pieceTypeNames[min(pt, NoPieceType)]
}

// Char returns the FEN character for the piece type (lowercase).
func (pt PieceType) Char() byte {
	if pt >= NoPieceType {
		return ' '
	}
	return "pnbrqk"[pt]
}

// Game phases used by the two-valued material and placement tables.
const (
	MG = 0
	EG = 1
)

// Material values in centipawns, indexed by phase then piece type.
const (
	PawnValueMg   = 100
	PawnValueEg   = 120
	KnightValueMg = 320
	KnightValueEg = 300
	BishopValueMg = 330
	BishopValueEg = 320
	RookValueMg   = 500
	RookValueEg   = 520
	QueenValueMg  = 900
	QueenValueEg  = 950
)

// PieceValue holds the material value of each piece type per phase. Kings
// have no material value; the exchange evaluator treats them separately.
var PieceValue = [2][7]int{
	{PawnValueMg, KnightValueMg, BishopValueMg, RookValueMg, QueenValueMg, 0, 0},
	{PawnValueEg, KnightValueEg, BishopValueEg, RookValueEg, QueenValueEg, 0, 0},
}

// Piece combines PieceType and Color into a single value.
// Encoded as: pieceType + color*6
type Piece uint8

const (
	WhitePawn   Piece = Piece(Pawn) + Piece(White)*6
	WhiteKnight Piece = Piece(Knight) + Piece(White)*6
	WhiteBishop Piece = Piece(Bishop) + Piece(White)*6
	WhiteRook   Piece = Piece(Rook) + Piece(White)*6
	WhiteQueen  Piece = Piece(Queen) + Piece(White)*6
	WhiteKing   Piece = Piece(King) + Piece(White)*6
	BlackPawn   Piece = Piece(Pawn) + Piece(Black)*6
	BlackKnight Piece = Piece(Knight) + Piece(Black)*6
	BlackBishop Piece = Piece(Bishop) + Piece(Black)*6
	BlackRook   Piece = Piece(Rook) + Piece(Black)*6
	BlackQueen  Piece = Piece(Queen) + Piece(Black)*6
	BlackKing   Piece = Piece(King) + Piece(Black)*6
	NoPiece     Piece = 12

	PieceNB = 12
)

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*6
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 6)
}

// String returns the FEN character for the piece.
// Uppercase for white, lowercase for black.
func (p Piece) String() string {
	if p >= NoPiece {
		return " "
	}
	return string("PNBRQKpnbrqk"[p])
}

// PieceFromChar converts a FEN character to a Piece.
func PieceFromChar(c byte) Piece {
	for i := 0; i < PieceNB; i++ {
		if "PNBRQKpnbrqk"[i] == c {
			return Piece(i)
		}
	}
	return NoPiece
}

// ValueMg returns the middlegame material value of the piece.
func (p Piece) ValueMg() int {
	return PieceValue[MG][p.Type()]
}
