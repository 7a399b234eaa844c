package board

import (
	"fmt"
	"strings"
)

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// CastlingSide selects the king or queen side.
type CastlingSide int

const (
	KingSide CastlingSide = iota
	QueenSide
)

// MakeCastling returns the single right for color c on side s.
func MakeCastling(c Color, s CastlingSide) CastlingRights {
	return WhiteKingSideCastle << (2*CastlingRights(c) + CastlingRights(s))
}

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// StateInfo holds everything DoMove cannot recover from the move itself. The
// first group is copied forward on every move; the second group is
// recomputed.
type StateInfo struct {
	PawnKey         uint64
	MaterialKey     uint64
	NonPawnMaterial [2]int
	CastlingRights  CastlingRights
	Rule50          int
	PliesFromNull   int
	PSQ             Score
	EpSquare        Square

	Key          uint64
	Checkers     Bitboard
	CapturedType PieceType
}

// initialStates is the starting capacity of the state stack. It grows on
// demand, so it only needs to cover a typical game plus a search.
const initialStates = 512

// Position represents a complete chess position.
//
// Piece lists use swap-with-last removal with index as the back-reference
// from a square to its slot. The index of a square that has just been vacated
// is stale until a piece is placed there again and must not be read.
type Position struct {
	board      [64]Piece
	byType     [PieceTypeNB + 1]Bitboard // slot AllPieces is the union
	byColor    [2]Bitboard
	pieceCount [2][PieceTypeNB]int
	pieceList  [2][PieceTypeNB][16]Square
	index      [64]int

	castlingRightsMask [64]CastlingRights
	castlingRookSquare [16]Square
	castlingPath       [16]Bitboard

	// states is the undo history; states[sp] is the current state and
	// states[sp-1] its predecessor.
	states []StateInfo
	sp     int
	st     *StateInfo

	nodes      uint64
	gamePly    int
	sideToMove Color
	chess960   bool
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	p := &Position{}
	if err := p.Set(StartFEN, false); err != nil {
		panic(err)
	}
	return p
}

// clear resets the position to an empty board with a single zeroed state.
func (p *Position) clear() {
	states := p.states
	if cap(states) < initialStates {
		states = make([]StateInfo, initialStates)
	}
	states = states[:cap(states)]
	*p = Position{states: states}
	for i := range p.board {
		p.board[i] = NoPiece
	}
	for i := range p.castlingRookSquare {
		p.castlingRookSquare[i] = NoSquare
	}
	for c := range p.pieceList {
		for pt := range p.pieceList[c] {
			for i := range p.pieceList[c][pt] {
				p.pieceList[c][pt][i] = NoSquare
			}
		}
	}
	p.states[0] = StateInfo{EpSquare: NoSquare, CapturedType: NoPieceType}
	p.st = &p.states[0]
}

// CopyFrom makes p an independent copy of src, including the move history
// needed for repetition detection. It reuses p's state storage.
func (p *Position) CopyFrom(src *Position) {
	states := p.states
	if cap(states) < src.sp+1 {
		states = make([]StateInfo, max(len(src.states), initialStates))
	}
	states = states[:cap(states)]
	*p = *src
	copy(states, src.states[:src.sp+1])
	p.states = states
	p.st = &p.states[p.sp]
	p.nodes = 0
}

// SideToMove returns the color to move.
func (p *Position) SideToMove() Color {
	return p.sideToMove
}

// PieceOn returns the piece on a square, or NoPiece.
func (p *Position) PieceOn(sq Square) Piece {
	return p.board[sq]
}

// Empty reports whether sq holds no piece.
func (p *Position) Empty(sq Square) bool {
	return p.board[sq] == NoPiece
}

// MovedPiece returns the piece that m moves.
func (p *Position) MovedPiece(m Move) Piece {
	return p.board[m.From()]
}

// Occupied returns all pieces on the board.
func (p *Position) Occupied() Bitboard {
	return p.byType[AllPieces]
}

// ByType returns the pieces of one type for both colors.
func (p *Position) ByType(pt PieceType) Bitboard {
	return p.byType[pt]
}

// ByTypes returns the pieces of either of two types for both colors.
func (p *Position) ByTypes(pt1, pt2 PieceType) Bitboard {
	return p.byType[pt1] | p.byType[pt2]
}

// ByColor returns all pieces of a color.
func (p *Position) ByColor(c Color) Bitboard {
	return p.byColor[c]
}

// PiecesOf returns the pieces of color c and type pt.
func (p *Position) PiecesOf(c Color, pt PieceType) Bitboard {
	return p.byColor[c] & p.byType[pt]
}

// Count returns the number of pieces of color c and type pt.
func (p *Position) Count(c Color, pt PieceType) int {
	return p.pieceCount[c][pt]
}

// PieceList returns the squares of the pieces of color c and type pt. The
// slice aliases internal storage and is valid until the next move.
func (p *Position) PieceList(c Color, pt PieceType) []Square {
	return p.pieceList[c][pt][:p.pieceCount[c][pt]]
}

// KingSquare returns the square of c's king.
func (p *Position) KingSquare(c Color) Square {
	return p.pieceList[c][King][0]
}

// EpSquare returns the en-passant target square or NoSquare.
func (p *Position) EpSquare() Square {
	return p.st.EpSquare
}

// CastlingRights returns the rights still available.
func (p *Position) CastlingRights() CastlingRights {
	return p.st.CastlingRights
}

// CanCastle reports whether any of the rights in cr remain.
func (p *Position) CanCastle(cr CastlingRights) bool {
	return p.st.CastlingRights&cr != 0
}

// CastlingImpeded reports whether a piece stands between king and rook or
// on their destination squares.
func (p *Position) CastlingImpeded(cr CastlingRights) bool {
	return p.byType[AllPieces]&p.castlingPath[cr] != 0
}

// CastlingRookSquare returns the initial square of the rook for right cr.
func (p *Position) CastlingRookSquare(cr CastlingRights) Square {
	return p.castlingRookSquare[cr]
}

// Checkers returns the pieces giving check to the side to move.
func (p *Position) Checkers() Bitboard {
	return p.st.Checkers
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.st.Checkers != 0
}

// Key returns the Zobrist key of the position.
func (p *Position) Key() uint64 {
	return p.st.Key
}

// PawnKey returns the Zobrist key of the pawn structure.
func (p *Position) PawnKey() uint64 {
	return p.st.PawnKey
}

// MaterialKey returns the key identifying the material signature.
func (p *Position) MaterialKey() uint64 {
	return p.st.MaterialKey
}

// NonPawnMaterial returns the middlegame value of c's pieces other than
// pawns and king.
func (p *Position) NonPawnMaterial(c Color) int {
	return p.st.NonPawnMaterial[c]
}

// PSQScore returns the incrementally kept material and placement score from
// White's point of view.
func (p *Position) PSQScore() Score {
	return p.st.PSQ
}

// Rule50 returns the half-move clock.
func (p *Position) Rule50() int {
	return p.st.Rule50
}

// GamePly returns the number of half-moves played since the game start.
func (p *Position) GamePly() int {
	return p.gamePly
}

// CapturedPieceType returns the type captured by the last move.
func (p *Position) CapturedPieceType() PieceType {
	return p.st.CapturedType
}

// Chess960 reports whether the position uses Chess960 castling rules.
func (p *Position) Chess960() bool {
	return p.chess960
}

// Nodes returns the number of moves made on this position.
func (p *Position) Nodes() uint64 {
	return loadNodes(&p.nodes)
}

// SetNodes overwrites the node counter.
func (p *Position) SetNodes(n uint64) {
	storeNodes(&p.nodes, n)
}

// HasNonPawnMaterial returns true if c has pieces besides pawns and king.
func (p *Position) HasNonPawnMaterial(c Color) bool {
	return p.st.NonPawnMaterial[c] != 0
}

// AttackersTo returns all pieces of both colors attacking sq given the
// occupancy occ.
func (p *Position) AttackersTo(sq Square, occ Bitboard) Bitboard {
	return (PawnAttacks(sq, Black) & p.PiecesOf(White, Pawn)) |
		(PawnAttacks(sq, White) & p.PiecesOf(Black, Pawn)) |
		(KnightAttacks(sq) & p.byType[Knight]) |
		(RookAttacks(sq, occ) & (p.byType[Rook] | p.byType[Queen])) |
		(BishopAttacks(sq, occ) & (p.byType[Bishop] | p.byType[Queen])) |
		(KingAttacks(sq) & p.byType[King])
}

// AttacksFrom returns the attacks of the piece on sq.
func (p *Position) AttacksFrom(sq Square) Bitboard {
	pc := p.board[sq]
	if pc.Type() == Pawn {
		return PawnAttacks(sq, pc.Color())
	}
	return Attacks(pc.Type(), sq, p.byType[AllPieces])
}

// IsCapture reports whether m captures a piece. Castling never does.
func (p *Position) IsCapture(m Move) bool {
	return (!p.Empty(m.To()) && m.Type() != Castling) || m.Type() == EnPassant
}

// IsCaptureOrPromotion reports whether m is tactical in the move-ordering
// sense.
func (p *Position) IsCaptureOrPromotion(m Move) bool {
	if m.Type() != Normal {
		return m.Type() != Castling
	}
	return !p.Empty(m.To())
}

// PawnPassed reports whether a pawn of color c on sq has no enemy pawn in
// front of it or on adjacent files ahead.
func (p *Position) PawnPassed(c Color, sq Square) bool {
	return p.PiecesOf(c.Other(), Pawn)&PassedPawnMask(c, sq) == 0
}

// AdvancedPawnPush reports whether m pushes a pawn beyond the fourth rank.
func (p *Position) AdvancedPawnPush(m Move) bool {
	return p.MovedPiece(m).Type() == Pawn && m.From().RelativeRank(p.sideToMove) > 3
}

// OppositeBishops reports whether each side has exactly one bishop and the
// two stand on squares of different shades.
func (p *Position) OppositeBishops() bool {
	return p.pieceCount[White][Bishop] == 1 && p.pieceCount[Black][Bishop] == 1 &&
		OppositeColors(p.pieceList[White][Bishop][0], p.pieceList[Black][Bishop][0])
}

// checkBlockers returns the pieces of color c that shield kingColor's king
// from an enemy slider. They are pinned when c == kingColor and discovered
// check candidates otherwise.
func (p *Position) checkBlockers(c, kingColor Color) Bitboard {
	ksq := p.KingSquare(kingColor)
	pinners := ((p.ByTypes(Rook, Queen) & PseudoAttacks(Rook, ksq)) |
		(p.ByTypes(Bishop, Queen) & PseudoAttacks(Bishop, ksq))) & p.byColor[kingColor.Other()]

	var result Bitboard
	for pinners != 0 {
		b := Between(ksq, pinners.PopLSB()) & p.byType[AllPieces]
		if b != 0 && !b.MoreThanOne() {
			result |= b & p.byColor[c]
		}
	}
	return result
}

// PinnedPieces returns c's pieces pinned to c's king.
func (p *Position) PinnedPieces(c Color) Bitboard {
	return p.checkBlockers(c, c)
}

// DiscoveredCheckCandidates returns the side to move's pieces whose removal
// would uncover a check on the enemy king.
func (p *Position) DiscoveredCheckCandidates() Bitboard {
	return p.checkBlockers(p.sideToMove, p.sideToMove.Other())
}

// CheckInfo caches what GivesCheck needs about the enemy king so that many
// moves can be classified without making them.
type CheckInfo struct {
	DcCandidates Bitboard
	Pinned       Bitboard
	CheckSquares [PieceTypeNB]Bitboard
	KingSquare   Square
}

// NewCheckInfo computes the check information for the side to move.
func (p *Position) NewCheckInfo() CheckInfo {
	them := p.sideToMove.Other()
	ksq := p.KingSquare(them)
	ci := CheckInfo{
		KingSquare:   ksq,
		Pinned:       p.PinnedPieces(p.sideToMove),
		DcCandidates: p.DiscoveredCheckCandidates(),
	}
	occ := p.byType[AllPieces]
	ci.CheckSquares[Pawn] = PawnAttacks(ksq, them)
	ci.CheckSquares[Knight] = KnightAttacks(ksq)
	ci.CheckSquares[Bishop] = BishopAttacks(ksq, occ)
	ci.CheckSquares[Rook] = RookAttacks(ksq, occ)
	ci.CheckSquares[Queen] = ci.CheckSquares[Bishop] | ci.CheckSquares[Rook]
	return ci
}

func (p *Position) putPiece(sq Square, c Color, pt PieceType) {
	bb := SquareBB(sq)
	p.board[sq] = NewPiece(pt, c)
	p.byType[AllPieces] |= bb
	p.byType[pt] |= bb
	p.byColor[c] |= bb
	p.index[sq] = p.pieceCount[c][pt]
	p.pieceList[c][pt][p.index[sq]] = sq
	p.pieceCount[c][pt]++
}

func (p *Position) movePiece(from, to Square, c Color, pt PieceType) {
	fromTo := SquareBB(from) | SquareBB(to)
	p.byType[AllPieces] ^= fromTo
	p.byType[pt] ^= fromTo
	p.byColor[c] ^= fromTo
	p.board[from] = NoPiece
	p.board[to] = NewPiece(pt, c)
	p.index[to] = p.index[from]
	p.pieceList[c][pt][p.index[to]] = to
}

func (p *Position) removePiece(sq Square, c Color, pt PieceType) {
	bb := SquareBB(sq)
	p.board[sq] = NoPiece
	p.byType[AllPieces] ^= bb
	p.byType[pt] ^= bb
	p.byColor[c] ^= bb
	p.pieceCount[c][pt]--
	last := p.pieceList[c][pt][p.pieceCount[c][pt]]
	p.index[last] = p.index[sq]
	p.pieceList[c][pt][p.index[last]] = last
	p.pieceList[c][pt][p.pieceCount[c][pt]] = NoSquare
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString(" +---+---+---+---+---+---+---+---+\n")
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			sb.WriteString(" | ")
			pc := p.board[NewSquare(file, rank)]
			if pc == NoPiece {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(pc.String())
			}
		}
		sb.WriteString(" |\n +---+---+---+---+---+---+---+---+\n")
	}
	sb.WriteString("\nFen: ")
	sb.WriteString(p.FEN())
	fmt.Fprintf(&sb, "\nKey: %016X", p.st.Key)
	sb.WriteString("\nCheckers: ")
	for b := p.st.Checkers; b != 0; {
		sb.WriteString(b.PopLSB().String())
		sb.WriteByte(' ')
	}
	sb.WriteByte('\n')
	return sb.String()
}
