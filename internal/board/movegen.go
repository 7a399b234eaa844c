package board

// GenType selects the category of moves Generate produces.
type GenType int

const (
	// GenCaptures: captures and queen promotions.
	GenCaptures GenType = iota
	// GenQuiets: non-captures including castling and under-promotions.
	GenQuiets
	// GenQuietChecks: non-captures that give check.
	GenQuietChecks
	// GenEvasions: check evasions; only valid when in check.
	GenEvasions
	// GenNonEvasions: captures and non-captures; only valid when not in check.
	GenNonEvasions
	// GenLegal: every legal move.
	GenLegal
)

// Generate appends the moves of category gt to ml. All categories except
// GenLegal produce pseudo-legal moves that still need Position.Legal.
func Generate(p *Position, gt GenType, ml *MoveList) {
	us := p.sideToMove
	switch gt {
	case GenCaptures:
		generateAll(p, ml, us, gt, p.byColor[us.Other()], nil)
	case GenQuiets:
		generateAll(p, ml, us, gt, ^p.Occupied(), nil)
	case GenNonEvasions:
		generateAll(p, ml, us, gt, ^p.byColor[us], nil)
	case GenQuietChecks:
		generateQuietChecks(p, ml)
	case GenEvasions:
		generateEvasions(p, ml)
	case GenLegal:
		generateLegal(p, ml)
	}
}

func generateLegal(p *Position, ml *MoveList) {
	start := ml.count
	if p.InCheck() {
		generateEvasions(p, ml)
	} else {
		generateAll(p, ml, p.sideToMove, GenNonEvasions, ^p.byColor[p.sideToMove], nil)
	}

	// Only king moves, en passant and moves of pinned pieces can be illegal
	// here; everything else is legal by construction.
	pinned := p.PinnedPieces(p.sideToMove)
	ksq := p.KingSquare(p.sideToMove)
	for i := start; i < ml.count; {
		m := ml.moves[i].Move
		if (pinned.IsSet(m.From()) || m.From() == ksq || m.Type() == EnPassant) && !p.Legal(m, pinned) {
			ml.count--
			ml.moves[i] = ml.moves[ml.count]
			continue
		}
		i++
	}
}

func generateQuietChecks(p *Position, ml *MoveList) {
	ci := p.NewCheckInfo()
	empty := ^p.Occupied()

	// Discovered checks by pieces; pawns are covered with the direct checks.
	for dc := ci.DcCandidates; dc != 0; {
		from := dc.PopLSB()
		pt := p.board[from].Type()
		if pt == Pawn {
			continue
		}
		b := Attacks(pt, from, p.Occupied()) & empty
		if pt == King {
			b &^= PseudoAttacks(Queen, ci.KingSquare)
		}
		for b != 0 {
			ml.Add(NewMove(from, b.PopLSB()))
		}
	}
	generateAll(p, ml, p.sideToMove, GenQuietChecks, empty, &ci)
}

func generateEvasions(p *Position, ml *MoveList) {
	us := p.sideToMove
	ksq := p.KingSquare(us)
	checkers := p.Checkers()

	// Squares on a checking slider's line stay attacked after the king steps
	// back along it, so they are removed up front.
	var sliderAttacks Bitboard
	for sliders := checkers &^ p.ByTypes(Knight, Pawn); sliders != 0; {
		checksq := sliders.PopLSB()
		sliderAttacks |= Line(checksq, ksq) ^ SquareBB(checksq)
	}

	for b := KingAttacks(ksq) &^ p.byColor[us] &^ sliderAttacks; b != 0; {
		ml.Add(NewMove(ksq, b.PopLSB()))
	}

	if checkers.MoreThanOne() {
		return
	}

	// Block the check or capture the checker.
	checksq := checkers.LSB()
	target := Between(checksq, ksq) | SquareBB(checksq)
	generateAll(p, ml, us, GenEvasions, target, nil)
}

func generateAll(p *Position, ml *MoveList, us Color, gt GenType, target Bitboard, ci *CheckInfo) {
	checks := gt == GenQuietChecks

	generatePawnMoves(p, ml, us, gt, target, ci)
	for pt := Knight; pt <= Queen; pt++ {
		generatePieceMoves(p, ml, us, pt, target, checks, ci)
	}

	if gt != GenQuietChecks && gt != GenEvasions {
		ksq := p.KingSquare(us)
		for b := KingAttacks(ksq) & target; b != 0; {
			ml.Add(NewMove(ksq, b.PopLSB()))
		}
	}

	if gt != GenCaptures && gt != GenEvasions && p.CanCastle(MakeCastling(us, KingSide)|MakeCastling(us, QueenSide)) {
		generateCastling(p, ml, us, MakeCastling(us, KingSide), checks, ci)
		generateCastling(p, ml, us, MakeCastling(us, QueenSide), checks, ci)
	}
}

func generatePieceMoves(p *Position, ml *MoveList, us Color, pt PieceType, target Bitboard, checks bool, ci *CheckInfo) {
	for _, from := range p.PieceList(us, pt) {
		if checks {
			if pt != Knight && PseudoAttacks(pt, from)&target&ci.CheckSquares[pt] == 0 {
				continue
			}
			// Already generated as discovered checks.
			if ci.DcCandidates.IsSet(from) {
				continue
			}
		}
		b := Attacks(pt, from, p.Occupied()) & target
		if checks {
			b &= ci.CheckSquares[pt]
		}
		for b != 0 {
			ml.Add(NewMove(from, b.PopLSB()))
		}
	}
}

func generateCastling(p *Position, ml *MoveList, us Color, cr CastlingRights, checks bool, ci *CheckInfo) {
	if !p.CanCastle(cr) || p.CastlingImpeded(cr) {
		return
	}

	kingSide := cr == MakeCastling(us, KingSide)
	kfrom := p.KingSquare(us)
	rfrom := p.castlingRookSquare[cr]
	kto := RelativeSquare(us, C1)
	if kingSide {
		kto = RelativeSquare(us, G1)
	}
	enemies := p.byColor[us.Other()]

	// Every square the king crosses, destination included, must be safe.
	step := 1
	if kto > kfrom {
		step = -1
	}
	for s := kto; s != kfrom; s = Square(int(s) + step) {
		if p.AttackersTo(s, p.Occupied())&enemies != 0 {
			return
		}
	}

	// In Chess960 the castling rook may be shielding the king's destination
	// from an enemy rook or queen on the back rank.
	if p.chess960 && RookAttacks(kto, p.Occupied()^SquareBB(rfrom))&(p.PiecesOf(us.Other(), Rook)|p.PiecesOf(us.Other(), Queen)) != 0 {
		return
	}

	m := NewSpecialMove(Castling, kfrom, rfrom, Knight)
	if checks && !p.GivesCheck(m, ci) {
		return
	}
	ml.Add(m)
}

func generatePromotions(ml *MoveList, gt GenType, pawnsOn7, target Bitboard, d Direction, ci *CheckInfo) {
	for b := pawnsOn7.Shift(d) & target; b != 0; {
		to := b.PopLSB()
		from := Square(int(to) - int(d))
		if gt == GenCaptures || gt == GenEvasions || gt == GenNonEvasions {
			ml.Add(NewSpecialMove(Promotion, from, to, Queen))
		}
		if gt == GenQuiets || gt == GenEvasions || gt == GenNonEvasions {
			ml.Add(NewSpecialMove(Promotion, from, to, Rook))
			ml.Add(NewSpecialMove(Promotion, from, to, Bishop))
			ml.Add(NewSpecialMove(Promotion, from, to, Knight))
		}
		// A knight is the only promotion that checks where a queen would not.
		if gt == GenQuietChecks && KnightAttacks(to).IsSet(ci.KingSquare) {
			ml.Add(NewSpecialMove(Promotion, from, to, Knight))
		}
	}
}

func generatePawnMoves(p *Position, ml *MoveList, us Color, gt GenType, target Bitboard, ci *CheckInfo) {
	them := us.Other()
	rank8, rank7, rank3 := Rank8, Rank7, Rank3
	up, right, left := DeltaN, DeltaNE, DeltaNW
	if us == Black {
		rank8, rank7, rank3 = Rank1, Rank2, Rank6
		up, right, left = DeltaS, DeltaSW, DeltaSE
	}

	pawns := p.PiecesOf(us, Pawn)
	pawnsOn7 := pawns & rank7
	pawnsNotOn7 := pawns &^ rank7

	var enemies Bitboard
	switch gt {
	case GenEvasions:
		enemies = p.byColor[them] & target
	case GenCaptures:
		enemies = target
	default:
		enemies = p.byColor[them]
	}

	emptySquares := ^p.Occupied()
	if gt == GenQuiets || gt == GenQuietChecks {
		emptySquares = target
	}

	if gt != GenCaptures {
		b1 := pawnsNotOn7.Shift(up) & emptySquares
		b2 := (b1 & rank3).Shift(up) & emptySquares

		if gt == GenEvasions {
			b1 &= target
			b2 &= target
		}

		if gt == GenQuietChecks {
			checkSq := PawnAttacks(ci.KingSquare, them)
			b1 &= checkSq
			b2 &= checkSq

			// Pushes that uncover a check. A pawn on the king's file would
			// stay on the line, and discovered promotions are already among
			// the captures.
			if dcPawns := pawnsNotOn7 & ci.DcCandidates; dcPawns != 0 {
				dc1 := dcPawns.Shift(up) & emptySquares &^ FileMask[ci.KingSquare.File()]
				dc2 := (dc1 & rank3).Shift(up) & emptySquares
				b1 |= dc1
				b2 |= dc2
			}
		}

		for b1 != 0 {
			to := b1.PopLSB()
			ml.Add(NewMove(Square(int(to)-int(up)), to))
		}
		for b2 != 0 {
			to := b2.PopLSB()
			ml.Add(NewMove(Square(int(to)-2*int(up)), to))
		}
	}

	if pawnsOn7 != 0 && (gt != GenEvasions || target&rank8 != 0) {
		if gt == GenEvasions {
			emptySquares &= target
		}
		generatePromotions(ml, gt, pawnsOn7, enemies, right, ci)
		generatePromotions(ml, gt, pawnsOn7, enemies, left, ci)
		generatePromotions(ml, gt, pawnsOn7, emptySquares, up, ci)
	}

	if gt == GenCaptures || gt == GenEvasions || gt == GenNonEvasions {
		b1 := pawnsNotOn7.Shift(right) & enemies
		b2 := pawnsNotOn7.Shift(left) & enemies
		for b1 != 0 {
			to := b1.PopLSB()
			ml.Add(NewMove(Square(int(to)-int(right)), to))
		}
		for b2 != 0 {
			to := b2.PopLSB()
			ml.Add(NewMove(Square(int(to)-int(left)), to))
		}

		if ep := p.st.EpSquare; ep != NoSquare {
			// As an evasion, en passant only helps when the pushed pawn is
			// the checker; a discovered check cannot be answered this way.
			if gt == GenEvasions && !target.IsSet(Square(int(ep)-int(up))) {
				return
			}
			for b := pawnsNotOn7 & PawnAttacks(ep, them); b != 0; {
				ml.Add(NewSpecialMove(EnPassant, b.PopLSB(), ep, Knight))
			}
		}
	}
}
