package board

// Legal tests whether a pseudo-legal move leaves the mover's king safe.
// pinned must be PinnedPieces(SideToMove()).
func (p *Position) Legal(m Move, pinned Bitboard) bool {
	us := p.sideToMove
	from := m.From()
	ksq := p.KingSquare(us)

	// En passant removes two pieces from the board at once, so the only
	// reliable test is whether a slider sees the king afterwards.
	if m.Type() == EnPassant {
		to := m.To()
		capsq := Square(int(to) - PawnPush(us))
		occ := (p.Occupied() ^ SquareBB(from) ^ SquareBB(capsq)) | SquareBB(to)
		them := us.Other()
		return RookAttacks(ksq, occ)&(p.PiecesOf(them, Queen)|p.PiecesOf(them, Rook)) == 0 &&
			BishopAttacks(ksq, occ)&(p.PiecesOf(them, Queen)|p.PiecesOf(them, Bishop)) == 0
	}

	// Castling is fully checked by the generator. Other king moves are
	// tested with the king lifted off the board so it cannot block a ray.
	if from == ksq {
		if m.Type() == Castling {
			return true
		}
		return p.AttackersTo(m.To(), p.Occupied()^SquareBB(from))&p.byColor[us.Other()] == 0
	}

	// A pinned piece may only move along the line through its king.
	return pinned == 0 || !pinned.IsSet(from) || Aligned(from, m.To(), ksq)
}

// PseudoLegal reports whether m is a valid move for this position up to
// leaving the own king in check. Moves from the hash table or the killer and
// countermove tables are checked with it before being tried. In check it is
// stricter than the evasion generator: king moves onto attacked squares are
// rejected here, while the generator leaves them to Legal.
func (p *Position) PseudoLegal(m Move) bool {
	if !m.IsOK() {
		return false
	}
	us := p.sideToMove
	from, to := m.From(), m.To()
	pc := p.MovedPiece(m)

	// Uncommon move types are checked against the full list.
	if m.Type() != Normal {
		var ml MoveList
		Generate(p, GenLegal, &ml)
		return ml.Contains(m)
	}

	if (m>>12)&3 != 0 {
		return false
	}
	if pc == NoPiece || pc.Color() != us {
		return false
	}
	if p.byColor[us].IsSet(to) {
		return false
	}

	if pc.Type() == Pawn {
		// Promotions were handled above, so a pawn cannot reach the last rank.
		if to.RelativeRank(us) == 7 {
			return false
		}
		push := PawnPush(us)
		capture := PawnAttacks(from, us)&p.byColor[us.Other()]&SquareBB(to) != 0
		single := int(from)+push == int(to) && p.Empty(to)
		double := int(from)+2*push == int(to) && from.RelativeRank(us) == 1 &&
			p.Empty(to) && p.Empty(Square(int(to)-push))
		if !capture && !single && !double {
			return false
		}
	} else if !p.AttacksFrom(from).IsSet(to) {
		return false
	}

	// The evasion generator never produces moves that ignore a check, and
	// Legal relies on that, so the same moves are rejected here.
	if checkers := p.Checkers(); checkers != 0 {
		if pc.Type() != King {
			if checkers.MoreThanOne() {
				return false
			}
			if (Between(checkers.LSB(), p.KingSquare(us))|checkers)&SquareBB(to) == 0 {
				return false
			}
		} else if p.AttackersTo(to, p.Occupied()^SquareBB(from))&p.byColor[us.Other()] != 0 {
			return false
		}
	}
	return true
}

// GivesCheck reports whether a pseudo-legal move checks the enemy king,
// without making it.
func (p *Position) GivesCheck(m Move, ci *CheckInfo) bool {
	from, to := m.From(), m.To()
	pt := p.board[from].Type()

	if ci.CheckSquares[pt].IsSet(to) {
		return true
	}

	if ci.DcCandidates != 0 && ci.DcCandidates.IsSet(from) && !Aligned(from, to, ci.KingSquare) {
		return true
	}

	us := p.sideToMove
	switch m.Type() {
	case Promotion:
		return Attacks(m.Promotion(), to, p.Occupied()^SquareBB(from)).IsSet(ci.KingSquare)

	case EnPassant:
		// Direct and ordinary discovered checks are covered above; what is
		// left is a discovery through the captured pawn.
		capsq := NewSquare(to.File(), from.Rank())
		occ := (p.Occupied() ^ SquareBB(from) ^ SquareBB(capsq)) | SquareBB(to)
		return RookAttacks(ci.KingSquare, occ)&(p.PiecesOf(us, Queen)|p.PiecesOf(us, Rook)) != 0 ||
			BishopAttacks(ci.KingSquare, occ)&(p.PiecesOf(us, Queen)|p.PiecesOf(us, Bishop)) != 0

	case Castling:
		kfrom, rfrom := from, to
		kto, rto := RelativeSquare(us, C1), RelativeSquare(us, D1)
		if rfrom > kfrom {
			kto, rto = RelativeSquare(us, G1), RelativeSquare(us, F1)
		}
		occ := (p.Occupied() ^ SquareBB(kfrom) ^ SquareBB(rfrom)) | SquareBB(rto) | SquareBB(kto)
		return PseudoAttacks(Rook, rto).IsSet(ci.KingSquare) && RookAttacks(rto, occ).IsSet(ci.KingSquare)
	}
	return false
}
